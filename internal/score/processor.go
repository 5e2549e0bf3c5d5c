// Package score implements the weighted-penalty EMA score and zone mapper
// described in spec.md §4.8, including its freeze policy.
package score

import (
	"math"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

// Zone mapping thresholds.
const (
	greenFloor  = 80.0
	yellowFloor = 60.0
)

// Sample is the raw deviation inputs for one frame.
type Sample struct {
	DPitch, DEHD, DDPR float64

	Unreliable      bool
	MetricsMissing  bool
	BaselinePending bool
	LowConfidence   bool
}

// Result is the score processor's per-frame output.
type Result struct {
	Score  float32
	Zone   models.Zone
	Frozen bool
	Reason string
}

// Processor owns the running EMA and previous (score, zone) pair.
type Processor struct {
	store *config.Store

	ema     *float64
	hasEMA  bool
}

// New creates a score processor bound to a live config store.
func New(store *config.Store) *Processor {
	return &Processor{store: store}
}

// Process applies the freeze policy, then either computes a fresh
// weighted-penalty EMA score or holds the previous value.
func (p *Processor) Process(s Sample) Result {
	cfg := p.store.Score()

	reason := freezeReason(s)
	if reason != "" {
		return p.hold(reason)
	}

	raw := 100 - cfg.Weights.PitchPerDeg*s.DPitch - cfg.Weights.EHDPerUnit*s.DEHD - cfg.Weights.DPRPerUnit*s.DDPR
	raw = clamp(raw, 0, 100)

	if !p.hasEMA {
		v := raw
		p.ema = &v
		p.hasEMA = true
	} else {
		next := cfg.Alpha*raw + (1-cfg.Alpha)**p.ema
		p.ema = &next
	}

	return Result{
		Score: float32(*p.ema),
		Zone:  zoneFor(*p.ema),
	}
}

func (p *Processor) hold(reason string) Result {
	cfg := p.store.Score()
	if !p.hasEMA {
		v := cfg.Neutral
		p.ema = &v
		p.hasEMA = true
	}
	return Result{
		Score:  float32(*p.ema),
		Zone:   zoneFor(*p.ema),
		Frozen: true,
		Reason: reason,
	}
}

func freezeReason(s Sample) string {
	switch {
	case s.Unreliable:
		return "unreliable"
	case s.MetricsMissing:
		return "missing-metrics"
	case s.BaselinePending:
		return "baseline-pending"
	case s.LowConfidence:
		return "low-confidence"
	default:
		return ""
	}
}

func zoneFor(ema float64) models.Zone {
	floor := math.Floor(ema)
	switch {
	case floor >= greenFloor:
		return models.ZoneGreen
	case floor >= yellowFloor:
		return models.ZoneYellow
	default:
		return models.ZoneRed
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
