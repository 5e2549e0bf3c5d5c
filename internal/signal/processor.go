// Package signal implements the per-metric EMA smoother, outlier gate, rate
// limiter and frame-confidence gate described in spec.md §4.2.
package signal

import (
	"math"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

const (
	minDeltaSeconds = 1e-3
	maxDeltaSeconds = 0.5
)

// Sample is one raw metric observation handed to Process.
type Sample struct {
	Raw        *float32
	Confidence models.MetricConfidence
}

// FrameContext carries the per-frame values every metric is processed
// against.
type FrameContext struct {
	DeltaSeconds    float64
	Reliability     models.Reliability
	FrameConfidence *float64
	// IgnoreReliabilityPause lets debug tooling bypass the UNRELIABLE pause
	// (spec.md §4.2 step 2: "unless a debug flag overrides").
	IgnoreReliabilityPause bool
}

// state is the mutable per-metric smoother state.
type state struct {
	smoothed *float32
	lastRaw  *float32
}

// Processor owns one EMA smoother per metric key.
type Processor struct {
	store       *config.Store
	states      map[models.MetricKey]*state
	gateBlocked bool
}

// NewProcessor creates a signal processor bound to a live config store.
func NewProcessor(store *config.Store) *Processor {
	return &Processor{
		store:  store,
		states: make(map[models.MetricKey]*state),
	}
}

// BeginFrame refreshes the frame-confidence gate for the upcoming frame.
// The gate rejects when frameConfidence is nil, non-finite, <= 0 or below
// the configured threshold.
func (p *Processor) BeginFrame(frameConfidence *float64) {
	cfg := p.store.Signal()
	blocked := frameConfidence == nil ||
		!finite(*frameConfidence) ||
		*frameConfidence <= 0 ||
		*frameConfidence < cfg.ConfidenceThreshold
	p.gateBlocked = blocked
}

// Process applies the gate/outlier/rate-limit/EMA pipeline to one metric
// sample and returns the (possibly unchanged) smoothed value plus the flags
// that rode along with it.
func (p *Processor) Process(key models.MetricKey, sample Sample, fc FrameContext) models.MetricSeries {
	st, ok := p.states[key]
	if !ok {
		st = &state{}
		p.states[key] = st
	}

	mcfg := p.store.Signal().ForMetric(key)

	gated := p.gateBlocked || sample.Confidence != models.ConfidenceHigh
	reliabilityPaused := fc.Reliability == models.ReliabilityUnreliable && !fc.IgnoreReliabilityPause

	series := models.MetricSeries{
		Raw:               sample.Raw,
		Confidence:        sample.Confidence,
		Gated:             gated,
		ReliabilityPaused: reliabilityPaused,
	}

	rawMissing := sample.Raw == nil || !finite32(*sample.Raw)

	if gated || reliabilityPaused || rawMissing {
		series.Smoothed = st.smoothed
		return series
	}

	deltaSeconds := clamp(fc.DeltaSeconds, minDeltaSeconds, maxDeltaSeconds)
	raw := *sample.Raw

	if st.lastRaw != nil {
		delta := float64(raw - *st.lastRaw)
		rate := math.Abs(delta) / deltaSeconds
		if mcfg.OutlierThresholdPerSecond > 0 && rate > mcfg.OutlierThresholdPerSecond {
			series.Outlier = true
			series.Smoothed = st.smoothed
			return series
		}
		if mcfg.RateLimitPerSecond > 0 {
			maxStep := mcfg.RateLimitPerSecond * deltaSeconds
			if delta > maxStep {
				raw = *st.lastRaw + float32(maxStep)
			} else if delta < -maxStep {
				raw = *st.lastRaw - float32(maxStep)
			}
		}
	}

	alpha := mcfg.Alpha
	if alpha <= 0 {
		alpha = clamp(3*deltaSeconds/mcfg.WindowSeconds, 0.01, 1)
	}

	var next float32
	if st.smoothed == nil {
		next = raw
	} else {
		next = *st.smoothed + float32(alpha)*(raw-*st.smoothed)
	}

	rawCopy := raw
	nextCopy := next
	st.smoothed = &nextCopy
	st.lastRaw = &rawCopy

	series.Smoothed = &nextCopy
	return series
}

// LastSmoothed returns the last smoothed value for a metric, or nil if none
// has ever been produced.
func (p *Processor) LastSmoothed(key models.MetricKey) *float32 {
	if st, ok := p.states[key]; ok {
		return st.smoothed
	}
	return nil
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

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
func finite32(v float32) bool { return finite(float64(v)) }
