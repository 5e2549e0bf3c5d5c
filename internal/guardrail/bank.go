// Package guardrail implements the enter/exit dwell-time hysteresis bank
// described in spec.md §4.4: yaw, roll, confidence and illumination
// guardrails whose combined state determines frame reliability.
package guardrail

import (
	"math"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

const (
	minDeltaSeconds = 0
	maxDeltaSeconds = 1.0
)

// rail is one enter/exit dwell-time hysteresis gate.
type rail struct {
	active        bool
	overSeconds   float64 // dwell time spent past the enter threshold while inactive
	underSeconds  float64 // dwell time spent within the exit threshold while active
}

// reset clears a rail's dwell accumulators and forces it inactive, used when
// the bank short-circuits it (spec.md §4.4: "orientation dominates").
func (r *rail) reset() {
	r.active = false
	r.overSeconds = 0
	r.underSeconds = 0
}

// evaluate advances the rail by deltaSeconds given the current breach state
// (true if the signal is past the "enter" side this tick) and returns
// whether the rail is active after this tick.
func (r *rail) evaluate(breached bool, enterSeconds, exitSeconds, deltaSeconds float64) bool {
	if !r.active {
		if breached {
			r.overSeconds += deltaSeconds
			if r.overSeconds >= enterSeconds {
				r.active = true
				r.underSeconds = 0
			}
		} else {
			r.overSeconds = 0
		}
		return r.active
	}

	if !breached {
		r.underSeconds += deltaSeconds
		if r.underSeconds >= exitSeconds {
			r.active = false
			r.overSeconds = 0
		}
	} else {
		r.underSeconds = 0
	}
	return r.active
}

// Input is one frame's observed signals for the guardrail bank.
type Input struct {
	YawDeg         float64
	RollDeg        float64
	FaceConfidence float64
	PoseConfidence float64
	Illumination   float64
	DeltaSeconds   float64
}

// Result is the bank's per-frame verdict.
type Result struct {
	Reliability models.Reliability
	Reasons     []string
}

// Bank owns the four rails and evaluates them against a live config.Store.
type Bank struct {
	store *config.Store

	yaw          rail
	roll         rail
	confidence   rail
	illumination rail
}

// New creates a guardrail bank bound to a live config store.
func New(store *config.Store) *Bank {
	return &Bank{store: store}
}

// Evaluate advances every rail by one frame and returns the combined
// reliability verdict. Δt is clamped to [0, 1]s.
func (b *Bank) Evaluate(in Input) Result {
	dt := clamp(in.DeltaSeconds, minDeltaSeconds, maxDeltaSeconds)
	cfg := b.store.Guardrails()

	rollBreached := math.Abs(in.RollDeg) > cfg.Roll.EnterThreshold
	if b.roll.active {
		rollBreached = math.Abs(in.RollDeg) > cfg.Roll.ExitThreshold
	}
	yawBreached := math.Abs(in.YawDeg) > cfg.Yaw.EnterThreshold
	if b.yaw.active {
		yawBreached = math.Abs(in.YawDeg) > cfg.Yaw.ExitThreshold
	}

	yawNowActive := b.yaw.evaluate(yawBreached, cfg.Yaw.EnterSeconds, cfg.Yaw.ExitSeconds, dt)
	rollNowActive := b.roll.evaluate(rollBreached, cfg.Roll.EnterSeconds, cfg.Roll.ExitSeconds, dt)

	orientationActive := yawNowActive || rollNowActive

	var reasons []string
	if yawNowActive {
		reasons = append(reasons, "yaw")
	}
	if rollNowActive {
		reasons = append(reasons, "roll")
	}

	if orientationActive {
		// Orientation dominates: confidence/illumination are reset, not
		// evaluated.
		b.confidence.reset()
		b.illumination.reset()
		return Result{Reliability: models.ReliabilityUnreliable, Reasons: reasons}
	}

	confBreachEnter := in.FaceConfidence < cfg.FaceConfidence.EnterThreshold || in.PoseConfidence < cfg.PoseConfidence.EnterThreshold
	confBreachExit := in.FaceConfidence < cfg.FaceConfidence.ExitThreshold || in.PoseConfidence < cfg.PoseConfidence.ExitThreshold
	confBreached := confBreachEnter
	if b.confidence.active {
		confBreached = confBreachExit
	}
	confActive := b.confidence.evaluate(confBreached, minEnterSeconds(cfg.FaceConfidence, cfg.PoseConfidence), minExitSeconds(cfg.FaceConfidence, cfg.PoseConfidence), dt)
	if confActive {
		reasons = append(reasons, "confidence")
	}

	illumBreached := in.Illumination < cfg.Illumination.EnterThreshold
	if b.illumination.active {
		illumBreached = in.Illumination < cfg.Illumination.ExitThreshold
	}
	illumActive := b.illumination.evaluate(illumBreached, cfg.Illumination.EnterSeconds, cfg.Illumination.ExitSeconds, dt)
	if illumActive {
		reasons = append(reasons, "illumination")
	}

	if !confActive && !illumActive && !confBreachEnter && !illumBreached {
		// OK with all thresholds met resets confidence/illumination
		// (spec.md §4.4).
		b.confidence.reset()
		b.illumination.reset()
	}

	if confActive || illumActive {
		return Result{Reliability: models.ReliabilityUnreliable, Reasons: reasons}
	}
	return Result{Reliability: models.ReliabilityOK}
}

func minEnterSeconds(a, b config.GuardrailThresholds) float64 {
	if a.EnterSeconds < b.EnterSeconds {
		return a.EnterSeconds
	}
	return b.EnterSeconds
}

func minExitSeconds(a, b config.GuardrailThresholds) float64 {
	if a.ExitSeconds < b.ExitSeconds {
		return a.ExitSeconds
	}
	return b.ExitSeconds
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
