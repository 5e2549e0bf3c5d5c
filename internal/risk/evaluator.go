// Package risk implements the deviation evaluator and the 4-state risk
// state machine described in spec.md §4.5 and §4.6.
package risk

import (
	"math"

	"github.com/posture-coach/engine/internal/models"
)

const degeneratePitchDeg = 45.0

// Thresholds are the risk evaluator's trigger/recovery inputs, typically
// derived from an active calibration (spec.md §4.5, §4.9).
type Thresholds struct {
	PitchThreshold     float64
	EHDThreshold       float64
	DPRThreshold       float64
	HysteresisDeltaPct float64 // e.g. 20 means recovery = threshold*0.8
}

// Baseline is the active calibration's reference values.
type Baseline struct {
	Pitch float64
	EHD   float64
	DPR   float64
	Valid bool
}

// Assessment is the risk evaluator's per-frame output.
type Assessment struct {
	DPitch, DEHD, DDPR float64
	HasPitch, HasEHD, HasDPR bool

	InsufficientSignals bool
	DegeneratePose      bool
	MissingCalibration  bool
	BaselinePending     bool
	ShouldHold          bool
	Reasons             []string

	ConditionsMet         bool
	RecoveryConditionsMet bool
}

// Evaluate computes deviations and hold/trigger conditions from smoothed
// metrics against the active baseline.
func Evaluate(metrics models.MetricValues, baseline Baseline, th Thresholds) Assessment {
	a := Assessment{MissingCalibration: !baseline.Valid, BaselinePending: metrics.Flags.BaselinePending}

	pitchSeries, havePitch := metrics.Metrics[models.MetricPitch]
	ehdSeries, haveEHD := metrics.Metrics[models.MetricEHD]
	dprSeries, haveDPR := metrics.Metrics[models.MetricDPR]

	var rawPitch float64
	var havePitchValue bool
	if havePitch && pitchSeries.Smoothed != nil {
		rawPitch = float64(*pitchSeries.Smoothed)
		havePitchValue = true
	}

	if havePitchValue && baseline.Valid {
		a.DPitch = math.Max(0, rawPitch-baseline.Pitch)
		a.HasPitch = true
	}
	if haveEHD && ehdSeries.Smoothed != nil && baseline.Valid {
		a.DEHD = math.Max(0, float64(*ehdSeries.Smoothed)-baseline.EHD)
		a.HasEHD = true
	}
	if haveDPR && dprSeries.Smoothed != nil && baseline.Valid {
		a.DDPR = math.Max(0, float64(*dprSeries.Smoothed)-baseline.DPR)
		a.HasDPR = true
	}

	available := 0
	if a.HasPitch {
		available++
	}
	if a.HasEHD {
		available++
	}
	if a.HasDPR {
		available++
	}

	a.InsufficientSignals = !a.HasPitch || available < 2
	a.DegeneratePose = havePitchValue && math.Abs(rawPitch) >= degeneratePitchDeg

	if a.InsufficientSignals {
		a.ShouldHold = true
		a.Reasons = append(a.Reasons, "insufficient-signals")
	}
	if a.DegeneratePose {
		a.ShouldHold = true
		a.Reasons = append(a.Reasons, "degenerate-pose")
	}
	if a.MissingCalibration {
		a.ShouldHold = true
		a.Reasons = append(a.Reasons, "missing-calibration")
	}
	if a.BaselinePending {
		a.ShouldHold = true
		a.Reasons = append(a.Reasons, "baseline-pending")
	}

	if !a.ShouldHold {
		a.ConditionsMet = a.DPitch > th.PitchThreshold && (a.DEHD > th.EHDThreshold || a.DDPR > th.DPRThreshold)

		recoveryPitch := recoveryThreshold(th.PitchThreshold, th.HysteresisDeltaPct)
		recoveryEHD := recoveryThreshold(th.EHDThreshold, th.HysteresisDeltaPct)
		recoveryDPR := recoveryThreshold(th.DPRThreshold, th.HysteresisDeltaPct)
		a.RecoveryConditionsMet = a.DPitch < recoveryPitch && (a.DEHD < recoveryEHD || a.DDPR < recoveryDPR)
	}

	return a
}

func recoveryThreshold(threshold, hysteresisPct float64) float64 {
	v := threshold * (1 - hysteresisPct/100)
	if v < 0 {
		return 0
	}
	return v
}
