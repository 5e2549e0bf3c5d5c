package models

import "time"

// Sensitivity is the calibration sensitivity preset (spec.md §3, §4.9).
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
	SensitivityCustom Sensitivity = "custom"
)

// Baseline is the calibrated neutral posture snapshot.
type Baseline struct {
	BaselinePitchDeg float64
	BaselineEHD      float64
	BaselineDPR      float64
	Quality          float64 // 0..100
	SampleCount      int
}

// PostureCalibrationRecord is the durable row described in spec.md §3/§6.
// Invariant: at most one record per UserID has IsActive == true; the
// repository enforces this, not the schema.
type PostureCalibrationRecord struct {
	Baseline

	ID                     string
	UserID                 string
	Sensitivity            Sensitivity
	CustomPitchThreshold   *float64
	CustomEHDThreshold     *float64
	CustomDPRThreshold     *float64
	CalibratedAt           time.Time
	IsActive               bool
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// CalibrationBaselineRow mirrors the calibration_baselines(...) row shape
// of spec.md §6 — a raw keypoint sample dump kept for offline review,
// distinct from the derived PostureCalibrationRecord above.
type CalibrationBaselineRow struct {
	ID            string
	CreatedAt     time.Time
	Detector      string
	KeypointsJSON string
}

// Thresholds are the active risk-evaluator thresholds derived from a
// baseline plus sensitivity (or custom overrides).
type Thresholds struct {
	PitchDeg float64
	EHD      float64
	DPR      float64
}
