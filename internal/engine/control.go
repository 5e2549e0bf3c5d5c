package engine

import (
	"github.com/posture-coach/engine/internal/calibration"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/risk"
)

// StartCalibration begins a calibration session (calibration.start).
func (w *Worker) StartCalibration(opts calibration.StartOptions, nowMs float64) calibration.Events {
	return w.calib.Start(opts, nowMs)
}

// CancelCalibration cancels an in-progress session (calibration.cancel).
func (w *Worker) CancelCalibration() calibration.Events {
	return w.calib.Cancel()
}

// SubmitCalibrationSample feeds one smoothed metric frame to the
// calibration flow and returns any resulting events. The caller is
// responsible for installing the result of a Complete event via
// InstallCalibration.
func (w *Worker) SubmitCalibrationSample(metrics models.MetricValues, confidence float64, reliability models.Reliability, nowMs float64) calibration.Events {
	sample := calibration.FrameSample{Confidence: confidence, Reliability: reliability}
	if s, ok := metrics.Metrics[models.MetricPitch]; ok && s.Smoothed != nil {
		v := float64(*s.Smoothed)
		sample.Pitch = &v
	}
	if s, ok := metrics.Metrics[models.MetricEHD]; ok && s.Smoothed != nil {
		v := float64(*s.Smoothed)
		sample.EHD = &v
	}
	if s, ok := metrics.Metrics[models.MetricDPR]; ok && s.Smoothed != nil {
		v := float64(*s.Smoothed)
		sample.DPR = &v
	}
	return w.calib.Submit(sample, nowMs)
}

// ApplyCalibration installs the baseline and thresholds carried by a
// calibration session's Complete event.
func (w *Worker) ApplyCalibration(baseline calibration.CompleteEvent) {
	w.InstallCalibration(ActiveCalibration{
		Baseline: risk.Baseline{
			Pitch: baseline.Baseline.BaselinePitchDeg,
			EHD:   baseline.Baseline.BaselineEHD,
			DPR:   baseline.Baseline.BaselineDPR,
			Valid: true,
		},
		Thresholds: risk.Thresholds{
			PitchThreshold: baseline.Thresholds.PitchDeg,
			EHDThreshold:   baseline.Thresholds.EHD,
			DPRThreshold:   baseline.Thresholds.DPR,
		},
		Valid: true,
	})
}
