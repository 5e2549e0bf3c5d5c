package dto

import (
	"github.com/posture-coach/engine/internal/calibration"
	"github.com/posture-coach/engine/internal/models"
)

// ThresholdsDTO is the wire form of models.Thresholds.
type ThresholdsDTO struct {
	PitchDeg float64 `json:"pitchDeg"`
	EHD      float64 `json:"ehd"`
	DPR      float64 `json:"dpr"`
}

func (t ThresholdsDTO) toModel() models.Thresholds {
	return models.Thresholds{PitchDeg: t.PitchDeg, EHD: t.EHD, DPR: t.DPR}
}

func fromThresholds(t models.Thresholds) ThresholdsDTO {
	return ThresholdsDTO{PitchDeg: t.PitchDeg, EHD: t.EHD, DPR: t.DPR}
}

// StartCalibrationRequest is the calibration.start control message body.
type StartCalibrationRequest struct {
	Sensitivity          string         `json:"sensitivity"`
	CustomThresholds     *ThresholdsDTO `json:"customThresholds,omitempty"`
	TargetSamples        int            `json:"targetSamples,omitempty"`
	MinQuality           float64        `json:"minQuality,omitempty"`
	ValidationDurationMs float64        `json:"validationDurationMs,omitempty"`
}

func (r StartCalibrationRequest) ToOptions() calibration.StartOptions {
	opts := calibration.StartOptions{
		Sensitivity:          models.Sensitivity(r.Sensitivity),
		TargetSamples:        r.TargetSamples,
		MinQuality:           r.MinQuality,
		ValidationDurationMs: r.ValidationDurationMs,
	}
	if r.CustomThresholds != nil {
		th := r.CustomThresholds.toModel()
		opts.CustomThresholds = &th
	}
	return opts
}

// CalibrationEventResponse is the JSON projection of calibration.Events
// returned from start/submit/cancel calls.
type CalibrationEventResponse struct {
	Progress *CalibrationProgressDTO `json:"progress,omitempty"`
	Complete *CalibrationCompleteDTO `json:"complete,omitempty"`
	Failed   *CalibrationFailedDTO   `json:"failed,omitempty"`
}

type CalibrationProgressDTO struct {
	Phase            string   `json:"phase"`
	CollectedSamples int      `json:"collectedSamples"`
	TargetSamples    int      `json:"targetSamples"`
	StabilityScore   float64  `json:"stabilityScore"`
	QualityScore     *float64 `json:"qualityScore,omitempty"`
}

type CalibrationCompleteDTO struct {
	BaselinePitchDeg float64               `json:"baselinePitchDeg"`
	BaselineEHD      float64               `json:"baselineEhd"`
	BaselineDPR      float64               `json:"baselineDpr"`
	Quality          float64               `json:"quality"`
	SampleCount      int                   `json:"sampleCount"`
	Sensitivity      string                `json:"sensitivity"`
	Thresholds       ThresholdsDTO         `json:"thresholds"`
	Validation       CalibrationValidation `json:"validation"`
}

type CalibrationValidation struct {
	TotalFrames          int     `json:"totalFrames"`
	UnreliableFrames     int     `json:"unreliableFrames"`
	UnreliableFrameRatio float64 `json:"unreliableFrameRatio"`
	Suggestion           string  `json:"suggestion"`
}

type CalibrationFailedDTO struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// FromEvents converts the flow's internal Events into their wire form.
func FromEvents(events calibration.Events) CalibrationEventResponse {
	var resp CalibrationEventResponse

	if events.Progress != nil {
		p := events.Progress
		resp.Progress = &CalibrationProgressDTO{
			Phase:            string(p.Phase),
			CollectedSamples: p.CollectedSamples,
			TargetSamples:    p.TargetSamples,
			StabilityScore:   p.StabilityScore,
			QualityScore:     p.QualityScore,
		}
	}

	if events.Complete != nil {
		c := events.Complete
		resp.Complete = &CalibrationCompleteDTO{
			BaselinePitchDeg: c.Baseline.BaselinePitchDeg,
			BaselineEHD:      c.Baseline.BaselineEHD,
			BaselineDPR:      c.Baseline.BaselineDPR,
			Quality:          c.Baseline.Quality,
			SampleCount:      c.Baseline.SampleCount,
			Sensitivity:      string(c.Sensitivity),
			Thresholds:       fromThresholds(c.Thresholds),
			Validation: CalibrationValidation{
				TotalFrames:          c.Validation.TotalFrames,
				UnreliableFrames:     c.Validation.UnreliableFrames,
				UnreliableFrameRatio: c.Validation.UnreliableFrameRatio,
				Suggestion:           string(c.Validation.Suggestion),
			},
		}
	}

	if events.Failed != nil {
		resp.Failed = &CalibrationFailedDTO{
			Reason:  string(events.Failed.Reason),
			Message: events.Failed.Message,
		}
	}

	return resp
}

// ActiveCalibrationResponse is the persisted-record projection served by
// GET /v1/users/:userId/calibration/active.
type ActiveCalibrationResponse struct {
	BaselinePitchDeg     float64  `json:"baselinePitchDeg"`
	BaselineEHD          float64  `json:"baselineEhd"`
	BaselineDPR          float64  `json:"baselineDpr"`
	Quality              float64  `json:"quality"`
	SampleCount          int      `json:"sampleCount"`
	Sensitivity          string   `json:"sensitivity"`
	CustomPitchThreshold *float64 `json:"customPitchThreshold,omitempty"`
	CustomEHDThreshold   *float64 `json:"customEhdThreshold,omitempty"`
	CustomDPRThreshold   *float64 `json:"customDprThreshold,omitempty"`
	CalibratedAt         int64    `json:"calibratedAt"`
}

func FromCalibrationRecord(rec models.PostureCalibrationRecord) ActiveCalibrationResponse {
	return ActiveCalibrationResponse{
		BaselinePitchDeg:     rec.BaselinePitchDeg,
		BaselineEHD:          rec.BaselineEHD,
		BaselineDPR:          rec.BaselineDPR,
		Quality:              rec.Quality,
		SampleCount:          rec.SampleCount,
		Sensitivity:          string(rec.Sensitivity),
		CustomPitchThreshold: rec.CustomPitchThreshold,
		CustomEHDThreshold:   rec.CustomEHDThreshold,
		CustomDPRThreshold:   rec.CustomDPRThreshold,
		CalibratedAt:         rec.CalibratedAt.UnixMilli(),
	}
}
