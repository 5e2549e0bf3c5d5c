package dto

import "github.com/posture-coach/engine/internal/config"

type ScoreConfigResponse struct {
	PitchPerDeg float64 `json:"pitchPerDeg"`
	EHDPerUnit  float64 `json:"ehdPerUnit"`
	DPRPerUnit  float64 `json:"dprPerUnit"`
	Alpha       float64 `json:"alpha"`
	Neutral     float64 `json:"neutral"`
}

func FromScoreConfig(c config.ScoreConfig) ScoreConfigResponse {
	return ScoreConfigResponse{
		PitchPerDeg: c.Weights.PitchPerDeg,
		EHDPerUnit:  c.Weights.EHDPerUnit,
		DPRPerUnit:  c.Weights.DPRPerUnit,
		Alpha:       c.Alpha,
		Neutral:     c.Neutral,
	}
}

// UpdateScoreConfigRequest is the score-config PATCH body; unset fields are
// left unchanged.
type UpdateScoreConfigRequest struct {
	PitchPerDeg *float64 `json:"pitchPerDeg,omitempty"`
	EHDPerUnit  *float64 `json:"ehdPerUnit,omitempty"`
	DPRPerUnit  *float64 `json:"dprPerUnit,omitempty"`
	Alpha       *float64 `json:"alpha,omitempty"`
	Neutral     *float64 `json:"neutral,omitempty"`
}

func (r UpdateScoreConfigRequest) ToOverrides() config.ScoreOverrides {
	return config.ScoreOverrides{
		PitchPerDeg: r.PitchPerDeg,
		EHDPerUnit:  r.EHDPerUnit,
		DPRPerUnit:  r.DPRPerUnit,
		Alpha:       r.Alpha,
		Neutral:     r.Neutral,
	}
}

type SignalConfigResponse struct {
	ConfidenceThreshold float64 `json:"confidenceThreshold"`
}

func FromSignalConfig(c config.SignalConfig) SignalConfigResponse {
	return SignalConfigResponse{ConfidenceThreshold: c.ConfidenceThreshold}
}

type UpdateSignalConfigRequest struct {
	ConfidenceThreshold *float64 `json:"confidenceThreshold,omitempty"`
}

func (r UpdateSignalConfigRequest) ToOverrides() config.SignalOverrides {
	return config.SignalOverrides{ConfidenceThreshold: r.ConfidenceThreshold}
}

type GuardrailThresholdsResponse struct {
	EnterThreshold float64 `json:"enterThreshold"`
	ExitThreshold  float64 `json:"exitThreshold"`
	EnterSeconds   float64 `json:"enterSeconds"`
	ExitSeconds    float64 `json:"exitSeconds"`
}

type GuardrailConfigResponse struct {
	Yaw            GuardrailThresholdsResponse `json:"yaw"`
	Roll           GuardrailThresholdsResponse `json:"roll"`
	FaceConfidence GuardrailThresholdsResponse `json:"faceConfidence"`
	PoseConfidence GuardrailThresholdsResponse `json:"poseConfidence"`
	Illumination   GuardrailThresholdsResponse `json:"illumination"`
}

func fromGuardrailThresholds(t config.GuardrailThresholds) GuardrailThresholdsResponse {
	return GuardrailThresholdsResponse{
		EnterThreshold: t.EnterThreshold,
		ExitThreshold:  t.ExitThreshold,
		EnterSeconds:   t.EnterSeconds,
		ExitSeconds:    t.ExitSeconds,
	}
}

func FromGuardrailConfig(c config.GuardrailConfig) GuardrailConfigResponse {
	return GuardrailConfigResponse{
		Yaw:            fromGuardrailThresholds(c.Yaw),
		Roll:           fromGuardrailThresholds(c.Roll),
		FaceConfidence: fromGuardrailThresholds(c.FaceConfidence),
		PoseConfidence: fromGuardrailThresholds(c.PoseConfidence),
		Illumination:   fromGuardrailThresholds(c.Illumination),
	}
}

// UpdateGuardrailThresholdsRequest is one rail's PATCH body; unset fields
// are left unchanged.
type UpdateGuardrailThresholdsRequest struct {
	EnterThreshold *float64 `json:"enterThreshold,omitempty"`
	ExitThreshold  *float64 `json:"exitThreshold,omitempty"`
	EnterSeconds   *float64 `json:"enterSeconds,omitempty"`
	ExitSeconds    *float64 `json:"exitSeconds,omitempty"`
}

func (r *UpdateGuardrailThresholdsRequest) toOverrides() *config.GuardrailThresholdsOverrides {
	if r == nil {
		return nil
	}
	return &config.GuardrailThresholdsOverrides{
		EnterThreshold: r.EnterThreshold,
		ExitThreshold:  r.ExitThreshold,
		EnterSeconds:   r.EnterSeconds,
		ExitSeconds:    r.ExitSeconds,
	}
}

// UpdateGuardrailConfigRequest is the guardrails-config PATCH body; unset
// rails are left unchanged.
type UpdateGuardrailConfigRequest struct {
	Yaw            *UpdateGuardrailThresholdsRequest `json:"yaw,omitempty"`
	Roll           *UpdateGuardrailThresholdsRequest `json:"roll,omitempty"`
	FaceConfidence *UpdateGuardrailThresholdsRequest `json:"faceConfidence,omitempty"`
	PoseConfidence *UpdateGuardrailThresholdsRequest `json:"poseConfidence,omitempty"`
	Illumination   *UpdateGuardrailThresholdsRequest `json:"illumination,omitempty"`
}

func (r UpdateGuardrailConfigRequest) ToOverrides() config.GuardrailOverrides {
	return config.GuardrailOverrides{
		Yaw:            r.Yaw.toOverrides(),
		Roll:           r.Roll.toOverrides(),
		FaceConfidence: r.FaceConfidence.toOverrides(),
		PoseConfidence: r.PoseConfidence.toOverrides(),
		Illumination:   r.Illumination.toOverrides(),
	}
}
