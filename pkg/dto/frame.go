// Package dto holds the wire-format request/response types for the gateway
// REST and WebSocket surfaces, kept distinct from the internal/models
// domain types the engine operates on.
package dto

import "github.com/posture-coach/engine/internal/models"

// FrameIngestRequest is the per-frame payload a capture client posts to the
// gateway, which forwards it to the engine as a models.EngineFramePayload.
type FrameIngestRequest struct {
	FrameID     uint64                `json:"frameId"`
	CapturedAt  float64               `json:"capturedAt"`
	Face        *models.FaceLandmarks `json:"face,omitempty"`
	Pose        *models.PoseLandmarks `json:"pose,omitempty"`
	Presence    string                `json:"presence,omitempty"`
	Reliability string                `json:"reliability,omitempty"`
}

// ToEngineFramePayload converts the wire request into the engine's typed
// input, defaulting unset presence/reliability to UNKNOWN.
func (r FrameIngestRequest) ToEngineFramePayload(processedAtMs float64) models.EngineFramePayload {
	presence := models.PresenceUnknown
	if r.Presence != "" {
		presence = models.Presence(r.Presence)
	}
	reliability := models.ReliabilityUnknown
	if r.Reliability != "" {
		reliability = models.Reliability(r.Reliability)
	}

	return models.EngineFramePayload{
		FrameID:     r.FrameID,
		CapturedAt:  r.CapturedAt,
		ProcessedAt: processedAtMs,
		Face:        r.Face,
		Pose:        r.Pose,
		Presence:    presence,
		Reliability: reliability,
	}
}
