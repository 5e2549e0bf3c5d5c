package models

// TickMetrics is the outward numeric payload of an EngineTick (spec.md §6).
type TickMetrics struct {
	PitchDeg float32 `json:"pitchDeg"`
	EHDNorm  float32 `json:"ehdNorm"`
	DPR      float32 `json:"dpr"`
	Conf     float32 `json:"conf"`
}

// TickDiagnostics carries optional, elided-when-absent debug fields.
type TickDiagnostics struct {
	InputWidth      *uint32  `json:"inputWidth,omitempty"`
	FPS             *float32 `json:"fps,omitempty"`
	DominantTrackID *string  `json:"dominantTrackId,omitempty"`
}

// EngineTick is the atomic outward message of the pipeline (spec.md §3, §6).
// Its JSON schema is stable and must round-trip bit-exact.
type EngineTick struct {
	T           uint64           `json:"t"`
	Presence    string           `json:"presence"`    // PRESENT|ABSENT
	Reliability string           `json:"reliability"` // OK|UNRELIABLE
	Metrics     TickMetrics      `json:"metrics"`
	Score       float32          `json:"score"`
	Zone        Zone             `json:"zone"`
	State       RiskState        `json:"state"`
	Diagnostics *TickDiagnostics `json:"diagnostics,omitempty"`
}
