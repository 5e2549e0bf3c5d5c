package config

import (
	"os"
	"strconv"
	"sync"

	"github.com/posture-coach/engine/internal/models"
)

// MetricTuning is the per-metric smoother configuration (spec.md §4.2).
type MetricTuning struct {
	Alpha                     float64
	WindowSeconds             float64
	RateLimitPerSecond        float64
	OutlierThresholdPerSecond float64
}

// SignalConfig is the live snapshot consumed by internal/signal.
type SignalConfig struct {
	ConfidenceThreshold float64
	metrics             map[models.MetricKey]MetricTuning
}

// ForMetric returns the tuning for key, falling back to a MetricTuning with
// WindowSeconds 1.0 and every other field zero (alpha derived from
// windowSeconds, no rate limit/outlier gate) if the key was never configured.
func (s SignalConfig) ForMetric(key models.MetricKey) MetricTuning {
	if t, ok := s.metrics[key]; ok {
		return t
	}
	return MetricTuning{WindowSeconds: 1.0}
}

func defaultSignalConfig() SignalConfig {
	mk := func(window, rate, outlier float64) MetricTuning {
		return MetricTuning{WindowSeconds: window, RateLimitPerSecond: rate, OutlierThresholdPerSecond: outlier}
	}
	return SignalConfig{
		ConfidenceThreshold: 0.4,
		metrics: map[models.MetricKey]MetricTuning{
			models.MetricPitch: mk(1.0, 60, 120),
			models.MetricYaw:   mk(1.0, 60, 120),
			models.MetricRoll:  mk(1.0, 60, 120),
			models.MetricEHD:   mk(1.0, 0.5, 1.0),
			models.MetricDPR:   mk(1.0, 0.5, 1.0),
		},
	}
}

// ScoreWeights are the penalty weights of the score processor (spec.md §4.8).
type ScoreWeights struct {
	PitchPerDeg float64
	EHDPerUnit  float64
	DPRPerUnit  float64
}

// ScoreConfig is the live snapshot consumed by internal/score.
type ScoreConfig struct {
	Weights ScoreWeights
	Alpha   float64
	Neutral float64
}

func defaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		Weights: ScoreWeights{PitchPerDeg: 3, EHDPerUnit: 250, DPRPerUnit: 150},
		Alpha:   0.2,
		Neutral: 35,
	}
}

// GuardrailThresholds is one guardrail's enter/exit thresholds and dwell
// times (spec.md §4.4).
type GuardrailThresholds struct {
	EnterThreshold float64
	ExitThreshold  float64
	EnterSeconds   float64
	ExitSeconds    float64
}

// GuardrailConfig is the live snapshot consumed by internal/guardrail.
type GuardrailConfig struct {
	Yaw            GuardrailThresholds
	Roll           GuardrailThresholds
	FaceConfidence GuardrailThresholds
	PoseConfidence GuardrailThresholds
	Illumination   GuardrailThresholds
}

func defaultGuardrailConfig() GuardrailConfig {
	return GuardrailConfig{
		Yaw:            GuardrailThresholds{EnterThreshold: 35, ExitThreshold: 28, EnterSeconds: 1.5, ExitSeconds: 1.0},
		Roll:           GuardrailThresholds{EnterThreshold: 25, ExitThreshold: 20, EnterSeconds: 1.5, ExitSeconds: 1.0},
		FaceConfidence: GuardrailThresholds{EnterThreshold: 0.4, ExitThreshold: 0.5, EnterSeconds: 1.0, ExitSeconds: 1.0},
		PoseConfidence: GuardrailThresholds{EnterThreshold: 0.4, ExitThreshold: 0.5, EnterSeconds: 1.0, ExitSeconds: 1.0},
		Illumination:   GuardrailThresholds{EnterThreshold: 0.3, ExitThreshold: 0.4, EnterSeconds: 2.0, ExitSeconds: 1.0},
	}
}

// Store is the process-wide mutable configuration surface described in
// spec.md §4.12: three grouped snapshots, each with get/update/reset.
// Overrides are merged into the live snapshot and range-clamped; invalid
// values are silently dropped. Safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	signal     SignalConfig
	score      ScoreConfig
	guardrails GuardrailConfig
}

// NewStore builds a Store seeded with defaults, then environment overrides.
func NewStore() *Store {
	s := &Store{
		signal:     defaultSignalConfig(),
		score:      defaultScoreConfig(),
		guardrails: defaultGuardrailConfig(),
	}
	s.seedFromEnv()
	return s
}

func (s *Store) Signal() SignalConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signal
}

func (s *Store) Score() ScoreConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.score
}

func (s *Store) Guardrails() GuardrailConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.guardrails
}

// ScoreOverrides is the update payload for UpdateScore; nil fields are left
// unchanged.
type ScoreOverrides struct {
	PitchPerDeg *float64
	EHDPerUnit  *float64
	DPRPerUnit  *float64
	Alpha       *float64
	Neutral     *float64
}

// UpdateScore merges overrides into the live score snapshot and returns the
// result. Out-of-range values are dropped rather than clamped+applied when
// they cannot be reasonably clamped (negative weights); alpha and neutral
// are range-clamped.
func (s *Store) UpdateScore(o ScoreOverrides) ScoreConfig {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o.PitchPerDeg != nil && *o.PitchPerDeg >= 0 {
		s.score.Weights.PitchPerDeg = *o.PitchPerDeg
	}
	if o.EHDPerUnit != nil && *o.EHDPerUnit >= 0 {
		s.score.Weights.EHDPerUnit = *o.EHDPerUnit
	}
	if o.DPRPerUnit != nil && *o.DPRPerUnit >= 0 {
		s.score.Weights.DPRPerUnit = *o.DPRPerUnit
	}
	if o.Alpha != nil {
		s.score.Alpha = clamp(*o.Alpha, 0.01, 1)
	}
	if o.Neutral != nil {
		s.score.Neutral = clamp(*o.Neutral, 0, 100)
	}
	return s.score
}

// ResetScore restores the default score snapshot and returns it.
func (s *Store) ResetScore() ScoreConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = defaultScoreConfig()
	return s.score
}

// SignalOverrides is the update payload for UpdateSignal.
type SignalOverrides struct {
	ConfidenceThreshold *float64
}

func (s *Store) UpdateSignal(o SignalOverrides) SignalConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ConfidenceThreshold != nil {
		s.signal.ConfidenceThreshold = clamp(*o.ConfidenceThreshold, 0, 1)
	}
	return s.signal
}

func (s *Store) ResetSignal() SignalConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signal = defaultSignalConfig()
	return s.signal
}

// GuardrailThresholdsOverrides is the update payload for one guardrail rail;
// nil fields are left unchanged.
type GuardrailThresholdsOverrides struct {
	EnterThreshold *float64
	ExitThreshold  *float64
	EnterSeconds   *float64
	ExitSeconds    *float64
}

// GuardrailOverrides is the update payload for UpdateGuardrails; nil rails
// are left unchanged.
type GuardrailOverrides struct {
	Yaw            *GuardrailThresholdsOverrides
	Roll           *GuardrailThresholdsOverrides
	FaceConfidence *GuardrailThresholdsOverrides
	PoseConfidence *GuardrailThresholdsOverrides
	Illumination   *GuardrailThresholdsOverrides
}

func applyGuardrailThresholdsOverrides(t GuardrailThresholds, o *GuardrailThresholdsOverrides) GuardrailThresholds {
	if o == nil {
		return t
	}
	if o.EnterThreshold != nil {
		t.EnterThreshold = *o.EnterThreshold
	}
	if o.ExitThreshold != nil {
		t.ExitThreshold = *o.ExitThreshold
	}
	if o.EnterSeconds != nil && *o.EnterSeconds >= 0 {
		t.EnterSeconds = *o.EnterSeconds
	}
	if o.ExitSeconds != nil && *o.ExitSeconds >= 0 {
		t.ExitSeconds = *o.ExitSeconds
	}
	return t
}

// UpdateGuardrails merges overrides into the live guardrail snapshot and
// returns the result, symmetric with UpdateScore/UpdateSignal.
func (s *Store) UpdateGuardrails(o GuardrailOverrides) GuardrailConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guardrails.Yaw = applyGuardrailThresholdsOverrides(s.guardrails.Yaw, o.Yaw)
	s.guardrails.Roll = applyGuardrailThresholdsOverrides(s.guardrails.Roll, o.Roll)
	s.guardrails.FaceConfidence = applyGuardrailThresholdsOverrides(s.guardrails.FaceConfidence, o.FaceConfidence)
	s.guardrails.PoseConfidence = applyGuardrailThresholdsOverrides(s.guardrails.PoseConfidence, o.PoseConfidence)
	s.guardrails.Illumination = applyGuardrailThresholdsOverrides(s.guardrails.Illumination, o.Illumination)
	return s.guardrails
}

func (s *Store) ResetGuardrails() GuardrailConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guardrails = defaultGuardrailConfig()
	return s.guardrails
}

// seedFromEnv applies one-time environment overrides at startup, per
// spec.md §4.12.
func (s *Store) seedFromEnv() {
	if v, ok := envFloat("POSTURE_SIGNAL_CONFIDENCE_THRESHOLD"); ok {
		s.signal.ConfidenceThreshold = clamp(v, 0, 1)
	}
	if v, ok := envFloat("POSTURE_SCORE_NEUTRAL"); ok {
		s.score.Neutral = clamp(v, 0, 100)
	}
	if v, ok := envFloat("POSTURE_SCORE_ALPHA"); ok {
		s.score.Alpha = clamp(v, 0.01, 1)
	}
}

func envFloat(name string) (float64, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
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
