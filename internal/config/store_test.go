package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/posture-coach/engine/internal/models"
)

func TestStore_DefaultsSeeded(t *testing.T) {
	s := NewStore()
	sig := s.Signal()
	assert.Equal(t, 0.4, sig.ConfidenceThreshold)
	assert.Equal(t, float64(60), sig.ForMetric(models.MetricPitch).RateLimitPerSecond)
}

func TestStore_UpdateScoreClampsAndMerges(t *testing.T) {
	s := NewStore()
	alpha := 5.0 // out of range, should clamp to 1
	neutral := 42.0
	next := s.UpdateScore(ScoreOverrides{Alpha: &alpha, Neutral: &neutral})
	assert.Equal(t, 1.0, next.Alpha)
	assert.Equal(t, 42.0, next.Neutral)
	// Weights left untouched.
	assert.Equal(t, 3.0, next.Weights.PitchPerDeg)
}

func TestStore_UpdateScoreDropsNegativeWeight(t *testing.T) {
	s := NewStore()
	bad := -10.0
	next := s.UpdateScore(ScoreOverrides{PitchPerDeg: &bad})
	assert.Equal(t, 3.0, next.Weights.PitchPerDeg)
}

func TestStore_ResetRestoresDefaults(t *testing.T) {
	s := NewStore()
	neutral := 90.0
	s.UpdateScore(ScoreOverrides{Neutral: &neutral})
	reset := s.ResetScore()
	assert.Equal(t, float64(35), reset.Neutral)
}

func TestStore_UpdateGuardrailsMergesSingleRail(t *testing.T) {
	s := NewStore()
	enterSeconds := 3.5
	next := s.UpdateGuardrails(GuardrailOverrides{
		Illumination: &GuardrailThresholdsOverrides{EnterSeconds: &enterSeconds},
	})
	assert.Equal(t, 3.5, next.Illumination.EnterSeconds)
	// Untouched rails and fields keep their defaults.
	assert.Equal(t, 0.3, next.Illumination.EnterThreshold)
	assert.Equal(t, 35.0, next.Yaw.EnterThreshold)
}

func TestStore_ResetGuardrailsRestoresDefaults(t *testing.T) {
	s := NewStore()
	enterSeconds := 3.5
	s.UpdateGuardrails(GuardrailOverrides{Illumination: &GuardrailThresholdsOverrides{EnterSeconds: &enterSeconds}})
	reset := s.ResetGuardrails()
	assert.Equal(t, 2.0, reset.Illumination.EnterSeconds)
}

func TestStore_ForMetricUnknownKeyReturnsDefault(t *testing.T) {
	s := NewStore()
	tuning := s.Signal().ForMetric(models.MetricKey("bogus"))
	assert.Equal(t, 1.0, tuning.WindowSeconds)
	assert.Equal(t, float64(0), tuning.RateLimitPerSecond)
}
