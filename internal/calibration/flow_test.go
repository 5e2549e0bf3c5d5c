package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
)

func f64(v float64) *float64 { return &v }

func sample(pitch, ehd, dpr float64) FrameSample {
	return FrameSample{Pitch: f64(pitch), EHD: f64(ehd), DPR: f64(dpr), Confidence: 0.9, Reliability: models.ReliabilityOK}
}

func TestFlow_StartEntersCollecting(t *testing.T) {
	f := New()
	events := f.Start(StartOptions{TargetSamples: 5}, 0)
	require.NotNil(t, events.Progress)
	assert.Equal(t, PhaseCollecting, f.Phase())
}

func TestFlow_CollectsUntilTargetThenValidates(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 3, MinQuality: 0}, 0)

	f.Submit(sample(10, 0.3, 0.2), 10)
	f.Submit(sample(10.1, 0.31, 0.21), 20)
	events := f.Submit(sample(9.9, 0.29, 0.19), 30)

	require.NotNil(t, events.Progress)
	assert.Equal(t, PhaseValidating, f.Phase())
}

func TestFlow_LowQualityFailsBeforeValidating(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 3, MinQuality: 99}, 0)
	f.Submit(sample(10, 0.3, 0.2), 10)
	f.Submit(sample(40, 0.9, 0.8), 20)
	events := f.Submit(sample(-30, 0.05, 0.9), 30)

	require.NotNil(t, events.Failed)
	assert.Equal(t, ReasonLowQuality, events.Failed.Reason)
	assert.Equal(t, PhaseFailed, f.Phase())
}

func TestFlow_CompletesAfterValidationWindow(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 2, MinQuality: 0, ValidationDurationMs: 100}, 0)
	f.Submit(sample(10, 0.3, 0.2), 10)
	f.Submit(sample(10, 0.3, 0.2), 20)
	require.Equal(t, PhaseValidating, f.Phase())

	f.Submit(sample(10, 0.3, 0.2), 40)
	events := f.Submit(sample(10, 0.3, 0.2), 130)

	require.NotNil(t, events.Complete)
	assert.Equal(t, PhaseComplete, f.Phase())
	assert.Equal(t, SuggestionOK, events.Complete.Validation.Suggestion)
}

func TestFlow_CancelAlwaysFailsUnknown(t *testing.T) {
	f := New()
	f.Start(StartOptions{}, 0)
	events := f.Cancel()
	require.NotNil(t, events.Failed)
	assert.Equal(t, ReasonUnknown, events.Failed.Reason)
	assert.Equal(t, PhaseFailed, f.Phase())
}

func TestFlow_TimeoutFailsLongCollection(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 1000}, 0)
	events := f.Submit(sample(10, 0.3, 0.2), defaultMaxCollectionDurationMs+1)
	require.NotNil(t, events.Failed)
	assert.Equal(t, ReasonTimeout, events.Failed.Reason)
}

func TestFlow_RejectsInvalidSample(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 1}, 0)
	events := f.Submit(FrameSample{}, 10)
	assert.Equal(t, Events{}, events)
	assert.Equal(t, PhaseCollecting, f.Phase())
}

func TestFlow_RejectsUnreliableLowConfidenceDuringCollection(t *testing.T) {
	f := New()
	f.Start(StartOptions{TargetSamples: 1}, 0)
	s := sample(10, 0.3, 0.2)
	s.Confidence = 0.01
	s.Reliability = models.ReliabilityUnreliable
	events := f.Submit(s, 10)
	assert.Equal(t, Events{}, events)
}
