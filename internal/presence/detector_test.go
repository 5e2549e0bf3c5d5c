package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
)

func qualifyingPose() *models.PoseLandmarks {
	pts := make([]models.Landmark, 25)
	pts[leftShoulderIdx] = models.Landmark{Visibility: 0.9}
	pts[rightShoulderIdx] = models.Landmark{Visibility: 0.9}
	return &models.PoseLandmarks{Points: pts, Confidence: 0.8}
}

func TestDetector_EntersPresentAfterConsecutiveFrames(t *testing.T) {
	d := New(Options{})
	pose := qualifyingPose()

	var last Snapshot
	for i := 0; i < defaultPresentConsecutiveFrames; i++ {
		last = d.Observe(nil, pose, float64(i)*33)
	}
	require.Equal(t, models.PresencePresent, last.Presence)
}

func TestDetector_StaysAbsentBelowThreshold(t *testing.T) {
	d := New(Options{})
	pose := qualifyingPose()
	for i := 0; i < defaultPresentConsecutiveFrames-1; i++ {
		d.Observe(nil, pose, float64(i)*33)
	}
	assert.Equal(t, models.PresenceAbsent, d.current)
}

func TestDetector_ExitsToAbsentAfterConsecutiveNonQualifying(t *testing.T) {
	d := New(Options{})
	pose := qualifyingPose()
	for i := 0; i < defaultPresentConsecutiveFrames; i++ {
		d.Observe(nil, pose, float64(i)*33)
	}
	require.Equal(t, models.PresencePresent, d.current)

	var last Snapshot
	for i := 0; i < defaultAbsentConsecutiveFrames; i++ {
		last = d.Observe(nil, nil, float64(i)*33)
	}
	assert.Equal(t, models.PresenceAbsent, last.Presence)
}

func TestDetector_RequireHipsRejectsWithoutHips(t *testing.T) {
	d := New(Options{RequireHips: true})
	pose := qualifyingPose() // no hip landmarks set

	var last Snapshot
	for i := 0; i < defaultPresentConsecutiveFrames; i++ {
		last = d.Observe(nil, pose, float64(i)*33)
	}
	assert.Equal(t, models.PresenceAbsent, last.Presence)
}

func TestDetector_FaceAloneQualifies(t *testing.T) {
	d := New(Options{})
	face := &models.FaceLandmarks{Confidence: 0.9}

	var last Snapshot
	for i := 0; i < defaultPresentConsecutiveFrames; i++ {
		last = d.Observe(face, nil, float64(i)*33)
	}
	assert.Equal(t, models.PresencePresent, last.Presence)
}
