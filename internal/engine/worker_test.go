package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/risk"
)

func frontalFace(conf float64) *models.FaceLandmarks {
	pts := make([]models.Landmark, 468)
	frontal := map[int][2]float64{
		1: {0.5, 0.45}, 152: {0.5, 0.8}, 33: {0.35, 0.42}, 263: {0.65, 0.42}, 61: {0.4, 0.65}, 291: {0.6, 0.65},
	}
	for idx, xy := range frontal {
		pts[idx] = models.Landmark{X: xy[0], Y: xy[1]}
	}
	return &models.FaceLandmarks{Points: pts, Confidence: conf}
}

func presentPose() *models.PoseLandmarks {
	pts := make([]models.Landmark, 25)
	pts[11] = models.Landmark{Visibility: 0.9}
	pts[12] = models.Landmark{Visibility: 0.9}
	return &models.PoseLandmarks{Points: pts, Confidence: 0.9}
}

func TestWorker_BecomesPresentAndProducesTick(t *testing.T) {
	w := NewWorker(config.NewStore())
	w.InstallCalibration(ActiveCalibration{
		Baseline:   risk.Baseline{Valid: true},
		Thresholds: risk.Thresholds{PitchThreshold: 10, EHDThreshold: 0.1, DPRThreshold: 0.1},
		Valid:      true,
	})

	frame := models.EngineFramePayload{Face: frontalFace(0.9), Pose: presentPose(), Reliability: models.ReliabilityOK}

	var tick models.EngineTick
	for i := 0; i < 6; i++ {
		tick = w.ProcessFrame(frame, 0.033, float64(i)*33)
	}

	require.Equal(t, "PRESENT", tick.Presence)
	assert.GreaterOrEqual(t, tick.Score, float32(0))
	assert.LessOrEqual(t, tick.Score, float32(100))
}

func TestWorker_AbsentYieldsZeroedMetrics(t *testing.T) {
	w := NewWorker(config.NewStore())
	frame := models.EngineFramePayload{Reliability: models.ReliabilityOK}
	tick := w.ProcessFrame(frame, 0.033, 0)
	assert.Equal(t, "ABSENT", tick.Presence)
	assert.Equal(t, models.TickMetrics{}, tick.Metrics)
}

func TestWorker_SetPausedIdempotent(t *testing.T) {
	w := NewWorker(config.NewStore())
	w.SetPaused(true)
	w.SetPaused(true)
	assert.True(t, w.Paused())
	w.SetPaused(false)
	assert.False(t, w.Paused())
}

func TestWorker_ScoreStaysInBounds(t *testing.T) {
	w := NewWorker(config.NewStore())
	w.InstallCalibration(ActiveCalibration{
		Baseline:   risk.Baseline{Valid: true},
		Thresholds: risk.Thresholds{PitchThreshold: 10, EHDThreshold: 0.1, DPRThreshold: 0.1},
		Valid:      true,
	})
	frame := models.EngineFramePayload{Face: frontalFace(0.9), Pose: presentPose(), Reliability: models.ReliabilityOK}
	for i := 0; i < 50; i++ {
		tick := w.ProcessFrame(frame, 0.033, float64(i)*33)
		assert.True(t, tick.Score >= 0 && tick.Score <= 100)
		assert.Contains(t, []models.Zone{models.ZoneGreen, models.ZoneYellow, models.ZoneRed}, tick.Zone)
	}
}
