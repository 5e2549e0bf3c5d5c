package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
)

func poseWithShoulders(leftEarX, rightEarX, leftShoulderX, rightShoulderX float64) models.PoseLandmarks {
	pts := make([]models.Landmark, 33)
	pts[earLeftIdx] = models.Landmark{X: leftEarX, Y: 0.2}
	pts[earRightIdx] = models.Landmark{X: rightEarX, Y: 0.2}
	pts[shoulderLeftIdx] = models.Landmark{X: leftShoulderX, Y: 0.5}
	pts[shoulderRightIdx] = models.Landmark{X: rightShoulderX, Y: 0.5}
	return models.PoseLandmarks{Points: pts, Confidence: 0.9}
}

func TestEHD_Centered(t *testing.T) {
	pose := poseWithShoulders(0.4, 0.6, 0.4, 0.6)
	res := EHD(pose)
	require.NotNil(t, res)
	assert.InDelta(t, 0, res.Value, 1e-6)
	assert.Equal(t, models.SourcePoseImage, res.Source)
}

func TestEHD_DegenerateShoulderWidth(t *testing.T) {
	pose := poseWithShoulders(0.5, 0.5, 0.5, 0.5)
	res := EHD(pose)
	assert.Nil(t, res)
}

func TestEHD_PrefersWorldLandmarks(t *testing.T) {
	pose := poseWithShoulders(0.4, 0.6, 0.4, 0.6)
	world := make([]models.Landmark, 33)
	world[earLeftIdx] = models.Landmark{X: 0.3, Y: 0.2}
	world[earRightIdx] = models.Landmark{X: 0.7, Y: 0.2}
	world[shoulderLeftIdx] = models.Landmark{X: 0.3, Y: 0.5}
	world[shoulderRightIdx] = models.Landmark{X: 0.7, Y: 0.5}
	pose.WorldPoints = world

	res := EHD(pose)
	require.NotNil(t, res)
	assert.Equal(t, models.SourcePoseWorld, res.Source)
}

func TestDPR_NoBaselineReturnsOne(t *testing.T) {
	face := models.FaceLandmarks{
		Points: []models.Landmark{
			{X: 0.3, Y: 0.3}, {X: 0.7, Y: 0.3}, {X: 0.3, Y: 0.7}, {X: 0.7, Y: 0.7},
		},
		Confidence: 0.9,
	}
	res := DPR(face, nil, true)
	require.NotNil(t, res)
	assert.Equal(t, float32(1), res.Value)
	assert.Equal(t, models.SourceUnknown, res.Source)
}

func TestDPR_RatioAgainstBaseline(t *testing.T) {
	face := models.FaceLandmarks{
		Points: []models.Landmark{
			{X: 0.3, Y: 0.3}, {X: 0.7, Y: 0.3}, {X: 0.3, Y: 0.7}, {X: 0.7, Y: 0.7},
		},
		Confidence: 0.9,
	}
	size, ok := FaceBBoxSize(face)
	require.True(t, ok)
	baseline := float32(size / 2)

	res := DPR(face, &baseline, true)
	require.NotNil(t, res)
	assert.InDelta(t, 2.0, res.Value, 1e-4)
}

func TestHeadPoseFromMatrix_Identity(t *testing.T) {
	// Column-major identity.
	var m [16]float64
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
	angles, ok := HeadPoseFromMatrix(m)
	require.True(t, ok)
	assert.InDelta(t, 0, angles.PitchDeg, 1e-6)
	assert.InDelta(t, 0, angles.YawDeg, 1e-6)
	assert.InDelta(t, 0, angles.RollDeg, 1e-6)
}

func TestHeadPoseFromMatrix_GimbalLockRejected(t *testing.T) {
	// Build a rotation matrix for yaw = 90 degrees exactly (row-major m20 = -1).
	var m mat3
	m[0][0], m[0][2] = 0, 1
	m[1][1] = 1
	m[2][0], m[2][2] = -1, 0

	// Re-express as column-major 16-vector (m[col*4+row]).
	var flat [16]float64
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			flat[c*4+r] = m[r][c]
		}
	}
	flat[15] = 1

	_, ok := HeadPoseFromMatrix(flat)
	assert.False(t, ok)
}

func TestSolvePnP_InsufficientLandmarks(t *testing.T) {
	face := models.FaceLandmarks{Points: make([]models.Landmark, 10)}
	_, err := SolvePnP(face, 640, 480, 60)
	assert.Error(t, err)
}

func TestSolvePnP_FOVClamped(t *testing.T) {
	pts := make([]models.Landmark, 468)
	// Place the 6 model landmarks at plausible frontal positions.
	frontal := map[int][2]float64{
		1:   {0.5, 0.45},
		152: {0.5, 0.8},
		33:  {0.35, 0.42},
		263: {0.65, 0.42},
		61:  {0.4, 0.65},
		291: {0.6, 0.65},
	}
	for idx, xy := range frontal {
		pts[idx] = models.Landmark{X: xy[0], Y: xy[1]}
	}
	face := models.FaceLandmarks{Points: pts, Confidence: 0.9}

	angles, err := SolvePnP(face, 640, 480, 500) // way above max, should clamp
	require.NoError(t, err)
	assert.True(t, math.Abs(angles.YawDeg) < 90)
}
