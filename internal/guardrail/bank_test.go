package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
)

func goodInput() Input {
	return Input{
		YawDeg:         5,
		RollDeg:        5,
		FaceConfidence: 0.9,
		PoseConfidence: 0.9,
		Illumination:   0.9,
		DeltaSeconds:   0.1,
	}
}

func TestBank_OKWhenAllWithinThresholds(t *testing.T) {
	b := New(config.NewStore())
	res := b.Evaluate(goodInput())
	assert.Equal(t, models.ReliabilityOK, res.Reliability)
	assert.Empty(t, res.Reasons)
}

func TestBank_YawTripsAfterEnterDwell(t *testing.T) {
	b := New(config.NewStore())
	in := goodInput()
	in.YawDeg = 50

	var res Result
	for i := 0; i < 20; i++ {
		res = b.Evaluate(in)
	}
	assert.Equal(t, models.ReliabilityUnreliable, res.Reliability)
	require.Contains(t, res.Reasons, "yaw")
}

func TestBank_YawDoesNotTripBeforeEnterDwell(t *testing.T) {
	b := New(config.NewStore())
	in := goodInput()
	in.YawDeg = 50

	res := b.Evaluate(in) // single 0.1s tick, enterSeconds is 1.5
	assert.Equal(t, models.ReliabilityOK, res.Reliability)
}

func TestBank_OrientationShortCircuitsConfidence(t *testing.T) {
	b := New(config.NewStore())
	in := goodInput()
	in.YawDeg = 50
	in.FaceConfidence = 0.1

	var res Result
	for i := 0; i < 20; i++ {
		res = b.Evaluate(in)
	}
	assert.Equal(t, models.ReliabilityUnreliable, res.Reliability)
	assert.Contains(t, res.Reasons, "yaw")
	assert.NotContains(t, res.Reasons, "confidence")
}

func TestBank_IlluminationTripsAfterEnterDwellWithConfidenceOK(t *testing.T) {
	b := New(config.NewStore())
	in := goodInput()
	in.Illumination = 0.1

	var res Result
	for i := 0; i < 25; i++ {
		res = b.Evaluate(in)
	}
	assert.Equal(t, models.ReliabilityUnreliable, res.Reliability)
	require.Contains(t, res.Reasons, "illumination")
}

func TestBank_RecoversAfterExitDwell(t *testing.T) {
	b := New(config.NewStore())
	in := goodInput()
	in.YawDeg = 50
	for i := 0; i < 20; i++ {
		b.Evaluate(in)
	}

	good := goodInput()
	var res Result
	for i := 0; i < 15; i++ {
		res = b.Evaluate(good)
	}
	assert.Equal(t, models.ReliabilityOK, res.Reliability)
}
