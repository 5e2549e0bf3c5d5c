package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
)

func metricsWith(pitch, ehd, dpr float32) models.MetricValues {
	return models.MetricValues{
		Metrics: map[models.MetricKey]models.MetricSeries{
			models.MetricPitch: {Smoothed: &pitch},
			models.MetricEHD:   {Smoothed: &ehd},
			models.MetricDPR:   {Smoothed: &dpr},
		},
	}
}

func TestEvaluate_MissingCalibrationHolds(t *testing.T) {
	a := Evaluate(metricsWith(20, 0.5, 0.5), Baseline{}, Thresholds{PitchThreshold: 10})
	assert.True(t, a.ShouldHold)
	assert.True(t, a.MissingCalibration)
}

func TestEvaluate_ConditionsMetWhenOverThresholds(t *testing.T) {
	baseline := Baseline{Pitch: 0, EHD: 0, DPR: 0, Valid: true}
	th := Thresholds{PitchThreshold: 10, EHDThreshold: 0.1, DPRThreshold: 0.1}
	a := Evaluate(metricsWith(20, 0.5, 0.5), baseline, th)
	assert.False(t, a.ShouldHold)
	assert.True(t, a.ConditionsMet)
}

func TestEvaluate_DegeneratePoseHolds(t *testing.T) {
	baseline := Baseline{Valid: true}
	a := Evaluate(metricsWith(80, 0, 0), baseline, Thresholds{PitchThreshold: 10})
	assert.True(t, a.DegeneratePose)
	assert.True(t, a.ShouldHold)
}

func TestEvaluate_RecoveryUsesHysteresis(t *testing.T) {
	baseline := Baseline{Valid: true}
	th := Thresholds{PitchThreshold: 10, EHDThreshold: 0.1, DPRThreshold: 0.1, HysteresisDeltaPct: 20}
	// dPitch = 7, recoveryThreshold = 10*0.8 = 8, so 7 < 8 -> recovery true for pitch leg.
	a := Evaluate(metricsWith(7, 0.05, 0.05), baseline, th)
	assert.True(t, a.RecoveryConditionsMet)
}

func TestFSM_GoodToAtRiskToBadPosture(t *testing.T) {
	fsm := NewFSM(Params{TriggerSeconds: 1, RecoverySeconds: 1})
	th := Thresholds{PitchThreshold: 10, EHDThreshold: 0.1, DPRThreshold: 0.1}
	a := Assessment{ConditionsMet: true}

	tr := fsm.Tick(0.5, a, th)
	assert.Equal(t, StateAtRisk, tr.To)

	tr = fsm.Tick(0.6, a, th)
	assert.Equal(t, StateBadPosture, tr.To)
}

func TestFSM_ShouldHoldFreezesState(t *testing.T) {
	fsm := NewFSM(Params{})
	held := Assessment{ShouldHold: true}
	tr := fsm.Tick(1, held, Thresholds{})
	require.Equal(t, StateGood, tr.To)
	assert.Equal(t, float64(0), tr.TimeInConditions)
}

func TestFSM_RecoveringBackToAtRiskIfConditionsReturn(t *testing.T) {
	fsm := NewFSM(Params{TriggerSeconds: 1, RecoverySeconds: 10})
	th := Thresholds{}
	bad := Assessment{ConditionsMet: true}
	fsm.Tick(0.6, bad, th)
	fsm.Tick(0.6, bad, th)
	require.Equal(t, StateBadPosture, fsm.State())

	recovering := Assessment{RecoveryConditionsMet: true}
	fsm.Tick(0.5, recovering, th)
	require.Equal(t, StateRecovering, fsm.State())

	tr := fsm.Tick(0.5, bad, th)
	assert.Equal(t, StateAtRisk, tr.To)
}

func TestFSM_RecoveringToAtRiskRestartsTrigger(t *testing.T) {
	fsm := NewFSM(Params{TriggerSeconds: 1, RecoverySeconds: 10})
	th := Thresholds{}
	bad := Assessment{ConditionsMet: true}
	fsm.Tick(0.6, bad, th)
	fsm.Tick(0.6, bad, th)
	require.Equal(t, StateBadPosture, fsm.State())

	recovering := Assessment{RecoveryConditionsMet: true}
	fsm.Tick(0.5, recovering, th)
	require.Equal(t, StateRecovering, fsm.State())

	tr := fsm.Tick(0.5, bad, th)
	require.Equal(t, StateAtRisk, tr.To)

	// A single further tick with conditions met must not immediately
	// re-trigger BAD_POSTURE; the dwell timer must have restarted.
	tr = fsm.Tick(0.5, bad, th)
	assert.Equal(t, StateAtRisk, tr.To)
}

func TestFSM_NoBadPostureBeforeTriggerSeconds(t *testing.T) {
	fsm := NewFSM(Params{TriggerSeconds: 10, RecoverySeconds: 5})
	th := Thresholds{}
	a := Assessment{ConditionsMet: true}
	for i := 0; i < 5; i++ {
		fsm.Tick(1, a, th)
	}
	assert.Equal(t, StateAtRisk, fsm.State())
}
