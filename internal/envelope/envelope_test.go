package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/risk"
)

func TestEnvelope_UnreliableOverridesRegardlessOfCore(t *testing.T) {
	e := New(Params{})
	res := e.Tick(100, models.PresencePresent, models.ReliabilityUnreliable, risk.StateGood, 100)
	assert.Equal(t, StateUnreliable, res.State)
}

func TestEnvelope_AbsenceTransitionsToIdleAfterDwell(t *testing.T) {
	e := New(Params{AbsenceToIdleMs: 100})
	var res Result
	now := 0.0
	for i := 0; i < 5; i++ {
		now += 30
		res = e.Tick(30, models.PresenceAbsent, models.ReliabilityOK, risk.StateGood, now)
	}
	assert.Equal(t, StateIdle, res.State)
}

func TestEnvelope_ResumeToGoodAfterPresenceDwell(t *testing.T) {
	e := New(Params{AbsenceToIdleMs: 50, PresenceResumeMs: 100})
	now := 0.0
	for i := 0; i < 3; i++ {
		now += 30
		e.Tick(30, models.PresenceAbsent, models.ReliabilityOK, risk.StateGood, now)
	}

	var res Result
	for i := 0; i < 5; i++ {
		now += 30
		res = e.Tick(30, models.PresencePresent, models.ReliabilityOK, risk.StateGood, now)
	}
	require.Equal(t, StateGood, res.State)
}

func TestEnvelope_ShouldSleepAfterLongAbsence(t *testing.T) {
	e := New(Params{SleepAfterAbsenceMs: 100})
	now := 0.0
	var res Result
	for i := 0; i < 5; i++ {
		now += 30
		res = e.Tick(30, models.PresenceAbsent, models.ReliabilityOK, risk.StateGood, now)
	}
	assert.True(t, res.ShouldSleep)
}

func TestEnvelope_ShouldBoostAfterAbsentToPresentEdge(t *testing.T) {
	e := New(Params{AbsenceToIdleMs: 10000, ResumeBoostMs: 200})
	e.Tick(30, models.PresenceAbsent, models.ReliabilityOK, risk.StateGood, 30)
	res := e.Tick(30, models.PresencePresent, models.ReliabilityOK, risk.StateGood, 60)
	assert.True(t, res.ShouldBoost)
}

func TestEnvelope_FollowsCoreStateWhenPresentAndStable(t *testing.T) {
	e := New(Params{PresenceResumeMs: 10})
	e.Tick(30, models.PresencePresent, models.ReliabilityOK, risk.StateGood, 30)
	res := e.Tick(30, models.PresencePresent, models.ReliabilityOK, risk.StateBadPosture, 60)
	assert.Equal(t, StateBadPosture, res.State)
}
