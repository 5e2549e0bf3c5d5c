// Package envelope overlays INITIAL/IDLE/UNRELIABLE onto the core risk
// state using presence and reliability, per spec.md §4.7.
package envelope

import (
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/risk"
)

const (
	defaultAbsenceToIdleMs  = 5000.0
	defaultPresenceResumeMs = 2000.0
	defaultSleepAfterAbsenceMs = 60000.0
	defaultResumeBoostMs    = 4000.0
)

// Params configures the envelope's dwell thresholds, all in milliseconds.
type Params struct {
	AbsenceToIdleMs     float64
	PresenceResumeMs    float64
	SleepAfterAbsenceMs float64
	ResumeBoostMs       float64
}

func (p Params) withDefaults() Params {
	if p.AbsenceToIdleMs <= 0 {
		p.AbsenceToIdleMs = defaultAbsenceToIdleMs
	}
	if p.PresenceResumeMs <= 0 {
		p.PresenceResumeMs = defaultPresenceResumeMs
	}
	if p.SleepAfterAbsenceMs <= 0 {
		p.SleepAfterAbsenceMs = defaultSleepAfterAbsenceMs
	}
	if p.ResumeBoostMs <= 0 {
		p.ResumeBoostMs = defaultResumeBoostMs
	}
	return p
}

// State is one of the seven outward-facing states.
type State string

const (
	StateInitial     State = "INITIAL"
	StateGood        State = "GOOD"
	StateAtRisk      State = "AT_RISK"
	StateBadPosture  State = "BAD_POSTURE"
	StateRecovering  State = "RECOVERING"
	StateIdle        State = "IDLE"
	StateUnreliable  State = "UNRELIABLE"
)

func fromRisk(s risk.State) State {
	switch s {
	case risk.StateAtRisk:
		return StateAtRisk
	case risk.StateBadPosture:
		return StateBadPosture
	case risk.StateRecovering:
		return StateRecovering
	default:
		return StateGood
	}
}

// Result is the envelope's per-tick outward state plus engine hints.
type Result struct {
	State        State
	ShouldSleep  bool
	ShouldBoost  bool
}

// Envelope tracks presence dwell times and resume-boost windows on top of
// the core risk state.
type Envelope struct {
	params Params

	state          State
	absenceMs      float64
	presenceMs     float64
	resumeBoostUntil float64
	wasAbsent      bool
}

// New creates an envelope starting in INITIAL.
func New(params Params) *Envelope {
	return &Envelope{params: params.withDefaults(), state: StateInitial, wasAbsent: true}
}

// Tick advances the envelope by deltaMs given this frame's presence,
// reliability and recommended core risk state, returning the outward state
// and engine hints.
func (e *Envelope) Tick(deltaMs float64, presence models.Presence, reliability models.Reliability, coreState risk.State, nowMs float64) Result {
	if reliability == models.ReliabilityUnreliable {
		boost := presence == models.PresencePresent && e.boostActive(nowMs)
		return Result{State: StateUnreliable, ShouldSleep: false, ShouldBoost: boost}
	}

	if presence == models.PresenceAbsent {
		if !e.wasAbsent {
			e.absenceMs = 0
		}
		e.wasAbsent = true
		e.presenceMs = 0
		e.absenceMs += deltaMs

		shouldSleep := e.absenceMs >= e.params.SleepAfterAbsenceMs

		if e.absenceMs >= e.params.AbsenceToIdleMs {
			e.state = StateIdle
		}
		return Result{State: e.state, ShouldSleep: shouldSleep, ShouldBoost: false}
	}

	// PRESENT.
	if e.wasAbsent {
		e.resumeBoostUntil = nowMs + e.params.ResumeBoostMs
	}
	e.wasAbsent = false
	e.absenceMs = 0
	e.presenceMs += deltaMs

	if e.state == StateIdle || e.state == StateInitial {
		if e.presenceMs >= e.params.PresenceResumeMs {
			e.state = StateGood
		}
		return Result{State: e.state, ShouldSleep: false, ShouldBoost: e.boostActive(nowMs)}
	}

	e.state = fromRisk(coreState)
	return Result{State: e.state, ShouldSleep: false, ShouldBoost: e.boostActive(nowMs)}
}

func (e *Envelope) boostActive(nowMs float64) bool {
	return nowMs <= e.resumeBoostUntil
}
