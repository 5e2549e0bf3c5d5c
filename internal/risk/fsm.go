package risk

const (
	defaultTriggerSeconds   = 10.0
	defaultRecoverySeconds  = 5.0
	defaultMaxDeltaSeconds  = 5.0
)

// State is one of the core FSM's four states.
type State string

const (
	StateGood        State = "GOOD"
	StateAtRisk      State = "AT_RISK"
	StateBadPosture  State = "BAD_POSTURE"
	StateRecovering  State = "RECOVERING"
)

// Transition records one FSM step's event, emitted regardless of whether
// the state actually changed (spec.md §4.6: "every transition emits an
// event").
type Transition struct {
	From, To              State
	TimeInConditions      float64
	TimeInRecovery        float64
	Thresholds            Thresholds
	Assessment            Assessment
}

// Params configures the FSM's dwell requirements.
type Params struct {
	TriggerSeconds  float64
	RecoverySeconds float64
	MaxDeltaSeconds float64
}

func (p Params) withDefaults() Params {
	if p.TriggerSeconds <= 0 {
		p.TriggerSeconds = defaultTriggerSeconds
	}
	if p.RecoverySeconds <= 0 {
		p.RecoverySeconds = defaultRecoverySeconds
	}
	if p.MaxDeltaSeconds <= 0 {
		p.MaxDeltaSeconds = defaultMaxDeltaSeconds
	}
	return p
}

// FSM is the core 4-state risk machine.
type FSM struct {
	params Params

	state            State
	timeInConditions float64
	timeInRecovery   float64
}

// NewFSM creates a risk FSM starting in GOOD.
func NewFSM(params Params) *FSM {
	return &FSM{params: params.withDefaults(), state: StateGood}
}

func (f *FSM) State() State { return f.state }

// Tick advances the FSM by deltaSeconds (clamped to MaxDeltaSeconds) given
// this frame's assessment, returning the resulting transition.
func (f *FSM) Tick(deltaSeconds float64, a Assessment, th Thresholds) Transition {
	dt := deltaSeconds
	if dt < 0 {
		dt = 0
	}
	if dt > f.params.MaxDeltaSeconds {
		dt = f.params.MaxDeltaSeconds
	}

	from := f.state

	if a.ShouldHold {
		return Transition{From: from, To: f.state, TimeInConditions: f.timeInConditions, TimeInRecovery: f.timeInRecovery, Thresholds: th, Assessment: a}
	}

	switch f.state {
	case StateGood:
		if a.ConditionsMet {
			f.timeInConditions += dt
			f.state = StateAtRisk
		} else {
			f.timeInConditions = 0
			f.timeInRecovery = 0
		}

	case StateAtRisk:
		if !a.ConditionsMet {
			f.state = StateGood
			f.timeInConditions = 0
			f.timeInRecovery = 0
		} else {
			f.timeInConditions += dt
			if f.timeInConditions >= f.params.TriggerSeconds {
				f.timeInConditions = f.params.TriggerSeconds
				f.state = StateBadPosture
				f.timeInRecovery = 0
			}
		}

	case StateBadPosture:
		if a.ConditionsMet {
			f.timeInConditions = f.params.TriggerSeconds
			f.timeInRecovery = 0
		} else if a.RecoveryConditionsMet {
			f.timeInRecovery += dt
			f.state = StateRecovering
			if f.timeInRecovery >= f.params.RecoverySeconds {
				f.state = StateGood
				f.timeInConditions = 0
				f.timeInRecovery = 0
			}
		} else {
			f.state = StateAtRisk
			f.timeInConditions = 0
			f.timeInRecovery = 0
		}

	case StateRecovering:
		if a.ConditionsMet {
			f.state = StateAtRisk
			f.timeInConditions = dt
			f.timeInRecovery = 0
		} else if a.RecoveryConditionsMet {
			f.timeInRecovery += dt
			if f.timeInRecovery >= f.params.RecoverySeconds {
				f.state = StateGood
				f.timeInConditions = 0
				f.timeInRecovery = 0
			}
		} else {
			f.state = StateAtRisk
			f.timeInConditions = 0
			f.timeInRecovery = 0
		}
	}

	return Transition{
		From:             from,
		To:               f.state,
		TimeInConditions: f.timeInConditions,
		TimeInRecovery:   f.timeInRecovery,
		Thresholds:       th,
		Assessment:       a,
	}
}
