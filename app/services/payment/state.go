package payment

// State is where a checkout is in the widget lifecycle.
type State string

const (
	Idle            State = "idle"
	ScriptLoading   State = "script_loading"
	Ready           State = "ready"
	ModalOpen       State = "modal_open"
	Settled         State = "settled"
	Failed          State = "failed"
	CancelledByUser State = "cancelled_by_user"
	TimedOut        State = "timed_out"
)

// Terminal reports whether s ends a checkout.
func (s State) Terminal() bool {
	switch s {
	case Settled, Failed, CancelledByUser, TimedOut:
		return true
	}
	return false
}

var transitions = map[State][]State{
	Idle:            {ScriptLoading},
	ScriptLoading:   {Ready, Failed, Idle},
	Ready:           {ModalOpen, Failed},
	ModalOpen:       {Settled, Failed, CancelledByUser, TimedOut},
	Settled:         {Idle},
	Failed:          {Idle},
	CancelledByUser: {Idle},
	TimedOut:        {Idle},
}

func canTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
