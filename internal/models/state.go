package models

import (
	"errors"
	"fmt"
)

// TransactionState values are the numeric states of the Payme protocol.
type TransactionState int

const (
	StateCancelledAfterPerform TransactionState = -2
	StateCancelled             TransactionState = -1
	StateCreated               TransactionState = 1
	StatePerformed             TransactionState = 2
)

func (s TransactionState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StatePerformed:
		return "performed"
	case StateCancelled:
		return "cancelled"
	case StateCancelledAfterPerform:
		return "cancelled_after_perform"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// IsActive reports whether the state blocks other transactions on the same charge.
func (s TransactionState) IsActive() bool {
	return s == StateCreated || s == StatePerformed
}

func (s TransactionState) IsCancelled() bool {
	return s == StateCancelled || s == StateCancelledAfterPerform
}

func (s TransactionState) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// Event is an input to the transaction state machine.
type Event int

const (
	EventPerform Event = iota + 1
	EventCancel
)

func (e Event) String() string {
	switch e {
	case EventPerform:
		return "perform"
	case EventCancel:
		return "cancel"
	default:
		return fmt.Sprintf("unknown(%d)", int(e))
	}
}

var ErrIllegalTransition = errors.New("illegal transaction state transition")

var transitions = map[TransactionState]map[Event]TransactionState{
	StateCreated: {
		EventPerform: StatePerformed,
		EventCancel:  StateCancelled,
	},
	StatePerformed: {
		EventCancel: StateCancelledAfterPerform,
	},
}

// replays lists states that are the result of an event; firing it again is a no-op.
var replays = map[TransactionState]map[Event]bool{
	StatePerformed:             {EventPerform: true},
	StateCancelled:             {EventCancel: true},
	StateCancelledAfterPerform: {EventCancel: true},
}

// Step is the outcome of firing an event at a state.
type Step struct {
	From   TransactionState
	To     TransactionState
	Event  Event
	Replay bool
}

// Fire returns the step taken when e happens in state s. A replay step has
// From == To and must not change persisted data.
func (s TransactionState) Fire(e Event) (Step, error) {
	if replays[s][e] {
		return Step{From: s, To: s, Event: e, Replay: true}, nil
	}
	next, ok := transitions[s][e]
	if !ok {
		return Step{}, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, e, s)
	}
	return Step{From: s, To: next, Event: e}, nil
}

// PaymentStatus returns the registration payment status this step implies,
// or nil when the step leaves it untouched.
func (st Step) PaymentStatus() *bool {
	if st.Replay {
		return nil
	}
	switch {
	case st.To == StatePerformed:
		confirmed := true
		return &confirmed
	case st.From == StatePerformed:
		confirmed := false
		return &confirmed
	}
	return nil
}
