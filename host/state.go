package host

import (
	"errors"
	"fmt"
)

// State is a run's position in the orchestration state machine.
type State string

const (
	StateIdle           State = "Idle"
	StateInputAssembled State = "InputAssembled"
	StateProving        State = "Proving"
	StateProved         State = "Proved"
	StateVerified       State = "Verified"
	StateExecuting      State = "Executing"
	StateExecuted       State = "Executed"
	StateFailed         State = "Failed"
)

var ErrTransition = errors.New("host: invalid state transition")

var transitions = map[State][]State{
	StateIdle:           {StateInputAssembled, StateFailed},
	StateInputAssembled: {StateProving, StateExecuting, StateFailed},
	StateProving:        {StateProved, StateFailed},
	StateProved:         {StateVerified, StateFailed},
	StateExecuting:      {StateExecuted, StateFailed},
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to State) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrTransition, from, to)
	}
	return nil
}
