package chat

import (
	"fmt"
	"time"
)

// State is the orchestrator's position within one turn.
type State int

// Turn states.
const (
	StateIdle State = iota
	StateAwaitingModel
	StateExecutingTools
	StateAwaitingFollowUp
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateAwaitingFollowUp:
		return "awaiting_follow_up"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var validTransitions = map[State][]State{
	StateIdle:             {StateAwaitingModel},
	StateAwaitingModel:    {StateIdle, StateExecutingTools},
	StateExecutingTools:   {StateAwaitingFollowUp},
	StateAwaitingFollowUp: {StateIdle},
}

func transitionValid(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// StateChange is emitted on every transition.
type StateChange struct {
	From      State
	To        State
	Reason    string
	Timestamp time.Time
}

// StateListener observes state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(event StateChange)

// OnStateChange calls f.
func (f StateListenerFunc) OnStateChange(event StateChange) { f(event) }

// InvalidTransitionError reports a transition outside the turn graph.
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s -> %s", e.From, e.To)
}
