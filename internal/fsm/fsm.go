// Package fsm models the bridge connection lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateDisconnected State = "disconnected"
	StateConnected    State = "connected"
	StateFailed       State = "failed"
)

const (
	EventConnected  Event = "connected"
	EventConnectErr Event = "connect_error"
	EventReset      Event = "reset"
)

// Transition applies event to current. Exchanges never change state; only
// connect attempts and explicit resets do.
func Transition(current State, event Event) (State, error) {
	if event == EventReset {
		switch current {
		case StateDisconnected, StateConnected, StateFailed:
			return StateDisconnected, nil
		default:
			return current, fmt.Errorf("unknown state %q", current)
		}
	}

	switch current {
	case StateDisconnected, StateFailed:
		switch event {
		case EventConnected:
			return StateConnected, nil
		case EventConnectErr:
			return StateFailed, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateConnected:
		return current, invalidTransition(current, event)
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
