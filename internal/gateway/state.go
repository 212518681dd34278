package gateway

import "fmt"

// State is the lifecycle of one realtime connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateActive
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Input drives State transitions.
type Input int

const (
	InputUpgraded Input = iota
	InputAuthenticated
	InputRejected
	InputDisconnected
)

func (i Input) String() string {
	switch i {
	case InputUpgraded:
		return "upgraded"
	case InputAuthenticated:
		return "authenticated"
	case InputRejected:
		return "rejected"
	case InputDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("input(%d)", int(i))
	}
}

// Next returns the state reached from s on input in. Closed is terminal.
func (s State) Next(in Input) (State, error) {
	switch {
	case s == StateConnecting && in == InputUpgraded:
		return StateAuthenticating, nil
	case s == StateAuthenticating && in == InputAuthenticated:
		return StateActive, nil
	case s == StateAuthenticating && in == InputRejected:
		return StateClosed, nil
	case s != StateClosed && in == InputDisconnected:
		return StateClosed, nil
	}
	return s, fmt.Errorf("invalid transition from %s on %s", s, in)
}
