package state

import (
	"errors"
	"sync"
)

// Status is a client session's place in the synchronization lifecycle.
type Status int

const (
	StatusIdle Status = iota
	StatusPending
	StatusActive
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrTransitionNotAllowed is returned when a state transition is not allowed.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// transitions holds the legal edges of the session lifecycle. Every state
// may fall back to Idle (abandon); Active is reachable only through Pending.
var transitions = map[Status]map[Status]bool{
	StatusIdle: {
		StatusIdle:    true,
		StatusPending: true,
	},
	StatusPending: {
		StatusIdle:    true,
		StatusActive:  true,
		StatusInvalid: true,
	},
	StatusActive: {
		StatusIdle:    true,
		StatusActive:  true,
		StatusInvalid: true,
	},
	StatusInvalid: {
		StatusIdle: true,
	},
}

// Machine is the session state machine. Transitions are pure bookkeeping;
// no I/O happens here, so it can be tested without a display or network.
type Machine struct {
	current Status
	mutex   sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{current: StatusIdle}
}

func (m *Machine) Current() Status {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.current
}

func (m *Machine) Transition(to Status) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if allowed, exists := transitions[m.current]; !exists || !allowed[to] {
		return ErrTransitionNotAllowed
	}
	m.current = to
	return nil
}

// CanTransition reports whether the edge is legal without taking it.
func (m *Machine) CanTransition(to Status) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	allowed, exists := transitions[m.current]
	return exists && allowed[to]
}
