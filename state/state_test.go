package state

import (
	"testing"
)

func TestMachine_InitialStatus(t *testing.T) {
	m := NewMachine()
	if m.Current() != StatusIdle {
		t.Errorf("Expected initial status to be idle, got %s", m.Current())
	}
}

func TestMachine_IdleNeverReachesActiveDirectly(t *testing.T) {
	m := NewMachine()

	if err := m.Transition(StatusActive); err != ErrTransitionNotAllowed {
		t.Fatalf("Expected ErrTransitionNotAllowed for idle->active, got %v", err)
	}
	if m.Current() != StatusIdle {
		t.Errorf("Status should remain idle after a blocked transition, got %s", m.Current())
	}

	if err := m.Transition(StatusPending); err != nil {
		t.Fatalf("idle->pending should be allowed, got %v", err)
	}
	if err := m.Transition(StatusActive); err != nil {
		t.Fatalf("pending->active should be allowed, got %v", err)
	}
	if m.Current() != StatusActive {
		t.Errorf("Expected status active, got %s", m.Current())
	}
}

func TestMachine_ActiveRepolls(t *testing.T) {
	m := NewMachine()
	m.Transition(StatusPending)
	m.Transition(StatusActive)

	// Every successful poll re-enters active.
	if err := m.Transition(StatusActive); err != nil {
		t.Errorf("active->active should be allowed, got %v", err)
	}
}

func TestMachine_InvalidReachableFromPendingAndActive(t *testing.T) {
	m := NewMachine()
	m.Transition(StatusPending)
	if err := m.Transition(StatusInvalid); err != nil {
		t.Errorf("pending->invalid should be allowed, got %v", err)
	}

	m = NewMachine()
	m.Transition(StatusPending)
	m.Transition(StatusActive)
	if err := m.Transition(StatusInvalid); err != nil {
		t.Errorf("active->invalid should be allowed, got %v", err)
	}
}

func TestMachine_InvalidNotReachableFromIdle(t *testing.T) {
	m := NewMachine()
	if err := m.Transition(StatusInvalid); err != ErrTransitionNotAllowed {
		t.Errorf("idle->invalid should be blocked, got %v", err)
	}
}

func TestMachine_InvalidOnlyExitsToIdle(t *testing.T) {
	m := NewMachine()
	m.Transition(StatusPending)
	m.Transition(StatusInvalid)

	if err := m.Transition(StatusActive); err != ErrTransitionNotAllowed {
		t.Errorf("invalid->active should be blocked, got %v", err)
	}
	if err := m.Transition(StatusPending); err != ErrTransitionNotAllowed {
		t.Errorf("invalid->pending should be blocked, got %v", err)
	}
	if err := m.Transition(StatusIdle); err != nil {
		t.Errorf("invalid->idle should be allowed, got %v", err)
	}
}

func TestMachine_AbandonFromAnyStatus(t *testing.T) {
	paths := [][]Status{
		{},
		{StatusPending},
		{StatusPending, StatusActive},
		{StatusPending, StatusInvalid},
	}

	for _, path := range paths {
		m := NewMachine()
		for _, status := range path {
			if err := m.Transition(status); err != nil {
				t.Fatalf("Setup transition to %s failed: %v", status, err)
			}
		}
		if err := m.Transition(StatusIdle); err != nil {
			t.Errorf("Expected return to idle from %s to be allowed, got %v", m.Current(), err)
		}
		if m.Current() != StatusIdle {
			t.Errorf("Expected idle, got %s", m.Current())
		}
	}
}

func TestMachine_CanTransition(t *testing.T) {
	m := NewMachine()
	if !m.CanTransition(StatusPending) {
		t.Error("idle->pending should be reported legal")
	}
	if m.CanTransition(StatusActive) {
		t.Error("idle->active should be reported illegal")
	}
}
