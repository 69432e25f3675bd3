// session/session.go
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/room"
	"github.com/parlorgames/roomsync/state"
	"github.com/parlorgames/roomsync/view"
)

const (
	DefaultPollInterval     = time.Second
	DefaultFailureThreshold = 10
)

// Fetcher resolves a room key to its current document. room.ErrNotFound
// must be returned distinctly; any other error is treated as transient.
type Fetcher interface {
	FetchRoom(ctx context.Context, key string) (*models.Room, error)
}

// ErrSessionBusy is returned when Start is called while a room key is
// already held.
var ErrSessionBusy = errors.New("session already has a room key")

// Options tune the polling discipline.
type Options struct {
	// PollInterval is the fixed cadence between fetches.
	PollInterval time.Duration
	// FailureThreshold is the number of consecutive transient failures
	// after which the snapshot reports the connection as lost.
	FailureThreshold int
}

// Snapshot is a side-effect-free view of the session, safe to read at any
// time. View is set once the session is Active and a slot is selected.
type Snapshot struct {
	Status         state.Status
	RoomKey        string
	Room           *models.Room
	View           *view.PlayerView
	ConnectionLost bool
}

// Session is the client-side synchronization loop: it polls the room
// document on a fixed cadence, replaces the held copy wholesale on each
// success, and tracks the Idle/Pending/Active/Invalid lifecycle.
//
// Polls are strictly sequential: the loop performs each fetch inline, so a
// new fetch is never issued while the previous one is outstanding.
type Session struct {
	fetcher Fetcher
	opts    Options

	mutex      sync.RWMutex
	machine    *state.Machine
	roomKey    string
	room       *models.Room
	slot       int
	failures   int
	lost       bool
	generation uint64
	stopChan   chan struct{}
}

func NewSession(fetcher Fetcher, opts Options) *Session {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	return &Session{
		fetcher: fetcher,
		opts:    opts,
		machine: state.NewMachine(),
		slot:    -1,
	}
}

// Start records the room key obtained from a create or join and begins
// polling. The first successful poll moves the session to Active.
func (s *Session) Start(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.roomKey != "" {
		return ErrSessionBusy
	}
	if err := s.machine.Transition(state.StatusPending); err != nil {
		return err
	}

	s.roomKey = key
	s.failures = 0
	s.lost = false
	s.generation++
	s.stopChan = make(chan struct{})

	go s.loop(s.generation, key, s.stopChan)
	return nil
}

// loop drives the fixed-cadence polling. Each cycle waits for the prior
// fetch's outcome before the next becomes eligible.
func (s *Session) loop(generation uint64, key string, stop chan struct{}) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.pollOnce(generation, key) {
				return
			}
		}
	}
}

// pollOnce performs a single fetch and folds its outcome into the session.
// The generation tag guards against a stale poll delivering a late update
// into a session that has since abandoned or switched rooms. It reports
// whether the loop should keep polling.
func (s *Session) pollOnce(generation uint64, key string) bool {
	fetched, err := s.fetcher.FetchRoom(context.Background(), key)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if generation != s.generation {
		// The session moved on while this fetch was in flight.
		return false
	}

	if err != nil {
		if errors.Is(err, room.ErrNotFound) {
			// The room was removed or the key is wrong; not transient.
			if terr := s.machine.Transition(state.StatusInvalid); terr != nil {
				return false
			}
			s.room = nil
			return false
		}

		// Transient fault: keep state, keep cadence, count it.
		s.failures++
		if s.failures >= s.opts.FailureThreshold {
			s.lost = true
		}
		logger.Log.Warnw("poll failed", "room_id", key, "consecutive_failures", s.failures, "error", err)
		return true
	}

	s.failures = 0
	s.lost = false
	s.room = fetched

	if s.machine.Current() == state.StatusPending {
		if terr := s.machine.Transition(state.StatusActive); terr != nil {
			return false
		}
	}
	return true
}

// SelectSlot chooses the local player slot. Purely local; validated
// against the document when the view is produced.
func (s *Session) SelectSlot(slot int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.slot = slot
}

// Abandon stops polling and returns the session to Idle from any state.
// In-flight poll results for the old key are discarded.
func (s *Session) Abandon() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.reset()
}

// Acknowledge clears an Invalid session once the user has seen the
// "room not found" signal, so a fresh create or join can be attempted.
func (s *Session) Acknowledge() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.machine.Current() != state.StatusInvalid {
		return state.ErrTransitionNotAllowed
	}
	s.reset()
	return nil
}

// reset requires the caller to hold the write lock.
func (s *Session) reset() {
	s.generation++
	if s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
	_ = s.machine.Transition(state.StatusIdle)
	s.roomKey = ""
	s.room = nil
	s.slot = -1
	s.failures = 0
	s.lost = false
}

// Snapshot returns the current status and, when Active with a selected
// slot, the partitioned view for that slot.
func (s *Session) Snapshot() Snapshot {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	snap := Snapshot{
		Status:         s.machine.Current(),
		RoomKey:        s.roomKey,
		Room:           s.room,
		ConnectionLost: s.lost,
	}

	if snap.Status == state.StatusActive && s.room != nil && s.slot >= 0 {
		if v, err := view.Select(s.room, s.slot); err == nil {
			snap.View = v
		}
	}
	return snap
}

// Status returns the session's lifecycle state.
func (s *Session) Status() state.Status {
	return s.machine.Current()
}
