// room/registry.go
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/persistence"
)

const (
	MinPlayers = 1
	MaxPlayers = 5
)

var (
	// ErrNotFound means the room key does not resolve. Callers surface it
	// as an explicit "room not found" signal, never as a generic failure.
	ErrNotFound = errors.New("room not found")

	// ErrRoomFull means every expected slot is already occupied.
	ErrRoomFull = errors.New("room is full")
)

// ValidationError reports bad create parameters. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Registry owns room lifecycle against the session store: creating a room
// with its initial document, resolving a join key, and appending players.
type Registry struct {
	store persistence.Store
}

func NewRegistry(store persistence.Store) *Registry {
	return &Registry{store: store}
}

// Create persists a new room with one slot occupied by the creator and an
// empty initial state document, and returns it including the generated key.
func (r *Registry) Create(ctx context.Context, spec models.RoomSpec) (*models.Room, error) {
	if strings.TrimSpace(spec.Name) == "" {
		return nil, &ValidationError{Field: "room_name", Reason: "must not be empty"}
	}
	if spec.ExpectedPlayers < MinPlayers || spec.ExpectedPlayers > MaxPlayers {
		return nil, &ValidationError{
			Field:  "expected_players",
			Reason: fmt.Sprintf("must be between %d and %d", MinPlayers, MaxPlayers),
		}
	}

	room := &models.Room{
		ID:              uuid.New().String(),
		Name:            spec.Name,
		ExpectedPlayers: spec.ExpectedPlayers,
		Players: []models.Player{{
			PlayerID: spec.Creator.PlayerID,
			Name:     spec.Creator.Name,
		}},
		State:     json.RawMessage("{}"),
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	logger.Log.Infow("room created", "room_id", room.ID, "creator", spec.Creator.PlayerID)
	return room, nil
}

// Get resolves a room key to its current document. Reading never mutates.
func (r *Registry) Get(ctx context.Context, key string) (*models.Room, error) {
	room, err := r.store.FetchRoom(ctx, key)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return room, nil
}

// Join appends a slot for the identity. Re-joining while already a member
// returns the room unchanged, so page reloads and reconnects are harmless.
func (r *Registry) Join(ctx context.Context, key string, identity models.Identity) (*models.Room, error) {
	room, err := r.store.AppendPlayer(ctx, key, models.Player{
		PlayerID: identity.PlayerID,
		Name:     identity.Name,
	})
	if err != nil {
		return nil, mapStoreErr(err)
	}

	logger.Log.Infow("player joined", "room_id", key, "player", identity.PlayerID)
	return room, nil
}

// UpdateState replaces the opaque game payload wholesale on behalf of the
// rule engine. This layer does not interpret it.
func (r *Registry) UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error) {
	room, err := r.store.UpdateState(ctx, key, state)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return room, nil
}

func mapStoreErr(err error) error {
	switch {
	case errors.Is(err, persistence.ErrRoomNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrRoomFull):
		return ErrRoomFull
	default:
		return err
	}
}
