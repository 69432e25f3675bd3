// persistence/interface.go
package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/parlorgames/roomsync/models"
)

// Store is the session store boundary: opaque room documents keyed by the
// generated room identifier. AppendPlayer must be atomic (read-modify-write)
// so two simultaneous joins cannot both take the last slot.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	FetchRoom(ctx context.Context, key string) (*models.Room, error)
	AppendPlayer(ctx context.Context, key string, player models.Player) (*models.Room, error)
	UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error)
	CountRooms(ctx context.Context) (int64, error)
	Close() error
}

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomFull     = errors.New("room is full")
)
