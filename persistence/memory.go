// persistence/memory.go
package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/parlorgames/roomsync/models"
)

// MemoryStore keeps room documents in a mutex-guarded map. Used for tests
// and single-process development runs.
type MemoryStore struct {
	rooms map[string]*models.Room
	mutex sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*models.Room),
	}
}

func (m *MemoryStore) CreateRoom(ctx context.Context, room *models.Room) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryStore) FetchRoom(ctx context.Context, key string) (*models.Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[key]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// AppendPlayer holds the write lock for the whole read-modify-write, which
// gives the single-process equivalent of the row lock the SQL stores take.
func (m *MemoryStore) AppendPlayer(ctx context.Context, key string, player models.Player) (*models.Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[key]
	if !exists {
		return nil, ErrRoomNotFound
	}
	if room.HasPlayer(player.PlayerID) {
		// Re-join by an existing member is a no-op.
		return room.Clone(), nil
	}
	if room.IsFull() {
		return nil, ErrRoomFull
	}

	room.Players = append(room.Players, player)
	return room.Clone(), nil
}

func (m *MemoryStore) UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[key]
	if !exists {
		return nil, ErrRoomNotFound
	}

	room.State = append(json.RawMessage(nil), state...)
	return room.Clone(), nil
}

func (m *MemoryStore) CountRooms(ctx context.Context) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return int64(len(m.rooms)), nil
}

func (m *MemoryStore) Close() error {
	return nil
}
