// models/models.go
package models

import (
	"encoding/json"
	"time"
)

// Identity names a participant as supplied by the caller (typically the
// login email plus a display name).
type Identity struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// Player is one occupied slot in a room. Private holds the slot's own
// hidden payload (hand, role); its internal shape is not interpreted here.
type Player struct {
	PlayerID string          `json:"player_id"`
	Name     string          `json:"name"`
	Private  json.RawMessage `json:"private,omitempty"`
}

// Room is the shared session document. ID doubles as the shareable join key.
// State is the opaque game payload owned by the rule engine.
type Room struct {
	ID              string          `json:"id"`
	Name            string          `json:"room_name"`
	ExpectedPlayers int             `json:"expected_players"`
	Players         []Player        `json:"players"`
	State           json.RawMessage `json:"state,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// RoomSpec describes a room to be created.
type RoomSpec struct {
	Name            string
	ExpectedPlayers int
	Creator         Identity
}

// HasPlayer reports whether the identity already occupies a slot.
func (r *Room) HasPlayer(playerID string) bool {
	for _, p := range r.Players {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// IsFull reports whether every expected slot is occupied.
func (r *Room) IsFull() bool {
	return len(r.Players) >= r.ExpectedPlayers
}

// Clone returns a deep copy so stores can hand out documents without
// sharing mutable state with callers.
func (r *Room) Clone() *Room {
	cp := *r
	cp.Players = make([]Player, len(r.Players))
	for i, p := range r.Players {
		cp.Players[i] = p
		if p.Private != nil {
			cp.Players[i].Private = append(json.RawMessage(nil), p.Private...)
		}
	}
	if r.State != nil {
		cp.State = append(json.RawMessage(nil), r.State...)
	}
	return &cp
}
