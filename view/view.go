// view/view.go
package view

import (
	"encoding/json"
	"errors"

	"github.com/parlorgames/roomsync/models"
)

// ErrSlotOutOfRange is returned when the slot index does not name an
// occupied player slot.
var ErrSlotOutOfRange = errors.New("player slot out of range")

// Seat is the public roster entry for one slot: no private payload.
type Seat struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// PlayerView is the slice of a room one player is permitted to see: the
// shared state, the public roster, and exactly their own private payload.
type PlayerView struct {
	RoomID   string          `json:"room_id"`
	RoomName string          `json:"room_name"`
	Slot     int             `json:"slot"`
	PlayerID string          `json:"player_id"`
	Name     string          `json:"name"`
	Private  json.RawMessage `json:"private,omitempty"`
	Shared   json.RawMessage `json:"shared,omitempty"`
	Roster   []Seat          `json:"roster"`
}

// Select projects the room document down to what the given slot may see.
// It is a pure local projection: no network access, and the same inputs
// always produce the same view.
func Select(room *models.Room, slot int) (*PlayerView, error) {
	if slot < 0 || slot >= len(room.Players) {
		return nil, ErrSlotOutOfRange
	}

	roster := make([]Seat, len(room.Players))
	for i, p := range room.Players {
		roster[i] = Seat{PlayerID: p.PlayerID, Name: p.Name}
	}

	player := room.Players[slot]
	return &PlayerView{
		RoomID:   room.ID,
		RoomName: room.Name,
		Slot:     slot,
		PlayerID: player.PlayerID,
		Name:     player.Name,
		Private:  player.Private,
		Shared:   room.State,
		Roster:   roster,
	}, nil
}
