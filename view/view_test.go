package view

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/parlorgames/roomsync/models"
)

func testRoom() *models.Room {
	return &models.Room{
		ID:              "room-1",
		Name:            "Study",
		ExpectedPlayers: 3,
		Players: []models.Player{
			{PlayerID: "alice@example.com", Name: "Alice", Private: json.RawMessage(`{"hand":["rope"]}`)},
			{PlayerID: "bob@example.com", Name: "Bob", Private: json.RawMessage(`{"hand":["wrench"]}`)},
			{PlayerID: "carol@example.com", Name: "Carol", Private: json.RawMessage(`{"hand":["candlestick"]}`)},
		},
		State: json.RawMessage(`{"turn":0}`),
	}
}

func TestSelect_ReturnsOwnPrivateOnly(t *testing.T) {
	room := testRoom()

	for slot := range room.Players {
		v, err := Select(room, slot)
		if err != nil {
			t.Fatalf("Select(%d) returned error: %v", slot, err)
		}

		if !bytes.Equal(v.Private, room.Players[slot].Private) {
			t.Errorf("Slot %d: expected own private payload, got %s", slot, v.Private)
		}

		// The roster must not leak any private payload.
		encoded, err := json.Marshal(v.Roster)
		if err != nil {
			t.Fatalf("Failed to marshal roster: %v", err)
		}
		for other, p := range room.Players {
			if other == slot {
				continue
			}
			if bytes.Contains(encoded, p.Private) {
				t.Errorf("Slot %d: roster leaks slot %d's private payload", slot, other)
			}
			if bytes.Contains(v.Private, p.Private) {
				t.Errorf("Slot %d: private payload contains slot %d's data", slot, other)
			}
		}
	}
}

func TestSelect_SharedStateVisible(t *testing.T) {
	room := testRoom()
	v, err := Select(room, 1)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	if !bytes.Equal(v.Shared, room.State) {
		t.Errorf("Expected shared state %s, got %s", room.State, v.Shared)
	}
	if len(v.Roster) != len(room.Players) {
		t.Errorf("Expected roster of %d, got %d", len(room.Players), len(v.Roster))
	}
}

func TestSelect_SlotOutOfRange(t *testing.T) {
	room := testRoom()

	for _, slot := range []int{-1, 3, 99} {
		if _, err := Select(room, slot); err != ErrSlotOutOfRange {
			t.Errorf("Select(%d): expected ErrSlotOutOfRange, got %v", slot, err)
		}
	}
}

func TestSelect_Idempotent(t *testing.T) {
	room := testRoom()

	first, err := Select(room, 0)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	second, err := Select(room, 0)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if !bytes.Equal(a, b) {
		t.Error("Select should yield the same view for the same inputs")
	}
}
