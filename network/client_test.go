package network

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/persistence"
	"github.com/parlorgames/roomsync/room"
	"github.com/parlorgames/roomsync/server"
	"github.com/parlorgames/roomsync/session"
	"github.com/parlorgames/roomsync/state"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

func newTestBackend() *httptest.Server {
	registry := room.NewRegistry(persistence.NewMemoryStore())
	return httptest.NewServer(server.NewServer("", registry, nil).Handler())
}

func TestAPIClient_CreateJoinFetch(t *testing.T) {
	ts := newTestBackend()
	defer ts.Close()

	client := NewAPIClient(ts.URL, time.Second)
	ctx := context.Background()

	created, err := client.CreateRoom(ctx, models.RoomSpec{
		Name:            "Study",
		ExpectedPlayers: 2,
		Creator:         models.Identity{PlayerID: "alice@example.com", Name: "Alice"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateRoom should return the generated key")
	}

	joined, err := client.JoinRoom(ctx, created.ID, models.Identity{PlayerID: "bob@example.com", Name: "Bob"})
	if err != nil {
		t.Fatalf("JoinRoom failed: %v", err)
	}
	if len(joined.Players) != 2 {
		t.Errorf("Expected 2 players after join, got %d", len(joined.Players))
	}

	fetched, err := client.FetchRoom(ctx, created.ID)
	if err != nil {
		t.Fatalf("FetchRoom failed: %v", err)
	}
	if fetched.Name != "Study" {
		t.Errorf("Expected room name Study, got %s", fetched.Name)
	}
}

func TestAPIClient_ErrorTranslation(t *testing.T) {
	ts := newTestBackend()
	defer ts.Close()

	client := NewAPIClient(ts.URL, time.Second)
	ctx := context.Background()

	// Unknown key surfaces the registry's distinct not-found error.
	if _, err := client.FetchRoom(ctx, "zzz"); !errors.Is(err, room.ErrNotFound) {
		t.Errorf("Expected room.ErrNotFound, got %v", err)
	}

	// Bad create parameters surface as a validation error.
	_, err := client.CreateRoom(ctx, models.RoomSpec{Name: "", ExpectedPlayers: 3})
	var verr *room.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("Expected ValidationError, got %v", err)
	}

	// A full room surfaces the capacity error.
	created, err := client.CreateRoom(ctx, models.RoomSpec{
		Name:            "Tiny",
		ExpectedPlayers: 1,
		Creator:         models.Identity{PlayerID: "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	if _, err := client.JoinRoom(ctx, created.ID, models.Identity{PlayerID: "bob@example.com"}); !errors.Is(err, room.ErrRoomFull) {
		t.Errorf("Expected room.ErrRoomFull, got %v", err)
	}
}

func TestAPIClient_UpdateState(t *testing.T) {
	ts := newTestBackend()
	defer ts.Close()

	client := NewAPIClient(ts.URL, time.Second)
	ctx := context.Background()

	created, err := client.CreateRoom(ctx, models.RoomSpec{
		Name:            "Study",
		ExpectedPlayers: 2,
		Creator:         models.Identity{PlayerID: "alice@example.com"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	updated, err := client.UpdateState(ctx, created.ID, []byte(`{"turn":5}`))
	if err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if string(updated.State) != `{"turn":5}` {
		t.Errorf("Expected replaced state, got %s", updated.State)
	}
}

// The sync session run against a real HTTP backend: an unknown key drives
// the session to invalid, a live room to active.
func TestAPIClient_AsSessionFetcher(t *testing.T) {
	ts := newTestBackend()
	defer ts.Close()

	client := NewAPIClient(ts.URL, time.Second)
	ctx := context.Background()

	sess := session.NewSession(client, session.Options{PollInterval: 5 * time.Millisecond})
	sess.Start("zzz")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sess.Status() != state.StatusInvalid {
		time.Sleep(5 * time.Millisecond)
	}
	if sess.Status() != state.StatusInvalid {
		t.Fatalf("Expected invalid for an unknown key, got %s", sess.Status())
	}
	if err := sess.Acknowledge(); err != nil {
		t.Fatalf("Acknowledge failed: %v", err)
	}

	created, err := client.CreateRoom(ctx, models.RoomSpec{
		Name:            "Study",
		ExpectedPlayers: 2,
		Creator:         models.Identity{PlayerID: "alice@example.com", Name: "Alice"},
	})
	if err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}

	sess.Start(created.ID)
	defer sess.Abandon()

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && sess.Status() != state.StatusActive {
		time.Sleep(5 * time.Millisecond)
	}

	snap := sess.Snapshot()
	if snap.Status != state.StatusActive {
		t.Fatalf("Expected active session, got %s", snap.Status)
	}
	if snap.Room == nil || snap.Room.ID != created.ID {
		t.Error("Session should hold the created room's document")
	}
}
