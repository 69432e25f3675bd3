// network/client.go
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/room"
)

// APIClient talks to the room server over HTTP and translates its error
// envelope back into the registry's error taxonomy, so the sync session
// can tell "room not found" apart from a transient fault.
type APIClient struct {
	baseURL string
	http    *http.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &APIClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) CreateRoom(ctx context.Context, spec models.RoomSpec) (*models.Room, error) {
	body := map[string]interface{}{
		"room_name":        spec.Name,
		"expected_players": spec.ExpectedPlayers,
		"player_id":        spec.Creator.PlayerID,
		"name":             spec.Creator.Name,
	}
	return c.roundTrip(ctx, http.MethodPost, "/api/rooms", body)
}

func (c *APIClient) JoinRoom(ctx context.Context, key string, identity models.Identity) (*models.Room, error) {
	body := map[string]interface{}{
		"player_id": identity.PlayerID,
		"name":      identity.Name,
	}
	return c.roundTrip(ctx, http.MethodPost, "/api/rooms/"+key+"/join", body)
}

// FetchRoom implements session.Fetcher.
func (c *APIClient) FetchRoom(ctx context.Context, key string) (*models.Room, error) {
	return c.roundTrip(ctx, http.MethodGet, "/api/rooms/"+key, nil)
}

func (c *APIClient) UpdateState(ctx context.Context, key string, state json.RawMessage) (*models.Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/api/rooms/"+key+"/state",
		bytes.NewReader(state))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *APIClient) roundTrip(ctx context.Context, method, path string, body interface{}) (*models.Room, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

func (c *APIClient) do(req *http.Request) (*models.Room, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}

	var result models.Room
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

func decodeAPIError(resp *http.Response) error {
	var envelope struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return room.ErrNotFound
	case http.StatusConflict:
		return room.ErrRoomFull
	case http.StatusBadRequest:
		return &room.ValidationError{Field: "request", Reason: envelope.Error}
	default:
		if envelope.Error != "" {
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, envelope.Error)
		}
		return fmt.Errorf("server error (%d)", resp.StatusCode)
	}
}
