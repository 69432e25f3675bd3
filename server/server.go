// server/server.go
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/parlorgames/roomsync/logger"
	"github.com/parlorgames/roomsync/models"
	"github.com/parlorgames/roomsync/monitor"
	"github.com/parlorgames/roomsync/room"
)

// maxBodyBytes caps request bodies; the state payload is opaque but not
// unbounded.
const maxBodyBytes = 1 << 20

// Server is the stateless HTTP face of the room registry. It keeps no
// per-client state between requests, so any replica can serve any call.
type Server struct {
	addr     string
	registry *room.Registry
	monitor  *monitor.Monitor
	router   *httprouter.Router
}

func NewServer(addr string, registry *room.Registry, mon *monitor.Monitor) *Server {
	s := &Server{
		addr:     addr,
		registry: registry,
		monitor:  mon,
	}

	router := httprouter.New()
	router.POST("/api/rooms", s.handleCreate)
	router.GET("/api/rooms/:key", s.handleFetch)
	router.POST("/api/rooms/:key/join", s.handleJoin)
	router.PUT("/api/rooms/:key/state", s.handleUpdateState)
	router.GET("/healthz", s.handleHealth)
	s.router = router

	return s
}

func (s *Server) Start() error {
	logger.Log.Infof("room server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, s.router)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

type createRequest struct {
	RoomName        string `json:"room_name"`
	ExpectedPlayers int    `json:"expected_players"`
	PlayerID        string `json:"player_id"`
	Name            string `json:"name"`
}

type joinRequest struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	created, err := s.registry.Create(r.Context(), models.RoomSpec{
		Name:            req.RoomName,
		ExpectedPlayers: req.ExpectedPlayers,
		Creator:         models.Identity{PlayerID: req.PlayerID, Name: req.Name},
	})
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	if s.monitor != nil {
		s.monitor.IncRoomsCreated()
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	start := time.Now()

	fetched, err := s.registry.Get(r.Context(), ps.ByName("key"))
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	if s.monitor != nil {
		s.monitor.ObserveFetchLatency(time.Since(start))
	}
	writeJSON(w, http.StatusOK, fetched)
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	joined, err := s.registry.Join(r.Context(), ps.ByName("key"),
		models.Identity{PlayerID: req.PlayerID, Name: req.Name})
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	if s.monitor != nil {
		s.monitor.IncJoins()
	}
	writeJSON(w, http.StatusOK, joined)
}

func (s *Server) handleUpdateState(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "state payload must be valid JSON")
		return
	}

	updated, err := s.registry.UpdateState(r.Context(), ps.ByName("key"), body)
	if err != nil {
		s.writeRegistryError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeRegistryError(w http.ResponseWriter, err error) {
	var verr *room.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, room.ErrNotFound):
		writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, room.ErrRoomFull):
		writeError(w, http.StatusConflict, "room is full")
	default:
		logger.Log.Errorw("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Log.Errorw("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
