package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/room"
)

// Server exposes the room registry over HTTP
type Server struct {
	registry *room.Registry
	defaults RoomDefaults
	upgrader websocketUpgrader
	logger   *log.Logger
}

// New creates an HTTP server around the given registry. The defaults fill
// in room creation fields the caller omits.
func New(registry *room.Registry, defaults RoomDefaults, logger *log.Logger) *Server {
	return &Server{
		registry: registry,
		defaults: defaults,
		upgrader: newUpgrader(),
		logger:   logger.WithPrefix("http"),
	}
}

// Router builds the chi router with all routes mounted
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/rooms", s.handleListRooms)
	r.Post("/rooms", s.handleCreateRoom)
	r.Post("/rooms/{roomID}/join", s.handleJoinRoom)
	r.Post("/rooms/{roomID}/start", s.handleStartHand)
	r.Post("/rooms/{roomID}/action", s.handleAction)
	r.Get("/rooms/{roomID}", s.handleState)
	r.Get("/rooms/{roomID}/watch", s.handleWatch)

	return r
}

type createRoomRequest struct {
	HostName   string `json:"host_name"`
	Seats      int    `json:"seats"`
	AIPlayers  int    `json:"ai_players"`
	Stack      int    `json:"starting_stack"`
	SmallBlind int    `json:"small_blind"`
	BigBlind   int    `json:"big_blind"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type credentialRequest struct {
	PlayerID string `json:"player_id"`
	Secret   string `json:"secret"`
}

type actionRequest struct {
	PlayerID string `json:"player_id"`
	Secret   string `json:"secret"`
	Action   string `json:"action"`
	Amount   int    `json:"amount"`
}

// seatGrant is returned whenever a seat is issued. The secret appears here
// and nowhere else.
type seatGrant struct {
	RoomID   string `json:"room_id"`
	PlayerID string `json:"player_id"`
	Secret   string `json:"secret"`
	Name     string `json:"name"`
	IsHost   bool   `json:"is_host"`
}

// seatResponse pairs a grant with the new player's view of the room so the
// client can render without a follow-up state fetch
type seatResponse struct {
	seatGrant
	State room.State `json:"state"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"rooms": s.registry.ListRooms()})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.HostName == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("host_name is required"))
		return
	}

	// Omitted stack and blind fields fall back to the configured defaults
	if req.Stack == 0 {
		req.Stack = s.defaults.StartingStack
	}
	if req.SmallBlind == 0 {
		req.SmallBlind = s.defaults.SmallBlind
	}
	if req.BigBlind == 0 {
		req.BigBlind = s.defaults.BigBlind
	}

	rm, host, err := s.registry.CreateRoom(req.HostName, req.Seats, req.AIPlayers,
		req.Stack, req.SmallBlind, req.BigBlind)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	state, err := rm.State(host.ID, host.Secret)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("room created", "room", rm.ID, "host", host.Name, "seats", rm.TotalSeats)
	s.writeJSON(w, http.StatusCreated, seatResponse{
		seatGrant: seatGrant{
			RoomID:   rm.ID,
			PlayerID: host.ID,
			Secret:   host.Secret,
			Name:     host.Name,
			IsHost:   true,
		},
		State: state,
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	rm, player, err := s.registry.Join(chi.URLParam(r, "roomID"), req.Name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	state, err := rm.State(player.ID, player.Secret)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.logger.Info("player joined", "room", rm.ID, "player", player.Name)
	s.writeJSON(w, http.StatusOK, seatResponse{
		seatGrant: seatGrant{
			RoomID:   rm.ID,
			PlayerID: player.ID,
			Secret:   player.Secret,
			Name:     player.Name,
		},
		State: state,
	})
}

func (s *Server) handleStartHand(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.registry.StartHand(r.Context(), chi.URLParam(r, "roomID"), req.PlayerID, req.Secret)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if !s.decode(w, r, &req) {
		return
	}

	state, err := s.registry.SubmitAction(r.Context(), chi.URLParam(r, "roomID"),
		req.PlayerID, req.Secret, req.Action, req.Amount)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

// handleState serves the room state. With player_id and secret query
// parameters the response includes the caller's private view; without them
// it is the spectator projection.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	secret := r.URL.Query().Get("secret")

	state, err := s.registry.FetchState(chi.URLParam(r, "roomID"), playerID, secret)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, state)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("invalid JSON body"))
		return false
	}
	return true
}

// writeDomainError maps domain sentinels onto HTTP status codes
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, room.ErrUnauthorized):
		s.writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, room.ErrForbidden):
		s.writeError(w, http.StatusForbidden, err)
	case errors.Is(err, room.ErrNotFound), errors.Is(err, room.ErrPlayerNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, room.ErrRoomLimit):
		s.writeError(w, http.StatusServiceUnavailable, err)
	case errors.Is(err, room.ErrRoomFull),
		errors.Is(err, room.ErrHandInProgress),
		errors.Is(err, room.ErrInvalidConfig),
		errors.Is(err, game.ErrNotYourTurn),
		errors.Is(err, game.ErrNoActiveHand),
		errors.Is(err, game.ErrIllegalAction),
		errors.Is(err, game.ErrInsufficientPlayers):
		s.writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Error("unhandled error", "error", err)
		s.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}
