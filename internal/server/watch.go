package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type websocketUpgrader = websocket.Upgrader

func newUpgrader() websocketUpgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// For development, allow all origins
			// In production, implement proper origin checking
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

// handleWatch streams state snapshots over a WebSocket. The current state is
// sent immediately, then a fresh snapshot after every room mutation. The same
// player_id/secret query parameters as the state endpoint select the view.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	playerID := r.URL.Query().Get("player_id")
	secret := r.URL.Query().Get("secret")

	rm, err := s.registry.Get(roomID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	// Credentials are checked before the upgrade so the client gets a
	// proper status code instead of a dropped socket
	if _, err := rm.State(playerID, secret); err != nil {
		s.writeDomainError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("failed to upgrade connection", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("watcher connected", "room", roomID)

	// Discard inbound frames so close handshakes and pings are processed
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		state, err := rm.State(playerID, secret)
		if err != nil {
			// The seat disappeared mid-stream, nothing more to send
			return
		}
		if err := conn.WriteJSON(state); err != nil {
			return
		}

		if _, err := rm.AwaitChange(r.Context(), state.StateVersion); err != nil {
			if !errors.Is(err, r.Context().Err()) {
				s.logger.Debug("watch ended", "room", roomID, "error", err)
			}
			return
		}
	}
}
