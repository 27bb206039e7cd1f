package room

import (
	"time"

	"github.com/lox/pokerroom/internal/game"
)

// PlayerView is one seat as seen by a particular viewer. Cards carries the
// hole card labels only for the viewer's own seat, or for every live seat
// once the hand reaches showdown; everyone else sees just CardCount.
type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Stack     int      `json:"stack"`
	Bet       int      `json:"bet"`
	IsAI      bool     `json:"is_ai"`
	IsHost    bool     `json:"is_host"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"all_in"`
	Busted    bool     `json:"busted"`
	Seat      int      `json:"seat"`
	CardCount int      `json:"card_count"`
	Cards     []string `json:"cards,omitempty"`
}

// SelfView is the authenticated extras for a seated viewer
type SelfView struct {
	PlayerID     string   `json:"player_id"`
	LegalActions []string `json:"legal_actions"`
	ToCall       int      `json:"to_call"`
	Stack        int      `json:"stack"`
}

// State is a per-viewer snapshot of the room
type State struct {
	RoomID             string              `json:"room_id"`
	TotalSeats         int                 `json:"total_seats"`
	AIPlayers          int                 `json:"ai_players"`
	SmallBlind         int                 `json:"small_blind"`
	BigBlind           int                 `json:"big_blind"`
	StateVersion       int                 `json:"state_version"`
	CreatedAt          time.Time           `json:"created_at"`
	HostPlayerID       string              `json:"host_player_id"`
	Players            []PlayerView        `json:"players"`
	Phase              string              `json:"phase"`
	Pot                int                 `json:"pot"`
	CommunityCards     []string            `json:"community_cards"`
	Actions            []game.ActionRecord `json:"actions"`
	Winners            []game.Winner       `json:"winners"`
	CurrentPlayerID    string              `json:"current_player_id,omitempty"`
	LastEvent          string              `json:"last_event,omitempty"`
	DealerPlayerID     string              `json:"dealer_player_id,omitempty"`
	SmallBlindPlayerID string              `json:"small_blind_player_id,omitempty"`
	BigBlindPlayerID   string              `json:"big_blind_player_id,omitempty"`
	CurrentBet         int                 `json:"current_bet"`
	Self               *SelfView           `json:"self,omitempty"`
}

// Summary is a lobby listing entry
type Summary struct {
	RoomID     string    `json:"room_id"`
	TotalSeats int       `json:"total_seats"`
	AIPlayers  int       `json:"ai_players"`
	Humans     int       `json:"humans"`
	Phase      string    `json:"phase"`
	CreatedAt  time.Time `json:"created_at"`
}
