// Package policy abstracts the external decision provider that drives
// automated seats. The room orchestrator treats every provider failure the
// same way: transport errors, malformed responses, and illegal suggestions
// all route to the engine's deterministic fallback.
package policy

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the provider could not supply a usable decision.
// It is always absorbed by the caller's fallback and never surfaces to the
// end user.
var ErrUnavailable = errors.New("policy: unavailable")

// HistoryEntry is one line of recent table history shown to the provider
type HistoryEntry struct {
	PlayerName string `json:"player_name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	Phase      string `json:"phase"`
}

// View is the private table view handed to the provider for one decision:
// the seat's own cards plus everything a human in that seat could see.
type View struct {
	PlayerName   string         `json:"player_name"`
	HoleCards    []string       `json:"hole_cards"`
	Community    []string       `json:"community_cards"`
	Pot          int            `json:"pot"`
	Stack        int            `json:"stack"`
	ToCall       int            `json:"to_call"`
	MinRaise     int            `json:"min_raise"`
	Phase        string         `json:"phase"`
	LegalActions []string       `json:"legal_actions"`
	History      []HistoryEntry `json:"history"`
}

// Decision is the provider's suggested action. Amount is the total target
// bet for bet/raise and ignored otherwise.
type Decision struct {
	Action      string `json:"action"`
	Amount      int    `json:"amount"`
	Explanation string `json:"explanation,omitempty"`
}

// Legal reports whether the decision's action is in the view's legal set
func (d Decision) Legal(view View) bool {
	for _, a := range view.LegalActions {
		if a == d.Action {
			return true
		}
	}
	return false
}

// Advisor supplies one decision for an automated seat.
//
// Implementations must honour ctx cancellation. Any error return is treated
// as provider unavailability by the caller.
type Advisor interface {
	Advise(ctx context.Context, view View) (Decision, error)
}

// AdvisorFunc adapts a function to the Advisor interface
type AdvisorFunc func(ctx context.Context, view View) (Decision, error)

func (f AdvisorFunc) Advise(ctx context.Context, view View) (Decision, error) {
	return f(ctx, view)
}
