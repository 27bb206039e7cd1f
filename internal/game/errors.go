package game

import "errors"

var (
	// ErrNotYourTurn indicates an action from a player who does not hold
	// the current-actor token. The table is left untouched.
	ErrNotYourTurn = errors.New("game: not your turn")

	// ErrNoActiveHand indicates an action outside an active betting round.
	ErrNoActiveHand = errors.New("game: no active hand")

	// ErrIllegalAction indicates the action or its amount violates the
	// betting rules. Rejected actions apply no mutation.
	ErrIllegalAction = errors.New("game: illegal action")

	// ErrInsufficientPlayers indicates a hand start with fewer than two
	// contestants holding chips.
	ErrInsufficientPlayers = errors.New("game: need at least two players with chips")
)
