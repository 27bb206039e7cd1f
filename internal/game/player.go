package game

import "github.com/lox/pokerroom/internal/deck"

// Player represents a seat at the table. A player is owned exclusively by
// its room and never crosses rooms.
type Player struct {
	ID        string
	Name      string
	Secret    string
	Seat      int
	Stack     int
	Bet       int // chips committed this betting round
	HoleCards []deck.Card
	Folded    bool
	AllIn     bool
	Busted    bool
	HasActed  bool
	IsAI      bool
	IsHost    bool
}

// ResetForHand clears per-hand state. A player who ended the previous hand
// without chips is marked busted and sits out from here on.
func (p *Player) ResetForHand() {
	if p.Stack <= 0 {
		p.Busted = true
	}
	p.Bet = 0
	p.Folded = false
	p.AllIn = false
	p.HoleCards = nil
	p.HasActed = false
}

// InHand reports whether the player is still contesting the pot
func (p *Player) InHand() bool {
	return !p.Folded && !p.Busted
}

// CanAct reports whether the player can still be asked for an action
func (p *Player) CanAct() bool {
	return p.InHand() && !p.AllIn && p.Stack > 0
}
