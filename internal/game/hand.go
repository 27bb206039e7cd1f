package game

import (
	"fmt"
	rand "math/rand/v2"
	"sort"
	"strings"

	"github.com/lox/pokerroom/internal/deck"
	"github.com/lox/pokerroom/internal/evaluator"
)

// ActionRecord is an immutable entry in the hand's action log. Blind posts
// are logged with the pseudo-actions "small_blind" and "big_blind".
type ActionRecord struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	Phase      string `json:"phase"`
}

// Winner describes one recipient of the pot at hand end
type Winner struct {
	PlayerID   string   `json:"player_id"`
	PlayerName string   `json:"player_name"`
	HandName   string   `json:"hand"`
	Cards      []string `json:"cards"`
}

// Hand arbitrates a single deal from blinds to showdown. All contributed
// chips accumulate into one pot: side pots for unequal all-in stacks are
// deliberately not modelled, so a short stack's implied equity may be
// overpaid. Callers rely on this simplified payout.
type Hand struct {
	Players    []*Player
	Dealer     int
	SmallBlind int
	BigBlind   int

	Phase      Phase
	Community  []deck.Card
	Pot        int
	CurrentBet int
	MinRaise   int
	Actions    []ActionRecord
	Winners    []Winner
	LastEvent  string
	Over       bool

	SmallBlindSeat int
	BigBlindSeat   int

	deck    *deck.Deck
	current int // seat index of the current actor, -1 when none
}

// Option configures a Hand
type Option func(*Hand)

// WithDeck supplies a pre-built deck for deterministic testing
func WithDeck(d *deck.Deck) Option {
	return func(h *Hand) { h.deck = d }
}

// NewHand creates a hand over the given seats. The RNG drives the shuffle
// and is ignored when WithDeck is used.
func NewHand(rng *rand.Rand, players []*Player, dealer, smallBlind, bigBlind int, opts ...Option) *Hand {
	h := &Hand{
		Players:        players,
		Dealer:         dealer,
		SmallBlind:     smallBlind,
		BigBlind:       bigBlind,
		Phase:          Waiting,
		MinRaise:       bigBlind,
		SmallBlindSeat: -1,
		BigBlindSeat:   -1,
		current:        -1,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.deck == nil {
		h.deck = deck.New(rng)
	}
	return h
}

// Start deals hole cards, posts blinds, and hands the action to the first
// seat after the big blind.
func (h *Hand) Start() error {
	contenders := 0
	for _, p := range h.Players {
		if p.Stack > 0 && !p.Busted {
			contenders++
		}
	}
	if contenders < 2 {
		return ErrInsufficientPlayers
	}

	for seat, p := range h.Players {
		p.Seat = seat
		p.ResetForHand()
	}
	h.Community = nil
	h.Pot = 0
	h.Phase = Preflop
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind
	h.Actions = nil
	h.Winners = nil
	h.LastEvent = ""
	h.Over = false

	if err := h.dealHoleCards(); err != nil {
		return err
	}

	sb := h.nextActorFrom(h.Dealer)
	if sb == -1 {
		return ErrInsufficientPlayers
	}
	bb := h.nextActorFrom(sb)
	if bb == -1 {
		return ErrInsufficientPlayers
	}
	h.SmallBlindSeat = sb
	h.BigBlindSeat = bb
	h.postBlind(sb, h.SmallBlind, "small_blind")
	h.postBlind(bb, h.BigBlind, "big_blind")

	h.CurrentBet = 0
	for _, p := range h.Players {
		if p.Bet > h.CurrentBet {
			h.CurrentBet = p.Bet
		}
	}
	h.MinRaise = h.BigBlind

	h.current = h.nextActorFrom(bb)
	if h.current == -1 {
		// Blinds put everyone all-in; run the board out
		return h.resolveShowdown()
	}
	return nil
}

func (h *Hand) dealHoleCards() error {
	for round := 0; round < 2; round++ {
		for _, seat := range h.seatsFrom(h.Dealer) {
			p := h.Players[seat]
			if p.Stack <= 0 || p.Busted {
				continue
			}
			card, err := h.deck.DealOne()
			if err != nil {
				return err
			}
			p.HoleCards = append(p.HoleCards, card)
		}
	}
	return nil
}

// seatsFrom returns every seat index once, clockwise starting after start
func (h *Hand) seatsFrom(start int) []int {
	total := len(h.Players)
	seats := make([]int, 0, total)
	for i := 1; i <= total; i++ {
		seats = append(seats, (start+i)%total)
	}
	return seats
}

// nextActorFrom returns the first seat after start that can still act,
// or -1 when none remain
func (h *Hand) nextActorFrom(start int) int {
	for _, seat := range h.seatsFrom(start) {
		if h.Players[seat].CanAct() {
			return seat
		}
	}
	return -1
}

func (h *Hand) postBlind(seat, amount int, label string) {
	p := h.Players[seat]
	chips := min(p.Stack, amount)
	h.commit(p, chips)
	h.Actions = append(h.Actions, ActionRecord{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Action:     label,
		Amount:     chips,
		Phase:      h.Phase.String(),
	})
}

// commit moves chips from the player's stack into the pot, capped at the
// stack, and flags the player all-in when the stack empties
func (h *Hand) commit(p *Player, amount int) {
	amount = max(0, min(amount, p.Stack))
	p.Stack -= amount
	p.Bet += amount
	h.Pot += amount
	if p.Stack == 0 && amount > 0 {
		p.AllIn = true
	}
}

// CurrentPlayer returns the player holding the action, or nil
func (h *Hand) CurrentPlayer() *Player {
	if h.current < 0 || h.current >= len(h.Players) {
		return nil
	}
	return h.Players[h.current]
}

// ToCall returns the amount the player must add to match the table bet
func (h *Hand) ToCall(p *Player) int {
	return max(0, h.CurrentBet-p.Bet)
}

// LegalActions returns the subset of actions permitted for the player
// given the table state. Empty for players with no decision to make.
func (h *Hand) LegalActions(p *Player) []Action {
	if h.Over || p.Folded || p.AllIn || p.Busted {
		return nil
	}
	toCall := h.ToCall(p)
	var actions []Action
	if toCall > 0 {
		actions = append(actions, Fold, Call)
		if p.Stack+p.Bet > h.CurrentBet {
			actions = append(actions, Raise)
		}
	} else {
		actions = append(actions, Check)
		if p.Stack > 0 {
			actions = append(actions, Bet)
		}
	}
	return actions
}

// Apply validates and applies one action by the given player. Bet and raise
// amounts are the total target bet the player wants in front of them this
// round, not an increment. Rejected actions mutate nothing.
func (h *Hand) Apply(p *Player, action Action, amount int) error {
	if h.Over || h.Phase == Waiting || h.Phase == Showdown {
		return ErrNoActiveHand
	}
	if p != h.CurrentPlayer() {
		return ErrNotYourTurn
	}

	toCall := h.ToCall(p)
	logged := 0

	switch action {
	case Fold:
		p.Folded = true

	case Check:
		if toCall != 0 {
			return fmt.Errorf("%w: cannot check facing a bet of %d", ErrIllegalAction, h.CurrentBet)
		}

	case Call:
		if toCall == 0 {
			return fmt.Errorf("%w: nothing to call", ErrIllegalAction)
		}
		logged = min(p.Stack, toCall)
		h.commit(p, toCall)

	case Bet:
		if h.CurrentBet != 0 {
			return fmt.Errorf("%w: bet not allowed, must raise", ErrIllegalAction)
		}
		if amount < h.BigBlind {
			return fmt.Errorf("%w: bet must be at least the big blind (%d)", ErrIllegalAction, h.BigBlind)
		}
		target := min(p.Bet+p.Stack, amount)
		delta := target - p.Bet
		if delta <= 0 {
			return fmt.Errorf("%w: insufficient chips to bet", ErrIllegalAction)
		}
		h.commit(p, delta)
		h.CurrentBet = p.Bet
		h.MinRaise = delta
		logged = p.Bet

	case Raise:
		if h.CurrentBet == 0 {
			return fmt.Errorf("%w: nothing to raise", ErrIllegalAction)
		}
		if amount <= h.CurrentBet {
			return fmt.Errorf("%w: raise must increase the bet", ErrIllegalAction)
		}
		allIn := p.Bet + p.Stack
		if amount < h.CurrentBet+h.MinRaise && amount < allIn {
			return fmt.Errorf("%w: raise too small, minimum %d", ErrIllegalAction, h.CurrentBet+h.MinRaise)
		}
		target := min(allIn, amount)
		delta := target - p.Bet
		if delta <= toCall {
			return fmt.Errorf("%w: raise must exceed the call amount", ErrIllegalAction)
		}
		h.commit(p, delta)
		h.MinRaise = target - h.CurrentBet
		h.CurrentBet = target
		logged = p.Bet

	default:
		return fmt.Errorf("%w: unknown action", ErrIllegalAction)
	}

	p.HasActed = true
	h.Actions = append(h.Actions, ActionRecord{
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Action:     action.String(),
		Amount:     logged,
		Phase:      h.Phase.String(),
	})

	if h.contenderCount() <= 1 {
		return h.finishSingleContender()
	}
	return h.advance()
}

// advance hands the action to the next seat, or closes the round when every
// live bet matches the table bet and everyone has acted
func (h *Hand) advance() error {
	next := h.findNextToAct()
	if next == -1 {
		return h.completeRound()
	}
	h.current = next
	return nil
}

func (h *Hand) findNextToAct() int {
	if h.current == -1 {
		return -1
	}
	for _, seat := range h.seatsFrom(h.current) {
		p := h.Players[seat]
		if p.Folded || p.Busted || p.AllIn {
			continue
		}
		if p.Bet != h.CurrentBet || !p.HasActed {
			return seat
		}
	}
	return -1
}

func (h *Hand) completeRound() error {
	for _, p := range h.Players {
		p.Bet = 0
		p.HasActed = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind

	if h.Phase == River {
		return h.resolveShowdown()
	}
	if err := h.advanceBoard(); err != nil {
		return err
	}
	h.current = h.nextActorFrom(h.Dealer)
	if h.current == -1 {
		// Everyone left is all-in; auto-reveal the remaining streets
		return h.resolveShowdown()
	}
	return nil
}

func (h *Hand) advanceBoard() error {
	switch h.Phase {
	case Preflop:
		h.Phase = Flop
		cards, err := h.deck.Deal(3)
		if err != nil {
			return err
		}
		h.Community = append(h.Community, cards...)
	case Flop:
		h.Phase = Turn
		card, err := h.deck.DealOne()
		if err != nil {
			return err
		}
		h.Community = append(h.Community, card)
	case Turn:
		h.Phase = River
		card, err := h.deck.DealOne()
		if err != nil {
			return err
		}
		h.Community = append(h.Community, card)
	}
	return nil
}

func (h *Hand) dealRemainingBoard() error {
	for len(h.Community) < 5 {
		card, err := h.deck.DealOne()
		if err != nil {
			return err
		}
		h.Community = append(h.Community, card)
	}
	return nil
}

func (h *Hand) contenderCount() int {
	n := 0
	for _, p := range h.Players {
		if p.InHand() {
			n++
		}
	}
	return n
}

func (h *Hand) resolveShowdown() error {
	if err := h.dealRemainingBoard(); err != nil {
		return err
	}

	var best evaluator.HandRank
	var winners []*Player
	for _, p := range h.Players {
		if !p.InHand() {
			continue
		}
		rank := evaluator.Evaluate(append(append([]deck.Card{}, p.HoleCards...), h.Community...))
		switch {
		case len(winners) == 0 || evaluator.Compare(rank, best) > 0:
			best = rank
			winners = []*Player{p}
		case evaluator.Compare(rank, best) == 0:
			winners = append(winners, p)
		}
	}
	if len(winners) == 0 {
		h.finishHand(nil, "hand aborted")
		return nil
	}
	h.awardPot(winners, best.String())
	return nil
}

func (h *Hand) finishSingleContender() error {
	for _, p := range h.Players {
		if p.InHand() {
			h.awardPot([]*Player{p}, "No contest")
			return nil
		}
	}
	h.finishHand(nil, "hand aborted")
	return nil
}

// awardPot splits the pot evenly among the winners. Remainder chips go to
// winners in seat order clockwise from the dealer.
func (h *Hand) awardPot(winners []*Player, handName string) {
	sort.Slice(winners, func(i, j int) bool {
		return h.seatDistance(winners[i].Seat) < h.seatDistance(winners[j].Seat)
	})

	share := h.Pot / len(winners)
	remainder := h.Pot % len(winners)

	names := make([]string, len(winners))
	h.Winners = make([]Winner, len(winners))
	for i, p := range winners {
		p.Stack += share
		if i < remainder {
			p.Stack++
		}
		names[i] = p.Name
		cards := make([]string, len(p.HoleCards))
		for j, c := range p.HoleCards {
			cards[j] = c.String()
		}
		h.Winners[i] = Winner{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			HandName:   handName,
			Cards:      cards,
		}
	}
	h.LastEvent = fmt.Sprintf("%s won %d chips", strings.Join(names, ", "), h.Pot)
	h.finish()
}

func (h *Hand) finishHand(winners []Winner, message string) {
	h.Winners = winners
	h.LastEvent = message
	h.finish()
}

func (h *Hand) finish() {
	h.Pot = 0
	h.Over = true
	h.current = -1
	h.Phase = Showdown
	for _, p := range h.Players {
		if p.Stack <= 0 {
			p.Busted = true
		}
	}
}

// seatDistance returns how many seats clockwise from the dealer a seat sits
func (h *Hand) seatDistance(seat int) int {
	total := len(h.Players)
	return ((seat - h.Dealer - 1) % total + total) % total
}

// Fallback returns the deterministic safety-net action for the player:
// check if legal, else call, else fold. Call is chosen only when the stack
// covers the full amount: a short stack facing a larger bet folds rather
// than calling all-in. It is total and never fails.
func (h *Hand) Fallback(p *Player) (Action, int) {
	toCall := h.ToCall(p)
	for _, a := range h.LegalActions(p) {
		if a == Check {
			return Check, 0
		}
	}
	for _, a := range h.LegalActions(p) {
		if a == Call && p.Stack >= toCall {
			return Call, toCall
		}
	}
	return Fold, 0
}
