package room

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	mathrand "math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/policy"
)

// Room owns one table's lifecycle: seating, host privileges, dealer
// rotation, the hand in progress, and the automated-turn loop. Every read
// and write of room state is serialized behind the room's mutex; the lock
// is released only while a policy call is in flight.
type Room struct {
	ID            string
	TotalSeats    int
	AIRequested   int
	StartingStack int
	SmallBlind    int
	BigBlind      int
	CreatedAt     time.Time

	mu      sync.Mutex
	players []*game.Player
	hostID  string
	hand    *game.Hand
	dealer  int // -1 until the first hand picks a seat
	version int
	changed chan struct{}

	advisor policy.Advisor
	rng     *mathrand.Rand
	logger  *log.Logger
}

func newRoom(id string, seats, aiSeats, stack, smallBlind, bigBlind int, advisor policy.Advisor, rng *mathrand.Rand, logger *log.Logger) *Room {
	return &Room{
		ID:            id,
		TotalSeats:    seats,
		AIRequested:   aiSeats,
		StartingStack: stack,
		SmallBlind:    smallBlind,
		BigBlind:      bigBlind,
		CreatedAt:     time.Now().UTC(),
		dealer:        -1,
		version:       1,
		changed:       make(chan struct{}),
		advisor:       advisor,
		rng:           rng,
		logger:        logger.With("room", id),
	}
}

func newToken(bytes int) string {
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		panic("failed to generate random token: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

func newPlayer(name string, stack int, isAI, isHost bool) *game.Player {
	p := &game.Player{
		ID:     newToken(8),
		Name:   name,
		Stack:  stack,
		IsAI:   isAI,
		IsHost: isHost,
	}
	if !isAI {
		p.Secret = newToken(16)
	}
	return p
}

// seatHost seats the room's first player and grants host privileges
func (r *Room) seatHost(name string) *game.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	host := newPlayer(name, r.StartingStack, false, true)
	host.Seat = 0
	r.players = append(r.players, host)
	r.hostID = host.ID
	return host
}

// Join seats a new human player. Humans may only take the seats not
// reserved for automated players.
func (r *Room) Join(name string) (*game.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	humans := 0
	for _, p := range r.players {
		if !p.IsAI {
			humans++
		}
	}
	if humans >= r.TotalSeats-r.AIRequested {
		return nil, fmt.Errorf("%w: full for human players", ErrRoomFull)
	}
	if len(r.players) >= r.TotalSeats {
		return nil, fmt.Errorf("%w: at capacity", ErrRoomFull)
	}

	player := newPlayer(name, r.StartingStack, false, false)
	player.Seat = len(r.players)
	r.players = append(r.players, player)
	r.bumpLocked()
	r.logger.Info("player joined", "player", name, "seat", player.Seat)
	return player, nil
}

// findPlayer must be called with the lock held
func (r *Room) findPlayer(playerID string) (*game.Player, error) {
	for _, p := range r.players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// authenticate must be called with the lock held
func (r *Room) authenticate(playerID, secret string) (*game.Player, error) {
	p, err := r.findPlayer(playerID)
	if err != nil {
		return nil, err
	}
	if p.Secret == "" || p.Secret != secret {
		return nil, ErrUnauthorized
	}
	return p, nil
}

// spawnAISeats fills the reserved automated seats; called with lock held
func (r *Room) spawnAISeats() {
	current := 0
	for _, p := range r.players {
		if p.IsAI {
			current++
		}
	}
	for i := current; i < r.AIRequested && len(r.players) < r.TotalSeats; i++ {
		bot := newPlayer(fmt.Sprintf("Bot %d", i+1), r.StartingStack, true, false)
		bot.Seat = len(r.players)
		r.players = append(r.players, bot)
		r.logger.Info("seated automated player", "player", bot.Name, "seat", bot.Seat)
	}
}

// nextDealerSeat advances the button clockwise past busted and empty
// stacks; the first hand picks a random live seat. Called with lock held.
func (r *Room) nextDealerSeat() (int, error) {
	var alive []int
	for seat, p := range r.players {
		if p.Stack > 0 && !p.Busted {
			alive = append(alive, seat)
		}
	}
	if len(alive) == 0 {
		return 0, game.ErrInsufficientPlayers
	}
	if r.dealer == -1 {
		return alive[r.rng.IntN(len(alive))], nil
	}
	total := len(r.players)
	for offset := 1; offset <= total; offset++ {
		seat := (r.dealer + offset) % total
		for _, a := range alive {
			if a == seat {
				return seat, nil
			}
		}
	}
	return alive[0], nil
}

// StartHand deals a new hand on behalf of the host, then drives any
// automated seats until the action rests with a human or the hand ends.
func (r *Room) StartHand(ctx context.Context, playerID, secret string) (State, error) {
	r.mu.Lock()
	player, err := r.authenticate(playerID, secret)
	if err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	if player.ID != r.hostID {
		r.mu.Unlock()
		return State{}, ErrForbidden
	}
	if r.hand != nil && !r.hand.Over {
		r.mu.Unlock()
		return State{}, ErrHandInProgress
	}

	r.spawnAISeats()
	dealer, err := r.nextDealerSeat()
	if err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	r.dealer = dealer

	hand := game.NewHand(r.rng, r.players, dealer, r.SmallBlind, r.BigBlind)
	if err := hand.Start(); err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	r.hand = hand
	r.bumpLocked()
	r.logger.Info("hand started", "dealer", dealer, "players", len(r.players))
	r.mu.Unlock()

	r.runAutomatedTurns(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(player), nil
}

// SubmitAction applies one authenticated human action, then drives any
// automated seats until the action rests with a human or the hand ends.
func (r *Room) SubmitAction(ctx context.Context, playerID, secret, action string, amount int) (State, error) {
	r.mu.Lock()
	player, err := r.authenticate(playerID, secret)
	if err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	if r.hand == nil || r.hand.Phase == game.Waiting || r.hand.Phase == game.Showdown {
		r.mu.Unlock()
		return State{}, game.ErrNoActiveHand
	}

	parsed, err := game.ParseAction(action)
	if err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	if err := r.hand.Apply(player, parsed, amount); err != nil {
		r.mu.Unlock()
		return State{}, err
	}
	r.bumpLocked()
	r.mu.Unlock()

	r.runAutomatedTurns(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked(player), nil
}

// runAutomatedTurns repeatedly consults the policy provider while the
// current actor is an automated seat. Each iteration either advances the
// action pointer or ends the hand, so the loop is bounded by the streets
// of a single hand. The room lock is dropped only around the provider call.
func (r *Room) runAutomatedTurns(ctx context.Context) {
	for {
		r.mu.Lock()
		if r.hand == nil || r.hand.Over {
			r.mu.Unlock()
			return
		}
		actor := r.hand.CurrentPlayer()
		if actor == nil || !actor.IsAI {
			r.mu.Unlock()
			return
		}
		view := r.policyViewLocked(actor)
		r.mu.Unlock()

		decision, err := r.advisor.Advise(ctx, view)

		r.mu.Lock()
		if r.hand == nil || r.hand.Over {
			r.mu.Unlock()
			return
		}
		current := r.hand.CurrentPlayer()
		if current == nil || !current.IsAI {
			r.mu.Unlock()
			return
		}
		if current != actor {
			// The table moved on while we were waiting; re-read it
			r.mu.Unlock()
			continue
		}

		r.applyAutomatedLocked(current, view, decision, err)
		r.bumpLocked()
		r.mu.Unlock()
	}
}

// applyAutomatedLocked applies the provider's decision, falling back to
// the engine's deterministic safety net on any failure: transport error,
// illegal suggestion, or an amount the engine rejects. The fallback itself
// cannot fail. Called with the lock held.
func (r *Room) applyAutomatedLocked(actor *game.Player, view policy.View, decision policy.Decision, advErr error) {
	if advErr == nil && decision.Legal(view) {
		action, err := game.ParseAction(decision.Action)
		if err == nil {
			if err := r.hand.Apply(actor, action, decision.Amount); err == nil {
				return
			} else if !errors.Is(err, game.ErrIllegalAction) {
				r.logger.Warn("automated action rejected", "player", actor.Name, "error", err)
			}
		}
	} else if advErr != nil {
		r.logger.Warn("policy provider unavailable, using fallback", "player", actor.Name, "error", advErr)
	} else {
		r.logger.Warn("policy provider suggested illegal action, using fallback",
			"player", actor.Name, "action", decision.Action)
	}

	action, amount := r.hand.Fallback(actor)
	if err := r.hand.Apply(actor, action, amount); err != nil {
		// Unreachable: the fallback is computed from the live legal set
		r.logger.Error("fallback action rejected", "player", actor.Name, "error", err)
	}
}

// policyViewLocked builds the provider's private view; called with lock held
func (r *Room) policyViewLocked(p *game.Player) policy.View {
	h := r.hand
	hole := make([]string, len(p.HoleCards))
	for i, c := range p.HoleCards {
		hole[i] = c.String()
	}
	community := make([]string, len(h.Community))
	for i, c := range h.Community {
		community[i] = c.String()
	}
	legal := actionNames(h.LegalActions(p))
	history := make([]policy.HistoryEntry, len(h.Actions))
	for i, rec := range h.Actions {
		history[i] = policy.HistoryEntry{
			PlayerName: rec.PlayerName,
			Action:     rec.Action,
			Amount:     rec.Amount,
			Phase:      rec.Phase,
		}
	}
	return policy.View{
		PlayerName:   p.Name,
		HoleCards:    hole,
		Community:    community,
		Pot:          h.Pot,
		Stack:        p.Stack,
		ToCall:       h.ToCall(p),
		MinRaise:     h.MinRaise,
		Phase:        h.Phase.String(),
		LegalActions: legal,
		History:      history,
	}
}

func actionNames(actions []game.Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.String()
	}
	return names
}

// State returns a snapshot for the given viewer. An empty playerID yields
// the public view; a non-empty one must authenticate.
func (r *Room) State(playerID, secret string) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var viewer *game.Player
	if playerID != "" {
		p, err := r.authenticate(playerID, secret)
		if err != nil {
			return State{}, err
		}
		viewer = p
	}
	return r.stateLocked(viewer), nil
}

// stateLocked projects the room for a viewer; called with the lock held.
// Hole cards of other seats appear only as a count until showdown.
func (r *Room) stateLocked(viewer *game.Player) State {
	state := State{
		RoomID:       r.ID,
		TotalSeats:   r.TotalSeats,
		AIPlayers:    r.AIRequested,
		SmallBlind:   r.SmallBlind,
		BigBlind:     r.BigBlind,
		StateVersion: r.version,
		CreatedAt:    r.CreatedAt,
		HostPlayerID: r.hostID,
		Phase:        game.Waiting.String(),
	}

	h := r.hand
	revealAll := h != nil && h.Over

	state.Players = make([]PlayerView, len(r.players))
	for i, p := range r.players {
		view := PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			Stack:     p.Stack,
			Bet:       p.Bet,
			IsAI:      p.IsAI,
			IsHost:    p.IsHost,
			Folded:    p.Folded,
			AllIn:     p.AllIn,
			Busted:    p.Busted,
			Seat:      p.Seat,
			CardCount: len(p.HoleCards),
		}
		if (revealAll && p.InHand()) || (viewer != nil && p.ID == viewer.ID) {
			cards := make([]string, len(p.HoleCards))
			for j, c := range p.HoleCards {
				cards[j] = c.String()
			}
			view.Cards = cards
		}
		state.Players[i] = view
	}

	if h != nil {
		state.Phase = h.Phase.String()
		state.Pot = h.Pot
		state.CurrentBet = h.CurrentBet
		state.Actions = h.Actions
		state.Winners = h.Winners
		state.LastEvent = h.LastEvent
		community := make([]string, len(h.Community))
		for i, c := range h.Community {
			community[i] = c.String()
		}
		state.CommunityCards = community
		if current := h.CurrentPlayer(); current != nil {
			state.CurrentPlayerID = current.ID
		}
		state.DealerPlayerID = r.players[h.Dealer].ID
		if h.SmallBlindSeat >= 0 {
			state.SmallBlindPlayerID = r.players[h.SmallBlindSeat].ID
		}
		if h.BigBlindSeat >= 0 {
			state.BigBlindPlayerID = r.players[h.BigBlindSeat].ID
		}
	}

	if viewer != nil && h != nil {
		state.Self = &SelfView{
			PlayerID:     viewer.ID,
			LegalActions: actionNames(h.LegalActions(viewer)),
			ToCall:       h.ToCall(viewer),
			Stack:        viewer.Stack,
		}
	}
	return state
}

// Summary returns the lobby listing entry for this room
func (r *Room) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	humans := 0
	for _, p := range r.players {
		if !p.IsAI {
			humans++
		}
	}
	phase := game.Waiting.String()
	if r.hand != nil {
		phase = r.hand.Phase.String()
	}
	return Summary{
		RoomID:     r.ID,
		TotalSeats: r.TotalSeats,
		AIPlayers:  r.AIRequested,
		Humans:     humans,
		Phase:      phase,
		CreatedAt:  r.CreatedAt,
	}
}

// bumpLocked advances the state version and wakes watchers; lock held
func (r *Room) bumpLocked() {
	r.version++
	close(r.changed)
	r.changed = make(chan struct{})
}

// AwaitChange blocks until the room's state version exceeds since, then
// returns the new version. Used by the watch endpoint.
func (r *Room) AwaitChange(ctx context.Context, since int) (int, error) {
	r.mu.Lock()
	for r.version <= since {
		ch := r.changed
		r.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		r.mu.Lock()
	}
	version := r.version
	r.mu.Unlock()
	return version, nil
}

// Version returns the current state version
func (r *Room) Version() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}
