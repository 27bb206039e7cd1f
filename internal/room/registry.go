package room

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/policy"
	"github.com/lox/pokerroom/internal/randutil"
	"github.com/lox/pokerroom/internal/roomid"
)

// Registry is the process-scoped store of live rooms. It is created at
// startup and torn down with the process; rooms are never reclaimed
// mid-run, so the concurrent room cap is the only memory guard. Cross-room
// operations take only the registry lock; room state stays behind each
// room's own mutex.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	maxRooms int
	advisor  policy.Advisor
	idgen    *roomid.Generator
	logger   *log.Logger
	seed     func() int64
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithIDGenerator supplies a room-code generator, for deterministic tests
func WithIDGenerator(gen *roomid.Generator) RegistryOption {
	return func(r *Registry) { r.idgen = gen }
}

// WithSeedFunc supplies the per-room RNG seed source, for deterministic tests
func WithSeedFunc(seed func() int64) RegistryOption {
	return func(r *Registry) { r.seed = seed }
}

// NewRegistry creates an empty registry backed by the given policy advisor
func NewRegistry(advisor policy.Advisor, maxRooms int, logger *log.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		rooms:    make(map[string]*Room),
		maxRooms: maxRooms,
		advisor:  advisor,
		idgen:    roomid.NewGenerator(nil),
		logger:   logger.WithPrefix("registry"),
		seed:     func() int64 { return time.Now().UnixNano() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom creates a room, seats the host, and returns both. The host
// credential is returned exactly once.
func (reg *Registry) CreateRoom(hostName string, seats, aiSeats, stack, smallBlind, bigBlind int) (*Room, *game.Player, error) {
	if seats < 2 || seats > 9 {
		return nil, nil, fmt.Errorf("%w: seats must be between 2 and 9", ErrInvalidConfig)
	}
	if aiSeats < 0 || aiSeats >= seats {
		return nil, nil, fmt.Errorf("%w: automated seats must be fewer than total seats", ErrInvalidConfig)
	}
	if stack <= 0 || smallBlind <= 0 || bigBlind <= smallBlind {
		return nil, nil, fmt.Errorf("%w: blinds must be positive with big blind above small blind", ErrInvalidConfig)
	}

	reg.mu.Lock()
	if len(reg.rooms) >= reg.maxRooms {
		reg.mu.Unlock()
		return nil, nil, ErrRoomLimit
	}
	id := reg.idgen.Generate()
	for reg.rooms[id] != nil {
		id = reg.idgen.Generate()
	}
	rm := newRoom(id, seats, aiSeats, stack, smallBlind, bigBlind,
		reg.advisor, randutil.New(reg.seed()), reg.logger)
	reg.rooms[id] = rm
	reg.mu.Unlock()

	host := rm.seatHost(hostName)
	reg.logger.Info("room created", "room", id, "host", hostName, "seats", seats, "ai", aiSeats)
	return rm, host, nil
}

// Get returns the room for a code
func (reg *Registry) Get(roomID string) (*Room, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rm, ok := reg.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	return rm, nil
}

// Join seats a new human player in the given room
func (reg *Registry) Join(roomID, name string) (*Room, *game.Player, error) {
	rm, err := reg.Get(roomID)
	if err != nil {
		return nil, nil, err
	}
	player, err := rm.Join(name)
	if err != nil {
		return nil, nil, err
	}
	return rm, player, nil
}

// StartHand starts a hand in the given room on behalf of the host
func (reg *Registry) StartHand(ctx context.Context, roomID, playerID, secret string) (State, error) {
	rm, err := reg.Get(roomID)
	if err != nil {
		return State{}, err
	}
	return rm.StartHand(ctx, playerID, secret)
}

// SubmitAction applies a player action in the given room
func (reg *Registry) SubmitAction(ctx context.Context, roomID, playerID, secret, action string, amount int) (State, error) {
	rm, err := reg.Get(roomID)
	if err != nil {
		return State{}, err
	}
	return rm.SubmitAction(ctx, playerID, secret, action, amount)
}

// FetchState returns a public or personalized snapshot of the given room
func (reg *Registry) FetchState(roomID, playerID, secret string) (State, error) {
	rm, err := reg.Get(roomID)
	if err != nil {
		return State{}, err
	}
	return rm.State(playerID, secret)
}

// ListRooms returns a lobby summary of every live room
func (reg *Registry) ListRooms() []Summary {
	reg.mu.RLock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, rm := range reg.rooms {
		rooms = append(rooms, rm)
	}
	reg.mu.RUnlock()

	summaries := make([]Summary, 0, len(rooms))
	for _, rm := range rooms {
		summaries = append(summaries, rm.Summary())
	}
	return summaries
}

// Len returns the number of live rooms
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}
