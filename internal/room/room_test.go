package room

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/pokerroom/internal/game"
	"github.com/lox/pokerroom/internal/policy"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// callingAdvisor always suggests the call (or check) a calling station would
func callingAdvisor() policy.Advisor {
	return policy.AdvisorFunc(func(ctx context.Context, view policy.View) (policy.Decision, error) {
		for _, a := range view.LegalActions {
			if a == "call" {
				return policy.Decision{Action: "call"}, nil
			}
		}
		return policy.Decision{Action: "check"}, nil
	})
}

// failingAdvisor simulates an unreachable provider
func failingAdvisor() policy.Advisor {
	return policy.AdvisorFunc(func(ctx context.Context, view policy.View) (policy.Decision, error) {
		return policy.Decision{}, policy.ErrUnavailable
	})
}

func newTestRegistry(t *testing.T, advisor policy.Advisor) *Registry {
	t.Helper()
	return NewRegistry(advisor, 16, testLogger(), WithSeedFunc(func() int64 { return 42 }))
}

func TestCreateRoomSeatsHost(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())

	rm, host, err := reg.CreateRoom("Alice", 4, 2, 1000, 10, 20)
	require.NoError(t, err)

	assert.NotEmpty(t, rm.ID)
	assert.NotEmpty(t, host.Secret, "host credential is returned at creation")
	assert.True(t, host.IsHost)
	assert.Equal(t, 1000, host.Stack)

	state, err := rm.State(host.ID, host.Secret)
	require.NoError(t, err)
	assert.Equal(t, host.ID, state.HostPlayerID)
	assert.Equal(t, "waiting", state.Phase)
}

func TestCreateRoomValidatesConfig(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())

	_, _, err := reg.CreateRoom("Alice", 1, 0, 1000, 10, 20)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = reg.CreateRoom("Alice", 4, 4, 1000, 10, 20)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, _, err = reg.CreateRoom("Alice", 4, 1, 1000, 20, 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRoomLimitFailsCreation(t *testing.T) {
	reg := NewRegistry(callingAdvisor(), 1, testLogger())

	_, _, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	_, _, err = reg.CreateRoom("Bob", 2, 1, 1000, 10, 20)
	assert.ErrorIs(t, err, ErrRoomLimit)
	assert.Equal(t, 1, reg.Len())
}

func TestJoinRespectsHumanSeatReservation(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, _, err := reg.CreateRoom("Alice", 3, 1, 1000, 10, 20)
	require.NoError(t, err)

	_, err = rm.Join("Bob")
	require.NoError(t, err)

	// Two human seats filled; the third is reserved for the automated player
	_, err = rm.Join("Carol")
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestStartRequiresHost(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, _, err := reg.CreateRoom("Alice", 3, 0, 1000, 10, 20)
	require.NoError(t, err)

	bob, err := rm.Join("Bob")
	require.NoError(t, err)

	_, err = rm.StartHand(context.Background(), bob.ID, bob.Secret)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStartRequiresTwoContestants(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 3, 0, 1000, 10, 20)
	require.NoError(t, err)

	_, err = rm.StartHand(context.Background(), host.ID, host.Secret)
	assert.ErrorIs(t, err, game.ErrInsufficientPlayers)
}

func TestBadCredentialIsUnauthorized(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	_, err = rm.State(host.ID, "wrong-secret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = rm.StartHand(context.Background(), host.ID, "wrong-secret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = rm.State("nonexistent", "secret")
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestActionOutsideHandRejected(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	_, err = rm.SubmitAction(context.Background(), host.ID, host.Secret, "check", 0)
	assert.ErrorIs(t, err, game.ErrNoActiveHand)
}

func TestHeadsUpAllInScenario(t *testing.T) {
	// One human and one always-calling automated seat, blinds 10/20.
	// Human shoves 1000 preflop, the bot calls, the board runs out, and
	// 2000 chips change hands at showdown.
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	ctx := context.Background()
	state, err := rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)

	// Any automated turns before the human decision point have run;
	// the action now rests with the human
	require.Equal(t, host.ID, state.CurrentPlayerID)

	state, err = rm.SubmitAction(ctx, host.ID, host.Secret, "raise", 1000)
	require.NoError(t, err)

	assert.Equal(t, "showdown", state.Phase)
	assert.Equal(t, 0, state.Pot)
	assert.Len(t, state.CommunityCards, 5)
	require.NotEmpty(t, state.Winners)

	total := 0
	for _, p := range state.Players {
		total += p.Stack
	}
	assert.Equal(t, 2000, total, "chips are conserved through settlement")

	if len(state.Winners) == 1 {
		for _, p := range state.Players {
			if p.ID == state.Winners[0].PlayerID {
				assert.Equal(t, 2000, p.Stack)
			} else {
				assert.Equal(t, 0, p.Stack)
				assert.True(t, p.Busted)
			}
		}
	}
}

func TestProviderFailureFallsBackToCall(t *testing.T) {
	// With the provider down and a bet outstanding, the fallback must
	// call, never fold
	reg := newTestRegistry(t, failingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	ctx := context.Background()
	state, err := rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)
	require.Equal(t, host.ID, state.CurrentPlayerID)

	state, err = rm.SubmitAction(ctx, host.ID, host.Secret, "raise", 100)
	require.NoError(t, err)

	var botActions []string
	for _, rec := range state.Actions {
		if rec.PlayerName == "Bot 1" && rec.Action != "small_blind" && rec.Action != "big_blind" {
			botActions = append(botActions, rec.Action)
		}
	}
	require.NotEmpty(t, botActions)
	for _, action := range botActions {
		assert.NotEqual(t, "fold", action, "fallback prefers call over fold")
	}
	assert.Contains(t, botActions, "call")
}

func TestIllegalProviderSuggestionFallsBack(t *testing.T) {
	// A provider that insists on checking into a bet is treated exactly
	// like an unreachable one
	advisor := policy.AdvisorFunc(func(ctx context.Context, view policy.View) (policy.Decision, error) {
		return policy.Decision{Action: "check"}, nil
	})
	reg := newTestRegistry(t, advisor)
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	ctx := context.Background()
	state, err := rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)
	require.Equal(t, host.ID, state.CurrentPlayerID)

	state, err = rm.SubmitAction(ctx, host.ID, host.Secret, "raise", 100)
	require.NoError(t, err)

	for _, rec := range state.Actions {
		if rec.PlayerName == "Bot 1" && rec.Phase == "preflop" {
			assert.NotEqual(t, "check", rec.Action, "illegal check must not be applied facing a bet")
		}
	}
}

func TestVisibilityBeforeAndAfterShowdown(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 0, 1000, 10, 20)
	require.NoError(t, err)
	bob, err := rm.Join("Bob")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)

	// Before showdown Bob's view shows only a count of Alice's cards
	state, err := rm.State(bob.ID, bob.Secret)
	require.NoError(t, err)
	for _, p := range state.Players {
		assert.Equal(t, 2, p.CardCount)
		if p.ID == bob.ID {
			assert.Len(t, p.Cards, 2, "own hole cards are visible")
		} else {
			assert.Nil(t, p.Cards, "opponent hole cards are hidden")
		}
	}

	// The public view hides everything
	state, err = rm.State("", "")
	require.NoError(t, err)
	for _, p := range state.Players {
		assert.Nil(t, p.Cards)
	}
	assert.Nil(t, state.Self)

	// Check the hand down to showdown
	for {
		state, err = rm.State(host.ID, host.Secret)
		require.NoError(t, err)
		if state.Phase == "showdown" {
			break
		}
		actorID := state.CurrentPlayerID
		actor := host
		if actorID == bob.ID {
			actor = bob
		}
		self, err := rm.State(actor.ID, actor.Secret)
		require.NoError(t, err)
		action := "check"
		if self.Self.ToCall > 0 {
			action = "call"
		}
		_, err = rm.SubmitAction(ctx, actor.ID, actor.Secret, action, 0)
		require.NoError(t, err)
	}

	// After showdown every live hand is revealed, even to the public
	state, err = rm.State("", "")
	require.NoError(t, err)
	for _, p := range state.Players {
		assert.Len(t, p.Cards, 2)
	}
}

func TestOutOfTurnSubmitLeavesStateUnchanged(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 3, 0, 1000, 10, 20)
	require.NoError(t, err)
	bob, err := rm.Join("Bob")
	require.NoError(t, err)
	carol, err := rm.Join("Carol")
	require.NoError(t, err)

	ctx := context.Background()
	state, err := rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)

	intruder := bob
	if state.CurrentPlayerID == bob.ID {
		intruder = carol
	}
	if state.CurrentPlayerID == intruder.ID {
		intruder = host
	}

	before, err := rm.State(intruder.ID, intruder.Secret)
	require.NoError(t, err)

	_, err = rm.SubmitAction(ctx, intruder.ID, intruder.Secret, "call", 0)
	assert.ErrorIs(t, err, game.ErrNotYourTurn)

	after, err := rm.State(intruder.ID, intruder.Secret)
	require.NoError(t, err)
	assert.Equal(t, before.CurrentPlayerID, after.CurrentPlayerID)
	assert.Equal(t, before.Pot, after.Pot)
	for i := range before.Players {
		assert.Equal(t, before.Players[i].Stack, after.Players[i].Stack)
	}
}

func TestStartWhileHandInProgress(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 0, 1000, 10, 20)
	require.NoError(t, err)
	_, err = rm.Join("Bob")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = rm.StartHand(ctx, host.ID, host.Secret)
	require.NoError(t, err)

	_, err = rm.StartHand(ctx, host.ID, host.Secret)
	assert.ErrorIs(t, err, ErrHandInProgress)
}

func TestLobbyListing(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	_, _, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)
	_, _, err = reg.CreateRoom("Bob", 6, 3, 2000, 25, 50)
	require.NoError(t, err)

	summaries := reg.ListRooms()
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.NotEmpty(t, s.RoomID)
		assert.Equal(t, "waiting", s.Phase)
		assert.Equal(t, 1, s.Humans)
		assert.False(t, s.CreatedAt.IsZero())
	}
}

func TestAwaitChangeWakesOnMutation(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, _, err := reg.CreateRoom("Alice", 3, 1, 1000, 10, 20)
	require.NoError(t, err)

	since := rm.Version()
	done := make(chan int, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		v, err := rm.AwaitChange(ctx, since)
		if err == nil {
			done <- v
		}
	}()

	// Give the watcher a moment to block, then mutate
	time.Sleep(10 * time.Millisecond)
	_, err = rm.Join("Bob")
	require.NoError(t, err)

	select {
	case v := <-done:
		assert.Greater(t, v, since)
	case <-time.After(5 * time.Second):
		t.Fatal("AwaitChange did not wake on mutation")
	}
}

func TestAwaitChangeHonoursContext(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())
	rm, _, err := reg.CreateRoom("Alice", 3, 1, 1000, 10, 20)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = rm.AwaitChange(ctx, rm.Version())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnknownRoomIsNotFound(t *testing.T) {
	reg := newTestRegistry(t, callingAdvisor())

	_, err := reg.Get("NOPE42")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = reg.Join("NOPE42", "Bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = reg.FetchState("NOPE42", "", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDealerRotatesBetweenHands(t *testing.T) {
	reg := newTestRegistry(t, failingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 3, 2, 3000, 10, 20)
	require.NoError(t, err)

	ctx := context.Background()
	playHandToEnd := func() string {
		t.Helper()
		state, err := rm.StartHand(ctx, host.ID, host.Secret)
		require.NoError(t, err)
		dealerID := state.DealerPlayerID
		for state.Phase != "showdown" {
			require.Equal(t, host.ID, state.CurrentPlayerID)
			action := "check"
			if state.Self.ToCall > 0 {
				action = "call"
			}
			state, err = rm.SubmitAction(ctx, host.ID, host.Secret, action, 0)
			require.NoError(t, err)
		}
		return dealerID
	}

	first := playHandToEnd()
	second := playHandToEnd()
	assert.NotEqual(t, first, second, "button advances each hand")
}

func TestProviderErrorNeverSurfacesToCaller(t *testing.T) {
	reg := newTestRegistry(t, failingAdvisor())
	rm, host, err := reg.CreateRoom("Alice", 2, 1, 1000, 10, 20)
	require.NoError(t, err)

	state, err := rm.StartHand(context.Background(), host.ID, host.Secret)
	require.NoError(t, err)
	require.False(t, errors.Is(err, policy.ErrUnavailable))
	assert.NotEmpty(t, state.Phase)
}
