package server

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/store"
)

// stackedDecks returns a deck factory that deals the given scripts in order.
// Each script lists the full deal order: player, dealer, player, dealer, then
// any further draws.
func stackedDecks(t *testing.T, scripts ...string) func() *deck.Deck {
	t.Helper()
	i := 0
	return func() *deck.Deck {
		require.Less(t, i, len(scripts), "deck factory exhausted")
		d := deck.NewStacked(deck.MustParseCards(scripts[i])...)
		i++
		return d
	}
}

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func newTestService(t *testing.T, opts ...ServiceOption) (*GameService, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	cfg := DefaultServiceConfig()
	svc := NewGameService(testLogger(), store.NewMemoryAccountStore(), store.NewMemorySessionStore(), clock, cfg, opts...)
	return svc, clock
}

func registerPlayer(t *testing.T, svc *GameService, username string) *account.Account {
	t.Helper()
	a, err := svc.Register(context.Background(), username, "hunter2")
	require.NoError(t, err)
	return a
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a := registerPlayer(t, svc, "alice")
	assert.Equal(t, account.StartingBalance, a.Balance)
	assert.NotEmpty(t, a.ID)

	got, err := svc.Login(ctx, "alice", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	// Unknown username is indistinguishable from a wrong password.
	_, err = svc.Login(ctx, "mallory", "hunter2")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	_, err = svc.Register(ctx, "alice", "again")
	assert.ErrorIs(t, err, account.ErrUsernameTaken)

	_, err = svc.Register(ctx, "", "pw")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestStartGameDebitsStake(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "AsKh5d6c2h3s")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, a, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	assert.Equal(t, account.StartingBalance-100, a.Balance)
	assert.Equal(t, 1, a.TotalGames)
	assert.Equal(t, blackjack.StatusInProgress, g.Status)
	assert.Len(t, g.PlayerHand, 2)
	assert.Len(t, g.DealerHand, 2)
	assert.Equal(t, 16, g.PlayerScore()) // As + 5d
}

func TestStartGameValidation(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "AsKh5d6c2h3s")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	_, _, err := svc.StartGame(ctx, p.ID, 0)
	assert.ErrorIs(t, err, blackjack.ErrInvalidBet)

	_, _, err = svc.StartGame(ctx, p.ID, -5)
	assert.ErrorIs(t, err, blackjack.ErrInvalidBet)

	_, _, err = svc.StartGame(ctx, p.ID, account.StartingBalance+1)
	assert.ErrorIs(t, err, account.ErrInsufficientBalance)

	_, _, err = svc.StartGame(ctx, "no-such-player", 10)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestStartGameBetLimits(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	cfg := DefaultServiceConfig()
	cfg.MinBet = 10
	cfg.MaxBet = 100
	svc := NewGameService(testLogger(), store.NewMemoryAccountStore(), store.NewMemorySessionStore(), clock, cfg,
		WithDeckFactory(stackedDecks(t, "AsKh5d6c2h3s")))
	p := registerPlayer(t, svc, "alice")

	_, _, err := svc.StartGame(ctx, p.ID, 5)
	assert.ErrorIs(t, err, ErrBetLimits)

	_, _, err = svc.StartGame(ctx, p.ID, 101)
	assert.ErrorIs(t, err, ErrBetLimits)

	_, _, err = svc.StartGame(ctx, p.ID, 10)
	assert.NoError(t, err)
}

func TestStartGameAbandonsStaleSession(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t,
		"AsKh5d6c2h3s",
		"Th9h8d7c6s5s",
	)))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	first, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	// 1000 - 100 (first stake) + 50 (half back on abandon) - 60 (new stake)
	_, a, err := svc.StartGame(ctx, p.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 890, a.Balance)
	assert.Equal(t, 2, a.TotalGames)

	old, err := svc.sessions.ByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, old.Finished())
	assert.Equal(t, blackjack.OutcomeAbandoned, old.Outcome)
	assert.Equal(t, 50, old.WinAmount)
}

func TestStandSettlesWin(t *testing.T) {
	// Player Ts+9h = 19, dealer 8d+9c = 17 and stands. Player wins 2x.
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	g, a, err := svc.Stand(ctx, p.ID, g.ID)
	require.NoError(t, err)

	assert.Equal(t, blackjack.OutcomePlayerWins, g.Outcome)
	assert.Equal(t, 200, g.WinAmount)
	assert.Equal(t, account.StartingBalance+100, a.Balance)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 200, a.HighestWin)
}

func TestHitBustSettlesLoss(t *testing.T) {
	// Player Ts+9h = 19, hit draws 5d and busts.
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c5d")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	g, a, err := svc.Hit(ctx, p.ID, g.ID)
	require.NoError(t, err)

	assert.Equal(t, blackjack.OutcomePlayerBust, g.Outcome)
	assert.Equal(t, 0, g.WinAmount)
	assert.Equal(t, account.StartingBalance-100, a.Balance)
	assert.Equal(t, 0, a.Wins)
	assert.Equal(t, 1, a.TotalGames)
}

func TestSurrenderReturnsHalf(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 101)
	require.NoError(t, err)

	g, a, err := svc.Surrender(ctx, p.ID, g.ID)
	require.NoError(t, err)

	assert.Equal(t, blackjack.OutcomeSurrendered, g.Outcome)
	assert.Equal(t, 50, g.WinAmount) // floor(101/2)
	assert.Equal(t, account.StartingBalance-51, a.Balance)
	assert.Equal(t, 0, a.Wins)
}

func TestTransitionRejectsWrongPlayer(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx := context.Background()
	alice := registerPlayer(t, svc, "alice")
	bob := registerPlayer(t, svc, "bob")

	g, _, err := svc.StartGame(ctx, alice.ID, 100)
	require.NoError(t, err)

	_, _, err = svc.Hit(ctx, bob.ID, g.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)

	_, _, err = svc.Hit(ctx, alice.ID, "nope")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestTransitionRejectsFinishedGame(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)
	_, _, err = svc.Stand(ctx, p.ID, g.ID)
	require.NoError(t, err)

	_, _, err = svc.Hit(ctx, p.ID, g.ID)
	assert.ErrorIs(t, err, blackjack.ErrGameFinished)
	_, _, err = svc.Stand(ctx, p.ID, g.ID)
	assert.ErrorIs(t, err, blackjack.ErrGameFinished)
}

func TestHistoryAndLeaderboard(t *testing.T) {
	svc, _ := newTestService(t, WithDeckFactory(stackedDecks(t,
		"Ts8d9h9c", // alice wins on stand
		"Ts8d9h9c5d",
	)))
	ctx := context.Background()
	alice := registerPlayer(t, svc, "alice")
	bob := registerPlayer(t, svc, "bob")

	g, _, err := svc.StartGame(ctx, alice.ID, 100)
	require.NoError(t, err)
	_, _, err = svc.Stand(ctx, alice.ID, g.ID)
	require.NoError(t, err)

	g, _, err = svc.StartGame(ctx, bob.ID, 50)
	require.NoError(t, err)
	_, _, err = svc.Hit(ctx, bob.ID, g.ID)
	require.NoError(t, err)

	board, err := svc.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "alice", board[0].Username)
	assert.Equal(t, 1100, board[0].Balance)
	assert.Equal(t, "bob", board[1].Username)
	assert.Equal(t, 950, board[1].Balance)

	hist, err := svc.History(ctx, alice.ID, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, blackjack.OutcomePlayerWins, hist[0].Outcome)

	// Requests beyond the configured limit are capped to it.
	hist, err = svc.History(ctx, alice.ID, 500)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}

func TestReapIdleSessions(t *testing.T) {
	svc, clock := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	// Not yet idle: the game survives a sweep.
	clock.Advance(10 * time.Minute).MustWait(ctx)
	require.NoError(t, svc.ReapIdleSessions(ctx))
	got, err := svc.sessions.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.Finished())

	clock.Advance(25 * time.Minute).MustWait(ctx)
	require.NoError(t, svc.ReapIdleSessions(ctx))

	got, err = svc.sessions.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, blackjack.OutcomeAbandoned, got.Outcome)

	a, err := svc.Account(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, account.StartingBalance-50, a.Balance)

	// The reaped session no longer blocks a new game.
	_, err = svc.sessions.ActiveByPlayer(ctx, p.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestReapMeasuresIdleFromLastAction(t *testing.T) {
	// Player 2s+4d, dealer 3h+5c, hit draws 6h for 12 and stays in progress.
	svc, clock := newTestService(t, WithDeckFactory(stackedDecks(t, "2s3h4d5c6h")))
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	clock.Advance(20 * time.Minute).MustWait(ctx)
	_, _, err = svc.Hit(ctx, p.ID, g.ID)
	require.NoError(t, err)

	// 35 minutes since creation but only 15 since the hit: not idle.
	clock.Advance(15 * time.Minute).MustWait(ctx)
	require.NoError(t, svc.ReapIdleSessions(ctx))
	got, err := svc.sessions.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.False(t, got.Finished())

	clock.Advance(20 * time.Minute).MustWait(ctx)
	require.NoError(t, svc.ReapIdleSessions(ctx))
	got, err = svc.sessions.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, blackjack.OutcomeAbandoned, got.Outcome)
}

func TestConcurrentSnapshotsAndTransitions(t *testing.T) {
	// One goroutine plays hands while another marshals game snapshots and
	// history for the same player. Exercised under the race detector; the
	// store hands out copies so the marshaller never observes a transition
	// in flight.
	clock := quartz.NewReal()
	svc := NewGameService(testLogger(), store.NewMemoryAccountStore(), store.NewMemorySessionStore(), clock, DefaultServiceConfig())
	ctx := context.Background()
	p := registerPlayer(t, svc, "alice")

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			g, _, err := svc.StartGame(ctx, p.ID, 10)
			if err != nil {
				t.Error(err)
				return
			}
			if _, _, err := svc.Stand(ctx, p.ID, g.ID); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			games, err := svc.History(ctx, p.ID, 10)
			if err != nil {
				t.Error(err)
				return
			}
			for _, g := range games {
				if _, err := json.Marshal(GameStateFromGame(g, 0)); err != nil {
					t.Error(err)
					return
				}
			}
		}
	}()

	wg.Wait()
}

func TestJanitorTicksWithClock(t *testing.T) {
	svc, clock := newTestService(t, WithDeckFactory(stackedDecks(t, "Ts8d9h9c")))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := registerPlayer(t, svc, "alice")

	g, _, err := svc.StartGame(ctx, p.ID, 100)
	require.NoError(t, err)

	// Let the session go idle before the janitor starts ticking.
	clock.Advance(35 * time.Minute).MustWait(ctx)

	trap := clock.Trap().TickerFunc("session-janitor")
	defer trap.Close()

	done := make(chan error, 1)
	go func() { done <- svc.RunJanitor(ctx) }()

	trap.MustWait(ctx).MustRelease(ctx)

	// First tick runs a sweep which reaps the idle session.
	_, w := clock.AdvanceNext()
	w.MustWait(ctx)

	got, err := svc.sessions.ByID(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.Finished())
	assert.Equal(t, blackjack.OutcomeAbandoned, got.Outcome)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
