package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/sessionid"
	"github.com/lox/blackjacktable/internal/store"
)

var (
	// ErrMissingCredentials indicates an empty username or password.
	ErrMissingCredentials = errors.New("server: username and password required")

	// ErrBetLimits indicates a bet outside the table's configured limits.
	ErrBetLimits = errors.New("server: bet outside table limits")
)

// ServiceConfig carries the table rules and housekeeping limits.
type ServiceConfig struct {
	MinBet          int
	MaxBet          int // 0 means no cap
	HistoryLimit    int
	LeaderboardSize int
	IdleTimeout     time.Duration
	JanitorInterval time.Duration
}

// DefaultServiceConfig mirrors the config-file defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MinBet:          1,
		HistoryLimit:    10,
		LeaderboardSize: 10,
		IdleTimeout:     30 * time.Minute,
		JanitorInterval: time.Minute,
	}
}

// GameService mediates between connections and the rules engine. It owns the
// per-player lock arena: every balance change and game transition for a player
// happens under that player's lock, which serializes transitions per session
// since a player has at most one in-progress session.
type GameService struct {
	logger   *log.Logger
	accounts store.AccountStore
	sessions store.SessionStore
	clock    quartz.Clock
	cfg      ServiceConfig

	newDeck func() *deck.Deck
	newID   func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ServiceOption customises a GameService.
type ServiceOption func(*GameService)

// WithDeckFactory overrides how fresh decks are produced. Tests use stacked
// decks to script deals.
func WithDeckFactory(f func() *deck.Deck) ServiceOption {
	return func(s *GameService) { s.newDeck = f }
}

// WithIDGenerator overrides session/account id generation.
func WithIDGenerator(f func() string) ServiceOption {
	return func(s *GameService) { s.newID = f }
}

// NewGameService creates a game service over the given stores.
func NewGameService(logger *log.Logger, accounts store.AccountStore, sessions store.SessionStore, clock quartz.Clock, cfg ServiceConfig, opts ...ServiceOption) *GameService {
	s := &GameService{
		logger:   logger.WithPrefix("service"),
		accounts: accounts,
		sessions: sessions,
		clock:    clock,
		cfg:      cfg,
		newDeck:  deck.NewShuffled,
		newID:    sessionid.Generate,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// playerLock returns the mutex guarding one player's sessions and balance.
func (s *GameService) playerLock(playerID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[playerID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[playerID] = l
	}
	return l
}

// Register creates a new account with the starting balance.
func (s *GameService) Register(ctx context.Context, username, password string) (*account.Account, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hash, err := account.HashPassword(password)
	if err != nil {
		return nil, err
	}

	a := &account.Account{
		ID:           s.newID(),
		Username:     username,
		PasswordHash: hash,
		Balance:      account.StartingBalance,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "player", a.ID, "username", username)
	return a, nil
}

// Login verifies credentials and returns the account. Unknown usernames and
// wrong passwords both come back as ErrInvalidCredentials.
func (s *GameService) Login(ctx context.Context, username, password string) (*account.Account, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	a, err := s.accounts.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, account.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := account.CheckPassword(a.PasswordHash, password); err != nil {
		return nil, err
	}

	s.logger.Info("player logged in", "player", a.ID, "username", username)
	return a, nil
}

// Account returns the current account state for a player.
func (s *GameService) Account(ctx context.Context, playerID string) (*account.Account, error) {
	return s.accounts.ByID(ctx, playerID)
}

// StartGame validates the bet against the player's live balance, debits the
// stake and deals a fresh game. An unfinished previous game is settled on
// abandonment terms first so the ledger stays consistent.
func (s *GameService) StartGame(ctx context.Context, playerID string, bet int) (*blackjack.Game, *account.Account, error) {
	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	a, err := s.accounts.ByID(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}

	if bet <= 0 {
		return nil, nil, blackjack.ErrInvalidBet
	}
	if bet < s.cfg.MinBet || (s.cfg.MaxBet > 0 && bet > s.cfg.MaxBet) {
		return nil, nil, ErrBetLimits
	}
	if bet > a.Balance {
		return nil, nil, account.ErrInsufficientBalance
	}

	if stale, err := s.sessions.ActiveByPlayer(ctx, playerID); err == nil {
		if err := s.abandonLocked(ctx, stale, a); err != nil {
			return nil, nil, err
		}
	} else if !errors.Is(err, store.ErrSessionNotFound) {
		return nil, nil, err
	}

	g, err := blackjack.Start(bet, s.newDeck())
	if err != nil {
		return nil, nil, err
	}
	g.ID = s.newID()
	g.PlayerID = playerID
	g.CreatedAt = s.clock.Now()
	g.UpdatedAt = g.CreatedAt

	a.Balance -= bet
	a.TotalGames++

	if err := s.sessions.Create(ctx, g); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("save account: %w", err)
	}

	s.logger.Info("game started", "player", playerID, "session", g.ID, "bet", bet)
	return g, a, nil
}

// Hit applies a hit transition to the player's session.
func (s *GameService) Hit(ctx context.Context, playerID, sessionID string) (*blackjack.Game, *account.Account, error) {
	return s.transition(ctx, playerID, sessionID, "hit", (*blackjack.Game).Hit)
}

// Stand applies a stand transition, running the dealer and settling the game.
func (s *GameService) Stand(ctx context.Context, playerID, sessionID string) (*blackjack.Game, *account.Account, error) {
	return s.transition(ctx, playerID, sessionID, "stand", (*blackjack.Game).Stand)
}

// Surrender forfeits the game for half the stake.
func (s *GameService) Surrender(ctx context.Context, playerID, sessionID string) (*blackjack.Game, *account.Account, error) {
	return s.transition(ctx, playerID, sessionID, "surrender", (*blackjack.Game).Surrender)
}

// transition loads the session, applies the engine transition under the
// player's lock and settles the balance if the game finished.
func (s *GameService) transition(ctx context.Context, playerID, sessionID, name string, fn func(*blackjack.Game) error) (*blackjack.Game, *account.Account, error) {
	lock := s.playerLock(playerID)
	lock.Lock()
	defer lock.Unlock()

	g, err := s.sessions.ByID(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if g.PlayerID != playerID {
		// Another player's session is indistinguishable from a missing one.
		return nil, nil, store.ErrSessionNotFound
	}

	a, err := s.accounts.ByID(ctx, playerID)
	if err != nil {
		return nil, nil, err
	}

	if err := fn(g); err != nil {
		return nil, nil, err
	}
	g.UpdatedAt = s.clock.Now()

	if g.Finished() {
		a.Balance += g.WinAmount
		a.RecordGame(g.BetAmount, g.WinAmount)
		if err := s.accounts.Save(ctx, a); err != nil {
			return nil, nil, fmt.Errorf("save account: %w", err)
		}
		s.logger.Info("game finished", "player", playerID, "session", g.ID,
			"action", name, "outcome", g.Outcome, "win", g.WinAmount)
	}

	if err := s.sessions.Save(ctx, g); err != nil {
		return nil, nil, fmt.Errorf("save session: %w", err)
	}
	return g, a, nil
}

// abandonLocked settles a stale session on abandonment terms. The caller holds
// the player's lock and passes the already-loaded account.
func (s *GameService) abandonLocked(ctx context.Context, g *blackjack.Game, a *account.Account) error {
	if err := g.Abandon(); err != nil {
		return err
	}
	a.Balance += g.WinAmount
	if err := s.sessions.Save(ctx, g); err != nil {
		return fmt.Errorf("save abandoned session: %w", err)
	}
	s.logger.Info("stale game abandoned", "player", g.PlayerID, "session", g.ID, "returned", g.WinAmount)
	return nil
}

// Leaderboard returns the top accounts by balance.
func (s *GameService) Leaderboard(ctx context.Context) ([]*account.Account, error) {
	return s.accounts.Leaderboard(ctx, s.cfg.LeaderboardSize)
}

// History returns the player's recent sessions, newest first. A non-positive
// limit uses the configured default; the configured limit is also the cap.
func (s *GameService) History(ctx context.Context, playerID string, limit int) ([]*blackjack.Game, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	return s.sessions.HistoryByPlayer(ctx, playerID, limit)
}

// RunJanitor reaps idle sessions until the context is cancelled.
func (s *GameService) RunJanitor(ctx context.Context) error {
	waiter := s.clock.TickerFunc(ctx, s.cfg.JanitorInterval, func() error {
		if err := s.ReapIdleSessions(ctx); err != nil {
			s.logger.Error("janitor sweep failed", "error", err)
		}
		return nil
	}, "session-janitor")
	return waiter.Wait()
}

// ReapIdleSessions settles every in-progress session with no activity since
// the idle timeout on abandonment terms. Activity is the last transition, not
// game creation, so a hand being actively played is never reaped mid-game.
func (s *GameService) ReapIdleSessions(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.IdleTimeout)
	stale, err := s.sessions.StaleInProgress(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, g := range stale {
		lock := s.playerLock(g.PlayerID)
		lock.Lock()

		// Re-read under the lock; the player may have acted since the sweep.
		current, err := s.sessions.ByID(ctx, g.ID)
		if err == nil && !current.Finished() && current.UpdatedAt.Before(cutoff) {
			a, aerr := s.accounts.ByID(ctx, current.PlayerID)
			if aerr == nil {
				if err := s.abandonLocked(ctx, current, a); err != nil {
					s.logger.Error("failed to abandon idle session", "session", current.ID, "error", err)
				} else if err := s.accounts.Save(ctx, a); err != nil {
					s.logger.Error("failed to save account after reap", "player", a.ID, "error", err)
				}
			}
		}

		lock.Unlock()
	}
	return nil
}
