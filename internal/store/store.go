// Package store defines the persistence contracts for accounts and game
// sessions, plus in-memory implementations. The engine itself never touches a
// store; the game service loads state, runs a transition and saves the result.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
)

// ErrSessionNotFound indicates no game session matches the given id.
var ErrSessionNotFound = errors.New("store: session not found")

// AccountStore persists player accounts. Implementations report
// account.ErrUsernameTaken from Create and account.ErrNotFound from lookups.
type AccountStore interface {
	Create(ctx context.Context, a *account.Account) error
	ByID(ctx context.Context, id string) (*account.Account, error)
	ByUsername(ctx context.Context, username string) (*account.Account, error)
	Save(ctx context.Context, a *account.Account) error

	// Leaderboard returns up to limit accounts ordered by balance descending.
	Leaderboard(ctx context.Context, limit int) ([]*account.Account, error)
}

// SessionStore persists game sessions. Lookups report ErrSessionNotFound.
type SessionStore interface {
	Create(ctx context.Context, g *blackjack.Game) error
	ByID(ctx context.Context, id string) (*blackjack.Game, error)
	Save(ctx context.Context, g *blackjack.Game) error

	// ActiveByPlayer returns the player's single in-progress session, or
	// ErrSessionNotFound when every session is settled.
	ActiveByPlayer(ctx context.Context, playerID string) (*blackjack.Game, error)

	// HistoryByPlayer returns the player's most recent sessions, newest first.
	HistoryByPlayer(ctx context.Context, playerID string, limit int) ([]*blackjack.Game, error)

	// StaleInProgress returns in-progress sessions created before the cutoff,
	// for the idle janitor to settle.
	StaleInProgress(ctx context.Context, cutoff time.Time) ([]*blackjack.Game, error)
}
