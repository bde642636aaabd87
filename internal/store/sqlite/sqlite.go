// Package sqlite persists accounts and game sessions in a single SQLite file,
// for deployments that need balances and history to survive restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
	"github.com/lox/blackjacktable/internal/deck"
	"github.com/lox/blackjacktable/internal/store"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	balance       INTEGER NOT NULL,
	wins          INTEGER NOT NULL DEFAULT 0,
	total_games   INTEGER NOT NULL DEFAULT 0,
	highest_win   INTEGER NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	player_id   TEXT NOT NULL,
	player_hand TEXT NOT NULL,
	dealer_hand TEXT NOT NULL,
	deck        TEXT NOT NULL,
	bet_amount  INTEGER NOT NULL,
	win_amount  INTEGER NOT NULL,
	status      INTEGER NOT NULL,
	outcome     TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS sessions_player_idx ON sessions (player_id, created_at DESC);
`

// DB wraps one SQLite database holding both accounts and sessions, so the two
// stores share a transaction and visibility boundary.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and bootstraps the schema.
func Open(path string) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the underlying database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Accounts returns the account store view of the database.
func (d *DB) Accounts() *AccountStore {
	return &AccountStore{db: d.db}
}

// Sessions returns the session store view of the database.
func (d *DB) Sessions() *SessionStore {
	return &SessionStore{db: d.db}
}

// toMillis normalizes timestamps to millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// isUniqueViolation detects SQLite unique-constraint failures without
// depending on driver-specific error types.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// AccountStore implements store.AccountStore over SQLite.
type AccountStore struct {
	db *sql.DB
}

var _ store.AccountStore = (*AccountStore)(nil)

func (s *AccountStore) Create(ctx context.Context, a *account.Account) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, username, password_hash, balance, wins, total_games, highest_win, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.PasswordHash, a.Balance, a.Wins, a.TotalGames, a.HighestWin, toMillis(a.CreatedAt))
	if isUniqueViolation(err) {
		return account.ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (s *AccountStore) ByID(ctx context.Context, id string) (*account.Account, error) {
	return s.accountWhere(ctx, "id = ?", id)
}

func (s *AccountStore) ByUsername(ctx context.Context, username string) (*account.Account, error) {
	return s.accountWhere(ctx, "username = ?", username)
}

func (s *AccountStore) accountWhere(ctx context.Context, where string, arg any) (*account.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, balance, wins, total_games, highest_win, created_at
		 FROM accounts WHERE `+where, arg)
	return scanAccount(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var a account.Account
	var createdAt int64
	err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Balance, &a.Wins, &a.TotalGames, &a.HighestWin, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, account.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan account: %w", err)
	}
	a.CreatedAt = fromMillis(createdAt)
	return &a, nil
}

func (s *AccountStore) Save(ctx context.Context, a *account.Account) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, wins = ?, total_games = ?, highest_win = ? WHERE id = ?`,
		a.Balance, a.Wins, a.TotalGames, a.HighestWin, a.ID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func (s *AccountStore) Leaderboard(ctx context.Context, limit int) ([]*account.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, password_hash, balance, wins, total_games, highest_win, created_at
		 FROM accounts ORDER BY balance DESC, username ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var accounts []*account.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SessionStore implements store.SessionStore over SQLite. Hands and the
// remaining deck are serialized as JSON columns.
type SessionStore struct {
	db *sql.DB
}

var _ store.SessionStore = (*SessionStore)(nil)

const sessionSelect = `SELECT id, player_id, player_hand, dealer_hand, deck, bet_amount, win_amount, status, outcome, created_at, updated_at FROM sessions`

func (s *SessionStore) Create(ctx context.Context, g *blackjack.Game) error {
	playerHand, dealerHand, deckCards, err := marshalCards(g)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, player_id, player_hand, dealer_hand, deck, bet_amount, win_amount, status, outcome, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.PlayerID, playerHand, dealerHand, deckCards,
		g.BetAmount, g.WinAmount, int(g.Status), g.Outcome, toMillis(g.CreatedAt), toMillis(g.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Save(ctx context.Context, g *blackjack.Game) error {
	playerHand, dealerHand, deckCards, err := marshalCards(g)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET player_hand = ?, dealer_hand = ?, deck = ?, win_amount = ?, status = ?, outcome = ?, updated_at = ?
		 WHERE id = ?`,
		playerHand, dealerHand, deckCards, g.WinAmount, int(g.Status), g.Outcome, toMillis(g.UpdatedAt), g.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if n == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

func marshalCards(g *blackjack.Game) (playerHand, dealerHand, deckCards []byte, err error) {
	if playerHand, err = json.Marshal(g.PlayerHand); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal player hand: %w", err)
	}
	if dealerHand, err = json.Marshal(g.DealerHand); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal dealer hand: %w", err)
	}
	if deckCards, err = json.Marshal(g.DeckCards()); err != nil {
		return nil, nil, nil, fmt.Errorf("marshal deck: %w", err)
	}
	return playerHand, dealerHand, deckCards, nil
}

func (s *SessionStore) ByID(ctx context.Context, id string) (*blackjack.Game, error) {
	return s.one(ctx, sessionSelect+` WHERE id = ?`, id)
}

func (s *SessionStore) ActiveByPlayer(ctx context.Context, playerID string) (*blackjack.Game, error) {
	return s.one(ctx,
		sessionSelect+` WHERE player_id = ? AND status = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		playerID, int(blackjack.StatusInProgress))
}

func (s *SessionStore) one(ctx context.Context, query string, args ...any) (*blackjack.Game, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	defer rows.Close()

	games, err := scanSessions(rows)
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, store.ErrSessionNotFound
	}
	return games[0], nil
}

func (s *SessionStore) StaleInProgress(ctx context.Context, cutoff time.Time) ([]*blackjack.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		sessionSelect+` WHERE status = ? AND updated_at < ? ORDER BY created_at ASC`,
		int(blackjack.StatusInProgress), toMillis(cutoff))
	if err != nil {
		return nil, fmt.Errorf("query stale sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func (s *SessionStore) HistoryByPlayer(ctx context.Context, playerID string, limit int) ([]*blackjack.Game, error) {
	rows, err := s.db.QueryContext(ctx,
		sessionSelect+` WHERE player_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query session history: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]*blackjack.Game, error) {
	var games []*blackjack.Game
	for rows.Next() {
		var g blackjack.Game
		var playerHand, dealerHand, deckCards []byte
		var status int
		var createdAt, updatedAt int64
		if err := rows.Scan(&g.ID, &g.PlayerID, &playerHand, &dealerHand, &deckCards,
			&g.BetAmount, &g.WinAmount, &status, &g.Outcome, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}

		if err := json.Unmarshal(playerHand, &g.PlayerHand); err != nil {
			return nil, fmt.Errorf("unmarshal player hand: %w", err)
		}
		if err := json.Unmarshal(dealerHand, &g.DealerHand); err != nil {
			return nil, fmt.Errorf("unmarshal dealer hand: %w", err)
		}
		var remaining []deck.Card
		if err := json.Unmarshal(deckCards, &remaining); err != nil {
			return nil, fmt.Errorf("unmarshal deck: %w", err)
		}
		g.SetDeck(remaining)
		g.Status = blackjack.Status(status)
		g.CreatedAt = fromMillis(createdAt)
		g.UpdatedAt = fromMillis(updatedAt)

		games = append(games, &g)
	}
	return games, rows.Err()
}
