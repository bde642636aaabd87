package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lox/blackjacktable/internal/account"
	"github.com/lox/blackjacktable/internal/blackjack"
)

// MemoryAccountStore keeps accounts in a mutex-guarded map. It stores and
// returns copies so callers can mutate freely and persist with Save.
type MemoryAccountStore struct {
	mu         sync.RWMutex
	byID       map[string]account.Account
	byUsername map[string]string // username -> id
}

// NewMemoryAccountStore creates an empty account store.
func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:       make(map[string]account.Account),
		byUsername: make(map[string]string),
	}
}

func (s *MemoryAccountStore) Create(ctx context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byUsername[a.Username]; taken {
		return account.ErrUsernameTaken
	}
	s.byID[a.ID] = *a
	s.byUsername[a.Username] = a.ID
	return nil
}

func (s *MemoryAccountStore) ByID(ctx context.Context, id string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return &a, nil
}

func (s *MemoryAccountStore) ByUsername(ctx context.Context, username string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, account.ErrNotFound
	}
	a := s.byID[id]
	return &a, nil
}

func (s *MemoryAccountStore) Save(ctx context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[a.ID]; !ok {
		return account.ErrNotFound
	}
	s.byID[a.ID] = *a
	return nil
}

func (s *MemoryAccountStore) Leaderboard(ctx context.Context, limit int) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]*account.Account, 0, len(s.byID))
	for id := range s.byID {
		a := s.byID[id]
		accounts = append(accounts, &a)
	}

	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Balance != accounts[j].Balance {
			return accounts[i].Balance > accounts[j].Balance
		}
		return accounts[i].Username < accounts[j].Username
	})

	if limit > 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// MemorySessionStore keeps game sessions in a mutex-guarded map. Like the
// account store it stores and returns deep copies, so a caller can marshal or
// mutate a returned game while another goroutine transitions the same session
// and persists with Save.
type MemorySessionStore struct {
	mu       sync.RWMutex
	byID     map[string]*blackjack.Game
	byPlayer map[string][]string // newest id last
}

// NewMemorySessionStore creates an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		byID:     make(map[string]*blackjack.Game),
		byPlayer: make(map[string][]string),
	}
}

func (s *MemorySessionStore) Create(ctx context.Context, g *blackjack.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[g.ID] = g.Clone()
	s.byPlayer[g.PlayerID] = append(s.byPlayer[g.PlayerID], g.ID)
	return nil
}

func (s *MemorySessionStore) ByID(ctx context.Context, id string) (*blackjack.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.byID[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return g.Clone(), nil
}

func (s *MemorySessionStore) Save(ctx context.Context, g *blackjack.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[g.ID]; !ok {
		return ErrSessionNotFound
	}
	s.byID[g.ID] = g.Clone()
	return nil
}

func (s *MemorySessionStore) ActiveByPlayer(ctx context.Context, playerID string) (*blackjack.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPlayer[playerID]
	for i := len(ids) - 1; i >= 0; i-- {
		if g := s.byID[ids[i]]; g != nil && !g.Finished() {
			return g.Clone(), nil
		}
	}
	return nil, ErrSessionNotFound
}

func (s *MemorySessionStore) StaleInProgress(ctx context.Context, cutoff time.Time) ([]*blackjack.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stale []*blackjack.Game
	for _, g := range s.byID {
		if !g.Finished() && g.UpdatedAt.Before(cutoff) {
			stale = append(stale, g.Clone())
		}
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].ID < stale[j].ID })
	return stale, nil
}

func (s *MemorySessionStore) HistoryByPlayer(ctx context.Context, playerID string, limit int) ([]*blackjack.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byPlayer[playerID]
	games := make([]*blackjack.Game, 0, limit)
	for i := len(ids) - 1; i >= 0 && (limit <= 0 || len(games) < limit); i-- {
		if g := s.byID[ids[i]]; g != nil {
			games = append(games, g.Clone())
		}
	}
	return games, nil
}
