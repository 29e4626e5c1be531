// Package ledger holds the authoritative in-memory copy of every user and
// persists changes to storage behind the caller's back.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

// Ledger is the authoritative per-user state. Reads return copies; writes go
// through Update so each mutation is applied atomically or not at all.
type Ledger struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	users    map[string]*model.User
	inflight map[string]*sync.Mutex
	dirty    map[string]struct{}

	// persistMu serializes write-behind passes
	persistMu sync.Mutex
	wake      chan struct{}
}

// New creates an empty Ledger
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Ledger {
	return &Ledger{
		storage:  storage,
		clock:    clock,
		logger:   logger.With(slog.String("component", "ledger")),
		users:    make(map[string]*model.User),
		inflight: make(map[string]*sync.Mutex),
		dirty:    make(map[string]struct{}),
		wake:     make(chan struct{}, 1),
	}
}

// Load fills the cache from storage. Entries already in memory win.
func (l *Ledger) Load(ctx context.Context) error {
	users, err := l.storage.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range users {
		if _, ok := l.users[u.Username]; !ok {
			l.users[u.Username] = u.Clone()
		}
	}
	l.logger.Info("ledger loaded", slog.Int("users", len(users)))
	return nil
}

// Create adds a new user. Returns ErrUsernameTaken if the name is in use.
func (l *Ledger) Create(ctx context.Context, user *model.User) error {
	l.mu.Lock()
	if _, ok := l.users[user.Username]; ok {
		l.mu.Unlock()
		return model.ErrUsernameTaken
	}
	l.users[user.Username] = user.Clone()
	l.dirty[user.Username] = struct{}{}
	l.mu.Unlock()

	l.signal()
	return nil
}

// Get returns a copy of the user
func (l *Ledger) Get(username string) (*model.User, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	u, ok := l.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return u.Clone(), nil
}

// Exists reports whether the user is known
func (l *Ledger) Exists(username string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.users[username]
	return ok
}

// Update applies fn to a working copy of the user and commits it only if fn
// returns nil. The committed copy is returned. The user is queued for persistence.
func (l *Ledger) Update(username string, fn func(u *model.User) error) (*model.User, error) {
	l.mu.Lock()
	current, ok := l.users[username]
	if !ok {
		l.mu.Unlock()
		return nil, model.ErrUserNotFound
	}

	working := current.Clone()
	if err := fn(working); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if working.Coins < 0 {
		l.mu.Unlock()
		return nil, model.ErrInsufficientFunds
	}
	working.UpdatedAt = l.clock.Now()
	l.users[username] = working
	l.dirty[username] = struct{}{}
	committed := working.Clone()
	l.mu.Unlock()

	l.signal()
	return committed, nil
}

// TryAcquire takes the user's in-flight lock without waiting. The returned
// release func must be called exactly once when ok is true.
func (l *Ledger) TryAcquire(username string) (release func(), ok bool) {
	l.mu.Lock()
	m, found := l.inflight[username]
	if !found {
		m = &sync.Mutex{}
		l.inflight[username] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}

// Acquire takes the user's in-flight lock, waiting for a running
// transaction to finish. Used by admin actions that must not be refused.
func (l *Ledger) Acquire(username string) (release func()) {
	l.mu.Lock()
	m, found := l.inflight[username]
	if !found {
		m = &sync.Mutex{}
		l.inflight[username] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Users returns copies of every user
func (l *Ledger) Users() []*model.User {
	l.mu.RLock()
	defer l.mu.RUnlock()
	users := make([]*model.User, 0, len(l.users))
	for _, u := range l.users {
		users = append(users, u.Clone())
	}
	return users
}

// LeaderboardEntry is one row of the coin leaderboard
type LeaderboardEntry struct {
	Username    string `json:"username"`
	Coins       int64  `json:"coins"`
	Debt        int64  `json:"debt"`
	TotalPoints int    `json:"totalPoints"`
}

// Leaderboard returns up to limit users ordered by net worth, then name
func (l *Ledger) Leaderboard(limit int) []LeaderboardEntry {
	users := l.Users()
	sort.Slice(users, func(i, j int) bool {
		ni, nj := users[i].Coins-users[i].Debt, users[j].Coins-users[j].Debt
		if ni != nj {
			return ni > nj
		}
		return users[i].Username < users[j].Username
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}

	entries := make([]LeaderboardEntry, len(users))
	for i, u := range users {
		entries[i] = LeaderboardEntry{
			Username:    u.Username,
			Coins:       u.Coins,
			Debt:        u.Debt,
			TotalPoints: u.Stats.TotalPoints,
		}
	}
	return entries
}

// Pending returns how many users are waiting to be persisted
func (l *Ledger) Pending() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.dirty)
}

// Run persists dirty users whenever a mutation lands, until ctx is cancelled
func (l *Ledger) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.wake:
			if err := l.persist(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.logger.Warn("write-behind failed, will retry on next mutation", slog.String("error", err.Error()))
			}
		}
	}
}

// Flush synchronously persists every dirty user
func (l *Ledger) Flush(ctx context.Context) error {
	return l.persist(ctx)
}

func (l *Ledger) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// persist writes the current copy of every dirty user. Users that fail to
// save stay dirty so the next pass retries them.
func (l *Ledger) persist(ctx context.Context) error {
	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	l.mu.Lock()
	batch := make([]*model.User, 0, len(l.dirty))
	for name := range l.dirty {
		if u, ok := l.users[name]; ok {
			batch = append(batch, u.Clone())
		}
		delete(l.dirty, name)
	}
	l.mu.Unlock()

	var errs []error
	for _, u := range batch {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := l.storage.SaveUser(saveCtx, u)
		cancel()
		if err != nil {
			l.mu.Lock()
			l.dirty[u.Username] = struct{}{}
			l.mu.Unlock()
			errs = append(errs, fmt.Errorf("save user %s: %w", u.Username, err))
		}
	}
	return errors.Join(errs...)
}
