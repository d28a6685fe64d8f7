package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/lox/blackjack/internal/game"
	"github.com/shopspring/decimal"
)

// Manager runs engine operations against stored sessions
type Manager struct {
	store  Store
	engine *game.Engine
	rules  game.Rules
	clock  quartz.Clock
	logger *log.Logger
}

// ManagerOption configures a Manager during creation.
type ManagerOption func(*Manager)

// WithClock sets the clock used for activity timestamps and the idle reaper
func WithClock(clock quartz.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

// NewManager creates a manager. rules are the table defaults for new sessions.
func NewManager(store Store, engine *game.Engine, rules game.Rules, logger *log.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		engine: engine,
		rules:  rules,
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("session"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rules returns the table defaults
func (m *Manager) Rules() game.Rules {
	return m.rules
}

// Start opens a new session with its own shoe. Zero decks or players fall back
// to the table default and a single seat.
func (m *Manager) Start(ctx context.Context, decks, players int, opts ...game.RoundOption) (*Record, error) {
	rules := m.rules
	if decks > 0 {
		rules.DeckCount = decks
	}
	if players == 0 {
		players = 1
	}

	round, err := m.engine.StartRound(rules, players, opts...)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	rec := &Record{
		ID:        uuid.NewString(),
		Round:     round,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Info("Session started", "session", rec.ID, "round", round.ID, "players", players, "decks", rules.DeckCount)
	return rec, nil
}

// Get returns the stored session
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	return m.store.Get(ctx, id)
}

// Apply runs fn on the session's round while holding the session lock and
// stores the result. A failing fn leaves the stored session untouched.
func (m *Manager) Apply(ctx context.Context, id string, fn func(*game.Round) (*game.Round, error)) (*Record, error) {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fn(rec.Round)
	if err != nil {
		return nil, err
	}

	rec.Round = next
	rec.UpdatedAt = m.clock.Now()
	rec.Version++
	if err := m.store.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	m.logger.Debug("Session updated", "session", id, "round", next.ID, "phase", next.Phase(), "version", rec.Version)
	return rec, nil
}

// PlaceBet stakes amount for the session's human seat
func (m *Manager) PlaceBet(ctx context.Context, id string, amount decimal.Decimal) (*Record, error) {
	return m.Apply(ctx, id, func(r *game.Round) (*game.Round, error) {
		human := r.Human()
		if human == nil {
			return nil, &game.OperationError{Kind: game.PlayerNotFound, Reason: "no human player at this table"}
		}
		return m.engine.PlaceBet(r, human.ID, amount)
	})
}

// Deal deals the session's round
func (m *Manager) Deal(ctx context.Context, id string) (*Record, error) {
	return m.Apply(ctx, id, m.engine.Deal)
}

// Act applies a hit, stand, double or split for the human seat
func (m *Manager) Act(ctx context.Context, id string, action game.Action) (*Record, error) {
	return m.Apply(ctx, id, func(r *game.Round) (*game.Round, error) {
		return m.engine.Act(r, action)
	})
}

// NewHand moves the session on to its next round
func (m *Manager) NewHand(ctx context.Context, id string) (*Record, error) {
	return m.Apply(ctx, id, m.engine.NewHand)
}

// Delete removes a session
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock, err := m.store.Lock(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.logger.Info("Session deleted", "session", id)
	return nil
}

// List returns every session, oldest first
func (m *Manager) List(ctx context.Context) ([]*Record, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].ID < recs[j].ID
		}
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
	return recs, nil
}

// expireLockWait bounds how long the reaper waits for a busy session. A
// session that is locked is in use, so it is skipped until the next pass.
const expireLockWait = 100 * time.Millisecond

// Expire deletes sessions with no activity for longer than maxIdle and
// returns how many were removed.
func (m *Manager) Expire(ctx context.Context, maxIdle time.Duration) (int, error) {
	recs, err := m.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := m.clock.Now().Add(-maxIdle)
	removed := 0
	for _, rec := range recs {
		if !rec.UpdatedAt.Before(cutoff) {
			continue
		}
		ok, err := m.expire(ctx, rec.ID, cutoff)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

// expire deletes id if it is still idle once its lock is held. The listed
// copy may be stale: an Apply can commit between List and here.
func (m *Manager) expire(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	lockCtx, cancel := context.WithTimeout(ctx, expireLockWait)
	defer cancel()

	unlock, err := m.store.Lock(lockCtx, id)
	if errors.Is(err, ErrLockTimeout) {
		m.logger.Debug("Session busy, not expiring", "session", id)
		return false, ctx.Err()
	}
	if err != nil {
		return false, err
	}
	defer unlock()

	rec, err := m.store.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !rec.UpdatedAt.Before(cutoff) {
		return false, nil
	}

	if err := m.store.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	m.logger.Debug("Session expired", "session", id, "idle", m.clock.Since(rec.UpdatedAt))
	return true, nil
}

// RunReaper expires idle sessions every interval until ctx is cancelled
func (m *Manager) RunReaper(ctx context.Context, interval, maxIdle time.Duration) error {
	ticker := m.clock.NewTicker(interval, "session", "reaper")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Expire(ctx, maxIdle)
			if err != nil {
				m.logger.Warn("Failed to expire sessions", "error", err)
				continue
			}
			if n > 0 {
				m.logger.Info("Expired idle sessions", "count", n)
			}
		}
	}
}
