package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/lox/blackjack/internal/deck"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/randutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() *game.Engine {
	return game.NewEngine(randutil.NewLocked(7), log.New(io.Discard))
}

func newTestManager(t *testing.T) (*Manager, *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	m := NewManager(NewMemoryStore(), newTestEngine(), game.DefaultRules(), log.New(io.Discard), WithClock(clock))
	return m, clock
}

func TestManagerStart(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)

	rec, err := m.Start(ctx, 2, 3)
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)
	assert.Equal(t, clock.Now(), rec.CreatedAt)
	assert.Len(t, rec.Round.Players, 3)
	assert.Equal(t, 2, rec.Round.Rules.DeckCount)
	assert.Equal(t, 104, rec.Round.Shoe.Remaining())

	got, err := m.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Round.ID, got.Round.ID)
}

func TestManagerStartDefaults(t *testing.T) {
	m, _ := newTestManager(t)
	rec, err := m.Start(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Len(t, rec.Round.Players, 1)
	assert.Equal(t, 1, rec.Round.Rules.DeckCount)
}

func TestManagerStartRejectsBadTable(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Start(context.Background(), 9, 1)
	assert.ErrorIs(t, err, game.ErrInvalidOperation)

	_, err = m.Start(context.Background(), 1, 8)
	assert.ErrorIs(t, err, game.ErrInvalidOperation)
}

func TestManagerPlaysARound(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)

	shoe := deck.NewStackedShoe(1, deck.MustParseCards("Ah9cKd5s2h8d"))
	rec, err := m.Start(ctx, 1, 1, game.WithShoe(shoe))
	require.NoError(t, err)

	clock.Advance(time.Minute).MustWait(ctx)
	rec, err = m.PlaceBet(ctx, rec.ID, decimal.NewFromInt(25))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Version)
	assert.Equal(t, time.Minute, rec.UpdatedAt.Sub(rec.CreatedAt))

	rec, err = m.Deal(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, rec.Round.IsOver())
	assert.Equal(t, "337.5", rec.Round.Players[0].Balance.String())

	prevRound := rec.Round.ID
	rec, err = m.NewHand(ctx, rec.ID)
	require.NoError(t, err)
	assert.NotEqual(t, prevRound, rec.Round.ID)
	assert.Equal(t, game.Betting, rec.Round.Phase())
}

func TestManagerFailedOperationLeavesSessionUntouched(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	rec, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)

	_, err = m.Act(ctx, rec.ID, game.Hit)
	kind, ok := game.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, game.WrongTurn, kind)

	got, err := m.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	assert.Equal(t, rec.Round, got.Round)
}

func TestManagerUnknownSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)

	_, err := m.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Deal(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, "missing"), ErrNotFound)
}

func TestManagerConcurrentApply(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t)
	rec, err := m.Start(ctx, 1, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Apply(ctx, rec.ID, func(r *game.Round) (*game.Round, error) {
				next := r.Clone()
				next.Players[0].Balance = next.Players[0].Balance.Add(decimal.NewFromInt(1))
				return next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := m.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(26), got.Version)
	assert.Equal(t, "325", got.Round.Players[0].Balance.String())
}

func TestManagerListAndDelete(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)

	first, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	clock.Advance(time.Second).MustWait(ctx)
	second, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)

	recs, err := m.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, first.ID, recs[0].ID)
	assert.Equal(t, second.ID, recs[1].ID)

	require.NoError(t, m.Delete(ctx, first.ID))
	recs, err = m.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestManagerExpire(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)

	stale, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	clock.Advance(20 * time.Minute).MustWait(ctx)
	fresh, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	clock.Advance(15 * time.Minute).MustWait(ctx)

	n, err := m.Expire(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

// snapshotStore serves List from a copy taken earlier, like a reaper pass
// that read the sessions just before a request landed.
type snapshotStore struct {
	Store
	snapshot []*Record
}

func (s *snapshotStore) List(context.Context) ([]*Record, error) {
	return s.snapshot, nil
}

func TestManagerExpireRechecksUnderLock(t *testing.T) {
	ctx := context.Background()
	clock := quartz.NewMock(t)
	store := &snapshotStore{Store: NewMemoryStore()}
	m := NewManager(store, newTestEngine(), game.DefaultRules(), log.New(io.Discard), WithClock(clock))

	rec, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	clock.Advance(time.Hour).MustWait(ctx)

	stale, err := store.Store.List(ctx)
	require.NoError(t, err)
	store.snapshot = stale

	_, err = m.PlaceBet(ctx, rec.ID, decimal.NewFromInt(25))
	require.NoError(t, err)

	n, err := m.Expire(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = m.Get(ctx, rec.ID)
	assert.NoError(t, err, "session used after the listing survives")
}

func TestManagerExpireSkipsLockedSession(t *testing.T) {
	ctx := context.Background()
	m, clock := newTestManager(t)

	rec, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)
	clock.Advance(time.Hour).MustWait(ctx)

	unlock, err := m.store.Lock(ctx, rec.ID)
	require.NoError(t, err)

	n, err := m.Expire(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	_, err = m.Get(ctx, rec.ID)
	assert.NoError(t, err)

	unlock()
	n, err = m.Expire(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestManagerReaper(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m, clock := newTestManager(t)

	rec, err := m.Start(ctx, 1, 1)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- m.RunReaper(ctx, time.Minute, 90*time.Second) }()

	assert.Eventually(t, func() bool {
		clock.Advance(time.Minute).MustWait(ctx)
		_, err := m.Get(ctx, rec.ID)
		return errors.Is(err, ErrNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
