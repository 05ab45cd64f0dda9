package votes

import (
	"context"
	"testing"
	"time"

	"warden/internal/config"
	"warden/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestLedger(t *testing.T) (*Ledger, *fakeClock, *storage.Store) {
	t.Helper()
	store, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())

	clock := &fakeClock{now: time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)}
	ledger := NewLedger(store, zap.NewNop(), config.DefaultConfig().Votes)
	ledger.WithClock(clock)
	return ledger, clock, store
}

func TestFirstWeekdayVote(t *testing.T) {
	ledger, _, store := newTestLedger(t)
	ctx := context.Background()

	result, err := ledger.HandleVote(ctx, Event{UserID: "u1", IsWeekend: false})
	require.NoError(t, err)
	assert.True(t, result.FirstVote)
	assert.Equal(t, 1, result.Streak)
	assert.GreaterOrEqual(t, result.Coins, 20)
	assert.LessOrEqual(t, result.Coins, 25)

	events, err := store.ListVoteEvents(ctx, "u1", 10, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, result.Coins, events[0].Coins)
}

func TestWeekendCoinsAndDoubleCount(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	result, err := ledger.HandleVote(ctx, Event{UserID: "u1", IsWeekend: true})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.Coins, 40)
	assert.LessOrEqual(t, result.Coins, 50)

	total, err := ledger.GlobalTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	_, err = ledger.HandleVote(ctx, Event{UserID: "u2", IsWeekend: false})
	require.NoError(t, err)
	total, err = ledger.GlobalTotal(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestStreakIncrementsWithinWindow(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()

	result, err := ledger.HandleVote(ctx, Event{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, 1, result.Streak)

	clock.now = clock.now.Add(23 * time.Hour)
	result, err = ledger.HandleVote(ctx, Event{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Streak)
	assert.False(t, result.FirstVote)

	// Exactly at the boundary still counts as a continuation.
	clock.now = clock.now.Add(24 * time.Hour)
	result, err = ledger.HandleVote(ctx, Event{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Streak)
}

func TestStreakResetsAfterThirtyHours(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := ledger.HandleVote(ctx, Event{UserID: "u1"})
		require.NoError(t, err)
		clock.now = clock.now.Add(12 * time.Hour)
	}

	clock.now = clock.now.Add(30 * time.Hour)
	result, err := ledger.HandleVote(ctx, Event{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Streak, "gap beyond 24h resets the streak regardless of prior value")
}

func TestTestVoteIsDropped(t *testing.T) {
	ledger, _, store := newTestLedger(t)
	ctx := context.Background()

	result, err := ledger.HandleVote(ctx, Event{UserID: "u1", Type: "test"})
	require.NoError(t, err)
	assert.True(t, result.Test)

	_, found, err := store.GetVoter(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found, "test votes must not touch the ledger")
}

func TestHistoryPagination(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := ledger.HandleVote(ctx, Event{UserID: "u1"})
		require.NoError(t, err)
		clock.now = clock.now.Add(time.Hour)
	}

	events, pages, err := ledger.HistoryPage(ctx, "u1", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)
	assert.Len(t, events, 5)

	events, _, err = ledger.HistoryPage(ctx, "u1", 2, 5)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Out-of-range pages clamp instead of erroring.
	events, _, err = ledger.HistoryPage(ctx, "u1", 99, 5)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, pages, err = ledger.HistoryPage(ctx, "nobody", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, pages)
	assert.Empty(t, events)
}

func TestReminderLifecycle(t *testing.T) {
	ledger, clock, _ := newTestLedger(t)

	assert.False(t, ledger.RemindersOptedIn("u1"))
	ledger.OptInReminders("u1")
	assert.True(t, ledger.RemindersOptedIn("u1"))

	assert.Empty(t, ledger.DueReminders())

	clock.now = clock.now.Add(13 * time.Hour)
	due := ledger.DueReminders()
	require.Equal(t, []string{"u1"}, due)

	// Removed from pending until the next vote re-arms it.
	assert.Empty(t, ledger.DueReminders())

	ledger.MarkVoted("u1")
	clock.now = clock.now.Add(13 * time.Hour)
	assert.Equal(t, []string{"u1"}, ledger.DueReminders())
}

func TestDrawCoinsDegenerateRange(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ledger.cfg.WeekdayMin = 7
	ledger.cfg.WeekdayMax = 7
	assert.Equal(t, 7, ledger.drawCoins(false))
}
