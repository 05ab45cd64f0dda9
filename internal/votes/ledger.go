// Package votes keeps the bot-list vote ledger: coin rewards, streak
// accounting, per-user history and the reminder opt-in set.
package votes

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"warden/internal/config"
	"warden/internal/storage"

	"go.uber.org/zap"
)

const totalVotesKey = "total_votes"

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Event is one inbound vote from the bot-list webhook.
type Event struct {
	UserID    string
	IsWeekend bool
	Type      string
}

// Result describes what a processed vote did to the voter's ledger.
type Result struct {
	Test       bool
	FirstVote  bool
	Streak     int
	Coins      int
	TotalVotes int
	TotalCoins int
}

type Ledger struct {
	store  *storage.Store
	logger *zap.Logger
	cfg    config.VoteConfig
	clock  Clock
	randIn func(n int) int

	mu      sync.Mutex
	optedIn map[string]struct{}
	pending map[string]time.Time
}

func NewLedger(store *storage.Store, logger *zap.Logger, cfg config.VoteConfig) *Ledger {
	return &Ledger{
		store:   store,
		logger:  logger,
		cfg:     cfg,
		clock:   realClock{},
		randIn:  rand.Intn,
		optedIn: make(map[string]struct{}),
		pending: make(map[string]time.Time),
	}
}

func (l *Ledger) WithClock(clock Clock) {
	l.clock = clock
}

// WithRand replaces the coin-draw source, for tests.
func (l *Ledger) WithRand(randIn func(n int) int) {
	l.randIn = randIn
}

// HandleVote applies the streak and coin rules and persists the outcome.
// Test events are logged and dropped.
func (l *Ledger) HandleVote(ctx context.Context, event Event) (Result, error) {
	if event.Type == "test" {
		l.logger.Info("test vote received", zap.String("user_id", event.UserID))
		return Result{Test: true}, nil
	}

	now := l.clock.Now()
	voter, found, err := l.store.GetVoter(ctx, event.UserID)
	if err != nil {
		return Result{}, err
	}

	result := Result{FirstVote: !found}
	window := time.Duration(l.cfg.StreakWindowSeconds) * time.Second

	switch {
	case !found:
		voter.VoteStreak = 1
	case now.Sub(voter.LastVote) > window:
		voter.VoteStreak = 1
	default:
		voter.VoteStreak++
	}
	voter.LastVote = now

	coins := l.drawCoins(event.IsWeekend)
	voter.TotalVotes++
	voter.TotalCoins += coins

	record := storage.VoteEvent{
		UserID:    event.UserID,
		VotedAt:   now,
		IsWeekend: event.IsWeekend,
		Coins:     coins,
	}
	if err := l.store.RecordVote(ctx, voter, record); err != nil {
		return Result{}, err
	}

	// Weekend votes count double toward the global total.
	delta := 1
	if event.IsWeekend {
		delta = 2
	}
	if err := l.store.AddGlobalStat(ctx, totalVotesKey, delta); err != nil {
		l.logger.Warn("global vote total update failed", zap.Error(err))
	}

	result.Streak = voter.VoteStreak
	result.Coins = coins
	result.TotalVotes = voter.TotalVotes
	result.TotalCoins = voter.TotalCoins
	return result, nil
}

func (l *Ledger) drawCoins(weekend bool) int {
	min, max := l.cfg.WeekdayMin, l.cfg.WeekdayMax
	if weekend {
		min, max = l.cfg.WeekendMin, l.cfg.WeekendMax
	}
	if max <= min {
		return min
	}
	return min + l.randIn(max-min+1)
}

// HistoryPage returns one page of a user's vote history, newest first, plus
// the total page count.
func (l *Ledger) HistoryPage(ctx context.Context, userID string, page, perPage int) ([]storage.VoteEvent, int, error) {
	if perPage <= 0 {
		perPage = 10
	}
	total, err := l.store.CountVoteEvents(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	pages := (total + perPage - 1) / perPage
	if pages == 0 {
		pages = 1
	}
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	events, err := l.store.ListVoteEvents(ctx, userID, perPage, page*perPage)
	if err != nil {
		return nil, 0, err
	}
	return events, pages, nil
}

func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]storage.Voter, error) {
	return l.store.TopVoters(ctx, limit)
}

func (l *Ledger) GlobalTotal(ctx context.Context) (int, error) {
	return l.store.GetGlobalStat(ctx, totalVotesKey)
}

// OptInReminders records that the user wants vote reminders and schedules
// the next one relative to now.
func (l *Ledger) OptInReminders(userID string) {
	now := l.clock.Now()
	l.mu.Lock()
	l.optedIn[userID] = struct{}{}
	l.pending[userID] = now
	l.mu.Unlock()
}

func (l *Ledger) RemindersOptedIn(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.optedIn[userID]
	return ok
}

// MarkVoted re-arms the reminder timer for an opted-in user.
func (l *Ledger) MarkVoted(userID string) {
	l.mu.Lock()
	if _, ok := l.optedIn[userID]; ok {
		l.pending[userID] = l.clock.Now()
	}
	l.mu.Unlock()
}

// DueReminders returns every opted-in user whose reminder interval elapsed
// and removes them from the pending set; they are re-added when they vote
// again.
func (l *Ledger) DueReminders() []string {
	interval := time.Duration(l.cfg.ReminderHours) * time.Hour
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	var due []string
	for userID, since := range l.pending {
		if now.Sub(since) >= interval {
			due = append(due, userID)
			delete(l.pending, userID)
		}
	}
	return due
}
