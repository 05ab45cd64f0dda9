package storage

import (
	"context"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)

	settings := GuildSettings{
		GuildID:              "g1",
		Prefix:               "!",
		ReportsChannel:       "c1",
		AlertRole:            "r1",
		MutedRole:            "r2",
		ModLogChannel:        "c2",
		MessageDeleteChannel: "c3",
		MessageEditChannel:   "c4",
		ReportSelf:           true,
		ReportBots:           true,
		ReportAdmins:         false,
		InviteFilter:         true,
		LinkFilter:           false,
	}

	if err := store.UpsertGuildSettings(context.Background(), settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.ReportsChannel = "c9"
	settings.LinkFilter = true
	if err := store.UpsertGuildSettings(context.Background(), settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(context.Background(), "g1", GuildSettings{})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.ReportsChannel != "c9" {
		t.Fatalf("expected channel c9, got %q", got.ReportsChannel)
	}
	if !got.LinkFilter {
		t.Fatalf("expected link filter enabled")
	}
	if got.ReportAdmins {
		t.Fatalf("expected report_admins disabled")
	}
}

func TestGuildSettingsDefaults(t *testing.T) {
	store := newTestStore(t)

	defaults := GuildSettings{Prefix: "?", ReportSelf: true, ReportBots: true, ReportAdmins: true}
	got, err := store.GetGuildSettings(context.Background(), "missing", defaults)
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.GuildID != "missing" {
		t.Fatalf("expected guild id to be filled in, got %q", got.GuildID)
	}
	if got.Prefix != "?" || !got.ReportSelf || got.InviteFilter {
		t.Fatalf("defaults not applied: %+v", got)
	}
}

func TestFilteredWordsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddFilteredWord(ctx, "g1", "Bad"); err != nil {
		t.Fatalf("add word: %v", err)
	}
	if err := store.AddFilteredWord(ctx, "g1", "bad"); err != nil {
		t.Fatalf("add duplicate word: %v", err)
	}
	if err := store.AddFilteredWord(ctx, "g1", "worse"); err != nil {
		t.Fatalf("add second word: %v", err)
	}

	words, err := store.ListFilteredWords(ctx, "g1")
	if err != nil {
		t.Fatalf("list words: %v", err)
	}
	if len(words) != 2 || words[0] != "bad" || words[1] != "worse" {
		t.Fatalf("unexpected words: %v", words)
	}

	if err := store.RemoveFilteredWord(ctx, "g1", "BAD"); err != nil {
		t.Fatalf("remove word: %v", err)
	}
	words, _ = store.ListFilteredWords(ctx, "g1")
	if len(words) != 1 {
		t.Fatalf("expected one word left, got %v", words)
	}
}

func TestRecordVoteAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	voter := Voter{UserID: "u1", VoteStreak: 1, LastVote: now, TotalVotes: 1, TotalCoins: 22}
	event := VoteEvent{UserID: "u1", VotedAt: now, IsWeekend: false, Coins: 22}
	if err := store.RecordVote(ctx, voter, event); err != nil {
		t.Fatalf("record vote: %v", err)
	}

	voter.VoteStreak = 2
	voter.TotalVotes = 2
	voter.TotalCoins += 45
	event = VoteEvent{UserID: "u1", VotedAt: now.Add(time.Hour), IsWeekend: true, Coins: 45}
	if err := store.RecordVote(ctx, voter, event); err != nil {
		t.Fatalf("record second vote: %v", err)
	}

	got, found, err := store.GetVoter(ctx, "u1")
	if err != nil || !found {
		t.Fatalf("get voter: found=%t err=%v", found, err)
	}
	if got.VoteStreak != 2 || got.TotalVotes != 2 || got.TotalCoins != 67 {
		t.Fatalf("unexpected voter: %+v", got)
	}

	events, err := store.ListVoteEvents(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].IsWeekend || events[0].Coins != 45 {
		t.Fatalf("expected newest event first, got %+v", events[0])
	}

	count, err := store.CountVoteEvents(ctx, "u1")
	if err != nil || count != 2 {
		t.Fatalf("count events: count=%d err=%v", count, err)
	}
}

func TestTopVoters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for i, userID := range []string{"u1", "u2", "u3"} {
		voter := Voter{UserID: userID, VoteStreak: i + 1, LastVote: now, TotalVotes: (i + 1) * 3, TotalCoins: 10}
		event := VoteEvent{UserID: userID, VotedAt: now, Coins: 10}
		if err := store.RecordVote(ctx, voter, event); err != nil {
			t.Fatalf("record vote for %s: %v", userID, err)
		}
	}

	top, err := store.TopVoters(ctx, 2)
	if err != nil {
		t.Fatalf("top voters: %v", err)
	}
	if len(top) != 2 || top[0].UserID != "u3" || top[1].UserID != "u2" {
		t.Fatalf("unexpected leaderboard: %+v", top)
	}
}

func TestGlobalStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.AddGlobalStat(ctx, "total_votes", 1); err != nil {
		t.Fatalf("add stat: %v", err)
	}
	if err := store.AddGlobalStat(ctx, "total_votes", 2); err != nil {
		t.Fatalf("add stat again: %v", err)
	}
	value, err := store.GetGlobalStat(ctx, "total_votes")
	if err != nil || value != 3 {
		t.Fatalf("get stat: value=%d err=%v", value, err)
	}
	missing, err := store.GetGlobalStat(ctx, "nope")
	if err != nil || missing != 0 {
		t.Fatalf("missing stat: value=%d err=%v", missing, err)
	}
}

func TestInsertCommandUses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	uses := []CommandUse{
		{GuildID: "g1", UserID: "u1", Command: "report", UsedAt: time.Now()},
		{GuildID: "g1", UserID: "u2", Command: "settings", UsedAt: time.Now()},
	}
	if err := store.InsertCommandUses(ctx, uses); err != nil {
		t.Fatalf("insert command uses: %v", err)
	}
	if err := store.InsertCommandUses(ctx, nil); err != nil {
		t.Fatalf("empty batch should be a no-op: %v", err)
	}
}
