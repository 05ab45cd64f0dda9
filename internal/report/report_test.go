package report

import (
	"testing"
	"time"

	"warden/internal/settings"
	"warden/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func guildWith(mutate func(*settings.Guild)) settings.Guild {
	guild := settings.Guild{GuildSettings: storage.GuildSettings{
		GuildID:        "g1",
		ReportsChannel: "c1",
		ReportSelf:     true,
		ReportBots:     true,
		ReportAdmins:   true,
	}}
	if mutate != nil {
		mutate(&guild)
	}
	return guild
}

func newChecker() (*Checker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)}
	checker := NewChecker()
	checker.WithClock(clock)
	return checker, clock
}

func TestMissingReportsChannelShortCircuits(t *testing.T) {
	checker, _ := newChecker()
	guild := guildWith(func(g *settings.Guild) { g.ReportsChannel = "" })

	err := checker.Check(guild, "u1", Target{UserID: "u2"})
	assert.ErrorIs(t, err, ErrNoReportsChannel)
}

func TestCooldown(t *testing.T) {
	checker, clock := newChecker()
	guild := guildWith(nil)

	require.NoError(t, checker.Check(guild, "u1", Target{UserID: "u2"}))
	checker.MarkReported("u1")

	clock.now = clock.now.Add(3 * time.Second)
	err := checker.Check(guild, "u1", Target{UserID: "u2"})
	var cooldown CooldownError
	require.ErrorAs(t, err, &cooldown)
	assert.Equal(t, 7*time.Second, cooldown.Remaining)

	// Another reporter is unaffected.
	assert.NoError(t, checker.Check(guild, "u9", Target{UserID: "u2"}))

	clock.now = clock.now.Add(8 * time.Second)
	assert.NoError(t, checker.Check(guild, "u1", Target{UserID: "u2"}))
}

func TestEligibilityToggles(t *testing.T) {
	checker, _ := newChecker()

	guild := guildWith(func(g *settings.Guild) { g.ReportSelf = false })
	assert.ErrorIs(t, checker.Check(guild, "u1", Target{UserID: "u1"}), ErrSelfReport)
	assert.NoError(t, checker.Check(guild, "u1", Target{UserID: "u2"}))

	guild = guildWith(func(g *settings.Guild) { g.ReportBots = false })
	assert.ErrorIs(t, checker.Check(guild, "u1", Target{UserID: "u2", IsBot: true}), ErrBotReport)

	guild = guildWith(func(g *settings.Guild) { g.ReportAdmins = false })
	assert.ErrorIs(t, checker.Check(guild, "u1", Target{UserID: "u2", IsAdmin: true}), ErrAdminReport)

	// Defaults allow all three.
	guild = guildWith(nil)
	assert.NoError(t, checker.Check(guild, "u1", Target{UserID: "u1"}))
	assert.NoError(t, checker.Check(guild, "u1", Target{UserID: "u2", IsBot: true}))
	assert.NoError(t, checker.Check(guild, "u1", Target{UserID: "u2", IsAdmin: true}))
}
