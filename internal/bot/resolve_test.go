package bot

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStateBot(t *testing.T) *Bot {
	t.Helper()
	state := discordgo.NewState()
	err := state.GuildAdd(&discordgo.Guild{
		ID: "g1",
		Channels: []*discordgo.Channel{
			{ID: "111111111111111111", GuildID: "g1", Name: "General", Type: discordgo.ChannelTypeGuildText},
			{ID: "222222222222222222", GuildID: "g1", Name: "mod-log", Type: discordgo.ChannelTypeGuildText},
			{ID: "333333333333333333", GuildID: "g1", Name: "voice", Type: discordgo.ChannelTypeGuildVoice},
		},
		Roles: []*discordgo.Role{
			{ID: "444444444444444444", Name: "Moderators"},
			{ID: "555555555555555555", Name: "muted"},
		},
	})
	require.NoError(t, err)
	return &Bot{session: &discordgo.Session{State: state}}
}

func TestResolveChannelByName(t *testing.T) {
	b := newStateBot(t)

	id, err := b.resolveChannel("g1", "general")
	require.NoError(t, err)
	assert.Equal(t, "111111111111111111", id)

	// Leading # and mixed case are tolerated.
	id, err = b.resolveChannel("g1", "#MOD-LOG")
	require.NoError(t, err)
	assert.Equal(t, "222222222222222222", id)
}

func TestResolveChannelByIDAndMention(t *testing.T) {
	b := newStateBot(t)

	id, err := b.resolveChannel("g1", "222222222222222222")
	require.NoError(t, err)
	assert.Equal(t, "222222222222222222", id)

	id, err = b.resolveChannel("g1", "<#111111111111111111>")
	require.NoError(t, err)
	assert.Equal(t, "111111111111111111", id)
}

func TestResolveChannelRejectsUnknownAndNonText(t *testing.T) {
	b := newStateBot(t)

	_, err := b.resolveChannel("g1", "nope")
	assert.ErrorIs(t, err, errUnknownChannel)

	// Voice channels are not valid log targets by name.
	_, err = b.resolveChannel("g1", "voice")
	assert.ErrorIs(t, err, errUnknownChannel)

	_, err = b.resolveChannel("g1", "999999999999999999")
	assert.ErrorIs(t, err, errUnknownChannel)
}

func TestResolveRole(t *testing.T) {
	b := newStateBot(t)

	id, err := b.resolveRole("g1", "moderators")
	require.NoError(t, err)
	assert.Equal(t, "444444444444444444", id)

	id, err = b.resolveRole("g1", "<@&555555555555555555>")
	require.NoError(t, err)
	assert.Equal(t, "555555555555555555", id)

	_, err = b.resolveRole("g1", "ghost")
	assert.ErrorIs(t, err, errUnknownRole)
}

func TestClearSentinel(t *testing.T) {
	assert.True(t, clearSentinel("none"))
	assert.True(t, clearSentinel(" None "))
	assert.True(t, clearSentinel("reset"))
	assert.True(t, clearSentinel(""))
	assert.False(t, clearSentinel("general"))
}

func TestIsSnowflake(t *testing.T) {
	assert.True(t, isSnowflake("123456789012345678"))
	assert.False(t, isSnowflake("12345"))
	assert.False(t, isSnowflake("12345678901234567a"))
}
