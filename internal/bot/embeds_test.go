package bot

import (
	"io"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "lo...", truncate("longer text", 5))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestEmbedFitsDescriptionBoundary(t *testing.T) {
	embed := &discordgo.MessageEmbed{Description: strings.Repeat("a", embedDescriptionLimit)}
	assert.True(t, embedFits(embed))

	embed.Description += "a"
	assert.False(t, embedFits(embed))
}

func TestEmbedFitsTotalBoundary(t *testing.T) {
	embed := &discordgo.MessageEmbed{
		Title:       strings.Repeat("t", 200),
		Description: strings.Repeat("d", 4000),
		Fields: []*discordgo.MessageEmbedField{
			{Name: strings.Repeat("n", 100), Value: strings.Repeat("v", 1000)},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: strings.Repeat("f", 700)},
	}
	assert.Equal(t, embedTotalLimit, embedTextLength(embed))
	assert.True(t, embedFits(embed))

	embed.Footer.Text += "f"
	assert.False(t, embedFits(embed))
}

func TestEmbedFitsRejectsOversizedField(t *testing.T) {
	embed := &discordgo.MessageEmbed{
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Before", Value: strings.Repeat("v", embedFieldValueLimit+1)},
		},
	}
	assert.False(t, embedFits(embed))
}

func TestBuildLogMessageKeepsSmallEmbed(t *testing.T) {
	embed := baseEmbed("Message deleted", "short content", colorDanger)
	msg := buildLogMessage(embed, "short content")

	assert.Empty(t, msg.Files)
	assert.Equal(t, embed, msg.Embeds[0])
}

func TestBuildLogMessageAttachesOversizedDescription(t *testing.T) {
	content := strings.Repeat("a", 5000)
	embed := baseEmbed("Message deleted", content, colorDanger)
	msg := buildLogMessage(embed, content)

	assert.Len(t, msg.Files, 1)
	assert.Equal(t, "content.txt", msg.Files[0].Name)
	attached, err := io.ReadAll(msg.Files[0].Reader)
	assert.NoError(t, err)
	assert.Equal(t, content, string(attached))

	clipped := msg.Embeds[0]
	assert.True(t, embedFits(clipped))
	assert.Contains(t, clipped.Description, "full content attached")
}

func TestBuildLogMessageAttachesOversizedField(t *testing.T) {
	before := strings.Repeat("b", 3000)
	embed := baseEmbed("Message edited", "", colorWarning)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Before", Value: before},
		{Name: "After", Value: "fine"},
	}
	msg := buildLogMessage(embed, before)

	assert.Len(t, msg.Files, 1)
	clipped := msg.Embeds[0]
	assert.True(t, embedFits(clipped))
	assert.Equal(t, "fine", clipped.Fields[1].Value)
	// The original embed stays untouched for the caller.
	assert.Len(t, embed.Fields[0].Value, 3000)
}

func TestBuildLogMessageClipsTotalOverflow(t *testing.T) {
	embed := baseEmbed("Bulk delete", strings.Repeat("d", 4000), colorDanger)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "a", Value: strings.Repeat("v", 1024)},
		{Name: "b", Value: strings.Repeat("v", 1024)},
		{Name: "c", Value: strings.Repeat("v", 1024)},
	}
	msg := buildLogMessage(embed, "transcript")

	assert.Len(t, msg.Files, 1)
	assert.True(t, embedFits(msg.Embeds[0]))
}

func TestDiffRoles(t *testing.T) {
	added, removed := diffRoles([]string{"a", "b"}, []string{"b", "c"})
	assert.Equal(t, []string{"c"}, added)
	assert.Equal(t, []string{"a"}, removed)

	added, removed = diffRoles([]string{"a"}, []string{"a"})
	assert.Empty(t, added)
	assert.Empty(t, removed)
}
