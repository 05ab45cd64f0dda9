package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Platform embed limits. Descriptions cap at 4096 characters and the sum of
// every text part in an embed caps at 6000.
const (
	embedDescriptionLimit = 4096
	embedTotalLimit       = 6000
	embedFieldValueLimit  = 1024
)

const (
	colorAction  = 0x3498db
	colorWarning = 0xe67e22
	colorDanger  = 0xe74c3c
	colorSuccess = 0x2ecc71
	colorNeutral = 0x95a5a6
)

func baseEmbed(title, description string, color int) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}

// embedTextLength counts every character the platform counts toward the
// 6000-character ceiling.
func embedTextLength(embed *discordgo.MessageEmbed) int {
	total := len(embed.Title) + len(embed.Description)
	for _, field := range embed.Fields {
		total += len(field.Name) + len(field.Value)
	}
	if embed.Footer != nil {
		total += len(embed.Footer.Text)
	}
	if embed.Author != nil {
		total += len(embed.Author.Name)
	}
	return total
}

func embedFits(embed *discordgo.MessageEmbed) bool {
	if len(embed.Description) > embedDescriptionLimit || embedTextLength(embed) > embedTotalLimit {
		return false
	}
	for _, field := range embed.Fields {
		if len(field.Value) > embedFieldValueLimit {
			return false
		}
	}
	return true
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	if limit <= 3 {
		return s[:limit]
	}
	return s[:limit-3] + "..."
}

// buildLogMessage decides how an event renders. Callers put the raw,
// untruncated content on the embed; anything over the platform limits gets
// clipped in place and shipped in full as a text attachment, so nothing a
// moderator might need disappears.
func buildLogMessage(embed *discordgo.MessageEmbed, overflow string) *discordgo.MessageSend {
	if embedFits(embed) {
		return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	}

	full := overflow
	if full == "" {
		full = embed.Description
	}
	clipped := *embed
	if len(embed.Description) > embedDescriptionLimit {
		clipped.Description = truncate(embed.Description, 1000) + "\n*(full content attached)*"
	}
	if len(embed.Fields) > 0 {
		fields := make([]*discordgo.MessageEmbedField, len(embed.Fields))
		for i, field := range embed.Fields {
			cf := *field
			cf.Value = truncate(cf.Value, embedFieldValueLimit)
			fields[i] = &cf
		}
		clipped.Fields = fields
	}

	// Field clipping alone may leave the total over the ceiling; the
	// description absorbs the rest.
	if excess := embedTextLength(&clipped) - embedTotalLimit; excess > 0 {
		keep := len(clipped.Description) - excess
		if keep < 0 {
			keep = 0
		}
		clipped.Description = truncate(clipped.Description, keep)
	}

	return &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{&clipped},
		Files: []*discordgo.File{{
			Name:        "content.txt",
			ContentType: "text/plain",
			Reader:      strings.NewReader(full),
		}},
	}
}

// sendLogEmbed delivers an embed to a log channel, falling back to a text
// attachment when the content is too large for the embed.
func (b *Bot) sendLogEmbed(channelID string, embed *discordgo.MessageEmbed, overflow string) DeliveryResult {
	if channelID == "" || embed == nil {
		return DeliveryOk
	}
	_, err := b.session.ChannelMessageSendComplex(channelID, buildLogMessage(embed, overflow))
	return classifyDelivery(err)
}
