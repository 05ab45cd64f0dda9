package bot

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Component and modal custom IDs carry their routing key and arguments as
// colon-separated segments, e.g. "votes:history:2".
const customIDSep = ":"

func customID(parts ...string) string {
	return strings.Join(parts, customIDSep)
}

func splitCustomID(id string) []string {
	return strings.Split(id, customIDSep)
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	defer b.recoverInteraction(session, interaction)

	ctx := context.Background()
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.dispatchCommand(ctx, session, interaction)
	case discordgo.InteractionMessageComponent:
		b.dispatchComponent(ctx, session, interaction)
	case discordgo.InteractionModalSubmit:
		b.dispatchModal(ctx, session, interaction)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	data := interaction.ApplicationCommandData()

	if b.recorder != nil && b.cfg.Telemetry.Enabled {
		b.recorder.Record(interaction.GuildID, interactionUserID(interaction), data.Name)
	}

	switch data.Name {
	case "report":
		b.handleReportCommand(ctx, session, interaction, data)
	case "Report Message":
		b.handleReportMessageCommand(ctx, session, interaction, data)
	case "votes":
		b.handleVotesCommand(ctx, session, interaction, data)
	case "filter":
		b.handleFilterCommand(ctx, session, interaction, data)
	case "settings":
		b.handleSettingsCommand(ctx, session, interaction)
	case "diag":
		b.handleDiagCommand(ctx, session, interaction)
	}
}

func (b *Bot) dispatchComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	parts := splitCustomID(interaction.MessageComponentData().CustomID)
	switch parts[0] {
	case "votes":
		b.handleVotesComponent(ctx, session, interaction, parts)
	case "settings":
		b.handleSettingsComponent(ctx, session, interaction, parts)
	}
}

func (b *Bot) dispatchModal(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	parts := splitCustomID(interaction.ModalSubmitData().CustomID)
	switch parts[0] {
	case "report":
		b.handleReportModal(ctx, session, interaction, parts)
	case "settings":
		b.handleSettingsModal(ctx, session, interaction, parts)
	}
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func (b *Bot) handleFilterCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if interaction.GuildID == "" {
		b.respond(session, interaction, "This command only works inside a guild.", true)
		return
	}
	if len(data.Options) == 0 || len(data.Options[0].Options) == 0 {
		return
	}

	group := data.Options[0]
	sub := group.Options[0]
	value := ""
	if len(sub.Options) > 0 {
		value = strings.TrimSpace(sub.Options[0].StringValue())
	}

	switch group.Name {
	case "word":
		b.handleWordList(ctx, session, interaction, sub.Name, value)
	case "whitelist":
		b.handleWhitelist(ctx, session, interaction, sub.Name, value)
	}
}

func (b *Bot) handleWordList(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, action, word string) {
	switch action {
	case "add":
		if word == "" {
			b.respond(session, interaction, "Give me a word to add.", true)
			return
		}
		if err := b.settings.AddWord(ctx, interaction.GuildID, strings.ToLower(word)); err != nil {
			b.respond(session, interaction, "Could not save that word.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Added `%s` to the word filter.", word), true)
	case "remove":
		if err := b.settings.RemoveWord(ctx, interaction.GuildID, strings.ToLower(word)); err != nil {
			b.respond(session, interaction, "Could not remove that word.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Removed `%s` from the word filter.", word), true)
	case "list":
		guild := b.guildSettings(ctx, interaction.GuildID)
		if len(guild.FilteredWords) == 0 {
			b.respond(session, interaction, "No filtered words configured.", true)
			return
		}
		embed := baseEmbed("Filtered words", truncate("`"+strings.Join(guild.FilteredWords, "`, `")+"`", embedDescriptionLimit), colorNeutral)
		b.respondEmbed(session, interaction, embed, true)
	}
}

func (b *Bot) handleWhitelist(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, action, pattern string) {
	switch action {
	case "add":
		if pattern == "" {
			b.respond(session, interaction, "Give me a pattern to whitelist.", true)
			return
		}
		if err := b.settings.AddWhitelist(ctx, interaction.GuildID, pattern); err != nil {
			b.respond(session, interaction, "Could not save that pattern.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Whitelisted `%s` for the link filter.", pattern), true)
	case "remove":
		if err := b.settings.RemoveWhitelist(ctx, interaction.GuildID, pattern); err != nil {
			b.respond(session, interaction, "Could not remove that pattern.", true)
			return
		}
		b.respond(session, interaction, fmt.Sprintf("Removed `%s` from the link whitelist.", pattern), true)
	case "list":
		guild := b.guildSettings(ctx, interaction.GuildID)
		if len(guild.WhitelistedLinks) == 0 {
			b.respond(session, interaction, "No whitelisted link patterns.", true)
			return
		}
		embed := baseEmbed("Whitelisted link patterns", truncate("`"+strings.Join(guild.WhitelistedLinks, "`, `")+"`", embedDescriptionLimit), colorNeutral)
		b.respondEmbed(session, interaction, embed, true)
	}
}

func (b *Bot) handleDiagCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interactionUserID(interaction) != b.cfg.OwnerID {
		b.respond(session, interaction, "Owner only.", true)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(b.startedAt).Round(time.Second)
	fields := []*discordgo.MessageEmbedField{
		{Name: "Uptime", Value: uptime.String(), Inline: true},
		{Name: "Guilds", Value: fmt.Sprintf("%d", b.GuildCount()), Inline: true},
		{Name: "Cached messages", Value: fmt.Sprintf("%d", b.messages.Len()), Inline: true},
		{Name: "Heap", Value: fmt.Sprintf("%.1f MiB", float64(mem.HeapAlloc)/(1<<20)), Inline: true},
		{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
	}
	if b.recorder != nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Pending telemetry", Value: fmt.Sprintf("%d", b.recorder.Pending()), Inline: true,
		})
	}
	if total, err := b.ledger.GlobalTotal(ctx); err == nil {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name: "Global votes", Value: fmt.Sprintf("%d", total), Inline: true,
		})
	}

	embed := baseEmbed("Diagnostics", "", colorNeutral)
	embed.Fields = fields
	b.respondEmbed(session, interaction, embed, true)
}
