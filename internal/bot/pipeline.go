package bot

import (
	"context"
	"fmt"
	"time"

	"warden/internal/actionlog"
	"warden/internal/msgcache"
	"warden/internal/settings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	if msg.Author == nil || msg.Author.Bot {
		return
	}
	if msg.GuildID == "" {
		return
	}

	b.cacheMessage(msg.Message)

	ctx := context.Background()
	guild := b.guildSettings(ctx, msg.GuildID)

	b.runFilters(ctx, session, msg.Message, guild)
}

// runFilters scans a message in fixed order and short-circuits on the first
// match; a message never triggers two interventions. Used for both new
// messages and edits, since an edit can introduce filtered content.
func (b *Bot) runFilters(ctx context.Context, session *discordgo.Session, msg *discordgo.Message, guild settings.Guild) bool {
	for _, filter := range b.filters {
		match, hit := filter.Check(msg.Content, guild)
		if !hit {
			continue
		}
		b.intervene(ctx, session, msg, match.Filter, match.Reason)
		return true
	}
	return false
}

func (b *Bot) cacheMessage(msg *discordgo.Message) {
	cached := msgcache.Message{
		ID:        msg.ID,
		ChannelID: msg.ChannelID,
		GuildID:   msg.GuildID,
		Content:   msg.Content,
	}
	if msg.Author != nil {
		cached.AuthorID = msg.Author.ID
		cached.AuthorTag = msg.Author.String()
	}
	for _, attachment := range msg.Attachments {
		cached.Attachments = append(cached.Attachments, attachment.URL)
	}
	b.messages.Put(cached)
}

// intervene deletes the offending message, times the author out, and logs
// the action. Each step is best effort: a message already gone or a member
// the bot cannot touch must not stop the rest.
func (b *Bot) intervene(ctx context.Context, session *discordgo.Session, msg *discordgo.Message, filterName, reason string) {
	deleteResult := classifyDelivery(session.ChannelMessageDelete(msg.ChannelID, msg.ID))
	switch deleteResult {
	case DeliveryOk, DeliveryAlreadyGone:
	default:
		b.logger.Warn("filtered message not deleted",
			zap.String("guild_id", msg.GuildID),
			zap.String("message_id", msg.ID),
			zap.String("result", deleteResult.String()))
	}
	b.messages.Remove(msg.ID)

	minutes := b.cfg.Filters.TimeoutMinutes
	if minutes <= 0 {
		minutes = 10
	}
	until := time.Now().Add(time.Duration(minutes) * time.Minute)
	timeoutResult := classifyDelivery(session.GuildMemberTimeout(msg.GuildID, msg.Author.ID, &until))
	if timeoutResult == DeliveryForbidden {
		// Guilds that predate timeouts can still have a muted role configured.
		if guild := b.guildSettings(ctx, msg.GuildID); guild.MutedRole != "" {
			timeoutResult = classifyDelivery(session.GuildMemberRoleAdd(msg.GuildID, msg.Author.ID, guild.MutedRole))
		}
	}
	switch timeoutResult {
	case DeliveryOk, DeliveryForbidden:
	default:
		b.logger.Warn("filter timeout not applied",
			zap.String("guild_id", msg.GuildID),
			zap.String("user_id", msg.Author.ID),
			zap.String("result", timeoutResult.String()))
	}

	details := fmt.Sprintf("%s | delete=%s timeout=%s | %s", reason, deleteResult, timeoutResult, truncate(msg.Content, 500))
	kind := actionlog.KindFilterDelete
	if timeoutResult == DeliveryOk {
		kind = actionlog.KindFilterTimeout
	}
	b.actions.Log(ctx, msg.GuildID, msg.Author.ID, kind, details)

	b.logger.Info("message filtered",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.String("filter", filterName))
}
