package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"warden/internal/actionlog"
	"warden/internal/auditlog"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// fetchDeleteEntries pulls the latest message-delete audit entries and maps
// them into the correlator's shape. Count arrives as a string option on the
// platform side.
func (b *Bot) fetchDeleteEntries(guildID string) []auditlog.Entry {
	logs, err := b.session.GuildAuditLog(guildID, "", "", int(discordgo.AuditLogActionMessageDelete), 25)
	if err != nil || logs == nil {
		return nil
	}

	var entries []auditlog.Entry
	for _, raw := range logs.AuditLogEntries {
		if raw == nil {
			continue
		}
		entry := auditlog.Entry{
			ID:       raw.ID,
			ActorID:  raw.UserID,
			TargetID: raw.TargetID,
		}
		if raw.Options != nil {
			entry.ChannelID = raw.Options.ChannelID
			if count, err := strconv.Atoi(raw.Options.Count); err == nil {
				entry.Count = count
			}
		}
		if ts, err := discordgo.SnowflakeTimestamp(raw.ID); err == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	return entries
}

func describeAttribution(attribution auditlog.Attribution) string {
	switch attribution.Confidence {
	case auditlog.ConfidenceModerator, auditlog.ConfidenceBatched:
		return mention(attribution.ActorID)
	default:
		return "the author or a bot"
	}
}

func (b *Bot) onMessageDelete(session *discordgo.Session, event *discordgo.MessageDelete) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()
	guild := b.guildSettings(ctx, event.GuildID)
	if guild.MessageDeleteChannel == "" {
		return
	}

	cached, known := b.messages.Get(event.ID)
	b.messages.Remove(event.ID)

	var attribution auditlog.Attribution
	if known {
		attribution = b.attrib.AttributeDelete(cached.AuthorID, event.ChannelID, b.fetchDeleteEntries(event.GuildID))
	}

	embed := baseEmbed("Message deleted", "", colorDanger)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Channel", Value: channelMention(event.ChannelID), Inline: true},
	}
	overflow := ""
	if known {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "Author", Value: fmt.Sprintf("%s (%s)", mention(cached.AuthorID), cached.AuthorTag), Inline: true},
			&discordgo.MessageEmbedField{Name: "Deleted by", Value: describeAttribution(attribution), Inline: true},
		)
		embed.Description = orDash(cached.Content)
		overflow = cached.Content
		if len(cached.Attachments) > 0 {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:   "Attachments",
				Value:  truncate(strings.Join(cached.Attachments, "\n"), embedFieldValueLimit),
				Inline: false,
			})
		}
	} else {
		embed.Description = "Content unknown: the message was not in the cache."
	}
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if result := b.sendLogEmbed(guild.MessageDeleteChannel, embed, overflow); result == DeliveryFailed {
		b.logger.Warn("delete log not delivered", zap.String("guild_id", event.GuildID))
	}
}

func (b *Bot) onMessageDeleteBulk(session *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	if event.GuildID == "" {
		return
	}
	ctx := context.Background()
	guild := b.guildSettings(ctx, event.GuildID)
	if guild.MessageDeleteChannel == "" {
		return
	}

	// Snowflake IDs grow with time, so descending ID order renders the
	// transcript newest first.
	ids := append([]string(nil), event.Messages...)
	sort.Slice(ids, func(i, j int) bool {
		left, _ := strconv.ParseUint(ids[i], 10, 64)
		right, _ := strconv.ParseUint(ids[j], 10, 64)
		return left > right
	})

	var lines []string
	for _, id := range ids {
		if cached, ok := b.messages.Get(id); ok {
			lines = append(lines, fmt.Sprintf("[%s] %s", cached.AuthorTag, cached.Content))
		}
		b.messages.Remove(id)
	}

	transcript := strings.Join(lines, "\n")
	summary := fmt.Sprintf("%d messages deleted in %s, %d of them cached.",
		len(event.Messages), channelMention(event.ChannelID), len(lines))
	embed := baseEmbed("Bulk delete", summary, colorDanger)
	if transcript != "" {
		// Short transcripts render inline; anything over the embed limits
		// falls back to the attachment path.
		embed.Description = summary + "\n\n" + transcript
	}
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if result := b.sendLogEmbed(guild.MessageDeleteChannel, embed, transcript); result == DeliveryFailed {
		b.logger.Warn("bulk delete log not delivered", zap.String("guild_id", event.GuildID))
	}
}

func (b *Bot) onMessageUpdate(session *discordgo.Session, event *discordgo.MessageUpdate) {
	if event.GuildID == "" || event.Author == nil || event.Author.Bot {
		return
	}
	ctx := context.Background()
	guild := b.guildSettings(ctx, event.GuildID)

	before, known := b.messages.Get(event.ID)
	b.cacheMessage(event.Message)

	// Embed unfurls fire an update with unchanged content; skip those.
	if known && before.Content == event.Content {
		return
	}

	// An edit can introduce filtered content that the original lacked.
	if b.runFilters(ctx, session, event.Message, guild) {
		return
	}
	if guild.MessageEditChannel == "" {
		return
	}

	embed := baseEmbed("Message edited", "", colorWarning)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Author", Value: mention(event.Author.ID), Inline: true},
		{Name: "Channel", Value: channelMention(event.ChannelID), Inline: true},
	}
	beforeText := "Content unknown: the message was not in the cache."
	if known {
		beforeText = before.Content
	}
	embed.Fields = append(embed.Fields,
		&discordgo.MessageEmbedField{Name: "Before", Value: orDash(beforeText), Inline: false},
		&discordgo.MessageEmbedField{Name: "After", Value: orDash(event.Content), Inline: false},
	)
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)

	overflow := fmt.Sprintf("Before:\n%s\n\nAfter:\n%s", beforeText, event.Content)
	b.sendLogEmbed(guild.MessageEditChannel, embed, overflow)
}

func (b *Bot) onGuildMemberUpdate(session *discordgo.Session, event *discordgo.GuildMemberUpdate) {
	if event.GuildID == "" || event.User == nil || event.BeforeUpdate == nil {
		return
	}
	ctx := context.Background()
	guild := b.guildSettings(ctx, event.GuildID)
	if guild.ModLogChannel == "" {
		return
	}

	var changes []string
	if event.Nick != event.BeforeUpdate.Nick {
		changes = append(changes, fmt.Sprintf("nickname: %q to %q", event.BeforeUpdate.Nick, event.Nick))
	}
	if added, removed := diffRoles(event.BeforeUpdate.Roles, event.Roles); len(added)+len(removed) > 0 {
		for _, role := range added {
			changes = append(changes, "role added: "+roleMention(role))
		}
		for _, role := range removed {
			changes = append(changes, "role removed: "+roleMention(role))
		}
	}
	if len(changes) == 0 {
		return
	}

	b.actions.Log(ctx, event.GuildID, event.User.ID, actionlog.KindMemberUpdate, strings.Join(changes, "; "))
}

func diffRoles(before, after []string) (added, removed []string) {
	have := make(map[string]struct{}, len(before))
	for _, role := range before {
		have[role] = struct{}{}
	}
	for _, role := range after {
		if _, ok := have[role]; ok {
			delete(have, role)
			continue
		}
		added = append(added, role)
	}
	for role := range have {
		removed = append(removed, role)
	}
	return added, removed
}

// roleDeleteAggregator batches rapid role deletions, as in a purge or nuke,
// into one log line instead of one per role.
type roleDeleteAggregator struct {
	mu      sync.Mutex
	byGuild map[string]*roleDeleteBatch
}

type roleDeleteBatch struct {
	count    int
	affected int
	firstAt  time.Time
	timer    *time.Timer
}

func newRoleDeleteAggregator() *roleDeleteAggregator {
	return &roleDeleteAggregator{byGuild: make(map[string]*roleDeleteBatch)}
}

func (b *Bot) onRoleDelete(session *discordgo.Session, event *discordgo.GuildRoleDelete) {
	if event.GuildID == "" {
		return
	}

	// State may still list the role's members at this point; count them so
	// the log can say how many people lost the role.
	affected := b.countRoleMembers(event.GuildID, event.RoleID)

	b.roleAgg.mu.Lock()
	batch, ok := b.roleAgg.byGuild[event.GuildID]
	if !ok {
		batch = &roleDeleteBatch{firstAt: time.Now()}
		b.roleAgg.byGuild[event.GuildID] = batch
		guildID := event.GuildID
		batch.timer = time.AfterFunc(5*time.Second, func() {
			b.flushRoleDeletes(guildID)
		})
	}
	batch.count++
	batch.affected += affected
	b.roleAgg.mu.Unlock()
}

func (b *Bot) countRoleMembers(guildID, roleID string) int {
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return 0
	}
	count := 0
	for _, member := range guild.Members {
		for _, role := range member.Roles {
			if role == roleID {
				count++
				break
			}
		}
	}
	return count
}

func (b *Bot) flushRoleDeletes(guildID string) {
	b.roleAgg.mu.Lock()
	batch, ok := b.roleAgg.byGuild[guildID]
	delete(b.roleAgg.byGuild, guildID)
	b.roleAgg.mu.Unlock()
	if !ok || batch.count == 0 {
		return
	}

	ctx := context.Background()
	details := fmt.Sprintf("%d role(s) deleted within %s, %d member(s) affected",
		batch.count, time.Since(batch.firstAt).Round(time.Second), batch.affected)
	b.actions.Log(ctx, guildID, "", actionlog.KindRoleDelete, details)
}
