// Package bot wires the Discord session to the moderation services: the
// filter pipeline, the event log, the report workflow, the vote ledger and
// the per-guild settings UI.
package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"warden/internal/actionlog"
	"warden/internal/auditlog"
	"warden/internal/config"
	"warden/internal/filters"
	"warden/internal/msgcache"
	"warden/internal/report"
	"warden/internal/settings"
	"warden/internal/storage"
	"warden/internal/telemetry"
	"warden/internal/votes"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	settings  settings.Store
	filters   []filters.MessageFilter
	actions   *actionlog.Logger
	attrib    auditlog.Attributor
	ledger    *votes.Ledger
	reports   *report.Checker
	recorder  *telemetry.Recorder
	messages  *msgcache.Cache
	evidence  *reportEvidence
	session   *discordgo.Session
	roleAgg   *roleDeleteAggregator
	panels    *settingsPanels
	startedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func New(cfg config.Config, logger *zap.Logger, store settings.Store, actions *actionlog.Logger, attrib auditlog.Attributor, ledger *votes.Ledger, recorder *telemetry.Recorder) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsMessageContent

	b := &Bot{
		cfg:      cfg,
		logger:   logger,
		settings: store,
		filters: []filters.MessageFilter{
			filters.NewWordFilter(),
			filters.NewInviteFilter(),
			filters.NewLinkFilter(),
		},
		actions:   actions,
		attrib:    attrib,
		ledger:    ledger,
		reports:   report.NewChecker(),
		recorder:  recorder,
		messages:  msgcache.New(),
		evidence:  newReportEvidence(),
		session:   session,
		roleAgg:   newRoleDeleteAggregator(),
		panels:    newSettingsPanels(),
		startedAt: time.Now(),
		stop:      make(chan struct{}),
	}

	if b.actions != nil {
		b.actions.SetNotifier(b.notifyModAction)
	}

	return b, nil
}

// Session exposes the underlying connection for the webhook poster.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) GuildCount() int {
	if b.session.State == nil {
		return 0
	}
	return len(b.session.State.Guilds)
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onGuildMemberUpdate)
	b.session.AddHandler(b.onRoleDelete)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if err := b.registerCommands(); err != nil {
		return err
	}

	b.startReminderLoop()
	b.startPanelSweep()

	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	b.stopOnce.Do(func() { close(b.stop) })
	if b.session != nil {
		_ = b.session.Close()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)))
}

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil {
		return
	}
	b.logger.Info("guild joined",
		zap.String("guild_id", event.ID),
		zap.String("name", event.Name),
		zap.Int("guilds", b.GuildCount()))
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	b.logger.Info("guild left",
		zap.String("guild_id", event.ID),
		zap.Int("guilds", b.GuildCount()))
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) settings.Guild {
	return b.settings.Get(ctx, guildID)
}

// recoverInteraction turns a handler panic into an operator alert and an
// ephemeral apology instead of a dead gateway worker.
func (b *Bot) recoverInteraction(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	r := recover()
	if r == nil {
		return
	}
	b.logger.Error("interaction handler panicked",
		zap.Any("panic", r),
		zap.String("stack", string(debug.Stack())))

	if b.cfg.OperatorChannel != "" {
		detail := fmt.Sprintf("Interaction handler panicked: `%v`", r)
		embed := baseEmbed("Handler panic", truncate(detail, embedDescriptionLimit), colorDanger)
		_, _ = session.ChannelMessageSendComplex(b.cfg.OperatorChannel, &discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{embed},
			Files: []*discordgo.File{{
				Name:        "stack.txt",
				ContentType: "text/plain",
				Reader:      strings.NewReader(string(debug.Stack())),
			}},
		})
	}

	b.respond(session, interaction, "Something went wrong running that. The operators have been notified.", true)
}

func (b *Bot) respond(session *discordgo.Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

// notifyModAction renders a persisted moderation action into the guild's
// mod-log channel. Skipped entirely when the guild has not set one.
func (b *Bot) notifyModAction(ctx context.Context, action storage.ModAction) {
	guild := b.guildSettings(ctx, action.GuildID)
	if guild.ModLogChannel == "" {
		return
	}
	embed := baseEmbed("Moderation action", "", colorWarning)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "User", Value: mention(action.UserID), Inline: true},
		{Name: "Action", Value: action.Kind, Inline: true},
		{Name: "Details", Value: orDash(action.Details), Inline: false},
	}
	embed.Timestamp = action.CreatedAt.UTC().Format(time.RFC3339)
	b.sendLogEmbed(guild.ModLogChannel, embed, action.Details)
}

func (b *Bot) startReminderLoop() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, userID := range b.ledger.DueReminders() {
					b.sendVoteReminder(userID)
				}
			case <-b.stop:
				return
			}
		}
	}()
}

func mention(userID string) string {
	if userID == "" {
		return "unknown"
	}
	return "<@" + userID + ">"
}

func channelMention(channelID string) string {
	if channelID == "" {
		return "not set"
	}
	return "<#" + channelID + ">"
}

func roleMention(roleID string) string {
	if roleID == "" {
		return "not set"
	}
	return "<@&" + roleID + ">"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
