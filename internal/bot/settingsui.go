package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"warden/internal/settings"

	"github.com/bwmarrin/discordgo"
)

// Settings panel pages. Each page exposes a handful of fields; channel and
// role fields open a modal, booleans toggle in place.
const (
	pageReports    = "reports"
	pageModeration = "moderation"
	pageLogs       = "logs"
	pageMisc       = "misc"
)

const panelIdleTimeout = 3 * time.Minute

// settingsPanels tracks open panels so idle ones can have their components
// stripped, and so only the invoker can drive them. Panels are keyed per
// invoker per guild; the same member can hold panels in several guilds.
type settingsPanels struct {
	mu      sync.Mutex
	byOwner map[string]*panelState
}

type panelState struct {
	guildID   string
	channelID string
	messageID string
	page      string
	lastTouch time.Time
}

func newSettingsPanels() *settingsPanels {
	return &settingsPanels{byOwner: make(map[string]*panelState)}
}

func panelKey(userID, guildID string) string {
	return userID + "/" + guildID
}

func (p *settingsPanels) touch(userID, guildID string, update func(*panelState)) *panelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	key := panelKey(userID, guildID)
	state, ok := p.byOwner[key]
	if !ok {
		state = &panelState{guildID: guildID, page: pageReports}
		p.byOwner[key] = state
	}
	state.lastTouch = time.Now()
	if update != nil {
		update(state)
	}
	return state
}

func (p *settingsPanels) get(userID, guildID string) (*panelState, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	state, ok := p.byOwner[panelKey(userID, guildID)]
	return state, ok
}

func (p *settingsPanels) expire(olderThan time.Duration) []*panelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	var expired []*panelState
	for key, state := range p.byOwner {
		if time.Since(state.lastTouch) >= olderThan {
			expired = append(expired, state)
			delete(p.byOwner, key)
		}
	}
	return expired
}

// startPanelSweep strips buttons off idle panels so stale controls cannot
// mutate settings weeks later.
func (b *Bot) startPanelSweep() {
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, state := range b.panels.expire(panelIdleTimeout) {
					if state.channelID == "" || state.messageID == "" {
						continue
					}
					empty := []discordgo.MessageComponent{}
					_, _ = b.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
						Channel:    state.channelID,
						ID:         state.messageID,
						Components: &empty,
					})
				}
			case <-b.stop:
				return
			}
		}
	}()
}

func (b *Bot) handleSettingsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.GuildID == "" {
		b.respond(session, interaction, "Settings only work inside a guild.", true)
		return
	}
	userID := interactionUserID(interaction)
	state := b.panels.touch(userID, interaction.GuildID, func(s *panelState) {
		s.page = pageReports
	})

	guild := b.guildSettings(ctx, interaction.GuildID)
	embed := b.buildSettingsEmbed(guild, state.page)
	components := b.buildSettingsComponents(guild, state.page, userID)

	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
		},
	})

	// The response message ID is needed for the idle sweep.
	if msg, err := session.InteractionResponse(interaction.Interaction); err == nil && msg != nil {
		b.panels.touch(userID, interaction.GuildID, func(s *panelState) {
			s.channelID = msg.ChannelID
			s.messageID = msg.ID
		})
	}
}

func (b *Bot) buildSettingsEmbed(guild settings.Guild, page string) *discordgo.MessageEmbed {
	embed := baseEmbed("Guild settings", "", colorNeutral)
	switch page {
	case pageReports:
		embed.Description = "Report workflow"
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Reports channel", Value: channelMention(guild.ReportsChannel), Inline: true},
			{Name: "Alert role", Value: roleMention(guild.AlertRole), Inline: true},
			{Name: "Allow self reports", Value: onOff(guild.ReportSelf), Inline: true},
			{Name: "Allow bot reports", Value: onOff(guild.ReportBots), Inline: true},
			{Name: "Allow admin reports", Value: onOff(guild.ReportAdmins), Inline: true},
		}
	case pageModeration:
		embed.Description = "Moderation and filters"
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Muted role", Value: roleMention(guild.MutedRole), Inline: true},
			{Name: "Invite filter", Value: onOff(guild.InviteFilter), Inline: true},
			{Name: "Link filter", Value: onOff(guild.LinkFilter), Inline: true},
		}
	case pageLogs:
		embed.Description = "Log channels"
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Mod log", Value: channelMention(guild.ModLogChannel), Inline: true},
			{Name: "Message deletes", Value: channelMention(guild.MessageDeleteChannel), Inline: true},
			{Name: "Message edits", Value: channelMention(guild.MessageEditChannel), Inline: true},
		}
	case pageMisc:
		embed.Description = "Miscellaneous"
		embed.Fields = []*discordgo.MessageEmbedField{
			{Name: "Prefix", Value: "`" + guild.Prefix + "`", Inline: true},
		}
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Panel locks after 3 minutes of inactivity."}
	return embed
}

func (b *Bot) buildSettingsComponents(guild settings.Guild, page, userID string) []discordgo.MessageComponent {
	pageSelect := discordgo.SelectMenu{
		CustomID:    customID("settings", "page", userID),
		Placeholder: "Choose a settings page",
		Options: []discordgo.SelectMenuOption{
			{Label: "Reports", Value: pageReports, Default: page == pageReports},
			{Label: "Moderation", Value: pageModeration, Default: page == pageModeration},
			{Label: "Logs", Value: pageLogs, Default: page == pageLogs},
			{Label: "Misc", Value: pageMisc, Default: page == pageMisc},
		},
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{pageSelect}},
	}

	var buttons []discordgo.MessageComponent
	editButton := func(label, field string) discordgo.Button {
		return discordgo.Button{
			Label:    label,
			Style:    discordgo.SecondaryButton,
			CustomID: customID("settings", "edit", field, userID),
		}
	}
	toggleButton := func(label, field string, on bool) discordgo.Button {
		style := discordgo.DangerButton
		if on {
			style = discordgo.SuccessButton
		}
		return discordgo.Button{
			Label:    label,
			Style:    style,
			CustomID: customID("settings", "toggle", field, userID),
		}
	}

	switch page {
	case pageReports:
		buttons = []discordgo.MessageComponent{
			editButton("Reports channel", "reports_channel"),
			editButton("Alert role", "alert_role"),
			toggleButton("Self reports", "report_self", guild.ReportSelf),
			toggleButton("Bot reports", "report_bots", guild.ReportBots),
			toggleButton("Admin reports", "report_admins", guild.ReportAdmins),
		}
	case pageModeration:
		buttons = []discordgo.MessageComponent{
			editButton("Muted role", "muted_role"),
			toggleButton("Invite filter", "invite_filter", guild.InviteFilter),
			toggleButton("Link filter", "link_filter", guild.LinkFilter),
		}
	case pageLogs:
		buttons = []discordgo.MessageComponent{
			editButton("Mod log", "mod_log_channel"),
			editButton("Delete log", "message_delete_channel"),
			editButton("Edit log", "message_edit_channel"),
		}
	case pageMisc:
		buttons = []discordgo.MessageComponent{
			editButton("Prefix", "prefix"),
		}
	}
	if len(buttons) > 0 {
		components = append(components, discordgo.ActionsRow{Components: buttons})
	}
	return components
}

func (b *Bot) handleSettingsComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, parts []string) {
	if len(parts) < 3 {
		return
	}
	presserID := interactionUserID(interaction)
	ownerID := parts[len(parts)-1]
	if presserID != ownerID && presserID != b.cfg.OwnerID {
		b.respond(session, interaction, "Only the member who opened this panel can use it.", true)
		return
	}

	switch parts[1] {
	case "page":
		values := interaction.MessageComponentData().Values
		if len(values) == 0 {
			return
		}
		state := b.panels.touch(presserID, interaction.GuildID, func(s *panelState) {
			s.page = values[0]
		})
		b.refreshPanel(ctx, session, interaction, state.page, presserID)
	case "toggle":
		if len(parts) < 4 {
			return
		}
		b.panels.touch(presserID, interaction.GuildID, nil)
		b.toggleSetting(ctx, session, interaction, parts[2], presserID)
	case "edit":
		if len(parts) < 4 {
			return
		}
		b.panels.touch(presserID, interaction.GuildID, nil)
		b.openSettingsModal(session, interaction, parts[2], presserID)
	}
}

func (b *Bot) refreshPanel(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, page, userID string) {
	guild := b.guildSettings(ctx, interaction.GuildID)
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{b.buildSettingsEmbed(guild, page)},
			Components: b.buildSettingsComponents(guild, page, userID),
		},
	})
}

func (b *Bot) toggleSetting(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, field, userID string) {
	guild := b.guildSettings(ctx, interaction.GuildID)
	switch field {
	case "report_self":
		guild.ReportSelf = !guild.ReportSelf
	case "report_bots":
		guild.ReportBots = !guild.ReportBots
	case "report_admins":
		guild.ReportAdmins = !guild.ReportAdmins
	case "invite_filter":
		guild.InviteFilter = !guild.InviteFilter
	case "link_filter":
		guild.LinkFilter = !guild.LinkFilter
	default:
		return
	}
	if err := b.settings.Set(ctx, guild); err != nil {
		b.respond(session, interaction, "Could not save that change.", true)
		return
	}

	state, _ := b.panels.get(userID, interaction.GuildID)
	page := pageReports
	if state != nil {
		page = state.page
	}
	b.refreshPanel(ctx, session, interaction, page, userID)
}

func (b *Bot) openSettingsModal(session *discordgo.Session, interaction *discordgo.InteractionCreate, field, userID string) {
	label, placeholder := modalPrompt(field)
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: customID("settings", field, userID),
			Title:    "Update setting",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "value",
							Label:       label,
							Style:       discordgo.TextInputShort,
							Placeholder: placeholder,
							Required:    true,
							MaxLength:   100,
						},
					},
				},
			},
		},
	})
}

func modalPrompt(field string) (label, placeholder string) {
	switch field {
	case "reports_channel", "mod_log_channel", "message_delete_channel", "message_edit_channel":
		return "Channel name or ID", "#reports, 123456789012345678, or none"
	case "alert_role", "muted_role":
		return "Role name or ID", "Moderators, 123456789012345678, or none"
	case "prefix":
		return "Command prefix", "?"
	default:
		return "Value", ""
	}
}

func (b *Bot) handleSettingsModal(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, parts []string) {
	if len(parts) < 3 {
		return
	}
	field := parts[1]
	presserID := interactionUserID(interaction)
	if parts[2] != presserID && presserID != b.cfg.OwnerID {
		return
	}

	value := modalInputValue(interaction.ModalSubmitData(), "value")
	guild := b.guildSettings(ctx, interaction.GuildID)

	apply := func(target *string, resolve func(string, string) (string, error)) bool {
		if clearSentinel(value) {
			*target = ""
			return true
		}
		resolved, err := resolve(interaction.GuildID, value)
		if err != nil {
			b.respond(session, interaction, fmt.Sprintf("Could not resolve `%s`: %v.", value, err), true)
			return false
		}
		*target = resolved
		return true
	}

	ok := true
	switch field {
	case "reports_channel":
		ok = apply(&guild.ReportsChannel, b.resolveChannel)
	case "mod_log_channel":
		ok = apply(&guild.ModLogChannel, b.resolveChannel)
	case "message_delete_channel":
		ok = apply(&guild.MessageDeleteChannel, b.resolveChannel)
	case "message_edit_channel":
		ok = apply(&guild.MessageEditChannel, b.resolveChannel)
	case "alert_role":
		ok = apply(&guild.AlertRole, b.resolveRole)
	case "muted_role":
		ok = apply(&guild.MutedRole, b.resolveRole)
	case "prefix":
		if clearSentinel(value) {
			guild.Prefix = b.cfg.DefaultPrefix
		} else if len(value) > 5 {
			b.respond(session, interaction, "Prefixes are at most 5 characters.", true)
			ok = false
		} else {
			guild.Prefix = value
		}
	default:
		return
	}
	if !ok {
		return
	}

	if err := b.settings.Set(ctx, guild); err != nil {
		b.respond(session, interaction, "Could not save that change.", true)
		return
	}

	state, _ := b.panels.get(presserID, interaction.GuildID)
	page := pageReports
	if state != nil {
		page = state.page
	}
	b.refreshPanel(ctx, session, interaction, page, presserID)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
