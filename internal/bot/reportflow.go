package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"warden/internal/actionlog"
	"warden/internal/report"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// reportEvidence carries an image URL from the slash command, where the
// attachment is resolved, to the modal submit, where the report is delivered.
type reportEvidence struct {
	mu     sync.Mutex
	byUser map[string]string
}

func newReportEvidence() *reportEvidence {
	return &reportEvidence{byUser: make(map[string]string)}
}

func (r *reportEvidence) put(userID, url string) {
	if url == "" {
		return
	}
	r.mu.Lock()
	r.byUser[userID] = url
	r.mu.Unlock()
}

func (r *reportEvidence) take(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	url := r.byUser[userID]
	delete(r.byUser, userID)
	return url
}

func (b *Bot) handleReportCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if interaction.GuildID == "" {
		b.respond(session, interaction, "Reports only work inside a guild.", true)
		return
	}
	if len(data.Options) == 0 {
		return
	}

	target := data.Options[0].UserValue(session)
	if target == nil {
		b.respond(session, interaction, "I could not resolve that user.", true)
		return
	}

	b.openReportModal(ctx, session, interaction, report.Target{
		UserID:  target.ID,
		IsBot:   target.Bot,
		IsAdmin: b.memberIsAdmin(interaction.GuildID, target.ID),
	}, customID("report", "user", target.ID), reportImageURL(data))
}

// reportImageURL resolves the optional image attachment of a report command.
func reportImageURL(data discordgo.ApplicationCommandInteractionData) string {
	if data.Resolved == nil {
		return ""
	}
	for _, option := range data.Options {
		if option.Name != "image" || option.Type != discordgo.ApplicationCommandOptionAttachment {
			continue
		}
		id, ok := option.Value.(string)
		if !ok {
			continue
		}
		if attachment, ok := data.Resolved.Attachments[id]; ok && attachment != nil {
			return attachment.URL
		}
	}
	return ""
}

func (b *Bot) handleReportMessageCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if interaction.GuildID == "" {
		b.respond(session, interaction, "Reports only work inside a guild.", true)
		return
	}

	if data.Resolved == nil {
		b.respond(session, interaction, "I could not resolve that message.", true)
		return
	}
	msg, ok := data.Resolved.Messages[data.TargetID]
	if !ok || msg == nil || msg.Author == nil {
		b.respond(session, interaction, "I could not resolve that message.", true)
		return
	}

	b.openReportModal(ctx, session, interaction, report.Target{
		UserID:  msg.Author.ID,
		IsBot:   msg.Author.Bot,
		IsAdmin: b.memberIsAdmin(interaction.GuildID, msg.Author.ID),
	}, customID("report", "message", msg.Author.ID, msg.ChannelID, msg.ID), "")
}

// openReportModal runs the eligibility gate and, if it passes, shows the
// reason form. The cooldown is stamped on submit, not here.
func (b *Bot) openReportModal(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, target report.Target, modalID, imageURL string) {
	guild := b.guildSettings(ctx, interaction.GuildID)
	if err := b.reports.Check(guild, interactionUserID(interaction), target); err != nil {
		b.respond(session, interaction, denialMessage(err), true)
		return
	}
	b.evidence.put(interactionUserID(interaction), imageURL)

	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: modalID,
			Title:    "Report to the moderators",
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.TextInput{
							CustomID:    "reason",
							Label:       "What happened?",
							Style:       discordgo.TextInputParagraph,
							Placeholder: "Describe the problem",
							Required:    true,
							MaxLength:   1000,
						},
					},
				},
			},
		},
	})
}

func denialMessage(err error) string {
	var cooldown report.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return fmt.Sprintf("Slow down. You can report again in %.0f seconds.", cooldown.Remaining.Seconds())
	case errors.Is(err, report.ErrNoReportsChannel):
		return "This guild has no reports channel configured. Ask an admin to set one in /settings."
	case errors.Is(err, report.ErrSelfReport):
		return "Reporting yourself is disabled here."
	case errors.Is(err, report.ErrBotReport):
		return "Reporting bots is disabled here."
	case errors.Is(err, report.ErrAdminReport):
		return "Reporting administrators is disabled here."
	default:
		return "That report cannot be submitted right now."
	}
}

func (b *Bot) handleReportModal(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, parts []string) {
	if len(parts) < 3 {
		return
	}
	guild := b.guildSettings(ctx, interaction.GuildID)
	if guild.ReportsChannel == "" {
		b.respond(session, interaction, denialMessage(report.ErrNoReportsChannel), true)
		return
	}

	reporterID := interactionUserID(interaction)
	targetID := parts[2]
	reason := modalInputValue(interaction.ModalSubmitData(), "reason")

	embed := baseEmbed("New report", truncate(reason, embedDescriptionLimit), colorWarning)
	embed.Fields = []*discordgo.MessageEmbedField{
		{Name: "Reported", Value: mention(targetID), Inline: true},
		{Name: "Reporter", Value: mention(reporterID), Inline: true},
	}
	if parts[1] == "message" && len(parts) >= 5 {
		link := fmt.Sprintf("https://discord.com/channels/%s/%s/%s", interaction.GuildID, parts[3], parts[4])
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Message", Value: link, Inline: false})
	}
	if imageURL := b.evidence.take(reporterID); imageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: imageURL}
	}
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)

	content := ""
	if guild.AlertRole != "" {
		content = roleMention(guild.AlertRole)
	}
	_, err := session.ChannelMessageSendComplex(guild.ReportsChannel, &discordgo.MessageSend{
		Content: content,
		Embeds:  []*discordgo.MessageEmbed{embed},
	})
	if classifyDelivery(err) != DeliveryOk {
		b.logger.Warn("report not delivered",
			zap.String("guild_id", interaction.GuildID),
			zap.Error(err))
		b.respond(session, interaction, "I could not deliver the report. Tell a moderator directly.", true)
		return
	}

	b.reports.MarkReported(reporterID)
	b.actions.Log(ctx, interaction.GuildID, targetID, actionlog.KindReport, fmt.Sprintf("reported by %s: %s", reporterID, truncate(reason, 300)))
	b.respond(session, interaction, "Thanks, your report has been sent to the moderators.", true)
}

func modalInputValue(data discordgo.ModalSubmitInteractionData, inputID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, component := range actionsRow.Components {
			input, ok := component.(*discordgo.TextInput)
			if !ok || input.CustomID != inputID {
				continue
			}
			return input.Value
		}
	}
	return ""
}

// memberIsAdmin resolves the member from state, falling back to the API, and
// checks their roles for the administrator bit.
func (b *Bot) memberIsAdmin(guildID, userID string) bool {
	member, err := b.session.State.Member(guildID, userID)
	if err != nil {
		member, err = b.session.GuildMember(guildID, userID)
		if err != nil {
			return false
		}
	}
	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return false
	}
	if guild.OwnerID == userID {
		return true
	}
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID != roleID {
				continue
			}
			if role.Permissions&discordgo.PermissionAdministrator != 0 {
				return true
			}
		}
	}
	return false
}
