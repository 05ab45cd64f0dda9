package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"warden/internal/votes"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const historyPerPage = 10

func (b *Bot) handleVotesCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, data discordgo.ApplicationCommandInteractionData) {
	if len(data.Options) == 0 {
		return
	}
	userID := interactionUserID(interaction)

	switch data.Options[0].Name {
	case "history":
		embed, components, err := b.buildHistoryPage(ctx, userID, 0)
		if err != nil {
			b.respond(session, interaction, "Could not load your vote history.", true)
			return
		}
		_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{embed},
				Components: components,
				Flags:      discordgo.MessageFlagsEphemeral,
			},
		})
	case "leaderboard":
		b.respondEmbed(session, interaction, b.buildLeaderboard(ctx), false)
	case "total":
		total, err := b.ledger.GlobalTotal(ctx)
		if err != nil {
			b.respond(session, interaction, "Could not load the vote total.", true)
			return
		}
		b.respondEmbed(session, interaction, baseEmbed("Votes", fmt.Sprintf("The bot has received **%d** votes in total. Weekend votes count double.", total), colorAction), false)
	}
}

func (b *Bot) buildHistoryPage(ctx context.Context, userID string, page int) (*discordgo.MessageEmbed, []discordgo.MessageComponent, error) {
	events, pages, err := b.ledger.HistoryPage(ctx, userID, page, historyPerPage)
	if err != nil {
		return nil, nil, err
	}
	if page >= pages {
		page = pages - 1
	}
	if page < 0 {
		page = 0
	}

	var sb strings.Builder
	for _, event := range events {
		line := fmt.Sprintf("<t:%d:R> +%d coins", event.VotedAt.Unix(), event.Coins)
		if event.IsWeekend {
			line += " (weekend)"
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	description := sb.String()
	if description == "" {
		description = "No votes yet. Vote for the bot on the bot list to earn coins."
	}

	embed := baseEmbed("Your vote history", description, colorAction)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Page %d/%d", page+1, pages)}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Previous",
					Style:    discordgo.SecondaryButton,
					CustomID: customID("votes", "history", userID, strconv.Itoa(page-1)),
					Disabled: page <= 0,
				},
				discordgo.Button{
					Label:    "Next",
					Style:    discordgo.SecondaryButton,
					CustomID: customID("votes", "history", userID, strconv.Itoa(page+1)),
					Disabled: page >= pages-1,
				},
			},
		},
	}
	return embed, components, nil
}

func (b *Bot) buildLeaderboard(ctx context.Context) *discordgo.MessageEmbed {
	voters, err := b.ledger.Leaderboard(ctx, 10)
	if err != nil || len(voters) == 0 {
		return baseEmbed("Vote leaderboard", "Nobody has voted yet.", colorNeutral)
	}

	var sb strings.Builder
	for i, voter := range voters {
		fmt.Fprintf(&sb, "**%d.** %s: %d votes, streak %d\n", i+1, mention(voter.UserID), voter.TotalVotes, voter.VoteStreak)
	}
	return baseEmbed("Vote leaderboard", sb.String(), colorAction)
}

func (b *Bot) handleVotesComponent(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, parts []string) {
	if len(parts) < 3 {
		return
	}
	presserID := interactionUserID(interaction)

	switch parts[1] {
	case "history":
		if len(parts) < 4 {
			return
		}
		// Pagination buttons belong to the user who opened the history.
		if parts[2] != presserID {
			b.respond(session, interaction, "Open your own history with /votes history.", true)
			return
		}
		page, err := strconv.Atoi(parts[3])
		if err != nil {
			return
		}
		embed, components, err := b.buildHistoryPage(ctx, presserID, page)
		if err != nil {
			return
		}
		_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{embed},
				Components: components,
			},
		})
	case "remind":
		if parts[2] != presserID {
			b.respond(session, interaction, "This button is not for you.", true)
			return
		}
		b.ledger.OptInReminders(presserID)
		b.respond(session, interaction, "You will get a reminder 12 hours after each vote.", true)
	}
}

// ReceiveVote satisfies the webhook sink: it settles the ledger and thanks
// the voter over DM. DM failures are expected (closed DMs) and tolerated.
func (b *Bot) ReceiveVote(ctx context.Context, event votes.Event) {
	result, err := b.ledger.HandleVote(ctx, event)
	if err != nil {
		b.logger.Error("vote not processed", zap.String("user_id", event.UserID), zap.Error(err))
		return
	}
	if result.Test {
		return
	}
	b.ledger.MarkVoted(event.UserID)

	b.announceVote(event.UserID, result)
	b.thankVoter(event.UserID, result)
}

func (b *Bot) announceVote(userID string, result votes.Result) {
	channelID := b.cfg.BotList.VoteLogChannel
	if channelID == "" {
		return
	}
	description := fmt.Sprintf("%s voted and earned **%d** coins. Streak: **%d**.", mention(userID), result.Coins, result.Streak)
	b.sendLogEmbed(channelID, baseEmbed("New vote", description, colorSuccess), "")
}

func (b *Bot) thankVoter(userID string, result votes.Result) {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return
	}

	embed := baseEmbed("Thanks for voting!",
		fmt.Sprintf("You earned **%d** coins. Your streak is **%d** and you have **%d** coins in total.", result.Coins, result.Streak, result.TotalCoins),
		colorSuccess)

	send := &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
	// Offer the reminder opt-in once, on the first vote.
	if result.FirstVote && !b.ledger.RemindersOptedIn(userID) {
		send.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						Label:    "Remind me to vote",
						Style:    discordgo.PrimaryButton,
						CustomID: customID("votes", "remind", userID),
					},
				},
			},
		}
	}

	if _, err := b.session.ChannelMessageSendComplex(channel.ID, send); err != nil {
		if classifyDelivery(err) == DeliveryFailed {
			b.logger.Warn("vote thank-you not delivered", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

func (b *Bot) sendVoteReminder(userID string) {
	channel, err := b.session.UserChannelCreate(userID)
	if err != nil {
		return
	}
	embed := baseEmbed("Vote reminder", "You can vote for the bot again to keep your streak going.", colorAction)
	embed.Timestamp = time.Now().UTC().Format(time.RFC3339)
	_, _ = b.session.ChannelMessageSendEmbed(channel.ID, embed)
}
