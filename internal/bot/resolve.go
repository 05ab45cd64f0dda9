package bot

import (
	"errors"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var (
	errUnknownChannel = errors.New("no channel by that name or ID")
	errUnknownRole    = errors.New("no role by that name or ID")
)

// clearSentinel matches inputs that mean "unset this field".
func clearSentinel(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "none", "reset", "off", "":
		return true
	}
	return false
}

func isSnowflake(s string) bool {
	if len(s) < 15 || len(s) > 21 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// resolveChannel accepts a channel mention, a numeric ID, or a name matched
// case-insensitively against the guild's text channels.
func (b *Bot) resolveChannel(guildID, input string) (string, error) {
	input = strings.TrimSpace(input)
	input = strings.TrimSuffix(strings.TrimPrefix(input, "<#"), ">")
	if input == "" {
		return "", errUnknownChannel
	}

	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return "", errUnknownChannel
	}

	if isSnowflake(input) {
		for _, channel := range guild.Channels {
			if channel.ID == input {
				return channel.ID, nil
			}
		}
		return "", errUnknownChannel
	}

	lower := strings.ToLower(strings.TrimPrefix(input, "#"))
	for _, channel := range guild.Channels {
		if channel.Type != discordgo.ChannelTypeGuildText {
			continue
		}
		if strings.ToLower(channel.Name) == lower {
			return channel.ID, nil
		}
	}
	return "", errUnknownChannel
}

// resolveRole accepts a role mention, a numeric ID, or a case-insensitive
// role name.
func (b *Bot) resolveRole(guildID, input string) (string, error) {
	input = strings.TrimSpace(input)
	input = strings.TrimSuffix(strings.TrimPrefix(input, "<@&"), ">")
	if input == "" {
		return "", errUnknownRole
	}

	guild, err := b.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return "", errUnknownRole
	}

	if isSnowflake(input) {
		for _, role := range guild.Roles {
			if role.ID == input {
				return role.ID, nil
			}
		}
		return "", errUnknownRole
	}

	lower := strings.ToLower(strings.TrimPrefix(input, "@"))
	for _, role := range guild.Roles {
		if strings.ToLower(role.Name) == lower {
			return role.ID, nil
		}
	}
	return "", errUnknownRole
}
