package filters

import (
	"regexp"

	"warden/internal/settings"
)

var inviteRegex = regexp.MustCompile(`(?i)(discord\.gg|discord\.com/invite|discordapp\.com/invite|dsc\.gg)/[a-zA-Z0-9-]+`)

type InviteFilter struct{}

func NewInviteFilter() *InviteFilter {
	return &InviteFilter{}
}

func (f *InviteFilter) Name() string { return "invite" }

func (f *InviteFilter) Check(content string, guild settings.Guild) (Match, bool) {
	if !guild.InviteFilter {
		return Match{}, false
	}
	if found := inviteRegex.FindString(content); found != "" {
		return Match{Filter: f.Name(), Reason: "invite link: " + found}, true
	}
	return Match{}, false
}
