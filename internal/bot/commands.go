package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "report",
			Description: "Report a member to the moderators",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "member to report",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "screenshot or other image evidence",
				},
			},
		},
		{
			Name: "Report Message",
			Type: discordgo.MessageApplicationCommand,
		},
		{
			Name:        "votes",
			Description: "Bot-list vote rewards",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "history",
					Description: "Your vote history",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "leaderboard",
					Description: "Top voters",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "total",
					Description: "Global vote total",
				},
			},
		},
		{
			Name:                     "filter",
			Description:              "Manage chat filters",
			DefaultMemberPermissions: &manageGuildPermission,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "word",
					Description: "Banned word list",
					Options:     listManagementOptions("word"),
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommandGroup,
					Name:        "whitelist",
					Description: "Link whitelist",
					Options:     listManagementOptions("pattern"),
				},
			},
		},
		{
			Name:                     "settings",
			Description:              "Open the guild settings panel",
			DefaultMemberPermissions: &manageGuildPermission,
		},
		{
			Name:        "diag",
			Description: "Bot diagnostics (owner only)",
		},
	}

	appID := b.session.State.User.ID
	existing, err := b.session.ApplicationCommands(appID, "")
	if err != nil {
		for _, cmd := range commands {
			if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
				return err
			}
		}
		return nil
	}

	existingByName := make(map[string]*discordgo.ApplicationCommand)
	for _, cmd := range existing {
		existingByName[cmd.Name] = cmd
	}

	desired := make(map[string]struct{})
	for _, cmd := range commands {
		desired[cmd.Name] = struct{}{}
		if current, ok := existingByName[cmd.Name]; ok {
			if _, err := b.session.ApplicationCommandEdit(appID, "", current.ID, cmd); err != nil {
				return err
			}
			continue
		}
		if _, err := b.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return err
		}
	}

	for _, cmd := range existing {
		if _, ok := desired[cmd.Name]; ok {
			continue
		}
		_ = b.session.ApplicationCommandDelete(appID, "", cmd.ID)
	}

	return nil
}

var manageGuildPermission = int64(discordgo.PermissionManageServer)

func listManagementOptions(noun string) []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Add a " + noun,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        noun,
					Description: noun + " to add",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a " + noun,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        noun,
					Description: noun + " to remove",
					Required:    true,
				},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List every " + noun,
		},
	}
}
