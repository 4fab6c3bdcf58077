package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	moderateMembers := int64(discordgo.PermissionModerateMembers)
	manageGuild := int64(discordgo.PermissionManageGuild)

	commands := []*discordgo.ApplicationCommand{
		{
			Name:                     "detection",
			Description:              "Configure automated account detection",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "set",
					Description: "Change detection settings",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "enabled", Description: "Turn detection on or off"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "allow_timeout", Description: "Allow automatic timeouts"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "allow_kick", Description: "Allow automatic kicks"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "log_alerts", Description: "Post alerts to the log channel"},
						{Type: discordgo.ApplicationCommandOptionChannel, Name: "log_channel", Description: "Channel for detection alerts"},
						{
							Type: discordgo.ApplicationCommandOptionString, Name: "alt_action",
							Description: "What to do with suspected alternate accounts",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "log", Value: "log"},
								{Name: "timeout", Value: "timeout"},
							},
						},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "alt_enabled", Description: "Turn alternate account detection on or off"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "alt_timeout", Description: "Alt timeout duration like 1h or 12h"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "checks",
					Description: "Toggle individual detection checks",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "default_avatar", Description: "Flag accounts with no avatar"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "account_age_10m", Description: "Flag accounts under 10 minutes old"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "account_age_1h", Description: "Flag accounts under an hour old"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "account_age_1d", Description: "Flag accounts under a day old"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "account_age_1w", Description: "Flag accounts under a week old"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "suspicious_username", Description: "Flag generated-looking usernames"},
						{Type: discordgo.ApplicationCommandOptionBoolean, Name: "message_behavior", Description: "Track early message behavior"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "Show current detection settings",
				},
			},
		},
		{
			Name:                     "timeout",
			Description:              "Timeout a member",
			DefaultMemberPermissions: &moderateMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to timeout", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "Duration like 10m, 1h or 2d", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the timeout"},
			},
		},
		{
			Name:                     "warn",
			Description:              "Manage member warnings",
			DefaultMemberPermissions: &moderateMembers,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "Warn a member",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to warn", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason for the warning", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "list",
					Description: "List a member's warnings",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member to inspect", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remove",
					Description: "Remove a warning by id",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "id", Description: "Warning id", Required: true},
					},
				},
			},
		},
		{
			Name:                     "serverstats",
			Description:              "Server activity statistics",
			DefaultMemberPermissions: &manageGuild,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "enable",
					Description: "Turn activity tracking on",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "disable",
					Description: "Turn activity tracking off",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "report",
					Description: "Show activity for the last 7 days",
				},
			},
		},
		{
			Name:        "convert",
			Description: "Convert units, currencies and timezones",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unit",
					Description: "Convert between measurement units",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "value", Description: "Value to convert", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "from", Description: "Source unit, e.g. mi", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "to", Description: "Target unit, e.g. km", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "currency",
					Description: "Convert between currencies",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "amount", Description: "Amount to convert", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "from", Description: "Source currency code, e.g. USD", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "to", Description: "Target currency code, e.g. EUR", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "timezone",
					Description: "Show the current time in a timezone",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "zone", Description: "IANA zone, e.g. Europe/Paris", Required: true},
					},
				},
			},
		},
		{
			Name:        "github",
			Description: "Look up GitHub users and repositories",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "user",
					Description: "Look up a user",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "login", Description: "GitHub username", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "repo",
					Description: "Look up a repository",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "owner", Description: "Repository owner", Required: true},
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "Repository name", Required: true},
					},
				},
			},
		},
	}

	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, "", commands)
	return err
}
