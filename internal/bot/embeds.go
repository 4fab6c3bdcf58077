package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/DevSeige-Studios/WaterfallBot/internal/detection"
)

const (
	colorInfo    = 0x3498db
	colorWarn    = 0xe67e22
	colorDanger  = 0xe74c3c
	colorSuccess = 0x2ecc71
)

func (b *Bot) buildWelcomeEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Thanks for adding Waterfall!",
		Description: "Use `/detection set` to enable automated account detection " +
			"and `/serverstats` to turn on activity tracking.",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Support", Value: b.cfg.SupportURL},
		},
	}
}

func (b *Bot) buildGuildJoinEmbed(guild *discordgo.Guild) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Joined guild",
		Color: colorSuccess,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Name", Value: guild.Name, Inline: true},
			{Name: "ID", Value: guild.ID, Inline: true},
			{Name: "Members", Value: fmt.Sprintf("%d", guild.MemberCount), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) buildGuildLeaveEmbed(guildID string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "Left guild",
		Description: "Data is retained for 30 days in case of rejoin.",
		Color:       colorWarn,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "ID", Value: guildID, Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) buildJoinAlertEmbed(member detection.Member, confidence, globalCount int, reasons []string, action detection.Action) *discordgo.MessageEmbed {
	color := colorWarn
	if action >= detection.ActionTimeout {
		color = colorDanger
	}
	reasonText := "none"
	if len(reasons) > 0 {
		reasonText = strings.Join(reasons, ", ")
	}
	return &discordgo.MessageEmbed{
		Title: "Suspicious account joined",
		Color: color,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: mentionUser(member.UserID), Inline: true},
			{Name: "Confidence", Value: fmt.Sprintf("%d/100", confidence), Inline: true},
			{Name: "Action", Value: action.String(), Inline: true},
			{Name: "Signals", Value: reasonText},
			{Name: "Global infractions", Value: fmt.Sprintf("%d (%s risk)", globalCount, detection.RiskLevel(globalCount)), Inline: true},
			{Name: "Account created", Value: member.AccountCreatedAt.UTC().Format("2006-01-02 15:04 UTC"), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) buildSpamAlertEmbed(userID string, burst detection.BurstResult) *discordgo.MessageEmbed {
	channels := make(map[string]bool)
	for _, ref := range burst.Messages {
		channels[ref.ChannelID] = true
	}
	return &discordgo.MessageEmbed{
		Title:       "Cross-channel link spam",
		Description: fmt.Sprintf("%s posted the same link in %d channels. Messages were removed.", mentionUser(userID), len(channels)),
		Color:       colorDanger,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Messages removed", Value: fmt.Sprintf("%d", len(burst.Messages)), Inline: true},
			{Name: "Signals", Value: strings.Join(burst.Reasons, ", "), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func (b *Bot) buildAltAlertEmbed(member detection.Member, result detection.AltResult) *discordgo.MessageEmbed {
	mentions := make([]string, 0, len(result.PotentialAlts))
	for _, altID := range result.PotentialAlts {
		mentions = append(mentions, mentionUser(altID))
	}
	return &discordgo.MessageEmbed{
		Title: "Possible alternate account",
		Color: colorWarn,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "User", Value: mentionUser(member.UserID), Inline: true},
			{Name: "Correlated with", Value: strings.Join(mentions, " ")},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

func errorEmbed(message string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: "Error", Description: message, Color: colorDanger}
}

func infoEmbed(title, description string, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Title: title, Description: description, Color: colorInfo, Fields: fields}
}
