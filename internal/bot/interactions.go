package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/convert"
	"github.com/DevSeige-Studios/WaterfallBot/internal/github"
	"github.com/DevSeige-Studios/WaterfallBot/internal/stats"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
	"github.com/DevSeige-Studios/WaterfallBot/internal/utils"
)

// maxTimeout is the platform ceiling for communication timeouts.
const maxTimeout = 28 * 24 * time.Hour

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" && data.Name != "convert" && data.Name != "github" {
		b.respondEmbed(session, interaction, errorEmbed("This command only works in a server."), true)
		return
	}

	switch data.Name {
	case "detection":
		b.handleDetectionCommand(ctx, session, interaction, data.Options)
	case "timeout":
		b.handleTimeoutCommand(ctx, session, interaction, data.Options)
	case "warn":
		b.handleWarnCommand(ctx, session, interaction, data.Options)
	case "serverstats":
		b.handleStatsCommand(ctx, session, interaction, data.Options)
	case "convert":
		b.handleConvertCommand(ctx, session, interaction, data.Options)
	case "github":
		b.handleGitHubCommand(ctx, session, interaction, data.Options)
	}
}

func (b *Bot) handleDetectionCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	settings := b.detection.GetSettings(ctx, interaction.GuildID)

	switch sub.Name {
	case "set":
		for _, option := range sub.Options {
			switch option.Name {
			case "enabled":
				settings.Enabled = option.BoolValue()
			case "allow_timeout":
				settings.AllowTimeout = option.BoolValue()
			case "allow_kick":
				settings.AllowKick = option.BoolValue()
			case "log_alerts":
				settings.LogAlerts = option.BoolValue()
			case "log_channel":
				if channel := option.ChannelValue(session); channel != nil {
					settings.LogChannel = channel.ID
				}
			case "alt_action":
				settings.AltDetection.Action = option.StringValue()
			case "alt_enabled":
				settings.AltDetection.Enabled = option.BoolValue()
			case "alt_timeout":
				duration, err := utils.ParseDuration(option.StringValue())
				if err != nil {
					b.respondEmbed(session, interaction, errorEmbed("Invalid alt timeout. Use formats like 1h or 12h."), true)
					return
				}
				settings.AltDetection.Timeout = duration
			}
		}
		b.saveDetectionSettings(ctx, session, interaction, settings)
	case "checks":
		for _, option := range sub.Options {
			applyCheckOption(&settings.Checks, option.Name, option.BoolValue())
		}
		b.saveDetectionSettings(ctx, session, interaction, settings)
	case "status":
		b.respondEmbed(session, interaction, b.detectionStatusEmbed("Detection settings", settings), true)
	}
}

// applyCheckOption flips one detection check by its option name.
func applyCheckOption(checks *storage.DetectionChecks, name string, value bool) bool {
	switch name {
	case "default_avatar":
		checks.DefaultAvatar = value
	case "account_age_10m":
		checks.AccountAge10m = value
	case "account_age_1h":
		checks.AccountAge1h = value
	case "account_age_1d":
		checks.AccountAge1d = value
	case "account_age_1w":
		checks.AccountAge1w = value
	case "suspicious_username":
		checks.SuspiciousUsername = value
	case "message_behavior":
		checks.MessageBehavior = value
	default:
		return false
	}
	return true
}

func (b *Bot) saveDetectionSettings(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, settings storage.DetectionSettings) {
	if err := b.detection.SaveSettings(ctx, settings); err != nil {
		b.logger.Warn("save detection settings failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
		b.respondEmbed(session, interaction, errorEmbed("Could not save detection settings."), true)
		return
	}
	b.respondEmbed(session, interaction, b.detectionStatusEmbed("Detection settings updated", settings), true)
}

func (b *Bot) detectionStatusEmbed(title string, settings storage.DetectionSettings) *discordgo.MessageEmbed {
	onOff := func(v bool) string {
		if v {
			return "on"
		}
		return "off"
	}
	logChannel := "not set"
	if settings.LogChannel != "" {
		logChannel = "<#" + settings.LogChannel + ">"
	}

	checks := []struct {
		name string
		on   bool
	}{
		{"default_avatar", settings.Checks.DefaultAvatar},
		{"account_age_10m", settings.Checks.AccountAge10m},
		{"account_age_1h", settings.Checks.AccountAge1h},
		{"account_age_1d", settings.Checks.AccountAge1d},
		{"account_age_1w", settings.Checks.AccountAge1w},
		{"suspicious_username", settings.Checks.SuspiciousUsername},
		{"message_behavior", settings.Checks.MessageBehavior},
	}
	var checkLines strings.Builder
	for _, check := range checks {
		fmt.Fprintf(&checkLines, "%s: %s\n", check.name, onOff(check.on))
	}

	altTimeout := "default"
	if settings.AltDetection.Timeout > 0 {
		altTimeout = utils.FormatDuration(settings.AltDetection.Timeout)
	}

	return infoEmbed(title, "", []*discordgo.MessageEmbedField{
		{Name: "Enabled", Value: onOff(settings.Enabled), Inline: true},
		{Name: "Timeouts", Value: onOff(settings.AllowTimeout), Inline: true},
		{Name: "Kicks", Value: onOff(settings.AllowKick), Inline: true},
		{Name: "Alerts", Value: onOff(settings.LogAlerts), Inline: true},
		{Name: "Log channel", Value: logChannel, Inline: true},
		{Name: "Alt detection", Value: onOff(settings.AltDetection.Enabled), Inline: true},
		{Name: "Alt action", Value: settings.AltDetection.Action, Inline: true},
		{Name: "Alt timeout", Value: altTimeout, Inline: true},
		{Name: "Checks", Value: checkLines.String()},
	})
}

func (b *Bot) handleTimeoutCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	var target *discordgo.User
	durationInput := ""
	reason := ""
	for _, option := range options {
		switch option.Name {
		case "user":
			target = option.UserValue(session)
		case "duration":
			durationInput = option.StringValue()
		case "reason":
			reason = option.StringValue()
		}
	}
	if target == nil {
		b.respondEmbed(session, interaction, errorEmbed("User not found."), true)
		return
	}

	duration, err := utils.ParseDuration(durationInput)
	if err != nil {
		b.respondEmbed(session, interaction, errorEmbed("Invalid duration. Use formats like 10m, 1h or 2d."), true)
		return
	}
	if duration > maxTimeout {
		duration = maxTimeout
	}

	guild, err := session.State.Guild(interaction.GuildID)
	if err != nil {
		guild, err = session.Guild(interaction.GuildID)
	}
	if err != nil {
		b.respondEmbed(session, interaction, errorEmbed("Could not load server data."), true)
		return
	}
	targetMember, err := session.GuildMember(interaction.GuildID, target.ID)
	if err != nil {
		b.respondEmbed(session, interaction, errorEmbed("Could not load that member."), true)
		return
	}
	var invokerRoles []string
	if interaction.Member != nil {
		invokerRoles = interaction.Member.Roles
	}
	if ok, why := canModerate(guild, interactionUserID(interaction), invokerRoles, target.ID, targetMember.Roles); !ok {
		b.respondEmbed(session, interaction, errorEmbed(why), true)
		return
	}

	until := time.Now().Add(duration)
	if err := session.GuildMemberTimeout(interaction.GuildID, target.ID, &until); err != nil {
		b.logger.Warn("manual timeout failed",
			zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
		b.respondEmbed(session, interaction, errorEmbed("Could not timeout that member."), true)
		return
	}

	moderatorID := interactionUserID(interaction)
	if _, err := b.store.AddInfraction(ctx, storage.Infraction{
		GuildID:     interaction.GuildID,
		UserID:      target.ID,
		Kind:        "timeout",
		Reason:      reason,
		ModeratorID: moderatorID,
	}); err != nil {
		b.logger.Warn("record infraction failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
	}

	b.respondEmbed(session, interaction, infoEmbed("Member timed out",
		fmt.Sprintf("%s is timed out for %s.", mentionUser(target.ID), utils.FormatDuration(duration)), nil), false)
}

func (b *Bot) handleWarnCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "add":
		var target *discordgo.User
		reason := ""
		for _, option := range sub.Options {
			switch option.Name {
			case "user":
				target = option.UserValue(session)
			case "reason":
				reason = option.StringValue()
			}
		}
		if target == nil {
			b.respondEmbed(session, interaction, errorEmbed("User not found."), true)
			return
		}
		warn := storage.Warn{
			GuildID:     interaction.GuildID,
			UserID:      target.ID,
			Reason:      reason,
			ModeratorID: interactionUserID(interaction),
			ModeratorTag: func() string {
				if interaction.Member != nil && interaction.Member.User != nil {
					return interaction.Member.User.Username
				}
				return ""
			}(),
		}
		id, err := b.store.AddWarn(ctx, warn)
		if err != nil {
			b.logger.Warn("add warn failed", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respondEmbed(session, interaction, errorEmbed("Could not record the warning."), true)
			return
		}
		b.respondEmbed(session, interaction, infoEmbed("Member warned",
			fmt.Sprintf("%s was warned: %s", mentionUser(target.ID), reason),
			[]*discordgo.MessageEmbedField{{Name: "Warning id", Value: id}}), false)
	case "list":
		var target *discordgo.User
		for _, option := range sub.Options {
			if option.Name == "user" {
				target = option.UserValue(session)
			}
		}
		if target == nil {
			b.respondEmbed(session, interaction, errorEmbed("User not found."), true)
			return
		}
		warns, err := b.store.ListWarns(ctx, interaction.GuildID, target.ID)
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("Could not load warnings."), true)
			return
		}
		if len(warns) == 0 {
			b.respondEmbed(session, interaction, infoEmbed("Warnings",
				fmt.Sprintf("%s has no warnings.", mentionUser(target.ID)), nil), true)
			return
		}
		fields := make([]*discordgo.MessageEmbedField, 0, len(warns))
		for _, warn := range warns {
			moderator := warn.ModeratorTag
			if moderator == "" {
				moderator = warn.ModeratorID
			}
			fields = append(fields, &discordgo.MessageEmbedField{
				Name:  warn.CreatedAt.UTC().Format("2006-01-02 15:04") + " by " + moderator,
				Value: fmt.Sprintf("%s\n`%s`", warn.Reason, warn.ID),
			})
		}
		b.respondEmbed(session, interaction, infoEmbed("Warnings",
			fmt.Sprintf("%d warning(s) for %s", len(warns), mentionUser(target.ID)), fields), true)
	case "remove":
		warnID := ""
		for _, option := range sub.Options {
			if option.Name == "id" {
				warnID = option.StringValue()
			}
		}
		removed, err := b.store.RemoveWarn(ctx, interaction.GuildID, warnID)
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("Could not remove the warning."), true)
			return
		}
		if !removed {
			b.respondEmbed(session, interaction, errorEmbed("No warning with that id."), true)
			return
		}
		b.respondEmbed(session, interaction, infoEmbed("Warning removed", "", nil), true)
	}
}

func (b *Bot) handleStatsCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]

	switch sub.Name {
	case "enable", "disable":
		enabled := sub.Name == "enable"
		if err := b.store.SetStatsEnabled(ctx, interaction.GuildID, enabled, nil); err != nil {
			b.respondEmbed(session, interaction, errorEmbed("Could not update stats settings."), true)
			return
		}
		state := "disabled"
		if enabled {
			state = "enabled"
		}
		b.respondEmbed(session, interaction, infoEmbed("Server stats", "Activity tracking "+state+".", nil), true)
	case "report":
		report, err := b.stats.Report(ctx, interaction.GuildID, 7*24*time.Hour)
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("Could not load activity data."), true)
			return
		}
		b.respondStatsReport(session, interaction, report)
	}
}

func (b *Bot) respondStatsReport(session *discordgo.Session, interaction *discordgo.InteractionCreate, report storage.GuildActivity) {
	var top strings.Builder
	for i, channel := range report.TopChannels {
		fmt.Fprintf(&top, "%d. <#%s> — %d\n", i+1, channel.ChannelID, channel.Count)
	}
	if top.Len() == 0 {
		top.WriteString("no data")
	}

	embed := infoEmbed("Server activity, last 7 days", "", []*discordgo.MessageEmbedField{
		{Name: "Messages", Value: fmt.Sprintf("%d", report.Messages), Inline: true},
		{Name: "Voice minutes", Value: fmt.Sprintf("%d", report.VoiceMinutes), Inline: true},
		{Name: "Joins", Value: fmt.Sprintf("%d", report.Joins), Inline: true},
		{Name: "Top channels", Value: top.String()},
	})

	response := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}

	if png, err := stats.RenderActivityChart(report.HourlyCounts); err == nil {
		embed.Image = &discordgo.MessageEmbedImage{URL: "attachment://activity.png"}
		response.Data.Files = []*discordgo.File{{
			Name:        "activity.png",
			ContentType: "image/png",
			Reader:      bytes.NewReader(png),
		}}
	}

	if err := session.InteractionRespond(interaction.Interaction, response); err != nil {
		b.logger.Debug("interaction respond failed", zap.Error(err))
	}
}

func (b *Bot) handleConvertCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	values := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, option := range sub.Options {
		values[option.Name] = option
	}

	switch sub.Name {
	case "unit":
		result, err := convert.Unit(values["value"].FloatValue(), values["from"].StringValue(), values["to"].StringValue())
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed(err.Error()), true)
			return
		}
		b.respondEmbed(session, interaction, infoEmbed("Conversion",
			fmt.Sprintf("%g %s = %.4f %s", values["value"].FloatValue(), values["from"].StringValue(), result, values["to"].StringValue()), nil), false)
	case "currency":
		result, err := b.currency.Convert(ctx, values["amount"].FloatValue(), values["from"].StringValue(), values["to"].StringValue())
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("Currency conversion failed: "+err.Error()), true)
			return
		}
		b.respondEmbed(session, interaction, infoEmbed("Conversion",
			fmt.Sprintf("%g %s = %.2f %s", values["amount"].FloatValue(),
				strings.ToUpper(values["from"].StringValue()), result, strings.ToUpper(values["to"].StringValue())), nil), false)
	case "timezone":
		result, err := convert.Timezone(time.Now(), values["zone"].StringValue())
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed(err.Error()), true)
			return
		}
		b.respondEmbed(session, interaction, infoEmbed("Time in "+values["zone"].StringValue(), result, nil), false)
	}
}

func (b *Bot) handleGitHubCommand(ctx context.Context, session *discordgo.Session, interaction *discordgo.InteractionCreate, options []*discordgo.ApplicationCommandInteractionDataOption) {
	if len(options) == 0 {
		return
	}
	sub := options[0]
	values := map[string]*discordgo.ApplicationCommandInteractionDataOption{}
	for _, option := range sub.Options {
		values[option.Name] = option
	}

	switch sub.Name {
	case "user":
		user, err := b.github.GetUser(ctx, values["login"].StringValue())
		if errors.Is(err, github.ErrNotFound) {
			b.respondEmbed(session, interaction, errorEmbed("No such GitHub user."), true)
			return
		}
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("GitHub lookup failed."), true)
			return
		}
		embed := infoEmbed(user.Login, user.Bio, []*discordgo.MessageEmbedField{
			{Name: "Repos", Value: fmt.Sprintf("%d", user.PublicRepos), Inline: true},
			{Name: "Followers", Value: fmt.Sprintf("%d", user.Followers), Inline: true},
			{Name: "Following", Value: fmt.Sprintf("%d", user.Following), Inline: true},
		})
		embed.URL = user.HTMLURL
		if user.AvatarURL != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL}
		}
		b.respondEmbed(session, interaction, embed, false)
	case "repo":
		repo, err := b.github.GetRepository(ctx, values["owner"].StringValue(), values["name"].StringValue())
		if errors.Is(err, github.ErrNotFound) {
			b.respondEmbed(session, interaction, errorEmbed("No such repository."), true)
			return
		}
		if err != nil {
			b.respondEmbed(session, interaction, errorEmbed("GitHub lookup failed."), true)
			return
		}
		license := "none"
		if repo.License != nil {
			license = repo.License.Name
		}
		embed := infoEmbed(repo.FullName, repo.Description, []*discordgo.MessageEmbedField{
			{Name: "Stars", Value: fmt.Sprintf("%d", repo.Stars), Inline: true},
			{Name: "Forks", Value: fmt.Sprintf("%d", repo.Forks), Inline: true},
			{Name: "Open issues", Value: fmt.Sprintf("%d", repo.OpenIssues), Inline: true},
			{Name: "Language", Value: orDash(repo.Language), Inline: true},
			{Name: "License", Value: license, Inline: true},
		})
		embed.URL = repo.HTMLURL
		b.respondEmbed(session, interaction, embed, false)
	}
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func interactionUserID(interaction *discordgo.InteractionCreate) string {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User.ID
	}
	if interaction.User != nil {
		return interaction.User.ID
	}
	return ""
}

func (b *Bot) respondEmbed(session *discordgo.Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Debug("interaction respond failed", zap.Error(err))
	}
}
