package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/detection"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
	"github.com/DevSeige-Studios/WaterfallBot/internal/utils"
)

// maxAltTimeout bounds moderator-configured alt timeouts.
const maxAltTimeout = 24 * time.Hour

// assessJoin runs the full join pipeline: score the member, fold in the
// global ledger, correlate alts, decide and apply one terminal action,
// then open the behavioral window. Runs in its own goroutine; nothing
// here may take down the event path.
func (b *Bot) assessJoin(member detection.Member) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("join assessment panicked",
				zap.String("guild_id", member.GuildID),
				zap.String("user_id", member.UserID),
				zap.Any("panic", r))
		}
	}()

	if member.UserID == "" || member.AccountCreatedAt.IsZero() {
		// Malformed snapshot; skip detection rather than guess.
		return
	}

	ctx := context.Background()
	settings := b.detection.GetSettings(ctx, member.GuildID)
	if !settings.Enabled {
		return
	}

	score := b.detection.ComputeConfidence(member, settings)
	confidence, globalCount := b.detection.AddGlobalInfractionFactor(ctx, member.UserID, score.Confidence)
	if globalCount > 0 {
		score.Reasons = append(score.Reasons, "global_infractions")
	}

	if settings.AltDetection.Enabled {
		b.handleAltResult(ctx, member, settings, b.detection.CheckAltEvasion(ctx, member))
	}

	action := b.detection.ActionFromConfidence(confidence, settings)
	b.logger.Info("join assessed",
		zap.String("guild_id", member.GuildID),
		zap.String("user_id", member.UserID),
		zap.Int("confidence", confidence),
		zap.Int("global_count", globalCount),
		zap.Strings("reasons", score.Reasons),
		zap.String("action", action.String()))

	switch action {
	case detection.ActionTimeout:
		b.timeoutMember(member.GuildID, member.UserID,
			time.Duration(b.cfg.Detection.TimeoutMinutes)*time.Minute, "Automated account detection")
		b.detection.TrackGlobalInfraction(ctx, member.UserID, member.GuildID)
	case detection.ActionKick:
		if err := b.session.GuildMemberDeleteWithReason(member.GuildID, member.UserID, "Automated account detection"); err != nil {
			b.logger.Warn("kick failed",
				zap.String("guild_id", member.GuildID), zap.String("user_id", member.UserID), zap.Error(err))
		}
		b.detection.TrackGlobalInfraction(ctx, member.UserID, member.GuildID)
	}

	// Alerting is orthogonal to enforcement: either signal crossing its
	// threshold gets the log line, even when no action was taken.
	if confidence >= b.cfg.Detection.AlertThreshold || globalCount >= b.cfg.Detection.GlobalAlertCount {
		b.sendDetectionAlert(settings, b.buildJoinAlertEmbed(member, confidence, globalCount, score.Reasons, action))
	}

	if settings.Checks.MessageBehavior {
		b.detection.CreateTracking(ctx, member.GuildID, member.UserID, member.JoinedAt)
	}
}

// assessMessage folds a message into the member's behavioral window and
// runs the cross-channel burst check. Members without a live window
// (joined more than two hours ago, or tracking disabled) are ignored.
func (b *Bot) assessMessage(msg *discordgo.MessageCreate) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("message assessment panicked",
				zap.String("guild_id", msg.GuildID),
				zap.String("channel_id", msg.ChannelID),
				zap.Any("panic", r))
		}
	}()

	ctx := context.Background()
	settings := b.detection.GetSettings(ctx, msg.GuildID)
	if !settings.Enabled || !settings.Checks.MessageBehavior {
		return
	}

	links, mentions := countLinksAndMentions(msg)
	delta := storage.BehaviorDelta{
		Messages:    1,
		Links:       links,
		Mentions:    mentions,
		Channel:     msg.ChannelID,
		Fingerprint: utils.MessageFingerprint(msg.Content),
	}
	_, tracked := b.detection.UpdateTracking(ctx, msg.GuildID, msg.Author.ID, delta)
	if !tracked {
		return
	}

	burst := b.detection.CheckCrossChannelLinkSpam(msg.GuildID, msg.Author.ID, msg.ChannelID, msg.ID, msg.Content)
	if !burst.IsSpam {
		return
	}

	b.logger.Info("cross-channel spam detected",
		zap.String("guild_id", msg.GuildID),
		zap.String("user_id", msg.Author.ID),
		zap.Int("messages", len(burst.Messages)),
		zap.Strings("reasons", burst.Reasons))

	for _, ref := range burst.Messages {
		if err := b.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID); err != nil {
			b.logger.Debug("spam message delete failed",
				zap.String("channel_id", ref.ChannelID), zap.String("message_id", ref.MessageID), zap.Error(err))
		}
	}
	if settings.AllowTimeout {
		b.timeoutMember(msg.GuildID, msg.Author.ID,
			time.Duration(b.cfg.Detection.TimeoutMinutes)*time.Minute, "Cross-channel link spam")
	}
	b.detection.TrackGlobalInfraction(ctx, msg.Author.ID, msg.GuildID)
	b.sendDetectionAlert(settings, b.buildSpamAlertEmbed(msg.Author.ID, burst))
}

func (b *Bot) handleAltResult(ctx context.Context, member detection.Member, settings storage.DetectionSettings, result detection.AltResult) {
	if !result.IsLikelyAlt {
		return
	}
	b.logger.Info("alt correlation",
		zap.String("guild_id", member.GuildID),
		zap.String("user_id", member.UserID),
		zap.Strings("candidates", result.PotentialAlts))

	if settings.AltDetection.Action == "timeout" && settings.AllowTimeout {
		duration := settings.AltDetection.Timeout
		if duration <= 0 || duration > maxAltTimeout {
			duration = maxAltTimeout
		}
		b.timeoutMember(member.GuildID, member.UserID, duration, "Suspected alternate account")
		b.detection.TrackGlobalInfraction(ctx, member.UserID, member.GuildID)
	}
	b.sendDetectionAlert(settings, b.buildAltAlertEmbed(member, result))
}

// timeoutMember applies a communication timeout, fire and forget.
func (b *Bot) timeoutMember(guildID, userID string, duration time.Duration, reason string) {
	until := time.Now().Add(duration)
	if err := b.session.GuildMemberTimeout(guildID, userID, &until); err != nil {
		b.logger.Warn("timeout failed",
			zap.String("guild_id", guildID), zap.String("user_id", userID),
			zap.String("reason", reason), zap.Error(err))
	}
}

// sendDetectionAlert posts an alert embed to the guild's configured log
// channel, if alerts are on and a channel is set.
func (b *Bot) sendDetectionAlert(settings storage.DetectionSettings, embed *discordgo.MessageEmbed) {
	if !settings.LogAlerts || settings.LogChannel == "" || embed == nil {
		return
	}
	if _, err := b.session.ChannelMessageSendEmbed(settings.LogChannel, embed); err != nil {
		b.logger.Debug("alert send failed",
			zap.String("guild_id", settings.GuildID), zap.String("channel_id", settings.LogChannel), zap.Error(err))
	}
}

// execWebhook posts an operator notification, fire and forget.
func (b *Bot) execWebhook(hook config.WebhookConfig, embed *discordgo.MessageEmbed) {
	if hook.ID == "" || hook.Token == "" || embed == nil {
		return
	}
	params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed}}
	if _, err := b.session.WebhookExecute(hook.ID, hook.Token, false, params); err != nil {
		b.logger.Debug("webhook exec failed", zap.String("webhook_id", hook.ID), zap.Error(err))
	}
}

func mentionUser(userID string) string {
	return fmt.Sprintf("<@%s>", userID)
}
