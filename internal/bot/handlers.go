package bot

import (
	"context"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/detection"
	"github.com/DevSeige-Studios/WaterfallBot/internal/stats"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
	"github.com/DevSeige-Studios/WaterfallBot/internal/utils"
)

func (b *Bot) onGuildCreate(session *discordgo.Session, event *discordgo.GuildCreate) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	ctx := context.Background()

	_, known, err := b.store.GetGuild(ctx, event.ID)
	if err != nil {
		b.logger.Warn("guild lookup failed", zap.String("guild_id", event.ID), zap.Error(err))
	}

	// Upserting clears any pending deletion left from a previous leave.
	guild := storage.Guild{GuildID: event.ID, Language: "en", JoinedAt: time.Now()}
	if err := b.store.UpsertGuild(ctx, guild); err != nil {
		b.logger.Warn("guild upsert failed", zap.String("guild_id", event.ID), zap.Error(err))
	}

	b.snapshotInvites(event.ID)

	// Ready replays every guild as a create event; only treat unknown
	// guilds as fresh installs.
	if known {
		return
	}

	b.logger.Info("joined guild",
		zap.String("guild_id", event.ID),
		zap.String("name", event.Name),
		zap.Int("members", event.MemberCount))
	b.execWebhook(b.cfg.JoinWebhook, b.buildGuildJoinEmbed(event.Guild))

	channelID := pickWelcomeChannel(event.Guild, func(channelID string) bool {
		permissions, err := session.State.UserChannelPermissions(session.State.User.ID, channelID)
		return err == nil && permissions&discordgo.PermissionSendMessages != 0
	})
	if channelID != "" {
		if _, err := session.ChannelMessageSendEmbed(channelID, b.buildWelcomeEmbed()); err != nil {
			b.logger.Debug("welcome message failed", zap.String("guild_id", event.ID), zap.Error(err))
		}
	}
}

// pickWelcomeChannel prefers the system channel, then the first text
// channel the bot can send to, in position order. Empty when nothing
// is writable.
func pickWelcomeChannel(guild *discordgo.Guild, canSend func(channelID string) bool) string {
	if guild.SystemChannelID != "" && canSend(guild.SystemChannelID) {
		return guild.SystemChannelID
	}
	channels := make([]*discordgo.Channel, 0, len(guild.Channels))
	for _, channel := range guild.Channels {
		if channel.Type == discordgo.ChannelTypeGuildText {
			channels = append(channels, channel)
		}
	}
	sort.SliceStable(channels, func(i, j int) bool { return channels[i].Position < channels[j].Position })
	for _, channel := range channels {
		if canSend(channel.ID) {
			return channel.ID
		}
	}
	return ""
}

func (b *Bot) onGuildDelete(session *discordgo.Session, event *discordgo.GuildDelete) {
	_ = session
	if event.Guild == nil || event.Unavailable {
		// Outage, not a removal.
		return
	}
	ctx := context.Background()

	if err := b.store.MarkPendingDeletion(ctx, event.ID, time.Now().Add(pendingDeletionGrace)); err != nil {
		b.logger.Warn("mark pending deletion failed", zap.String("guild_id", event.ID), zap.Error(err))
	}
	b.stats.Invites().Forget(event.ID)

	b.logger.Info("left guild", zap.String("guild_id", event.ID))
	b.execWebhook(b.cfg.LeaveWebhook, b.buildGuildLeaveEmbed(event.ID))
}

func (b *Bot) onGuildMemberAdd(session *discordgo.Session, event *discordgo.GuildMemberAdd) {
	_ = session
	if event.Member == nil || event.User == nil || event.User.Bot || event.GuildID == "" {
		return
	}

	member := memberSnapshot(event.GuildID, event.Member)
	ctx := context.Background()

	if err := b.store.RecordJoin(ctx, member.GuildID, member.UserID, member.Username, member.AccountCreatedAt, member.JoinedAt); err != nil {
		b.logger.Warn("record join failed", zap.String("guild_id", member.GuildID), zap.Error(err))
	}
	b.attributeInviteJoin(ctx, member.GuildID, member.UserID)

	// Assessment runs off the event path; a failure there can only cost
	// a missed detection, never the join delivery.
	go b.assessJoin(member)
}

func (b *Bot) onMessageCreate(session *discordgo.Session, msg *discordgo.MessageCreate) {
	_ = session
	if msg.Author == nil || msg.Author.Bot || msg.GuildID == "" {
		return
	}

	ctx := context.Background()
	b.stats.TrackMessage(ctx, msg.GuildID, msg.ChannelID, msg.Author.ID)

	go b.assessMessage(msg)
}

func (b *Bot) onVoiceStateUpdate(session *discordgo.Session, event *discordgo.VoiceStateUpdate) {
	_ = session
	if event.VoiceState == nil || event.GuildID == "" {
		return
	}
	previous := ""
	if event.BeforeUpdate != nil {
		previous = event.BeforeUpdate.ChannelID
	}
	b.stats.VoiceStateChange(context.Background(), event.GuildID, event.UserID, event.ChannelID, previous)
}

func (b *Bot) onInviteCreate(session *discordgo.Session, event *discordgo.InviteCreate) {
	_ = session
	if event.GuildID != "" {
		b.snapshotInvites(event.GuildID)
	}
}

func (b *Bot) onInviteDelete(session *discordgo.Session, event *discordgo.InviteDelete) {
	_ = session
	if event.GuildID != "" {
		b.snapshotInvites(event.GuildID)
	}
}

// snapshotInvites refreshes the cached invite counters for a guild.
// Guilds where the bot lacks Manage Guild simply go without invite
// attribution.
func (b *Bot) snapshotInvites(guildID string) {
	invites, err := b.session.GuildInvites(guildID)
	if err != nil {
		b.logger.Debug("invite snapshot failed", zap.String("guild_id", guildID), zap.Error(err))
		return
	}
	b.stats.Invites().Snapshot(guildID, inviteUses(invites))
}

func (b *Bot) attributeInviteJoin(ctx context.Context, guildID, userID string) {
	invites, err := b.session.GuildInvites(guildID)
	if err != nil {
		return
	}
	b.stats.AttributeJoin(ctx, guildID, userID, inviteUses(invites))
}

func inviteUses(invites []*discordgo.Invite) []stats.InviteUse {
	uses := make([]stats.InviteUse, 0, len(invites))
	for _, invite := range invites {
		use := stats.InviteUse{Code: invite.Code, Uses: invite.Uses}
		if invite.Inviter != nil {
			use.InviterID = invite.Inviter.ID
		}
		uses = append(uses, use)
	}
	return uses
}

// memberSnapshot freezes the join event fields scoring needs. The
// account creation time comes from the user ID snowflake.
func memberSnapshot(guildID string, member *discordgo.Member) detection.Member {
	created, err := discordgo.SnowflakeTimestamp(member.User.ID)
	if err != nil {
		created = time.Time{}
	}
	joined := member.JoinedAt
	if joined.IsZero() {
		joined = time.Now()
	}
	return detection.Member{
		GuildID:          guildID,
		UserID:           member.User.ID,
		Username:         member.User.Username,
		HasAvatar:        member.User.Avatar != "",
		AccountCreatedAt: created,
		JoinedAt:         joined,
	}
}

func countLinksAndMentions(msg *discordgo.MessageCreate) (links, mentions int) {
	return len(utils.ExtractURLs(msg.Content)), len(msg.Mentions)
}
