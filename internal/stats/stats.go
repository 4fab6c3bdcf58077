// Package stats aggregates per-guild activity: hourly message buckets,
// voice sessions, invite attribution and daily snapshots.
package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

type Service struct {
	store   *storage.Store
	logger  *zap.Logger
	invites *InviteTracker
}

func NewService(store *storage.Store, logger *zap.Logger) *Service {
	return &Service{
		store:   store,
		logger:  logger,
		invites: NewInviteTracker(),
	}
}

func (s *Service) Invites() *InviteTracker {
	return s.invites
}

// Enabled reports whether stats collection is on for the guild and
// whether the channel is excluded from it. Lookup failure reads as
// collection off.
func (s *Service) Enabled(ctx context.Context, guildID, channelID string) bool {
	guild, found, err := s.store.GetGuild(ctx, guildID)
	if err != nil {
		s.logger.Warn("guild lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		return false
	}
	if !found || !guild.StatsEnabled {
		return false
	}
	for _, excluded := range guild.ExcludedChannels {
		if excluded == channelID {
			return false
		}
	}
	return true
}

// TrackMessage counts one message into the guild's hourly bucket.
func (s *Service) TrackMessage(ctx context.Context, guildID, channelID, userID string) {
	if !s.Enabled(ctx, guildID, channelID) {
		return
	}
	if err := s.store.TrackMessage(ctx, guildID, channelID, userID); err != nil {
		s.logger.Warn("track message failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// VoiceStateChange folds a voice state update into session tracking.
// An empty channel means the member left voice entirely.
func (s *Service) VoiceStateChange(ctx context.Context, guildID, userID, channelID, previousChannelID string) {
	var err error
	switch {
	case channelID == "" && previousChannelID != "":
		err = s.store.VoiceLeave(ctx, guildID, userID)
	case channelID != "" && previousChannelID == "":
		err = s.store.VoiceJoin(ctx, guildID, userID, channelID)
	case channelID != "" && channelID != previousChannelID:
		err = s.store.VoiceMove(ctx, guildID, userID, channelID)
	}
	if err != nil {
		s.logger.Warn("voice session update failed",
			zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
	}
}

// AttributeJoin resolves which invite a member arrived on and records
// it. Missing invite data is tolerated; attribution is best effort.
func (s *Service) AttributeJoin(ctx context.Context, guildID, userID string, current []InviteUse) {
	code, inviterID, ok := s.invites.Diff(guildID, current)
	if !ok {
		return
	}
	if err := s.store.TrackInviteJoin(ctx, guildID, userID, code, inviterID); err != nil {
		s.logger.Warn("invite attribution failed", zap.String("guild_id", guildID), zap.Error(err))
	}
}

// Report aggregates guild activity over the trailing duration.
func (s *Service) Report(ctx context.Context, guildID string, over time.Duration) (storage.GuildActivity, error) {
	return s.store.GuildActivitySince(ctx, guildID, time.Now().Add(-over))
}

// Snapshot stores today's totals for long-range trend queries.
func (s *Service) Snapshot(ctx context.Context, guildID string, memberCount int) error {
	report, err := s.store.GuildActivitySince(ctx, guildID, time.Now().Add(-24*time.Hour))
	if err != nil {
		return err
	}
	return s.store.SaveDailySnapshot(ctx, guildID, report.Messages, report.VoiceMinutes, memberCount)
}
