// Package detection scores new members for automated-account
// likelihood and tracks their early behavior. It is a library consumed
// by event handlers: every entry point returns a result instead of
// failing the event path.
package detection

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/DevSeige-Studios/WaterfallBot/internal/config"
	"github.com/DevSeige-Studios/WaterfallBot/internal/storage"
)

// Member is the snapshot of a joining user that scoring operates on.
type Member struct {
	GuildID          string
	UserID           string
	Username         string
	HasAvatar        bool
	AccountCreatedAt time.Time
	JoinedAt         time.Time
}

// Service wires the scoring engine, ledger, correlator, tracking window
// and burst detector against shared storage and policy.
type Service struct {
	store  *storage.Store
	policy config.DetectionConfig
	logger *zap.Logger
	now    func() time.Time

	settings *settingsCache
	bursts   *burstRecorder
}

func NewService(store *storage.Store, policy config.DetectionConfig, logger *zap.Logger) *Service {
	now := time.Now
	return &Service{
		store:    store,
		policy:   policy,
		logger:   logger,
		now:      now,
		settings: newSettingsCache(store, time.Duration(policy.SettingsCacheMinutes)*time.Minute, now),
		bursts:   newBurstRecorder(time.Duration(policy.SpamWindowSeconds)*time.Second, now),
	}
}

// WithNow overrides the service clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	s.now = now
	s.settings.now = now
	s.bursts.now = now
}

// GetSettings returns the guild's detection settings through the TTL
// cache. Guilds that never configured detection get the defaults with
// Enabled false, a lookup failure reads as detection disabled.
func (s *Service) GetSettings(ctx context.Context, guildID string) storage.DetectionSettings {
	settings, err := s.settings.get(ctx, guildID)
	if err != nil {
		s.logger.Warn("detection settings lookup failed", zap.String("guild_id", guildID), zap.Error(err))
		settings = storage.DefaultDetectionSettings(guildID)
	}
	return settings
}

// SaveSettings persists the guild's settings and drops the cached copy
// so the next read sees them.
func (s *Service) SaveSettings(ctx context.Context, settings storage.DetectionSettings) error {
	if err := s.store.UpsertDetectionSettings(ctx, settings); err != nil {
		return err
	}
	s.settings.invalidate(settings.GuildID)
	return nil
}

// CreateTracking opens the behavioral observation window for a member.
// Failures are logged and swallowed, tracking is best effort.
func (s *Service) CreateTracking(ctx context.Context, guildID, userID string, joinedAt time.Time) {
	if err := s.store.CreateTracking(ctx, guildID, userID, joinedAt); err != nil {
		s.logger.Warn("create tracking failed",
			zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
	}
}

// UpdateTracking folds one message into the member's observation entry.
// Members without a live entry are ignored.
func (s *Service) UpdateTracking(ctx context.Context, guildID, userID string, delta storage.BehaviorDelta) (storage.BehaviorEntry, bool) {
	entry, found, err := s.store.UpdateTracking(ctx, guildID, userID, delta)
	if err != nil {
		s.logger.Warn("update tracking failed",
			zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
		return storage.BehaviorEntry{}, false
	}
	return entry, found
}

// RecentlyJoined reports whether the member is still inside the
// post-join window that message detection applies to.
func (s *Service) RecentlyJoined(joinedAt time.Time) bool {
	window := time.Duration(s.policy.RecentJoinHours) * time.Hour
	return s.now().Sub(joinedAt) < window
}
