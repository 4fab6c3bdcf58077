package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// DetectionSettings is a guild's bot-detection configuration. A row is
// created on first save; guilds without a row have detection disabled.
type DetectionSettings struct {
	GuildID      string
	Enabled      bool
	AllowKick    bool
	AllowTimeout bool
	LogAlerts    bool
	LogChannel   string
	AltDetection AltDetection
	Checks       DetectionChecks
}

type AltDetection struct {
	Enabled bool
	// Action is "log" or "timeout".
	Action  string
	Timeout time.Duration
}

type DetectionChecks struct {
	DefaultAvatar      bool
	AccountAge10m      bool
	AccountAge1h       bool
	AccountAge1d       bool
	AccountAge1w       bool
	SuspiciousUsername bool
	MessageBehavior    bool
}

// DefaultDetectionSettings mirrors the defaults applied when a guild
// first configures detection.
func DefaultDetectionSettings(guildID string) DetectionSettings {
	return DetectionSettings{
		GuildID:      guildID,
		Enabled:      false,
		AllowKick:    false,
		AllowTimeout: true,
		LogAlerts:    true,
		AltDetection: AltDetection{Enabled: true, Action: "log"},
		Checks: DetectionChecks{
			DefaultAvatar:      true,
			AccountAge10m:      true,
			AccountAge1h:       true,
			AccountAge1d:       true,
			AccountAge1w:       false,
			SuspiciousUsername: true,
			MessageBehavior:    true,
		},
	}
}

func (s *Store) GetDetectionSettings(ctx context.Context, guildID string) (DetectionSettings, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT enabled, allow_kick, allow_timeout, log_alerts, log_channel,
		alt_enabled, alt_action, alt_timeout_ms,
		check_default_avatar, check_account_age_10m, check_account_age_1h,
		check_account_age_1d, check_account_age_1w, check_suspicious_username,
		check_message_behavior
		FROM detection_settings WHERE guild_id = ?`, guildID)

	settings := DetectionSettings{GuildID: guildID}
	var enabled, allowKick, allowTimeout, logAlerts int
	var altEnabled, altTimeoutMs int
	var defaultAvatar, age10m, age1h, age1d, age1w, suspicious, behavior int
	err := row.Scan(
		&enabled, &allowKick, &allowTimeout, &logAlerts, &settings.LogChannel,
		&altEnabled, &settings.AltDetection.Action, &altTimeoutMs,
		&defaultAvatar, &age10m, &age1h, &age1d, &age1w, &suspicious, &behavior,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return DetectionSettings{}, false, nil
		}
		return DetectionSettings{}, false, err
	}

	settings.Enabled = enabled == 1
	settings.AllowKick = allowKick == 1
	settings.AllowTimeout = allowTimeout == 1
	settings.LogAlerts = logAlerts == 1
	settings.AltDetection.Enabled = altEnabled == 1
	settings.AltDetection.Timeout = time.Duration(altTimeoutMs) * time.Millisecond
	settings.Checks = DetectionChecks{
		DefaultAvatar:      defaultAvatar == 1,
		AccountAge10m:      age10m == 1,
		AccountAge1h:       age1h == 1,
		AccountAge1d:       age1d == 1,
		AccountAge1w:       age1w == 1,
		SuspiciousUsername: suspicious == 1,
		MessageBehavior:    behavior == 1,
	}
	return settings, true, nil
}

func (s *Store) UpsertDetectionSettings(ctx context.Context, settings DetectionSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO detection_settings (
			guild_id, enabled, allow_kick, allow_timeout, log_alerts, log_channel,
			alt_enabled, alt_action, alt_timeout_ms,
			check_default_avatar, check_account_age_10m, check_account_age_1h,
			check_account_age_1d, check_account_age_1w, check_suspicious_username,
			check_message_behavior
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			enabled = excluded.enabled,
			allow_kick = excluded.allow_kick,
			allow_timeout = excluded.allow_timeout,
			log_alerts = excluded.log_alerts,
			log_channel = excluded.log_channel,
			alt_enabled = excluded.alt_enabled,
			alt_action = excluded.alt_action,
			alt_timeout_ms = excluded.alt_timeout_ms,
			check_default_avatar = excluded.check_default_avatar,
			check_account_age_10m = excluded.check_account_age_10m,
			check_account_age_1h = excluded.check_account_age_1h,
			check_account_age_1d = excluded.check_account_age_1d,
			check_account_age_1w = excluded.check_account_age_1w,
			check_suspicious_username = excluded.check_suspicious_username,
			check_message_behavior = excluded.check_message_behavior
	`,
		settings.GuildID,
		boolToInt(settings.Enabled),
		boolToInt(settings.AllowKick),
		boolToInt(settings.AllowTimeout),
		boolToInt(settings.LogAlerts),
		settings.LogChannel,
		boolToInt(settings.AltDetection.Enabled),
		settings.AltDetection.Action,
		settings.AltDetection.Timeout.Milliseconds(),
		boolToInt(settings.Checks.DefaultAvatar),
		boolToInt(settings.Checks.AccountAge10m),
		boolToInt(settings.Checks.AccountAge1h),
		boolToInt(settings.Checks.AccountAge1d),
		boolToInt(settings.Checks.AccountAge1w),
		boolToInt(settings.Checks.SuspiciousUsername),
		boolToInt(settings.Checks.MessageBehavior),
	)
	return err
}
