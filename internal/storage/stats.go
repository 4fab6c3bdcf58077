package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Stats retention windows. Hourly message buckets and voice sessions
// keep 30 days; daily snapshots keep 60.
const (
	StatsRetention    = 30 * 24 * time.Hour
	SnapshotRetention = 60 * 24 * time.Hour
)

// hourBucket floors t to the start of its UTC hour.
func hourBucket(t time.Time) int64 {
	return t.UTC().Truncate(time.Hour).Unix()
}

// dayBucket floors t to the start of its UTC day.
func dayBucket(t time.Time) int64 {
	return t.UTC().Truncate(24 * time.Hour).Unix()
}

// TrackMessage increments the hourly message counter for a channel and
// author.
func (s *Store) TrackMessage(ctx context.Context, guildID, channelID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO message_stats (guild_id, bucket, channel_id, user_id, count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(guild_id, bucket, channel_id, user_id) DO UPDATE SET
			count = count + 1
	`, guildID, hourBucket(s.now()), channelID, userID)
	return err
}

// VoiceJoin opens a voice session. Joining while a session is open
// replaces it; the stale session is dropped rather than double counted.
func (s *Store) VoiceJoin(ctx context.Context, guildID, userID, channelID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO active_voice_sessions (guild_id, user_id, channel_id, join_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			join_time = excluded.join_time
	`, guildID, userID, channelID, s.now().Unix())
	return err
}

// VoiceLeave closes the member's open session and records its duration.
// Leaving with no open session is a no-op.
func (s *Store) VoiceLeave(ctx context.Context, guildID, userID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var channelID string
	var joinTime int64
	row := tx.QueryRowContext(ctx, `
		SELECT channel_id, join_time FROM active_voice_sessions
		WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	scanErr := row.Scan(&channelID, &joinTime)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return tx.Rollback()
	}
	if scanErr != nil {
		err = scanErr
		return err
	}

	leave := s.now().Unix()
	duration := leave - joinTime
	if duration < 0 {
		duration = 0
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO voice_sessions (guild_id, user_id, channel_id, join_time, leave_time, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?)`, guildID, userID, channelID, joinTime, leave, duration)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM active_voice_sessions WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// VoiceMove closes the current session and opens one in the new channel.
func (s *Store) VoiceMove(ctx context.Context, guildID, userID, channelID string) error {
	if err := s.VoiceLeave(ctx, guildID, userID); err != nil {
		return err
	}
	return s.VoiceJoin(ctx, guildID, userID, channelID)
}

// TrackInviteJoin attributes a member join to the invite it arrived on.
func (s *Store) TrackInviteJoin(ctx context.Context, guildID, userID, inviteCode, inviterID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invite_joins (guild_id, user_id, invite_code, inviter_id, joined_at)
		VALUES (?, ?, ?, ?, ?)`, guildID, userID, inviteCode, inviterID, s.now().Unix())
	return err
}

// ListStatsGuilds returns the guilds with activity tracking on,
// skipping guilds pending deletion.
func (s *Store) ListStatsGuilds(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id FROM guilds
		WHERE stats_enabled = 1 AND pending_deletion IS NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guildIDs []string
	for rows.Next() {
		var guildID string
		if err := rows.Scan(&guildID); err != nil {
			return nil, err
		}
		guildIDs = append(guildIDs, guildID)
	}
	return guildIDs, rows.Err()
}

// SaveDailySnapshot upserts the guild's snapshot for today.
func (s *Store) SaveDailySnapshot(ctx context.Context, guildID string, messages, voiceMinutes, memberCount int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_snapshots (guild_id, day, messages, voice_minutes, member_count)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, day) DO UPDATE SET
			messages = excluded.messages,
			voice_minutes = excluded.voice_minutes,
			member_count = excluded.member_count
	`, guildID, dayBucket(s.now()), messages, voiceMinutes, memberCount)
	return err
}

// GuildActivity is the aggregate report backing the serverstats command.
type GuildActivity struct {
	Messages     int
	VoiceMinutes int
	Joins        int
	TopChannels  []ChannelCount
	TopUsers     []UserCount
	TopInviters  []UserCount
	HourlyCounts []BucketCount
}

type ChannelCount struct {
	ChannelID string
	Count     int
}

type UserCount struct {
	UserID string
	Count  int
}

type BucketCount struct {
	Bucket time.Time
	Count  int
}

// GuildActivitySince aggregates message, voice and join activity in the
// guild since the given time.
func (s *Store) GuildActivitySince(ctx context.Context, guildID string, since time.Time) (GuildActivity, error) {
	var report GuildActivity
	cutoff := since.Unix()

	row := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0) FROM message_stats
		WHERE guild_id = ? AND bucket >= ?`, guildID, cutoff)
	if err := row.Scan(&report.Messages); err != nil {
		return report, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(duration_seconds), 0) / 60 FROM voice_sessions
		WHERE guild_id = ? AND join_time >= ?`, guildID, cutoff)
	if err := row.Scan(&report.VoiceMinutes); err != nil {
		return report, err
	}

	row = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM join_history
		WHERE guild_id = ? AND joined_at >= ?`, guildID, cutoff)
	if err := row.Scan(&report.Joins); err != nil {
		return report, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, SUM(count) AS total FROM message_stats
		WHERE guild_id = ? AND bucket >= ?
		GROUP BY channel_id ORDER BY total DESC LIMIT 5`, guildID, cutoff)
	if err != nil {
		return report, err
	}
	for rows.Next() {
		var cc ChannelCount
		if err := rows.Scan(&cc.ChannelID, &cc.Count); err != nil {
			rows.Close()
			return report, err
		}
		report.TopChannels = append(report.TopChannels, cc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT user_id, SUM(count) AS total FROM message_stats
		WHERE guild_id = ? AND bucket >= ?
		GROUP BY user_id ORDER BY total DESC LIMIT 5`, guildID, cutoff)
	if err != nil {
		return report, err
	}
	for rows.Next() {
		var uc UserCount
		if err := rows.Scan(&uc.UserID, &uc.Count); err != nil {
			rows.Close()
			return report, err
		}
		report.TopUsers = append(report.TopUsers, uc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT inviter_id, COUNT(*) AS total FROM invite_joins
		WHERE guild_id = ? AND joined_at >= ? AND inviter_id != ''
		GROUP BY inviter_id ORDER BY total DESC LIMIT 5`, guildID, cutoff)
	if err != nil {
		return report, err
	}
	for rows.Next() {
		var uc UserCount
		if err := rows.Scan(&uc.UserID, &uc.Count); err != nil {
			rows.Close()
			return report, err
		}
		report.TopInviters = append(report.TopInviters, uc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return report, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT bucket, SUM(count) FROM message_stats
		WHERE guild_id = ? AND bucket >= ?
		GROUP BY bucket ORDER BY bucket ASC`, guildID, cutoff)
	if err != nil {
		return report, err
	}
	defer rows.Close()
	for rows.Next() {
		var bc BucketCount
		var bucket int64
		if err := rows.Scan(&bucket, &bc.Count); err != nil {
			return report, err
		}
		bc.Bucket = time.Unix(bucket, 0).UTC()
		report.HourlyCounts = append(report.HourlyCounts, bc)
	}
	return report, rows.Err()
}

// CleanupStats trims message buckets, voice sessions, invite joins and
// snapshots past their retention windows.
func (s *Store) CleanupStats(ctx context.Context) error {
	cutoff := s.now().Add(-StatsRetention).Unix()
	snapshotCutoff := s.now().Add(-SnapshotRetention).Unix()
	statements := []struct {
		query string
		arg   int64
	}{
		{`DELETE FROM message_stats WHERE bucket < ?`, cutoff},
		{`DELETE FROM voice_sessions WHERE join_time < ?`, cutoff},
		{`DELETE FROM invite_joins WHERE joined_at < ?`, cutoff},
		{`DELETE FROM daily_snapshots WHERE day < ?`, snapshotCutoff},
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt.query, stmt.arg); err != nil {
			return err
		}
	}
	return nil
}
