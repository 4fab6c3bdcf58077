package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TrackingTTL is the behavioral observation window for new members,
// counted from tracking creation.
const TrackingTTL = 2 * time.Hour

// BehaviorEntry accumulates message behavior for a recently joined
// member. ChannelsUsed and SimilarMessages are sets.
type BehaviorEntry struct {
	GuildID         string
	UserID          string
	JoinedAt        time.Time
	MessageCount    int
	LinksSent       int
	MentionCount    int
	ChannelsUsed    []string
	SimilarMessages []string
	Analyzed        bool
	CreatedAt       time.Time
}

// BehaviorDelta carries the per-message increments applied to a
// tracking entry. Channel and Fingerprint are unioned into their sets
// when non-empty.
type BehaviorDelta struct {
	Messages    int
	Links       int
	Mentions    int
	Channel     string
	Fingerprint string
	Analyzed    bool
}

// CreateTracking opens an observation window for a member. Creating a
// window that already exists is a no-op; an expired leftover row is
// replaced with a fresh one.
func (s *Store) CreateTracking(ctx context.Context, guildID, userID string, joinedAt time.Time) error {
	now := s.now()
	cutoff := now.Add(-TrackingTTL).Unix()
	// Refuse to resurrect a live window, but reclaim an expired one.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO behavior_tracking (guild_id, user_id, joined_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			joined_at = excluded.joined_at,
			message_count = 0,
			links_sent = 0,
			mention_count = 0,
			channels_used = '[]',
			similar_messages = '[]',
			analyzed = 0,
			created_at = excluded.created_at
		WHERE behavior_tracking.created_at <= ?
	`, guildID, userID, joinedAt.Unix(), now.Unix(), cutoff)
	return err
}

// GetTracking returns the live observation entry for a member, if any.
func (s *Store) GetTracking(ctx context.Context, guildID, userID string) (BehaviorEntry, bool, error) {
	cutoff := s.now().Add(-TrackingTTL).Unix()
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, user_id, joined_at, message_count, links_sent, mention_count,
		       channels_used, similar_messages, analyzed, created_at
		FROM behavior_tracking
		WHERE guild_id = ? AND user_id = ? AND created_at > ?
	`, guildID, userID, cutoff)

	var entry BehaviorEntry
	var joined, created int64
	var channels, similar string
	var analyzed int
	err := row.Scan(&entry.GuildID, &entry.UserID, &joined, &entry.MessageCount, &entry.LinksSent,
		&entry.MentionCount, &channels, &similar, &analyzed, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return BehaviorEntry{}, false, nil
		}
		return BehaviorEntry{}, false, err
	}
	entry.JoinedAt = time.Unix(joined, 0)
	entry.CreatedAt = time.Unix(created, 0)
	entry.Analyzed = analyzed != 0
	entry.ChannelsUsed = decodeStrings(channels)
	entry.SimilarMessages = decodeStrings(similar)
	return entry, true, nil
}

// UpdateTracking applies a delta to a member's observation entry and
// returns the updated state. A missing or expired entry makes the call
// a quiet no-op.
func (s *Store) UpdateTracking(ctx context.Context, guildID, userID string, delta BehaviorDelta) (BehaviorEntry, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BehaviorEntry{}, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	cutoff := s.now().Add(-TrackingTTL).Unix()
	row := tx.QueryRowContext(ctx, `
		SELECT joined_at, message_count, links_sent, mention_count,
		       channels_used, similar_messages, analyzed, created_at
		FROM behavior_tracking
		WHERE guild_id = ? AND user_id = ? AND created_at > ?
	`, guildID, userID, cutoff)

	var entry BehaviorEntry
	var joined, created int64
	var channels, similar string
	var analyzed int
	scanErr := row.Scan(&joined, &entry.MessageCount, &entry.LinksSent, &entry.MentionCount,
		&channels, &similar, &analyzed, &created)
	if errors.Is(scanErr, sql.ErrNoRows) {
		_ = tx.Rollback()
		return BehaviorEntry{}, false, nil
	}
	if scanErr != nil {
		err = scanErr
		return BehaviorEntry{}, false, err
	}

	entry.GuildID = guildID
	entry.UserID = userID
	entry.JoinedAt = time.Unix(joined, 0)
	entry.CreatedAt = time.Unix(created, 0)
	entry.Analyzed = analyzed != 0
	entry.ChannelsUsed = decodeStrings(channels)
	entry.SimilarMessages = decodeStrings(similar)

	entry.MessageCount += delta.Messages
	entry.LinksSent += delta.Links
	entry.MentionCount += delta.Mentions
	if delta.Channel != "" {
		entry.ChannelsUsed = appendUnique(entry.ChannelsUsed, delta.Channel)
	}
	if delta.Fingerprint != "" {
		entry.SimilarMessages = appendUnique(entry.SimilarMessages, delta.Fingerprint)
	}
	if delta.Analyzed {
		entry.Analyzed = true
	}

	channelsEnc := encodeStrings(entry.ChannelsUsed)
	similarEnc := encodeStrings(entry.SimilarMessages)
	_, err = tx.ExecContext(ctx, `
		UPDATE behavior_tracking SET
			message_count = ?, links_sent = ?, mention_count = ?,
			channels_used = ?, similar_messages = ?, analyzed = ?
		WHERE guild_id = ? AND user_id = ?
	`, entry.MessageCount, entry.LinksSent, entry.MentionCount,
		channelsEnc, similarEnc, boolToInt(entry.Analyzed), guildID, userID)
	if err != nil {
		return BehaviorEntry{}, false, err
	}
	if err = tx.Commit(); err != nil {
		return BehaviorEntry{}, false, err
	}
	return entry, true, nil
}

// PurgeExpiredTracking deletes observation rows past their window.
func (s *Store) PurgeExpiredTracking(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-TrackingTTL).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM behavior_tracking WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecordJoin stores the join event used by alt-account correlation.
func (s *Store) RecordJoin(ctx context.Context, guildID, userID, username string, accountCreatedAt, joinedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO join_history (guild_id, user_id, username, account_created_at, joined_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			username = excluded.username,
			account_created_at = excluded.account_created_at,
			joined_at = excluded.joined_at
	`, guildID, userID, username, accountCreatedAt.Unix(), joinedAt.Unix())
	return err
}

// JoinRecord is one member's recorded guild join.
type JoinRecord struct {
	GuildID          string
	UserID           string
	Username         string
	AccountCreatedAt time.Time
	JoinedAt         time.Time
}

// RecentJoins lists joins in the guild since the cutoff, newest first.
func (s *Store) RecentJoins(ctx context.Context, guildID string, since time.Time) ([]JoinRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT guild_id, user_id, username, account_created_at, joined_at
		FROM join_history
		WHERE guild_id = ? AND joined_at >= ?
		ORDER BY joined_at DESC
	`, guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []JoinRecord
	for rows.Next() {
		var rec JoinRecord
		var created, joined int64
		if err := rows.Scan(&rec.GuildID, &rec.UserID, &rec.Username, &created, &joined); err != nil {
			return nil, err
		}
		rec.AccountCreatedAt = time.Unix(created, 0)
		rec.JoinedAt = time.Unix(joined, 0)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// PurgeOldJoins trims join history older than the cutoff.
func (s *Store) PurgeOldJoins(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM join_history WHERE joined_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
