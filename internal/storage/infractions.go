package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// GlobalInfractionTTL is the fixed lifetime of a ledger entry, counted
// from creation. It is not refreshed by later infractions.
const GlobalInfractionTTL = 45 * 24 * time.Hour

// InfractionTTL bounds how long per-guild moderation records are kept.
const InfractionTTL = 45 * 24 * time.Hour

// GlobalInfraction is the cross-guild reputation record for a user.
// InfractionCount increments per triggering event; Servers accumulates
// the distinct guilds that have seen one.
type GlobalInfraction struct {
	UserID          string
	Servers         []string
	InfractionCount int
	LastInfraction  time.Time
	CreatedAt       time.Time
}

// Infraction is a single per-guild moderation record (warn, timeout,
// kick, ban).
type Infraction struct {
	ID          string
	GuildID     string
	UserID      string
	Kind        string
	Reason      string
	ModeratorID string
	CreatedAt   time.Time
}

// GetGlobalInfraction returns the unexpired ledger entry for a user.
// Expired rows are treated as absent; the worker deletes them later.
func (s *Store) GetGlobalInfraction(ctx context.Context, userID string) (GlobalInfraction, bool, error) {
	cutoff := s.now().Add(-GlobalInfractionTTL).Unix()
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, infraction_count, last_infraction, created_at
		FROM global_infractions
		WHERE user_id = ? AND created_at > ?`, userID, cutoff)

	var inf GlobalInfraction
	var last, created int64
	err := row.Scan(&inf.UserID, &inf.InfractionCount, &last, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GlobalInfraction{}, false, nil
		}
		return GlobalInfraction{}, false, err
	}
	inf.LastInfraction = time.Unix(last, 0)
	inf.CreatedAt = time.Unix(created, 0)

	rows, err := s.db.QueryContext(ctx, `SELECT guild_id FROM global_infraction_guilds WHERE user_id = ?`, userID)
	if err != nil {
		return GlobalInfraction{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var guildID string
		if err := rows.Scan(&guildID); err != nil {
			return GlobalInfraction{}, false, err
		}
		inf.Servers = append(inf.Servers, guildID)
	}
	return inf, true, rows.Err()
}

// IncrementGlobalInfraction bumps the ledger for a user and records the
// guild in its server set. An expired entry is replaced by a fresh one,
// restarting the TTL from now.
func (s *Store) IncrementGlobalInfraction(ctx context.Context, userID, guildID string) (GlobalInfraction, error) {
	now := s.now()
	cutoff := now.Add(-GlobalInfractionTTL).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return GlobalInfraction{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var count int
	var created int64
	row := tx.QueryRowContext(ctx, `SELECT infraction_count, created_at FROM global_infractions WHERE user_id = ?`, userID)
	scanErr := row.Scan(&count, &created)
	if scanErr != nil && !errors.Is(scanErr, sql.ErrNoRows) {
		err = scanErr
		return GlobalInfraction{}, err
	}
	fresh := errors.Is(scanErr, sql.ErrNoRows) || created <= cutoff
	if fresh {
		// Either no entry or one past its TTL; start over.
		if _, err = tx.ExecContext(ctx, `DELETE FROM global_infraction_guilds WHERE user_id = ?`, userID); err != nil {
			return GlobalInfraction{}, err
		}
		count = 0
		created = now.Unix()
	}
	count++

	_, err = tx.ExecContext(ctx, `
		INSERT INTO global_infractions (user_id, infraction_count, last_infraction, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			infraction_count = excluded.infraction_count,
			last_infraction = excluded.last_infraction,
			created_at = excluded.created_at
	`, userID, count, now.Unix(), created)
	if err != nil {
		return GlobalInfraction{}, err
	}
	_, err = tx.ExecContext(ctx, `INSERT OR IGNORE INTO global_infraction_guilds (user_id, guild_id) VALUES (?, ?)`, userID, guildID)
	if err != nil {
		return GlobalInfraction{}, err
	}
	if err = tx.Commit(); err != nil {
		return GlobalInfraction{}, err
	}

	return GlobalInfraction{
		UserID:          userID,
		InfractionCount: count,
		LastInfraction:  now,
		CreatedAt:       time.Unix(created, 0),
	}, nil
}

// PurgeExpiredGlobalInfractions deletes ledger rows past their TTL.
func (s *Store) PurgeExpiredGlobalInfractions(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-GlobalInfractionTTL).Unix()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM global_infraction_guilds WHERE user_id IN
		(SELECT user_id FROM global_infractions WHERE created_at <= ?)`, cutoff)
	if err != nil {
		return 0, err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM global_infractions WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (s *Store) AddInfraction(ctx context.Context, inf Infraction) (string, error) {
	if inf.ID == "" {
		inf.ID = uuid.NewString()
	}
	if inf.Reason == "" {
		inf.Reason = "No reason provided"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO infractions (id, guild_id, user_id, kind, reason, moderator_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, inf.ID, inf.GuildID, inf.UserID, inf.Kind, inf.Reason, inf.ModeratorID, s.now().Unix())
	return inf.ID, err
}

func (s *Store) ListInfractions(ctx context.Context, guildID, userID string) ([]Infraction, error) {
	cutoff := s.now().Add(-InfractionTTL).Unix()
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, kind, reason, moderator_id, created_at
		FROM infractions
		WHERE guild_id = ? AND user_id = ? AND created_at > ?
		ORDER BY created_at DESC
	`, guildID, userID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infractions []Infraction
	for rows.Next() {
		var inf Infraction
		var created int64
		if err := rows.Scan(&inf.ID, &inf.GuildID, &inf.UserID, &inf.Kind, &inf.Reason, &inf.ModeratorID, &created); err != nil {
			return nil, err
		}
		inf.CreatedAt = time.Unix(created, 0)
		infractions = append(infractions, inf)
	}
	return infractions, rows.Err()
}

func (s *Store) PurgeExpiredInfractions(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-InfractionTTL).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM infractions WHERE created_at <= ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
