package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Warn is a moderator-issued warning. ModeratorTag is the display tag
// at issue time so listings survive username changes.
type Warn struct {
	ID           string
	GuildID      string
	UserID       string
	Reason       string
	ModeratorID  string
	ModeratorTag string
	CreatedAt    time.Time
}

func (s *Store) AddWarn(ctx context.Context, w Warn) (string, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO warns (id, guild_id, user_id, reason, moderator_id, moderator_tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, w.ID, w.GuildID, w.UserID, w.Reason, w.ModeratorID, w.ModeratorTag, s.now().Unix())
	return w.ID, err
}

func (s *Store) ListWarns(ctx context.Context, guildID, userID string) ([]Warn, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, guild_id, user_id, reason, moderator_id, moderator_tag, created_at
		FROM warns
		WHERE guild_id = ? AND user_id = ?
		ORDER BY created_at DESC
	`, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var warns []Warn
	for rows.Next() {
		var w Warn
		var created int64
		if err := rows.Scan(&w.ID, &w.GuildID, &w.UserID, &w.Reason, &w.ModeratorID, &w.ModeratorTag, &created); err != nil {
			return nil, err
		}
		w.CreatedAt = time.Unix(created, 0)
		warns = append(warns, w)
	}
	return warns, rows.Err()
}

// RemoveWarn deletes a warn by id, scoped to the guild. It reports
// whether a row was removed.
func (s *Store) RemoveWarn(ctx context.Context, guildID, warnID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM warns WHERE guild_id = ? AND id = ?`, guildID, warnID)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}
