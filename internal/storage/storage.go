package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store wraps the sqlite database. TTL-bearing tables (global
// infractions, behavior tracking) are filtered on read and purged by
// the hourly worker; rows are never trusted to disappear on their own.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Guild is the per-guild bookkeeping row created when the bot joins.
type Guild struct {
	GuildID          string
	Language         string
	StatsEnabled     bool
	ExcludedChannels []string
	JoinedAt         time.Time
	PendingDeletion  *time.Time
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

// WithNow overrides the clock, for TTL tests.
func (s *Store) WithNow(now func() time.Time) {
	s.now = now
}

func (s *Store) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Store) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *Store) UpsertGuild(ctx context.Context, guild Guild) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guilds (guild_id, language, stats_enabled, stats_excluded_channels, joined_at, pending_deletion)
		VALUES (?, ?, ?, ?, ?, NULL)
		ON CONFLICT(guild_id) DO UPDATE SET
			language = excluded.language,
			pending_deletion = NULL
	`, guild.GuildID, guild.Language, boolToInt(guild.StatsEnabled), encodeStrings(guild.ExcludedChannels), guild.JoinedAt.Unix())
	return err
}

func (s *Store) GetGuild(ctx context.Context, guildID string) (Guild, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT guild_id, language, stats_enabled, stats_excluded_channels, joined_at, pending_deletion
		FROM guilds WHERE guild_id = ?`, guildID)

	var guild Guild
	var statsEnabled int
	var excluded string
	var joinedAt int64
	var pending sql.NullInt64
	err := row.Scan(&guild.GuildID, &guild.Language, &statsEnabled, &excluded, &joinedAt, &pending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Guild{}, false, nil
		}
		return Guild{}, false, err
	}
	guild.StatsEnabled = statsEnabled == 1
	guild.ExcludedChannels = decodeStrings(excluded)
	guild.JoinedAt = time.Unix(joinedAt, 0)
	if pending.Valid {
		value := time.Unix(pending.Int64, 0)
		guild.PendingDeletion = &value
	}
	return guild, true, nil
}

func (s *Store) SetStatsEnabled(ctx context.Context, guildID string, enabled bool, excludedChannels []string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guilds (guild_id, language, stats_enabled, stats_excluded_channels, joined_at)
		VALUES (?, 'en', ?, ?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET
			stats_enabled = excluded.stats_enabled,
			stats_excluded_channels = excluded.stats_excluded_channels
	`, guildID, boolToInt(enabled), encodeStrings(excludedChannels), s.now().Unix())
	return err
}

// MarkPendingDeletion schedules a guild's data for removal after the
// grace period. Rejoining clears the mark via UpsertGuild.
func (s *Store) MarkPendingDeletion(ctx context.Context, guildID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE guilds SET pending_deletion = ? WHERE guild_id = ?`, at.Unix(), guildID)
	return err
}

// PurgeDeletedGuilds removes all data belonging to guilds whose
// deletion grace period has elapsed. Returns the purged guild IDs.
func (s *Store) PurgeDeletedGuilds(ctx context.Context) ([]string, error) {
	now := s.now().Unix()
	rows, err := s.db.QueryContext(ctx, `SELECT guild_id FROM guilds WHERE pending_deletion IS NOT NULL AND pending_deletion <= ?`, now)
	if err != nil {
		return nil, err
	}
	var guildIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		guildIDs = append(guildIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, guildID := range guildIDs {
		for _, table := range []string{
			"detection_settings", "behavior_tracking", "join_history", "infractions",
			"warns", "message_stats", "active_voice_sessions", "voice_sessions",
			"invite_joins", "daily_snapshots", "guilds",
		} {
			if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE guild_id = ?`, guildID); err != nil {
				return guildIDs, err
			}
		}
	}
	return guildIDs, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
