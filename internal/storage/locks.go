package storage

import (
	"context"
	"time"
)

// AcquireLock takes a named lease for the holder. It succeeds when the
// key is free or its current lease has expired; a live lease held by
// someone else is left alone. Multiple bot instances sharing a database
// use this to elect a single maintenance runner.
func (s *Store) AcquireLock(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	now := s.now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO worker_locks (key, holder, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE worker_locks.expires_at <= ? OR worker_locks.holder = excluded.holder
	`, key, holder, now.Add(ttl).Unix(), now.Unix())
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// ReleaseLock frees the lease if this holder still owns it.
func (s *Store) ReleaseLock(ctx context.Context, key, holder string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM worker_locks WHERE key = ? AND holder = ?`, key, holder)
	return err
}
