package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
)

var ErrMigrationLocked = errors.New("another migration holds the lock")

// LockKey is the pg advisory lock id for an app's migrations. Apps sharing a
// database get distinct keys and only serialize against themselves.
func LockKey(app string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("migrate:" + app))
	return int64(h.Sum64())
}

// withMigrationLock runs fn while holding the app's advisory lock. Advisory
// locks belong to a session, so lock and unlock share one pinned connection.
func withMigrationLock(ctx context.Context, db *sql.DB, app string, fn func() error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("pin migration connection: %w", err)
	}
	defer conn.Close()

	key := LockKey(app)
	var locked bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&locked); err != nil {
		return fmt.Errorf("take migration lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: app=%s key=%d", ErrMigrationLocked, app, key)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", key)
	}()

	return fn()
}
