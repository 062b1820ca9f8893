package migration

import (
	"context"
	"database/sql"
	"fmt"
)

// StatusActive marks an app's schema row once migrate and seed both finished.
const StatusActive = "active"

// markSchemaActive records the schema this binary migrated to, keyed by app
// so several services can share one database.
func markSchemaActive(ctx context.Context, db *sql.DB, app string, schema Schema) error {
	const stmt = `
		INSERT INTO schema_state (app, status, schema_version, checksum, migrated_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (app) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    migrated_at = EXCLUDED.migrated_at,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := db.ExecContext(ctx, stmt, app, StatusActive, schema.VersionString(), schema.Checksum); err != nil {
		return fmt.Errorf("record schema state for %s: %w", app, err)
	}
	return nil
}
