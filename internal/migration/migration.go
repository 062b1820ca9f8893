package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

var ErrDirtySchema = errors.New("schema is dirty")

// RunMigrations brings app's schema up to the embedded version, seeds the
// partner tiers and stamps schema_state. Only the migrate entrypoint calls it.
func RunMigrations(db *sql.DB, app string, log *zap.Logger) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	app = strings.TrimSpace(app)
	if app == "" {
		return errors.New("migration app name is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	schema, err := EmbeddedSchema()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	return withMigrationLock(ctx, db, app, func() error {
		m, err := newMigrator(db, app)
		if err != nil {
			return err
		}

		from, err := cleanVersion(m)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("apply migrations: %w", err)
		}
		to, err := cleanVersion(m)
		if err != nil {
			return err
		}
		if to != schema.Version {
			return fmt.Errorf("migrated to %d, binary embeds %d", to, schema.Version)
		}

		if err := seedSystemImmutableData(ctx, db); err != nil {
			return err
		}
		if err := markSchemaActive(ctx, db, app, schema); err != nil {
			return err
		}

		log.Info("schema migrated",
			zap.String("app", app),
			zap.Uint("from_version", from),
			zap.Uint("to_version", to),
			zap.String("checksum", schema.Checksum))
		return nil
	})
}

// VersionTable is the golang-migrate bookkeeping table for app, so that apps
// sharing a database never read each other's migration version.
func VersionTable(app string) string {
	return strings.ReplaceAll(slug.Make(app), "-", "_") + "_schema_migrations"
}

func newMigrator(db *sql.DB, app string) (*migrate.Migrate, error) {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: VersionTable(app)})
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	return migrate.NewWithInstance("iofs", source, "postgres", driver)
}

// cleanVersion returns the applied version, or zero on a fresh database.
func cleanVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}
	return version, nil
}
