package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/railzwaylabs/partnerops/internal/config"
	"github.com/railzwaylabs/partnerops/internal/migration"
	"gorm.io/gorm"
)

var (
	ErrSchemaNotMigrated      = errors.New("schema_not_migrated")
	ErrSchemaNotActive        = errors.New("schema_not_active")
	ErrSchemaVersionMismatch  = errors.New("schema_version_mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema_checksum_mismatch")
)

// SchemaState is one app's row in schema_state, written by the migrate command.
type SchemaState struct {
	App           string    `gorm:"column:app;primaryKey"`
	Status        string    `gorm:"column:status"`
	SchemaVersion string    `gorm:"column:schema_version"`
	Checksum      string    `gorm:"column:checksum"`
	MigratedAt    time.Time `gorm:"column:migrated_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (SchemaState) TableName() string { return "schema_state" }

// Gate refuses startup unless this app's schema_state row matches the
// migrations embedded in the binary.
type Gate struct {
	db     *gorm.DB
	app    string
	schema migration.Schema
}

func NewGate(db *gorm.DB, cfg config.Config) (*Gate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	app := strings.TrimSpace(cfg.AppName)
	if app == "" {
		return nil, errors.New("schema gate requires app name")
	}
	schema, err := migration.EmbeddedSchema()
	if err != nil {
		return nil, err
	}
	return &Gate{db: db, app: app, schema: schema}, nil
}

func (g *Gate) Check(ctx context.Context) error {
	var state SchemaState
	err := g.db.WithContext(ctx).Where("app = ?", g.app).Take(&state).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: app=%s, run the migrate command", ErrSchemaNotMigrated, g.app)
	}
	if err != nil {
		return fmt.Errorf("load schema state: %w", err)
	}

	if status := strings.ToLower(strings.TrimSpace(state.Status)); status != migration.StatusActive {
		return fmt.Errorf("%w: app=%s status=%s", ErrSchemaNotActive, g.app, status)
	}
	if want := g.schema.VersionString(); strings.TrimSpace(state.SchemaVersion) != want {
		return fmt.Errorf("%w: app=%s db=%s binary=%s", ErrSchemaVersionMismatch, g.app, state.SchemaVersion, want)
	}
	if strings.TrimSpace(state.Checksum) != g.schema.Checksum {
		return fmt.Errorf("%w: app=%s db=%s binary=%s", ErrSchemaChecksumMismatch, g.app, state.Checksum, g.schema.Checksum)
	}
	return nil
}
