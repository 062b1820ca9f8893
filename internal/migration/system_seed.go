package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type tierSeed struct {
	Code string
	Name string
}

// defaultTiers are the partner tier labels every installation starts with.
var defaultTiers = []tierSeed{
	{Code: "standard", Name: "Standard"},
	{Code: "silver", Name: "Silver"},
	{Code: "gold", Name: "Gold"},
}

func seedSystemImmutableData(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("system seed requires database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := seedPartnerTiers(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}

func seedPartnerTiers(ctx context.Context, tx *sql.Tx) error {
	const stmt = `
		INSERT INTO partner_tiers (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name
	`

	for _, seed := range defaultTiers {
		if _, err := tx.ExecContext(ctx, stmt, seed.Code, seed.Name); err != nil {
			return fmt.Errorf("seed partner tier %s: %w", seed.Code, err)
		}
	}
	return nil
}
