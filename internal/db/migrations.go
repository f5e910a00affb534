package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: issuance listings are filtered by item on the item page.
	`CREATE INDEX IF NOT EXISTS idx_issued_items_item ON issued_items(item_id)`,
	// Migration 2: at most one ledger entry may point at a given issuance.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_issuance
	     ON ledger(issuance_id) WHERE issuance_id IS NOT NULL`,
}

// Migrate ensures the schema exists and applies pending migrations.
func Migrate(db *sqlx.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
