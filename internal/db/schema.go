package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id               INTEGER PRIMARY KEY,
    name             TEXT NOT NULL CHECK (name <> ''),
    quantity         INTEGER NOT NULL CHECK (quantity >= 0),
    unit             TEXT NOT NULL DEFAULT '',
    cost_per_unit    TEXT NOT NULL DEFAULT '0',
    total_cost       TEXT NOT NULL DEFAULT '0',
    selling_price    TEXT NOT NULL DEFAULT '0',
    supplier         TEXT NOT NULL DEFAULT '',
    date_added       DATE NOT NULL,
    last_updated     DATETIME,
    location         TEXT NOT NULL DEFAULT '',
    min_stock_level  INTEGER NOT NULL DEFAULT 0,
    max_stock_level  INTEGER NOT NULL DEFAULT 0,
    reorder_quantity INTEGER NOT NULL DEFAULT 0,
    notes            TEXT NOT NULL DEFAULT '',
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at       DATETIME
);

CREATE TABLE IF NOT EXISTS issued_items (
    id              INTEGER PRIMARY KEY,
    item_id         INTEGER NOT NULL,
    name            TEXT NOT NULL,
    quantity_issued INTEGER NOT NULL CHECK (quantity_issued > 0),
    date_issued     DATE NOT NULL,
    department_name TEXT NOT NULL CHECK (department_name <> ''),
    issued_by       INTEGER REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS ledger (
    id               INTEGER PRIMARY KEY,
    item_id          INTEGER NOT NULL REFERENCES items(id),
    transaction_type TEXT NOT NULL CHECK (transaction_type IN ('issue', 'receive', 'adjust')),
    quantity         INTEGER NOT NULL CHECK (quantity > 0),
    balance_after    INTEGER NOT NULL CHECK (balance_after >= 0),
    transaction_date DATE NOT NULL,
    issuance_id      INTEGER REFERENCES issued_items(id)
);

CREATE INDEX IF NOT EXISTS idx_ledger_item
    ON ledger(item_id, transaction_date, id);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
