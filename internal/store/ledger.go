package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/zaloga/internal/model"
)

const ledgerColumns = `id, item_id, transaction_type, quantity, balance_after, transaction_date, issuance_id`

// AppendLedgerEntry writes one ledger line. It enforces no business rules;
// the only failures are storage and constraint errors.
func AppendLedgerEntry(ctx context.Context, q sqlx.ExtContext, e model.LedgerEntry) (*model.LedgerEntry, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO ledger (item_id, transaction_type, quantity, balance_after, transaction_date, issuance_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ItemID, e.TransactionType, e.Quantity, e.BalanceAfter, model.Day(e.TransactionDate), e.IssuanceID,
	)
	if err != nil {
		return nil, fmt.Errorf("appending ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting ledger entry id: %w", err)
	}

	return GetLedgerEntry(ctx, q, id)
}

// GetLedgerEntry returns a single ledger line by ID.
func GetLedgerEntry(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.LedgerEntry, error) {
	var e model.LedgerEntry
	err := sqlx.GetContext(ctx, q, &e,
		`SELECT `+ledgerColumns+` FROM ledger WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting ledger entry: %w", err)
	}
	return &e, nil
}

// ListLedgerForItem returns an item's ledger in chronological order: by
// transaction date, then by insertion order within a day.
func ListLedgerForItem(ctx context.Context, q sqlx.QueryerContext, itemID int64) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := sqlx.SelectContext(ctx, q, &entries,
		`SELECT `+ledgerColumns+` FROM ledger
		 WHERE item_id = ?
		 ORDER BY transaction_date, id`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing ledger: %w", err)
	}
	return entries, nil
}
