package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/zaloga/internal/model"
)

const issuanceColumns = `id, item_id, name, quantity_issued, date_issued, department_name, issued_by`

// CreateIssuance records an issuance. Rows are never updated or deleted.
func CreateIssuance(ctx context.Context, q sqlx.ExtContext, iss model.Issuance) (*model.Issuance, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO issued_items (item_id, name, quantity_issued, date_issued, department_name, issued_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		iss.ItemID, iss.ItemName, iss.QuantityIssued, model.Day(iss.DateIssued), iss.DepartmentName, iss.IssuedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("creating issuance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting issuance id: %w", err)
	}

	return GetIssuance(ctx, q, id)
}

// GetIssuance returns an issuance record by ID.
func GetIssuance(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Issuance, error) {
	var iss model.Issuance
	err := sqlx.GetContext(ctx, q, &iss,
		`SELECT `+issuanceColumns+` FROM issued_items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("issuance %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting issuance: %w", err)
	}
	return &iss, nil
}

// ListIssuances returns issuance records ordered by date and ID. A non-zero
// itemID restricts the list to that item.
func ListIssuances(ctx context.Context, q sqlx.QueryerContext, itemID int64) ([]model.Issuance, error) {
	query := `SELECT ` + issuanceColumns + ` FROM issued_items`
	var args []any

	if itemID > 0 {
		query += ` WHERE item_id = ?`
		args = append(args, itemID)
	}
	query += ` ORDER BY date_issued, id`

	var records []model.Issuance
	if err := sqlx.SelectContext(ctx, q, &records, query, args...); err != nil {
		return nil, fmt.Errorf("listing issuances: %w", err)
	}
	return records, nil
}
