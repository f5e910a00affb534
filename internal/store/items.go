package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/model"
)

const itemColumns = `id, name, quantity, unit, cost_per_unit, total_cost, selling_price, supplier,
	date_added, last_updated, location, min_stock_level, max_stock_level, reorder_quantity,
	notes, created_at, deleted_at`

// ItemDetails are the catalog fields that can be edited without touching stock.
type ItemDetails struct {
	Name            string
	Unit            string
	CostPerUnit     decimal.Decimal
	SellingPrice    decimal.Decimal
	Supplier        string
	Location        string
	MinStockLevel   int
	MaxStockLevel   int
	ReorderQuantity int
	Notes           string
}

// CreateItem inserts a new item. A zero ID lets SQLite allocate one. The
// total cost is computed from quantity and cost per unit at insert time.
func CreateItem(ctx context.Context, q sqlx.ExtContext, item model.Item) (*model.Item, error) {
	if item.DateAdded.IsZero() {
		item.DateAdded = time.Now()
	}

	var id any
	if item.ID > 0 {
		id = item.ID
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO items (id, name, quantity, unit, cost_per_unit, total_cost, selling_price,
		                    supplier, date_added, location, min_stock_level, max_stock_level,
		                    reorder_quantity, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.Name, item.Quantity, item.Unit, item.CostPerUnit, item.ComputeTotalCost(),
		item.SellingPrice, item.Supplier, model.Day(item.DateAdded), item.Location,
		item.MinStockLevel, item.MaxStockLevel, item.ReorderQuantity, item.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	newID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, q, newID)
}

// GetItem returns an item by ID, including soft-deleted items so history can
// still be shown. A missing row yields ErrNotFound.
func GetItem(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Item, error) {
	var item model.Item
	err := sqlx.GetContext(ctx, q, &item,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return &item, nil
}

// ListItems returns all non-deleted items ordered by name. A non-empty search
// term restricts the result to names containing it, case-insensitively.
func ListItems(ctx context.Context, q sqlx.QueryerContext, search string) ([]model.Item, error) {
	var items []model.Item
	var err error

	if search != "" {
		err = sqlx.SelectContext(ctx, q, &items,
			`SELECT `+itemColumns+` FROM items
			 WHERE deleted_at IS NULL AND instr(lower(name), lower(?)) > 0
			 ORDER BY name, id`, search)
	} else {
		err = sqlx.SelectContext(ctx, q, &items,
			`SELECT `+itemColumns+` FROM items WHERE deleted_at IS NULL ORDER BY name, id`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	return items, nil
}

// ListItemsNeedingReorder returns non-deleted items at or below their minimum
// stock level.
func ListItemsNeedingReorder(ctx context.Context, q sqlx.QueryerContext) ([]model.Item, error) {
	var items []model.Item
	err := sqlx.SelectContext(ctx, q, &items,
		`SELECT `+itemColumns+` FROM items
		 WHERE deleted_at IS NULL AND min_stock_level > 0 AND quantity <= min_stock_level
		 ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing items needing reorder: %w", err)
	}
	return items, nil
}

// DecrementQuantity removes amount from an item's stock. The update is
// conditional on enough stock being present, so it can never leave a negative
// quantity behind. It does not commit; run it on the caller's transaction.
func DecrementQuantity(ctx context.Context, q sqlx.ExtContext, id int64, amount int) (*model.Item, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("decrement amount must be positive, got %d", amount)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE items SET quantity = quantity - ?
		 WHERE id = ? AND deleted_at IS NULL AND quantity >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return nil, fmt.Errorf("decrementing quantity: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking decrement result: %w", err)
	}
	if n == 0 {
		item, err := GetItem(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if item.DeletedAt != nil {
			return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("item %d has %d, need %d: %w", id, item.Quantity, amount, ErrInsufficientStock)
	}

	return GetItem(ctx, q, id)
}

// IncrementQuantity adds amount to an item's stock.
func IncrementQuantity(ctx context.Context, q sqlx.ExtContext, id int64, amount int) (*model.Item, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("increment amount must be positive, got %d", amount)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE items SET quantity = quantity + ? WHERE id = ? AND deleted_at IS NULL`,
		amount, id,
	)
	if err != nil {
		return nil, fmt.Errorf("incrementing quantity: %w", err)
	}
	if err := requireRow(result, id); err != nil {
		return nil, err
	}

	return GetItem(ctx, q, id)
}

// SetQuantity overwrites an item's stock with an absolute value and stamps
// last_updated.
func SetQuantity(ctx context.Context, q sqlx.ExtContext, id int64, quantity int) (*model.Item, error) {
	if quantity < 0 {
		return nil, fmt.Errorf("quantity must not be negative, got %d", quantity)
	}

	result, err := q.ExecContext(ctx,
		`UPDATE items SET quantity = ?, last_updated = ? WHERE id = ? AND deleted_at IS NULL`,
		quantity, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("setting quantity: %w", err)
	}
	if err := requireRow(result, id); err != nil {
		return nil, err
	}

	return GetItem(ctx, q, id)
}

// UpdateItemDetails rewrites an item's catalog fields. The total cost is
// recomputed from the current quantity because this is a catalog write.
func UpdateItemDetails(ctx context.Context, q sqlx.ExtContext, id int64, d ItemDetails) (*model.Item, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET name = ?, unit = ?, cost_per_unit = ?, selling_price = ?, supplier = ?,
		                  location = ?, min_stock_level = ?, max_stock_level = ?,
		                  reorder_quantity = ?, notes = ?, last_updated = ?
		 WHERE id = ? AND deleted_at IS NULL`,
		d.Name, d.Unit, d.CostPerUnit, d.SellingPrice, d.Supplier, d.Location,
		d.MinStockLevel, d.MaxStockLevel, d.ReorderQuantity, d.Notes, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if err := requireRow(result, id); err != nil {
		return nil, err
	}

	return RefreshTotalCost(ctx, q, id)
}

// RefreshTotalCost sets total_cost to quantity × cost_per_unit.
func RefreshTotalCost(ctx context.Context, q sqlx.ExtContext, id int64) (*model.Item, error) {
	item, err := GetItem(ctx, q, id)
	if err != nil {
		return nil, err
	}

	item.TotalCost = item.ComputeTotalCost()
	if _, err := q.ExecContext(ctx,
		`UPDATE items SET total_cost = ? WHERE id = ?`, item.TotalCost, id,
	); err != nil {
		return nil, fmt.Errorf("refreshing total cost: %w", err)
	}
	return item, nil
}

// DeleteItem soft-deletes an item. Ledger entries and issuance records keep
// pointing at the row.
func DeleteItem(ctx context.Context, q sqlx.ExtContext, id int64) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return requireRow(result, id)
}

func requireRow(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}
