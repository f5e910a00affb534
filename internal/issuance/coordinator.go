// Package issuance owns every change to an item's quantity. Each change runs
// under a per-item lock inside one SQLite write transaction, so the item
// row, the issuance record and the ledger never disagree.
package issuance

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/zaloga/internal/metrics"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Coordinator serializes quantity changes per item and writes them
// atomically together with their ledger entries.
type Coordinator struct {
	db      *sqlx.DB
	locks   *keyedMutex
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a Coordinator. logger and m may be nil.
func New(db *sqlx.DB, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		db:      db,
		locks:   newKeyedMutex(),
		logger:  logger.With("component", "issuance"),
		metrics: m,
		now:     time.Now,
	}
}

// IssueRequest asks for stock to be handed to a department. A zero Date
// means today.
type IssueRequest struct {
	ItemID     int64
	Quantity   int
	Department string
	Date       time.Time
	IssuedBy   *int64
}

func (r IssueRequest) validate() error {
	if r.ItemID <= 0 {
		return invalid("item_id", "must be positive")
	}
	if r.Quantity <= 0 {
		return invalid("quantity", "must be greater than zero")
	}
	if strings.TrimSpace(r.Department) == "" {
		return invalid("department_name", "must not be empty")
	}
	return nil
}

// Issue removes stock from an item and records who received it. On success
// the item quantity, one issuance record and one "issue" ledger entry are
// committed together; on any error none of them change.
func (c *Coordinator) Issue(ctx context.Context, req IssueRequest) (*model.Issuance, error) {
	log := c.logger.With("item_id", req.ItemID, "quantity", req.Quantity)

	if err := req.validate(); err != nil {
		return nil, c.rejected(log, err, req.Quantity)
	}
	dept := strings.TrimSpace(req.Department)
	date := req.Date
	if date.IsZero() {
		date = c.now()
	}

	unlock := c.locks.Lock(req.ItemID)
	defer unlock()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, c.failed(log, commitFailed("begin", err), req.Quantity)
	}
	defer tx.Rollback()

	item, err := c.lookup(ctx, tx, req.ItemID)
	if errors.Is(err, ErrItemNotFound) {
		return nil, c.rejected(log, err, req.Quantity)
	}
	if err != nil {
		return nil, c.failed(log, err, req.Quantity)
	}

	if item.Quantity < req.Quantity {
		return nil, c.rejected(log, &InsufficientStockError{
			ItemID:    item.ID,
			Requested: req.Quantity,
			Available: item.Quantity,
		}, req.Quantity)
	}

	updated, err := store.DecrementQuantity(ctx, tx, item.ID, req.Quantity)
	if err != nil {
		return nil, c.failed(log, commitFailed("decrement", err), req.Quantity)
	}

	record, err := store.CreateIssuance(ctx, tx, model.Issuance{
		ItemID:         item.ID,
		ItemName:       item.Name,
		QuantityIssued: req.Quantity,
		DateIssued:     date,
		DepartmentName: dept,
		IssuedBy:       req.IssuedBy,
	})
	if err != nil {
		return nil, c.failed(log, commitFailed("issuance record", err), req.Quantity)
	}

	if _, err := store.AppendLedgerEntry(ctx, tx, model.LedgerEntry{
		ItemID:          item.ID,
		TransactionType: model.TransactionIssue,
		Quantity:        req.Quantity,
		BalanceAfter:    updated.Quantity,
		TransactionDate: date,
		IssuanceID:      &record.ID,
	}); err != nil {
		return nil, c.failed(log, commitFailed("ledger", err), req.Quantity)
	}

	if err := tx.Commit(); err != nil {
		return nil, c.failed(log, commitFailed("commit", err), req.Quantity)
	}

	c.metrics.RecordIssuance(metrics.OutcomeCommitted, "", req.Quantity)
	c.metrics.RecordLedgerEntry(model.TransactionIssue)
	log.Info("stock issued",
		"state", metrics.OutcomeCommitted,
		"issuance_id", record.ID,
		"department", dept,
		"balance", updated.Quantity,
	)

	return record, nil
}

// Receive adds restocked quantity to an item and appends a "receive" entry.
// A zero date means today.
func (c *Coordinator) Receive(ctx context.Context, itemID int64, quantity int, date time.Time) (*model.Item, error) {
	if itemID <= 0 {
		return nil, invalid("item_id", "must be positive")
	}
	if quantity <= 0 {
		return nil, invalid("quantity", "must be greater than zero")
	}
	if date.IsZero() {
		date = c.now()
	}

	unlock := c.locks.Lock(itemID)
	defer unlock()

	var item *model.Item
	err := c.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := c.lookup(ctx, tx, itemID); err != nil {
			return err
		}

		updated, err := store.IncrementQuantity(ctx, tx, itemID, quantity)
		if err != nil {
			return commitFailed("increment", err)
		}

		if err := c.appendEntry(ctx, tx, itemID, model.TransactionReceive, quantity, updated.Quantity, date); err != nil {
			return err
		}

		item, err = store.RefreshTotalCost(ctx, tx, itemID)
		if err != nil {
			return commitFailed("total cost", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordLedgerEntry(model.TransactionReceive)
	c.logger.Info("stock received", "item_id", itemID, "quantity", quantity, "balance", item.Quantity)

	return item, nil
}

// RegisterItem adds an item to the catalog. A positive ID is used as given;
// zero lets the database allocate one. Opening stock is recorded as a
// "receive" ledger entry dated on DateAdded.
func (c *Coordinator) RegisterItem(ctx context.Context, item model.Item) (*model.Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.ID < 0 {
		return nil, invalid("id", "must not be negative")
	}
	if item.Quantity < 0 {
		return nil, invalid("quantity", "must not be negative")
	}
	if err := validateDetails(detailsOf(item)); err != nil {
		return nil, err
	}
	if item.DateAdded.IsZero() {
		item.DateAdded = c.now()
	}

	if item.ID > 0 {
		unlock := c.locks.Lock(item.ID)
		defer unlock()
	}

	var created *model.Item
	err := c.withTx(ctx, func(tx *sqlx.Tx) error {
		if item.ID > 0 {
			_, err := store.GetItem(ctx, tx, item.ID)
			if err == nil {
				return invalid("id", "already in use")
			}
			if !errors.Is(err, store.ErrNotFound) {
				return commitFailed("lookup", err)
			}
		}

		var err error
		created, err = store.CreateItem(ctx, tx, item)
		if err != nil {
			return commitFailed("create item", err)
		}

		if created.Quantity > 0 {
			return c.appendEntry(ctx, tx, created.ID, model.TransactionReceive,
				created.Quantity, created.Quantity, created.DateAdded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created.Quantity > 0 {
		c.metrics.RecordLedgerEntry(model.TransactionReceive)
	}
	c.logger.Info("item registered", "item_id", created.ID, "name", created.Name, "quantity", created.Quantity)

	return created, nil
}

// ItemUpdate carries new catalog fields. A non-nil Quantity sets the on-hand
// amount and is recorded as an "adjust" ledger entry when it differs.
type ItemUpdate struct {
	store.ItemDetails
	Quantity *int
}

// UpdateItem rewrites an item's catalog fields and optionally corrects its
// quantity. Quantity corrections are serialized with issuance.
func (c *Coordinator) UpdateItem(ctx context.Context, id int64, upd ItemUpdate) (*model.Item, error) {
	if id <= 0 {
		return nil, invalid("id", "must be positive")
	}
	if upd.Quantity != nil && *upd.Quantity < 0 {
		return nil, invalid("quantity", "must not be negative")
	}
	upd.Name = strings.TrimSpace(upd.Name)
	if err := validateDetails(upd.ItemDetails); err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	var (
		item     *model.Item
		adjusted bool
	)
	err := c.withTx(ctx, func(tx *sqlx.Tx) error {
		current, err := c.lookup(ctx, tx, id)
		if err != nil {
			return err
		}

		if _, err := store.UpdateItemDetails(ctx, tx, id, upd.ItemDetails); err != nil {
			return commitFailed("update item", err)
		}

		if upd.Quantity != nil && *upd.Quantity != current.Quantity {
			diff := *upd.Quantity - current.Quantity
			if diff < 0 {
				diff = -diff
			}
			if _, err := store.SetQuantity(ctx, tx, id, *upd.Quantity); err != nil {
				return commitFailed("set quantity", err)
			}
			if err := c.appendEntry(ctx, tx, id, model.TransactionAdjust, diff, *upd.Quantity, c.now()); err != nil {
				return err
			}
			adjusted = true
		}

		item, err = store.RefreshTotalCost(ctx, tx, id)
		if err != nil {
			return commitFailed("total cost", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if adjusted {
		c.metrics.RecordLedgerEntry(model.TransactionAdjust)
	}
	c.logger.Info("item updated", "item_id", id, "adjusted", adjusted, "quantity", item.Quantity)

	return item, nil
}

// DeleteItem soft-deletes an item. Its ledger and issuance history stay.
func (c *Coordinator) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return invalid("id", "must be positive")
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	err := store.DeleteItem(ctx, c.db, id)
	if errors.Is(err, store.ErrNotFound) {
		return itemNotFound(id)
	}
	if err != nil {
		return commitFailed("delete item", err)
	}

	c.logger.Info("item deleted", "item_id", id)
	return nil
}

func validateDetails(d store.ItemDetails) error {
	switch {
	case d.Name == "":
		return invalid("name", "must not be empty")
	case d.CostPerUnit.IsNegative():
		return invalid("cost_per_unit", "must not be negative")
	case d.SellingPrice.IsNegative():
		return invalid("selling_price", "must not be negative")
	case d.MinStockLevel < 0 || d.MaxStockLevel < 0 || d.ReorderQuantity < 0:
		return invalid("stock_levels", "must not be negative")
	case d.MaxStockLevel > 0 && d.MinStockLevel > d.MaxStockLevel:
		return invalid("stock_levels", "minimum exceeds maximum")
	}
	return nil
}

func detailsOf(item model.Item) store.ItemDetails {
	return store.ItemDetails{
		Name:            item.Name,
		Unit:            item.Unit,
		CostPerUnit:     item.CostPerUnit,
		SellingPrice:    item.SellingPrice,
		Supplier:        item.Supplier,
		Location:        item.Location,
		MinStockLevel:   item.MinStockLevel,
		MaxStockLevel:   item.MaxStockLevel,
		ReorderQuantity: item.ReorderQuantity,
		Notes:           item.Notes,
	}
}

// lookup reads a live item inside tx. Soft-deleted items count as missing.
func (c *Coordinator) lookup(ctx context.Context, tx *sqlx.Tx, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, tx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, itemNotFound(id)
	}
	if err != nil {
		return nil, commitFailed("lookup", err)
	}
	if item.DeletedAt != nil {
		return nil, itemNotFound(id)
	}
	return item, nil
}

func (c *Coordinator) appendEntry(ctx context.Context, tx *sqlx.Tx, itemID int64, txType string, quantity, balance int, date time.Time) error {
	_, err := store.AppendLedgerEntry(ctx, tx, model.LedgerEntry{
		ItemID:          itemID,
		TransactionType: txType,
		Quantity:        quantity,
		BalanceAfter:    balance,
		TransactionDate: date,
	})
	if err != nil {
		return commitFailed("ledger", err)
	}
	return nil
}

// withTx runs fn in a write transaction and commits if it returns nil.
func (c *Coordinator) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return commitFailed("begin", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		if errors.Is(err, ErrCommitFailed) {
			c.logger.Error("transaction failed", "error", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		c.logger.Error("transaction failed", "error", err)
		return commitFailed("commit", err)
	}
	return nil
}

func (c *Coordinator) rejected(log *slog.Logger, err error, quantity int) error {
	c.metrics.RecordIssuance(metrics.OutcomeRejected, reason(err), quantity)
	log.Warn("issuance rejected", "state", metrics.OutcomeRejected, "reason", reason(err), "error", err)
	return err
}

func (c *Coordinator) failed(log *slog.Logger, err error, quantity int) error {
	c.metrics.RecordIssuance(metrics.OutcomeFailed, reason(err), quantity)
	log.Error("issuance failed", "state", metrics.OutcomeFailed, "error", err)
	return err
}
