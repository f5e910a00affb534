package issuance

import (
	"context"
	"errors"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// Item returns a live item.
func (c *Coordinator) Item(ctx context.Context, id int64) (*model.Item, error) {
	item, err := store.GetItem(ctx, c.db, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, itemNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	if item.DeletedAt != nil {
		return nil, itemNotFound(id)
	}
	return item, nil
}

// Items lists live items, optionally filtered by a name substring.
func (c *Coordinator) Items(ctx context.Context, search string) ([]model.Item, error) {
	return store.ListItems(ctx, c.db, search)
}

// ReorderItems lists live items at or below their minimum stock level.
func (c *Coordinator) ReorderItems(ctx context.Context) ([]model.Item, error) {
	return store.ListItemsNeedingReorder(ctx, c.db)
}

// Ledger returns an item's ledger in chronological order. Deleted items keep
// their history; IDs that never existed yield ErrItemNotFound.
func (c *Coordinator) Ledger(ctx context.Context, itemID int64) ([]model.LedgerEntry, error) {
	_, entries, err := c.History(ctx, itemID)
	return entries, err
}

// History returns an item, deleted or not, together with its ledger.
func (c *Coordinator) History(ctx context.Context, itemID int64) (*model.Item, []model.LedgerEntry, error) {
	item, err := store.GetItem(ctx, c.db, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, itemNotFound(itemID)
	}
	if err != nil {
		return nil, nil, err
	}

	entries, err := store.ListLedgerForItem(ctx, c.db, itemID)
	if err != nil {
		return nil, nil, err
	}
	return item, entries, nil
}

// Issuances lists issuance records, all of them when itemID is zero.
func (c *Coordinator) Issuances(ctx context.Context, itemID int64) ([]model.Issuance, error) {
	return store.ListIssuances(ctx, c.db, itemID)
}
