package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stock-keeping unit held in the warehouse. Quantity is the amount
// currently on hand and never drops below zero.
type Item struct {
	ID              int64           `json:"id" db:"id"`
	Name            string          `json:"name" db:"name"`
	Quantity        int             `json:"quantity" db:"quantity"`
	Unit            string          `json:"unit" db:"unit"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit" db:"cost_per_unit"`
	TotalCost       decimal.Decimal `json:"total_cost" db:"total_cost"`
	SellingPrice    decimal.Decimal `json:"selling_price" db:"selling_price"`
	Supplier        string          `json:"supplier,omitempty" db:"supplier"`
	DateAdded       time.Time       `json:"date_added" db:"date_added"`
	LastUpdated     *time.Time      `json:"last_updated,omitempty" db:"last_updated"`
	Location        string          `json:"location,omitempty" db:"location"`
	MinStockLevel   int             `json:"min_stock_level" db:"min_stock_level"`
	MaxStockLevel   int             `json:"max_stock_level" db:"max_stock_level"`
	ReorderQuantity int             `json:"reorder_quantity" db:"reorder_quantity"`
	Notes           string          `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	DeletedAt       *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ComputeTotalCost returns quantity × cost per unit. The stored total is only
// refreshed when an item is written through the catalog, not on issuance.
func (i *Item) ComputeTotalCost() decimal.Decimal {
	return i.CostPerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// NeedsReorder reports whether the on-hand quantity has fallen to the minimum
// stock level. Items without a minimum never need reordering.
func (i *Item) NeedsReorder() bool {
	return i.MinStockLevel > 0 && i.Quantity <= i.MinStockLevel
}

// Day truncates t to midnight UTC of its calendar date, keeping the year,
// month and day as seen in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
