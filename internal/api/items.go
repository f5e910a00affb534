package api

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/report"
	"github.com/erazemk/zaloga/internal/store"
)

// ItemsHandler handles the item catalog, restocking and ledger endpoints.
type ItemsHandler struct {
	Stock *issuance.Coordinator
}

// ItemFields are the catalog fields shared by item create and update bodies.
type ItemFields struct {
	Name            string          `json:"name" validate:"required,max=200"`
	Unit            string          `json:"unit" validate:"max=32"`
	CostPerUnit     decimal.Decimal `json:"cost_per_unit"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	Supplier        string          `json:"supplier" validate:"max=200"`
	Location        string          `json:"location" validate:"max=100"`
	MinStockLevel   int             `json:"min_stock_level" validate:"gte=0"`
	MaxStockLevel   int             `json:"max_stock_level" validate:"gte=0"`
	ReorderQuantity int             `json:"reorder_quantity" validate:"gte=0"`
	Notes           string          `json:"notes"`
}

func (f ItemFields) details() store.ItemDetails {
	return store.ItemDetails{
		Name:            f.Name,
		Unit:            f.Unit,
		CostPerUnit:     f.CostPerUnit,
		SellingPrice:    f.SellingPrice,
		Supplier:        f.Supplier,
		Location:        f.Location,
		MinStockLevel:   f.MinStockLevel,
		MaxStockLevel:   f.MaxStockLevel,
		ReorderQuantity: f.ReorderQuantity,
		Notes:           f.Notes,
	}
}

type createItemRequest struct {
	ItemFields
	ID        int64  `json:"id" validate:"gte=0"`
	Quantity  int    `json:"quantity" validate:"gte=0"`
	DateAdded string `json:"date_added" validate:"omitempty,datetime=2006-01-02"`
}

type updateItemRequest struct {
	ItemFields
	Quantity *int `json:"quantity" validate:"omitempty,gte=0"`
}

type receiveRequest struct {
	Quantity int    `json:"quantity" validate:"gt=0"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// List handles GET /api/items. The optional q parameter filters by name.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Stock.Items(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		slog.Error("failed to list items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dateAdded, err := parseDate(req.DateAdded)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid date_added")
		return
	}

	d := req.details()
	item, err := h.Stock.RegisterItem(r.Context(), model.Item{
		ID:              req.ID,
		Name:            d.Name,
		Quantity:        req.Quantity,
		Unit:            d.Unit,
		CostPerUnit:     d.CostPerUnit,
		SellingPrice:    d.SellingPrice,
		Supplier:        d.Supplier,
		DateAdded:       dateAdded,
		Location:        d.Location,
		MinStockLevel:   d.MinStockLevel,
		MaxStockLevel:   d.MaxStockLevel,
		ReorderQuantity: d.ReorderQuantity,
		Notes:           d.Notes,
	})
	if err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, err := h.Stock.Item(r.Context(), id)
	if err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req updateItemRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	item, err := h.Stock.UpdateItem(r.Context(), id, issuance.ItemUpdate{
		ItemDetails: req.details(),
		Quantity:    req.Quantity,
	})
	if err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.Stock.DeleteItem(r.Context(), id); err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Receive handles POST /api/items/{id}/receive.
func (h *ItemsHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	var req receiveRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid date")
		return
	}

	item, err := h.Stock.Receive(r.Context(), id, req.Quantity, date)
	if err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, item)
}

// Ledger handles GET /api/items/{id}/ledger.
func (h *ItemsHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	entries, err := h.Stock.Ledger(r.Context(), id)
	if err != nil {
		stockError(w, err)
		return
	}
	if entries == nil {
		entries = []model.LedgerEntry{}
	}

	jsonResponse(w, http.StatusOK, entries)
}

// ExportLedger handles GET /api/items/{id}/ledger/export.
func (h *ItemsHandler) ExportLedger(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	item, entries, err := h.Stock.History(r.Context(), id)
	if err != nil {
		stockError(w, err)
		return
	}

	f, err := report.Ledger(item, entries)
	if err != nil {
		slog.Error("failed to build ledger workbook", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export ledger")
		return
	}
	defer f.Close()

	writeWorkbook(w, report.LedgerFilename(id), f)
}
