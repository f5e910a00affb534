package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/report"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// ItemsPage handles GET /items.
func (s *Server) ItemsPage(w http.ResponseWriter, r *http.Request) {
	s.renderItems(w, r, http.StatusOK, "")
}

func (s *Server) renderItems(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	search := r.URL.Query().Get("q")
	items, err := s.Stock.Items(r.Context(), search)
	if err != nil {
		slog.Error("failed to list items", "error", err)
	}

	data := &struct {
		PageData
		Items  []model.Item
		Search string
	}{
		PageData: s.page(r, "Items"),
		Items:    items,
		Search:   search,
	}
	data.Error = errMsg
	s.Templates.Render(w, status, "items.html", data)
}

// ItemCreateSubmit handles POST /items.
func (s *Server) ItemCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	details, err := itemDetailsForm(r)
	id, idErr := formInt(r, "id")
	quantity, qtyErr := formInt(r, "quantity")
	dateAdded, dateErr := formDate(r, "date_added")
	if err = errors.Join(err, idErr, qtyErr, dateErr); err != nil {
		s.renderItems(w, r, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.Stock.RegisterItem(r.Context(), model.Item{
		ID:              int64(id),
		Name:            details.Name,
		Quantity:        quantity,
		Unit:            details.Unit,
		CostPerUnit:     details.CostPerUnit,
		SellingPrice:    details.SellingPrice,
		Supplier:        details.Supplier,
		DateAdded:       dateAdded,
		Location:        details.Location,
		MinStockLevel:   details.MinStockLevel,
		MaxStockLevel:   details.MaxStockLevel,
		ReorderQuantity: details.ReorderQuantity,
		Notes:           details.Notes,
	})
	if err != nil {
		s.renderItems(w, r, stockStatus(err), stockMessage(err))
		return
	}

	slog.Info("item created", "user", claims.Username, "item", item.Name, "id", item.ID)
	http.Redirect(w, r, fmt.Sprintf("/items/%d", item.ID), http.StatusSeeOther)
}

// ItemDetailPage handles GET /items/{id}. Deleted items still show their
// ledger.
func (s *Server) ItemDetailPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	s.renderItem(w, r, id, http.StatusOK, "")
}

func (s *Server) renderItem(w http.ResponseWriter, r *http.Request, id int64, status int, errMsg string) {
	item, entries, err := s.Stock.History(r.Context(), id)
	if errors.Is(err, issuance.ErrItemNotFound) {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("failed to get item history", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	data := &struct {
		PageData
		Item   *model.Item
		Ledger []model.LedgerEntry
	}{
		PageData: s.page(r, item.Name),
		Item:     item,
		Ledger:   entries,
	}
	data.Error = errMsg
	s.Templates.Render(w, status, "item_detail.html", data)
}

// ItemUpdateSubmit handles POST /items/{id}. A changed quantity is recorded
// as an adjustment.
func (s *Server) ItemUpdateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	details, err := itemDetailsForm(r)
	if err != nil {
		s.renderItem(w, r, id, http.StatusBadRequest, err.Error())
		return
	}

	upd := issuance.ItemUpdate{ItemDetails: details}
	if r.FormValue("quantity") != "" {
		quantity, err := formInt(r, "quantity")
		if err != nil {
			s.renderItem(w, r, id, http.StatusBadRequest, err.Error())
			return
		}
		upd.Quantity = &quantity
	}

	item, err := s.Stock.UpdateItem(r.Context(), id, upd)
	if err != nil {
		s.renderItem(w, r, id, stockStatus(err), stockMessage(err))
		return
	}

	slog.Info("item updated", "user", claims.Username, "item", item.Name, "quantity", item.Quantity)
	http.Redirect(w, r, fmt.Sprintf("/items/%d", id), http.StatusSeeOther)
}

// ItemReceiveSubmit handles POST /items/{id}/receive.
func (s *Server) ItemReceiveSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	quantity, err := formInt(r, "quantity")
	date, dateErr := formDate(r, "date")
	if err = errors.Join(err, dateErr); err != nil {
		s.renderItem(w, r, id, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.Stock.Receive(r.Context(), id, quantity, date)
	if err != nil {
		s.renderItem(w, r, id, stockStatus(err), stockMessage(err))
		return
	}

	slog.Info("stock received", "user", claims.Username, "item", item.Name, "quantity", quantity)
	http.Redirect(w, r, fmt.Sprintf("/items/%d", id), http.StatusSeeOther)
}

// ItemDeleteSubmit handles POST /items/{id}/delete.
func (s *Server) ItemDeleteSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := s.Stock.DeleteItem(r.Context(), id); err != nil {
		s.renderItem(w, r, id, stockStatus(err), stockMessage(err))
		return
	}

	slog.Info("item deleted", "user", claims.Username, "id", id)
	http.Redirect(w, r, "/items", http.StatusSeeOther)
}

// ItemLedgerExport handles GET /items/{id}/export.
func (s *Server) ItemLedgerExport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	item, entries, err := s.Stock.History(r.Context(), id)
	if err != nil {
		http.Error(w, stockMessage(err), stockStatus(err))
		return
	}

	f, err := report.Ledger(item, entries)
	if err != nil {
		slog.Error("failed to build ledger workbook", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.LedgerFilename(id)+`"`)
	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}
