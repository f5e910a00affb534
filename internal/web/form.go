package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/store"
)

// formInt parses an optional integer form field; empty means zero.
func formInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", name)
	}
	return n, nil
}

func formDecimal(r *http.Request, name string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s must be a number", name)
	}
	return d, nil
}

// formDate parses an optional YYYY-MM-DD field; empty yields the zero time,
// which the coordinator treats as today.
func formDate(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD)", name)
	}
	return t, nil
}

// itemDetailsForm reads the catalog fields shared by the create and edit
// forms.
func itemDetailsForm(r *http.Request) (store.ItemDetails, error) {
	d := store.ItemDetails{
		Name:     strings.TrimSpace(r.FormValue("name")),
		Unit:     strings.TrimSpace(r.FormValue("unit")),
		Supplier: strings.TrimSpace(r.FormValue("supplier")),
		Location: strings.TrimSpace(r.FormValue("location")),
		Notes:    r.FormValue("notes"),
	}

	var errs []error
	var err error
	d.CostPerUnit, err = formDecimal(r, "cost_per_unit")
	errs = append(errs, err)
	d.SellingPrice, err = formDecimal(r, "selling_price")
	errs = append(errs, err)
	d.MinStockLevel, err = formInt(r, "min_stock_level")
	errs = append(errs, err)
	d.MaxStockLevel, err = formInt(r, "max_stock_level")
	errs = append(errs, err)
	d.ReorderQuantity, err = formInt(r, "reorder_quantity")
	errs = append(errs, err)

	return d, errors.Join(errs...)
}

// stockMessage turns a coordinator error into a message for the page.
func stockMessage(err error) string {
	var stockErr *issuance.InsufficientStockError
	var validationErr *issuance.ValidationError
	switch {
	case errors.As(err, &stockErr):
		return fmt.Sprintf("Insufficient stock: %d requested, only %d available.", stockErr.Requested, stockErr.Available)
	case errors.As(err, &validationErr):
		return fmt.Sprintf("Invalid %s: %s.", strings.ReplaceAll(validationErr.Field, "_", " "), validationErr.Reason)
	case errors.Is(err, issuance.ErrItemNotFound):
		return "Item not found."
	case errors.Is(err, issuance.ErrCommitFailed):
		return "The change could not be saved. Please try again."
	}
	return "Unexpected error."
}

// stockStatus maps a coordinator error to the status of the re-rendered page.
func stockStatus(err error) int {
	switch {
	case errors.Is(err, issuance.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, issuance.ErrItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, issuance.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, issuance.ErrCommitFailed):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
