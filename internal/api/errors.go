package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/issuance"
)

type stockErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Available *int   `json:"available,omitempty"`
	Requested *int   `json:"requested,omitempty"`
}

// stockError maps a coordinator error to an HTTP response.
func stockError(w http.ResponseWriter, err error) {
	var (
		verr  *issuance.ValidationError
		stock *issuance.InsufficientStockError
	)

	switch {
	case errors.As(err, &verr):
		jsonResponse(w, http.StatusBadRequest, stockErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, issuance.ErrInvalidRequest):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &stock):
		jsonResponse(w, http.StatusConflict, stockErrorResponse{
			Error:     "insufficient stock",
			Available: &stock.Available,
			Requested: &stock.Requested,
		})
	case errors.Is(err, issuance.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, issuance.ErrCommitFailed):
		jsonError(w, http.StatusServiceUnavailable, "storage temporarily unavailable, retry the request")
	default:
		slog.Error("unexpected stock error", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
