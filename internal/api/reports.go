package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
)

// ReportsHandler serves stock reports.
type ReportsHandler struct {
	Stock *issuance.Coordinator
}

type reorderLine struct {
	model.Item
	SuggestedOrder int `json:"suggested_order"`
}

// Reorder handles GET /api/reports/reorder. The suggested order is the
// item's reorder quantity, or enough to reach its maximum level when no
// reorder quantity is set.
func (h *ReportsHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	items, err := h.Stock.ReorderItems(r.Context())
	if err != nil {
		slog.Error("failed to list reorder items", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build reorder report")
		return
	}

	lines := make([]reorderLine, 0, len(items))
	for _, item := range items {
		suggested := item.ReorderQuantity
		if suggested == 0 && item.MaxStockLevel > item.Quantity {
			suggested = item.MaxStockLevel - item.Quantity
		}
		lines = append(lines, reorderLine{Item: item, SuggestedOrder: suggested})
	}

	jsonResponse(w, http.StatusOK, lines)
}
