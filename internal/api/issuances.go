package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/report"
)

// IssuancesHandler handles issuing stock to departments.
type IssuancesHandler struct {
	Stock *issuance.Coordinator
}

type createIssuanceRequest struct {
	ItemID         int64  `json:"item_id" validate:"gt=0"`
	Quantity       int    `json:"quantity" validate:"gt=0"`
	DepartmentName string `json:"department_name" validate:"required,max=100"`
	DateIssued     string `json:"date_issued" validate:"omitempty,datetime=2006-01-02"`
}

// Create handles POST /api/issuances.
func (h *IssuancesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIssuanceRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.DateIssued)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid date_issued")
		return
	}

	var issuedBy *int64
	if claims := GetClaims(r.Context()); claims != nil {
		issuedBy = &claims.UserID
	}

	record, err := h.Stock.Issue(r.Context(), issuance.IssueRequest{
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		Department: req.DepartmentName,
		Date:       date,
		IssuedBy:   issuedBy,
	})
	if err != nil {
		stockError(w, err)
		return
	}

	jsonResponse(w, http.StatusCreated, record)
}

// List handles GET /api/issuances. The optional item_id parameter restricts
// the list to one item.
func (h *IssuancesHandler) List(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryItemID(w, r)
	if !ok {
		return
	}

	records, err := h.Stock.Issuances(r.Context(), itemID)
	if err != nil {
		slog.Error("failed to list issuances", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list issuances")
		return
	}
	if records == nil {
		records = []model.Issuance{}
	}

	jsonResponse(w, http.StatusOK, records)
}

// Export handles GET /api/issuances/export.
func (h *IssuancesHandler) Export(w http.ResponseWriter, r *http.Request) {
	itemID, ok := queryItemID(w, r)
	if !ok {
		return
	}

	records, err := h.Stock.Issuances(r.Context(), itemID)
	if err != nil {
		slog.Error("failed to list issuances", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export issuances")
		return
	}

	f, err := report.Issuances(records)
	if err != nil {
		slog.Error("failed to build issuance workbook", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export issuances")
		return
	}
	defer f.Close()

	writeWorkbook(w, report.IssuancesFilename(), f)
}

func queryItemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("item_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, http.StatusBadRequest, "invalid item_id")
		return 0, false
	}
	return id, true
}

func writeWorkbook(w http.ResponseWriter, filename string, f *excelize.File) {
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}
