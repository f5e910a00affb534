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

// IssuancesPage handles GET /issuances.
func (s *Server) IssuancesPage(w http.ResponseWriter, r *http.Request) {
	s.renderIssuances(w, r, http.StatusOK, "")
}

func (s *Server) renderIssuances(w http.ResponseWriter, r *http.Request, status int, errMsg string) {
	records, err := s.Stock.Issuances(r.Context(), 0)
	if err != nil {
		slog.Error("failed to list issuances", "error", err)
	}
	items, err := s.Stock.Items(r.Context(), "")
	if err != nil {
		slog.Error("failed to list items for issue form", "error", err)
	}

	data := &struct {
		PageData
		Issuances []model.Issuance
		Items     []model.Item
	}{
		PageData:  s.page(r, "Issuances"),
		Issuances: records,
		Items:     items,
	}
	data.Error = errMsg
	s.Templates.Render(w, status, "issuances.html", data)
}

// IssuanceCreateSubmit handles POST /issuances. On success it returns to the
// item's page; on failure the issuance list is shown with the reason.
func (s *Server) IssuanceCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	itemID, err := strconv.ParseInt(r.FormValue("item_id"), 10, 64)
	if err != nil {
		s.renderIssuances(w, r, http.StatusBadRequest, "Choose an item.")
		return
	}
	quantity, err := formInt(r, "quantity")
	date, dateErr := formDate(r, "date_issued")
	if err = errors.Join(err, dateErr); err != nil {
		s.renderIssuances(w, r, http.StatusBadRequest, err.Error())
		return
	}

	userID := claims.UserID
	rec, err := s.Stock.Issue(r.Context(), issuance.IssueRequest{
		ItemID:     itemID,
		Quantity:   quantity,
		Department: r.FormValue("department_name"),
		Date:       date,
		IssuedBy:   &userID,
	})
	if err != nil {
		slog.Warn("issuance failed", "user", claims.Username, "item_id", itemID, "error", err)
		s.renderIssuances(w, r, stockStatus(err), stockMessage(err))
		return
	}

	slog.Info("stock issued", "user", claims.Username, "item", rec.ItemName,
		"quantity", rec.QuantityIssued, "department", rec.DepartmentName)
	http.Redirect(w, r, fmt.Sprintf("/items/%d", rec.ItemID), http.StatusSeeOther)
}

// IssuancesExport handles GET /issuances/export.
func (s *Server) IssuancesExport(w http.ResponseWriter, r *http.Request) {
	records, err := s.Stock.Issuances(r.Context(), 0)
	if err != nil {
		slog.Error("failed to list issuances", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	f, err := report.Issuances(records)
	if err != nil {
		slog.Error("failed to build issuance workbook", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+report.IssuancesFilename()+`"`)
	if err := f.Write(w); err != nil {
		slog.Error("failed to write workbook", "error", err)
	}
}
