package web

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/erazemk/zaloga/internal/model"
)

const recentIssuances = 10

// Dashboard handles GET /.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	reorder, err := s.Stock.ReorderItems(r.Context())
	if err != nil {
		slog.Error("failed to list reorder items for dashboard", "error", err)
	}
	issued, err := s.Stock.Issuances(r.Context(), 0)
	if err != nil {
		slog.Error("failed to list issuances for dashboard", "error", err)
	}

	// Newest first.
	if len(issued) > recentIssuances {
		issued = issued[len(issued)-recentIssuances:]
	}
	slices.Reverse(issued)

	s.Templates.Render(w, http.StatusOK, "dashboard.html", &struct {
		PageData
		Reorder         []model.Item
		RecentIssuances []model.Issuance
	}{
		PageData:        s.page(r, "Dashboard"),
		Reorder:         reorder,
		RecentIssuances: issued,
	})
}
