// Package web serves the HTML pages of the stock UI. Pages authenticate with
// the same JWTs as the API, carried in a cookie.
package web

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
	webembed "github.com/erazemk/zaloga/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sqlx.DB, jwtSecret string, stock *issuance.Coordinator) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Stock:     stock,
		Templates: templates,
		JWTSecret: jwtSecret,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)
	manager := func(h http.HandlerFunc) http.Handler {
		return cookieAuth(requireRole(model.RoleManager, h))
	}

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)

	// Authenticated routes.
	mux.Handle("POST /logout", cookieAuth(http.HandlerFunc(s.Logout)))
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /items", cookieAuth(http.HandlerFunc(s.ItemsPage)))
	mux.Handle("POST /items", manager(s.ItemCreateSubmit))
	mux.Handle("GET /items/{id}", cookieAuth(http.HandlerFunc(s.ItemDetailPage)))
	mux.Handle("GET /items/{id}/export", cookieAuth(http.HandlerFunc(s.ItemLedgerExport)))
	mux.Handle("POST /items/{id}", manager(s.ItemUpdateSubmit))
	mux.Handle("POST /items/{id}/receive", manager(s.ItemReceiveSubmit))
	mux.Handle("POST /items/{id}/delete", manager(s.ItemDeleteSubmit))

	mux.Handle("GET /issuances", cookieAuth(http.HandlerFunc(s.IssuancesPage)))
	mux.Handle("POST /issuances", cookieAuth(http.HandlerFunc(s.IssuanceCreateSubmit)))
	mux.Handle("GET /issuances/export", cookieAuth(http.HandlerFunc(s.IssuancesExport)))

	mux.Handle("GET /settings", cookieAuth(http.HandlerFunc(s.SettingsPage)))
	mux.Handle("POST /settings", cookieAuth(http.HandlerFunc(s.SettingsSubmit)))

	return mux, nil
}
