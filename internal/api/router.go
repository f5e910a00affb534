package api

import (
	"net/http"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/zaloga/internal/issuance"
	"github.com/erazemk/zaloga/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sqlx.DB, jwtSecret string, stock *issuance.Coordinator) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{Stock: stock}
	issuancesHandler := &IssuancesHandler{Stock: stock}
	reportsHandler := &ReportsHandler{Stock: stock}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireManager(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireManager(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("POST /api/items/{id}/receive", authMW(requireManager(http.HandlerFunc(itemsHandler.Receive))))
	mux.Handle("GET /api/items/{id}/ledger", authMW(http.HandlerFunc(itemsHandler.Ledger)))
	mux.Handle("GET /api/items/{id}/ledger/export", authMW(http.HandlerFunc(itemsHandler.ExportLedger)))

	// Issuances (all roles).
	mux.Handle("GET /api/issuances", authMW(http.HandlerFunc(issuancesHandler.List)))
	mux.Handle("POST /api/issuances", authMW(http.HandlerFunc(issuancesHandler.Create)))
	mux.Handle("GET /api/issuances/export", authMW(http.HandlerFunc(issuancesHandler.Export)))

	// Reports (all roles).
	mux.Handle("GET /api/reports/reorder", authMW(http.HandlerFunc(reportsHandler.Reorder)))

	return mux
}
