package web

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/auth"
	"github.com/erazemk/zaloga/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, http.StatusOK, "login.html", &PageData{Title: "Log in"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	fail := func(status int, msg string) {
		s.Templates.Render(w, status, "login.html", &PageData{Title: "Log in", Error: msg})
	}

	if username == "" || password == "" {
		fail(http.StatusBadRequest, "Enter your username and password.")
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil {
		slog.Error("failed to look up user", "error", err)
		fail(http.StatusInternalServerError, "Login failed.")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		fail(http.StatusUnauthorized, "Wrong username or password.")
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		fail(http.StatusInternalServerError, "Login failed.")
		return
	}

	setAuthCookie(w, token)
	slog.Info("user logged in", "user", user.Username, "via", "web")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. The token is revoked, not just dropped from
// the browser.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
		slog.Error("failed to revoke token", "error", err)
	}

	clearAuthCookie(w)
	slog.Info("user logged out", "user", claims.Username, "via", "web")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
