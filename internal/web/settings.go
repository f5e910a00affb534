package web

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/zaloga/internal/model"
	"github.com/erazemk/zaloga/internal/store"
)

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Settings")
	s.Templates.Render(w, http.StatusOK, "settings.html", &data)
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	data := s.page(r, "Settings")

	fail := func(status int, msg string) {
		data.Error = msg
		s.Templates.Render(w, status, "settings.html", &data)
	}

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		fail(http.StatusBadRequest, "Enter your current and new password.")
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		fail(http.StatusBadRequest, "New "+err.Error()+".")
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		fail(http.StatusInternalServerError, "Could not load your account.")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		fail(http.StatusUnauthorized, "Current password is incorrect.")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		fail(http.StatusInternalServerError, "Could not update password.")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, string(hash)); err != nil {
		slog.Error("failed to update password", "error", err)
		fail(http.StatusInternalServerError, "Could not update password.")
		return
	}

	slog.Info("user changed own password", "user", claims.Username, "via", "web")
	data.Success = "Password updated."
	s.Templates.Render(w, http.StatusOK, "settings.html", &data)
}
