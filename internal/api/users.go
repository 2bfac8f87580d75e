package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/singhkkrish/traceit/internal/store"
)

// UsersHandler serves the caller's own profile.
type UsersHandler struct {
	DB *sql.DB
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// Me handles GET /api/auth/me.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err, "Server error while fetching profile")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Not authorized, user not found")
		return
	}

	jsonSuccess(w, http.StatusOK, envelope{"user": user})
}

// UpdateMe handles PUT /api/auth/me. Omitted fields are left unchanged.
func (h *UsersHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err, "Server error while updating profile")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Not authorized, user not found")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			jsonError(w, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		user.Name = name
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}

	if err := store.UpdateUserProfile(r.Context(), h.DB, user.ID, user.Name, user.Phone); err != nil {
		writeError(w, r, err, "Server error while updating profile")
		return
	}

	slog.Info("user updated profile", "user", user.ID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Profile updated", "user": user})
}
