package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/singhkkrish/traceit/internal/apperr"
	"github.com/singhkkrish/traceit/internal/auth"
	"github.com/singhkkrish/traceit/internal/model"
	"github.com/singhkkrish/traceit/internal/store"
)

// AuthHandler handles registration, login and session endpoints.
type AuthHandler struct {
	DB        *sql.DB
	JWTSecret string
	TokenTTL  time.Duration
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}

	email, err := model.NormalizeEmail(req.Email)
	if err != nil {
		writeError(w, r, err, "Please provide a valid email")
		return
	}
	if err := model.ValidatePassword(req.Password); err != nil {
		writeError(w, r, err, "Password is too short")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err, "Server error during registration")
		return
	}

	user, err := store.CreateUser(r.Context(), h.DB, req.Name, email, string(hash), strings.TrimSpace(req.Phone))
	if errors.Is(err, apperr.ErrConflict) {
		jsonError(w, http.StatusConflict, "User already exists with this email")
		return
	}
	if err != nil {
		writeError(w, r, err, "Server error during registration")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Email)
	if err != nil {
		writeError(w, r, err, "Server error during registration")
		return
	}

	slog.Info("user registered", "user", user.ID)
	jsonSuccess(w, http.StatusCreated, envelope{"token": token, "user": user})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "Please provide email and password")
		return
	}

	email, err := model.NormalizeEmail(req.Email)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	user, err := store.GetUserByEmail(r.Context(), h.DB, email)
	if err != nil {
		writeError(w, r, err, "Server error during login")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		slog.Warn("login failed", "user", user.ID, "remote", r.RemoteAddr)
		jsonError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := auth.GenerateToken(h.JWTSecret, h.TokenTTL, user.ID, user.Email)
	if err != nil {
		writeError(w, r, err, "Server error during login")
		return
	}

	slog.Info("user logged in", "user", user.ID)
	jsonSuccess(w, http.StatusOK, envelope{"token": token, "user": user})
}

// ChangePassword handles PUT /api/auth/password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		jsonError(w, http.StatusBadRequest, "Please provide current and new password")
		return
	}
	if err := model.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, r, err, "Password is too short")
		return
	}

	user, err := store.GetUser(r.Context(), h.DB, claims.UserID)
	if err != nil {
		writeError(w, r, err, "Server error while changing password")
		return
	}
	if user == nil {
		jsonError(w, http.StatusUnauthorized, "Not authorized, user not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		jsonError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, r, err, "Server error while changing password")
		return
	}

	if err := store.UpdateUserPassword(r.Context(), h.DB, claims.UserID, string(hash)); err != nil {
		writeError(w, r, err, "Server error while changing password")
		return
	}

	slog.Info("user changed password", "user", claims.UserID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Password updated"})
}

// Logout handles POST /api/auth/logout by revoking the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())

	expires := time.Now().Add(h.TokenTTL)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := store.RevokeToken(r.Context(), h.DB, claims.ID, expires); err != nil {
		writeError(w, r, err, "Server error during logout")
		return
	}

	slog.Info("user logged out", "user", claims.UserID)
	jsonSuccess(w, http.StatusOK, envelope{"message": "Logged out"})
}
