// Package http provides the HTTP handlers for the vault API:
// authentication, secret management and the access-request workflow.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Teerdaveni2002/password-vault/internal/middleware"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// AuthService defines the authentication operations required by the
// HTTP handlers.
type AuthService interface {
	// Register creates a user and issues its first credential pair.
	Register(ctx context.Context, username, email, password string) (models.AuthResponse, error)
	// Login verifies credentials and issues a credential pair.
	Login(ctx context.Context, username, password string) (models.AuthResponse, error)
	// Refresh mints a new access token for a valid refresh token.
	Refresh(ctx context.Context, refreshToken string) (string, error)
	// Logout revokes a refresh token.
	Logout(ctx context.Context, refreshToken string) error
	// Me returns the identity for a user ID.
	Me(ctx context.Context, userID string) (models.User, error)
}

// AuthHandler handles the /auth endpoints.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// LoginRequest represents the JSON payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// refreshBody carries the refresh token for refresh and logout calls.
type refreshBody struct {
	Refresh string `json:"refresh"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.AuthService.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	resp, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Refresh handles POST /auth/refresh. The refresh token is not rotated;
// only a new access token is returned.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	access, err := h.AuthService.Refresh(r.Context(), req.Refresh)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

// Logout handles POST /auth/logout. Always answers 204; an unknown
// refresh token is already logged out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshBody
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Refresh != "" {
		if err := h.AuthService.Logout(r.Context(), req.Refresh); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me, returning the authenticated identity.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	user, err := h.AuthService.Me(r.Context(), claims.Subject)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
