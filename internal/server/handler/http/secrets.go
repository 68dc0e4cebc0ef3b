package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Teerdaveni2002/password-vault/internal/middleware"
	"github.com/Teerdaveni2002/password-vault/internal/models"
	"github.com/Teerdaveni2002/password-vault/internal/token"
)

// pageSize is the fixed page length of list endpoints.
const pageSize = 20

// VaultService defines the secret operations required by the HTTP handlers.
type VaultService interface {
	// Create stores a new secret owned by the caller.
	Create(ctx context.Context, owner models.User, in models.SecretInput) (models.Secret, error)
	// Get returns a secret's metadata if the viewer may see it.
	Get(ctx context.Context, viewer models.User, id string) (models.Secret, error)
	// List returns one page of secrets visible to the viewer.
	List(ctx context.Context, viewer models.User, search string, limit, offset int) ([]models.Secret, int, error)
	// Update overwrites a secret's metadata and optionally its password.
	Update(ctx context.Context, viewer models.User, id string, in models.SecretInput) (models.Secret, error)
	// Delete removes a secret.
	Delete(ctx context.Context, viewer models.User, id string) error
	// Share marks a secret visible to other users.
	Share(ctx context.Context, viewer models.User, id string) (models.Secret, error)
	// View discloses the plaintext, gated on approval for non-owners.
	View(ctx context.Context, viewer models.User, id string) (models.PlainSecret, error)
}

// SecretHandler handles the /passwords endpoints.
type SecretHandler struct {
	VaultService VaultService
}

// viewer reconstructs the caller identity from the verified token claims.
func viewer(claims *token.Claims) models.User {
	return models.User{ID: claims.Subject, Username: claims.Username, Role: claims.Role}
}

// List handles GET /passwords?page=&search=.
func (h *SecretHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	page := pageNumber(r)
	search := r.URL.Query().Get("search")

	secrets, count, err := h.VaultService.List(r.Context(), viewer(claims), search, pageSize, (page-1)*pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(r.URL.Path, secrets, count, page))
}

// Create handles POST /passwords.
func (h *SecretHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	var in models.SecretInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	sec, err := h.VaultService.Create(r.Context(), viewer(claims), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sec)
}

// Get handles GET /passwords/{id}.
func (h *SecretHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	sec, err := h.VaultService.Get(r.Context(), viewer(claims), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// Update handles PATCH /passwords/{id}.
func (h *SecretHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	var in models.SecretInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	sec, err := h.VaultService.Update(r.Context(), viewer(claims), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// Delete handles DELETE /passwords/{id}.
func (h *SecretHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if err := h.VaultService.Delete(r.Context(), viewer(claims), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Share handles POST /passwords/{id}/share.
func (h *SecretHandler) Share(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	sec, err := h.VaultService.Share(r.Context(), viewer(claims), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sec)
}

// View handles GET /passwords/{id}/view, the gated plaintext disclosure.
func (h *SecretHandler) View(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	plain, err := h.VaultService.View(r.Context(), viewer(claims), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, plain)
}

// pageNumber parses the page query parameter, defaulting to 1.
func pageNumber(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// paginate wraps one result page in the list envelope with next/previous
// links.
func paginate[T any](path string, results []T, count, page int) models.Page[T] {
	p := models.Page[T]{Results: results, Count: count}
	if p.Results == nil {
		p.Results = []T{}
	}
	if page*pageSize < count {
		p.Next = fmt.Sprintf("%s?page=%d", path, page+1)
	}
	if page > 1 {
		p.Previous = fmt.Sprintf("%s?page=%d", path, page-1)
	}
	return p
}
