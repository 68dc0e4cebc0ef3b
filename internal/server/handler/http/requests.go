package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Teerdaveni2002/password-vault/internal/middleware"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// RequestService defines the access-request operations required by the
// HTTP handlers.
type RequestService interface {
	// Create files a pending request for a secret's plaintext.
	Create(ctx context.Context, requester models.User, secretID, reason string) (models.AccessRequest, error)
	// List returns one page of requests visible to the viewer.
	List(ctx context.Context, viewer models.User, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error)
	// Approve transitions a pending request to approved.
	Approve(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error)
	// Reject transitions a pending request to rejected.
	Reject(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error)
}

// RequestHandler handles the /password-requests endpoints.
type RequestHandler struct {
	RequestService RequestService
}

// CreateRequestBody is the payload for filing an access request.
type CreateRequestBody struct {
	SecretID string `json:"secretId"`
	Reason   string `json:"reason"`
}

// decisionBody carries the reviewer's optional notes.
type decisionBody struct {
	AdminNotes string `json:"adminNotes"`
}

// Create handles POST /password-requests.
func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SecretID == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	req, err := h.RequestService.Create(r.Context(), viewer(claims), body.SecretID, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// List handles GET /password-requests?status=&page=.
func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	status := models.RequestStatus(r.URL.Query().Get("status"))
	page := pageNumber(r)

	requests, count, err := h.RequestService.List(r.Context(), viewer(claims), status, pageSize, (page-1)*pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paginate(r.URL.Path, requests, count, page))
}

// Approve handles POST /password-requests/{id}/approve.
func (h *RequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RequestService.Approve)
}

// Reject handles POST /password-requests/{id}/reject.
func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.RequestService.Reject)
}

func (h *RequestHandler) decide(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error),
) {
	claims := middleware.GetClaimsFromContext(r.Context())
	var body decisionBody
	// Notes are optional; an empty or absent body is fine.
	_ = json.NewDecoder(r.Body).Decode(&body)

	req, err := op(r.Context(), viewer(claims), chi.URLParam(r, "id"), body.AdminNotes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}
