// Package workflow implements the client side of the access-request
// approval state machine: filing requests, tracking their status, and
// retrieving plaintext once a request is approved.
package workflow

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// Doer issues one logical API call. Implemented by gateway.Gateway.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// SecretViewer retrieves a secret's plaintext. Implemented by
// vault.Client.
type SecretViewer interface {
	View(ctx context.Context, id string) (models.PlainSecret, error)
}

// Workflow drives access requests against the server and keeps a local
// cache of the entities it has fetched. The cache is a hint, not the
// source of truth: every mutating call adopts the server's returned
// entity, and list fetches replace the cache for their filter wholesale.
type Workflow struct {
	api     Doer
	secrets SecretViewer
	log     *zap.Logger

	mu       sync.Mutex
	byID     map[string]models.AccessRequest
	byFilter map[models.RequestStatus][]string
}

// New constructs a Workflow over the given gateway and secret viewer.
func New(api Doer, secrets SecretViewer, log *zap.Logger) *Workflow {
	return &Workflow{
		api:      api,
		secrets:  secrets,
		log:      log,
		byID:     make(map[string]models.AccessRequest),
		byFilter: make(map[models.RequestStatus][]string),
	}
}

// Create files a pending access request for a secret. The reason must be
// at least ten characters; shorter reasons fail before any network call.
func (w *Workflow) Create(ctx context.Context, secretID, reason string) (models.AccessRequest, error) {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < 10 {
		return models.AccessRequest{}, apperrs.NewValidation(map[string]string{
			"reason": "must be at least 10 characters",
		})
	}

	body := map[string]string{"secretId": secretID, "reason": reason}
	var req models.AccessRequest
	if err := w.api.Do(ctx, http.MethodPost, "/password-requests", body, &req); err != nil {
		return models.AccessRequest{}, err
	}

	w.mu.Lock()
	w.byID[req.ID] = req
	w.byFilter[req.Status] = append(w.byFilter[req.Status], req.ID)
	w.mu.Unlock()
	return req, nil
}

// ListByStatus fetches the requests matching status (empty for all) and
// replaces the cached entries for that filter. Last fetch wins.
func (w *Workflow) ListByStatus(ctx context.Context, status models.RequestStatus) ([]models.AccessRequest, error) {
	path := "/password-requests"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var page models.Page[models.AccessRequest]
	if err := w.api.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}

	w.mu.Lock()
	ids := make([]string, 0, len(page.Results))
	for _, req := range page.Results {
		w.byID[req.ID] = req
		ids = append(ids, req.ID)
	}
	w.byFilter[status] = ids
	w.mu.Unlock()
	return page.Results, nil
}

// Approve transitions a pending request to approved.
func (w *Workflow) Approve(ctx context.Context, requestID, notes string) (models.AccessRequest, error) {
	return w.decide(ctx, requestID, notes, "approve")
}

// Reject transitions a pending request to rejected.
func (w *Workflow) Reject(ctx context.Context, requestID, notes string) (models.AccessRequest, error) {
	return w.decide(ctx, requestID, notes, "reject")
}

func (w *Workflow) decide(ctx context.Context, requestID, notes, action string) (models.AccessRequest, error) {
	w.mu.Lock()
	cached, known := w.byID[requestID]
	w.mu.Unlock()
	// Defense in depth only: the authoritative transition check lives on
	// the server, which answers 409 for a non-pending request.
	if known && cached.Status.Terminal() {
		return models.AccessRequest{}, apperrs.ErrInvalidTransition
	}

	body := map[string]string{}
	if notes != "" {
		body["adminNotes"] = notes
	}
	var updated models.AccessRequest
	err := w.api.Do(ctx, http.MethodPost, "/password-requests/"+requestID+"/"+action, body, &updated)
	if err != nil {
		// A failed transition leaves the cache untouched; the pre-image
		// stays whatever the last fetch said.
		return models.AccessRequest{}, err
	}

	// Adopt the server's entity even if its status differs from the one
	// we expected; the cache is never fresher than the server.
	w.mu.Lock()
	w.byID[updated.ID] = updated
	w.mu.Unlock()
	w.log.Debug("request decided",
		zap.String("request", updated.ID),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// Cached returns the locally cached copy of a request, if any.
func (w *Workflow) Cached(requestID string) (models.AccessRequest, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	req, ok := w.byID[requestID]
	return req, ok
}

// RetrievePlaintext attempts the gated read of a secret's plaintext.
// ErrPlaintextUnavailable means no approved request exists for this
// caller and secret; the caller should fall back to Create. Plaintext is
// never cached: an expired or revoked approval yields the same outcome
// on the next call.
func (w *Workflow) RetrievePlaintext(ctx context.Context, secretID string) (models.PlainSecret, error) {
	plain, err := w.secrets.View(ctx, secretID)
	if err != nil {
		if errors.Is(err, apperrs.ErrPlaintextUnavailable) {
			// Expected steady state for an ungranted pair, not an error
			// worth logging.
			return models.PlainSecret{}, apperrs.ErrPlaintextUnavailable
		}
		return models.PlainSecret{}, err
	}
	return plain, nil
}
