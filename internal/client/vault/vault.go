// Package vault is the API client for secret records: CRUD, sharing and
// the gated plaintext view.
package vault

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// Doer issues one logical API call. Implemented by gateway.Gateway.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Client wraps the /passwords endpoints.
type Client struct {
	api Doer
}

// NewClient constructs a vault API client over the given gateway.
func NewClient(api Doer) *Client {
	return &Client{api: api}
}

// List fetches one page of secrets visible to the caller.
func (c *Client) List(ctx context.Context, page int, search string) (models.Page[models.Secret], error) {
	q := url.Values{}
	if page > 1 {
		q.Set("page", fmt.Sprint(page))
	}
	if search != "" {
		q.Set("search", search)
	}
	path := "/passwords"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var result models.Page[models.Secret]
	err := c.api.Do(ctx, http.MethodGet, path, nil, &result)
	return result, err
}

// Get fetches a single secret's metadata.
func (c *Client) Get(ctx context.Context, id string) (models.Secret, error) {
	var sec models.Secret
	err := c.api.Do(ctx, http.MethodGet, "/passwords/"+id, nil, &sec)
	return sec, err
}

// Create stores a new secret.
func (c *Client) Create(ctx context.Context, in models.SecretInput) (models.Secret, error) {
	var sec models.Secret
	err := c.api.Do(ctx, http.MethodPost, "/passwords", in, &sec)
	return sec, err
}

// Update overwrites a secret's metadata and optionally its password.
func (c *Client) Update(ctx context.Context, id string, in models.SecretInput) (models.Secret, error) {
	var sec models.Secret
	err := c.api.Do(ctx, http.MethodPatch, "/passwords/"+id, in, &sec)
	return sec, err
}

// Delete removes a secret.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.api.Do(ctx, http.MethodDelete, "/passwords/"+id, nil, nil)
}

// Share marks a secret visible to other vault users.
func (c *Client) Share(ctx context.Context, id string) (models.Secret, error) {
	var sec models.Secret
	err := c.api.Do(ctx, http.MethodPost, "/passwords/"+id+"/share", nil, &sec)
	return sec, err
}

// View retrieves the plaintext of a secret. A denial is reported as
// ErrPlaintextUnavailable: no approved request exists for this caller
// and secret, which is a recoverable, expected outcome.
func (c *Client) View(ctx context.Context, id string) (models.PlainSecret, error) {
	var plain models.PlainSecret
	err := c.api.Do(ctx, http.MethodGet, "/passwords/"+id+"/view", nil, &plain)
	if errors.Is(err, apperrs.ErrNotAuthorized) {
		return models.PlainSecret{}, apperrs.ErrPlaintextUnavailable
	}
	return plain, err
}
