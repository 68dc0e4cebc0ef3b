// Package gateway implements the outbound call layer of the vault
// client. Every call attaches the current access token as a bearer
// credential; a call that comes back 401 triggers exactly one refresh
// and one retry before the session is declared expired.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// TokenSource is the credential slot the gateway reads and maintains.
// Implemented by session.TokenStore.
type TokenSource interface {
	// Get returns the current pair, if any.
	Get() (models.TokenPair, bool)
	// Set overwrites the stored pair.
	Set(access, refresh string)
	// Clear drops the pair. Idempotent.
	Clear()
}

// StatusError carries an HTTP failure the taxonomy has no dedicated
// value for; callers map it per operation.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// errorBody matches the server's uniform error payload.
type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// refreshCall is a single in-flight refresh shared by every caller that
// hit a 401 while it runs.
type refreshCall struct {
	done chan struct{}
	err  error
}

// Gateway issues JSON calls against the vault API with the refresh-once
// retry policy.
type Gateway struct {
	client  *http.Client
	baseURL string
	tokens  TokenSource
	log     *zap.Logger

	mu       sync.Mutex
	inflight *refreshCall
}

// New constructs a Gateway. client may carry a timeout; baseURL is the
// API root without trailing slash.
func New(client *http.Client, baseURL string, tokens TokenSource, log *zap.Logger) *Gateway {
	return &Gateway{client: client, baseURL: baseURL, tokens: tokens, log: log}
}

// Do executes one logical API call: marshal body, attach the bearer
// token if present, send, and decode the response into out (which may be
// nil). On a 401 with a stored refresh token it refreshes once, retries
// the original call once, and treats a second 401 as terminal: the
// session is cleared and ErrSessionExpired returned. The caller never
// observes the intermediate 401.
func (g *Gateway) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	pair, hadToken := g.tokens.Get()
	resp, err := g.send(ctx, method, path, payload, pair.Access)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && hadToken && pair.Refresh != "" {
		drain(resp)
		if err := g.refreshOnce(ctx); err != nil {
			return err
		}
		// The refresh token is unchanged; only the access slot moved.
		pair, _ = g.tokens.Get()
		resp, err = g.send(ctx, method, path, payload, pair.Access)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			// A second 401 after a completed refresh is terminal.
			drain(resp)
			g.tokens.Clear()
			return apperrs.ErrSessionExpired
		}
	}

	return decode(resp, out)
}

// send performs a single HTTP attempt. The payload is re-wrapped per
// attempt so a retried request never reuses a consumed body.
func (g *Gateway) send(ctx context.Context, method, path string, payload []byte, access string) (*http.Response, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	return resp, nil
}

// refreshOnce coalesces concurrent refresh attempts into a single
// in-flight call; every waiter observes the same outcome.
func (g *Gateway) refreshOnce(ctx context.Context) error {
	g.mu.Lock()
	if g.inflight != nil {
		call := g.inflight
		g.mu.Unlock()
		select {
		case <-call.done:
			return call.err
		case <-ctx.Done():
			return transportError(ctx.Err())
		}
	}
	call := &refreshCall{done: make(chan struct{})}
	g.inflight = call
	g.mu.Unlock()

	call.err = g.refresh(ctx)

	g.mu.Lock()
	g.inflight = nil
	g.mu.Unlock()
	close(call.done)
	return call.err
}

// refresh exchanges the stored refresh token for a new access token. A
// rejection clears the session; a transport failure does not, since the
// credentials may still be good.
func (g *Gateway) refresh(ctx context.Context) error {
	pair, ok := g.tokens.Get()
	if !ok || pair.Refresh == "" {
		g.tokens.Clear()
		return apperrs.ErrSessionExpired
	}

	payload, err := json.Marshal(map[string]string{"refresh": pair.Refresh})
	if err != nil {
		return fmt.Errorf("marshal refresh request: %w", err)
	}
	resp, err := g.send(ctx, http.MethodPost, "/auth/refresh", payload, "")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		drain(resp)
		g.log.Debug("refresh rejected", zap.Int("status", resp.StatusCode))
		g.tokens.Clear()
		return apperrs.ErrSessionExpired
	}

	var result struct {
		Access string `json:"access"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		resp.Body.Close()
		return fmt.Errorf("decode refresh response: %w", err)
	}
	resp.Body.Close()

	g.tokens.Set(result.Access, pair.Refresh)
	g.log.Debug("access token refreshed")
	return nil
}

// decode maps the final response onto the error taxonomy, or unmarshals
// the body into out on success.
func decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusBadRequest:
		if len(body.Fields) > 0 {
			return apperrs.NewValidation(body.Fields)
		}
		return &StatusError{Code: resp.StatusCode, Message: body.Error}
	case http.StatusForbidden:
		return apperrs.ErrNotAuthorized
	case http.StatusNotFound:
		return apperrs.ErrNotFound
	case http.StatusConflict:
		return apperrs.ErrInvalidTransition
	default:
		return &StatusError{Code: resp.StatusCode, Message: body.Error}
	}
}

// transportError classifies failures that happened before any response.
func transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", apperrs.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", apperrs.ErrNetworkUnavailable, err)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
