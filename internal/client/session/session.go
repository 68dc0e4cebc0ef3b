package session

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"sync"

	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/client/gateway"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// usernamePattern is the client-side register rule: alphanumerics and
// underscores, at least three characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,}$`)

// minPasswordLength is the client-side register rule for passwords.
const minPasswordLength = 8

// Doer issues one logical API call. Implemented by gateway.Gateway.
type Doer interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// AuthSession owns the client's identity and credential pair: it is the
// single source of truth for "is this caller authenticated, and as whom".
// Only login, register, refresh and logout mutate the token store.
type AuthSession struct {
	api   Doer
	store *TokenStore
	log   *zap.Logger

	mu       sync.Mutex
	identity *models.User
}

// NewAuthSession constructs an AuthSession over the given API gateway
// and token store.
func NewAuthSession(api Doer, store *TokenStore, log *zap.Logger) *AuthSession {
	return &AuthSession{api: api, store: store, log: log}
}

// Login authenticates with the server and, on success, stores the
// returned credential pair and identity. A rejected attempt returns
// ErrInvalidCredentials.
func (s *AuthSession) Login(ctx context.Context, username, password string) (models.User, error) {
	body := map[string]string{"username": username, "password": password}
	var resp models.AuthResponse
	if err := s.api.Do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return models.User{}, loginError(err)
	}
	s.adopt(resp)
	return resp.User, nil
}

// Register validates the input locally, then creates the account and
// behaves like Login on success. Validation failures are reported before
// any network call is made.
func (s *AuthSession) Register(ctx context.Context, username, email, password, confirmPassword string) (models.User, error) {
	fields := map[string]string{}
	if !usernamePattern.MatchString(username) {
		fields["username"] = "must be at least 3 characters of letters, digits or underscore"
	}
	if len(password) < minPasswordLength {
		fields["password"] = "must be at least 8 characters"
	}
	if password != confirmPassword {
		fields["confirmPassword"] = "does not match password"
	}
	if len(fields) > 0 {
		return models.User{}, apperrs.NewValidation(fields)
	}

	body := map[string]string{
		"username":        username,
		"email":           email,
		"password":        password,
		"confirmPassword": confirmPassword,
	}
	var resp models.AuthResponse
	if err := s.api.Do(ctx, http.MethodPost, "/auth/register", body, &resp); err != nil {
		return models.User{}, loginError(err)
	}
	s.adopt(resp)
	return resp.User, nil
}

// Logout tells the server to invalidate the refresh token, then clears
// local state unconditionally. The remote call is best-effort: a failure
// is logged and never surfaced, logout always succeeds locally.
func (s *AuthSession) Logout(ctx context.Context) {
	if pair, ok := s.store.Get(); ok && pair.Refresh != "" {
		body := map[string]string{"refresh": pair.Refresh}
		if err := s.api.Do(ctx, http.MethodPost, "/auth/logout", body, nil); err != nil {
			s.log.Warn("remote logout failed, clearing local session anyway", zap.Error(err))
		}
	}
	s.store.Clear()
	s.mu.Lock()
	s.identity = nil
	s.mu.Unlock()
}

// CurrentIdentity returns the cached identity. It is a pure read; the
// identity may be stale until the next 401 forces re-authentication.
func (s *AuthSession) CurrentIdentity() (models.User, bool) {
	if !s.IsAuthenticated() {
		return models.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return models.User{}, false
	}
	return *s.identity, true
}

// IsAuthenticated reports whether a credential pair is stored. The
// gateway clears the store when the session expires, so this flips to
// false without any session call.
func (s *AuthSession) IsAuthenticated() bool {
	_, ok := s.store.Get()
	return ok
}

// RefreshIdentity re-derives the identity from the server ("who am I").
// Used after a restart, when tokens were loaded from disk but no
// identity is cached yet.
func (s *AuthSession) RefreshIdentity(ctx context.Context) (models.User, error) {
	var user models.User
	if err := s.api.Do(ctx, http.MethodGet, "/auth/me", nil, &user); err != nil {
		return models.User{}, err
	}
	s.mu.Lock()
	s.identity = &user
	s.mu.Unlock()
	return user, nil
}

func (s *AuthSession) adopt(resp models.AuthResponse) {
	s.store.Set(resp.Access, resp.Refresh)
	s.mu.Lock()
	user := resp.User
	s.identity = &user
	s.mu.Unlock()
}

// loginError converts a bare 401 from the auth endpoints into
// ErrInvalidCredentials; everything else passes through.
func loginError(err error) error {
	var se *gateway.StatusError
	if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
		return apperrs.ErrInvalidCredentials
	}
	return err
}
