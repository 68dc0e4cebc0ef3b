package session

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/client/gateway"
	"github.com/Teerdaveni2002/password-vault/internal/models"
)

type mockDoer struct {
	DoFunc func(ctx context.Context, method, path string, body, out any) error
	calls  int
}

func (m *mockDoer) Do(ctx context.Context, method, path string, body, out any) error {
	m.calls++
	return m.DoFunc(ctx, method, path, body, out)
}

func authResponse(out any, user models.User) {
	resp := out.(*models.AuthResponse)
	*resp = models.AuthResponse{Access: "acc-1", Refresh: "ref-1", User: user}
}

func TestLogin_Success(t *testing.T) {
	store := NewTokenStore("")
	api := &mockDoer{DoFunc: func(_ context.Context, method, path string, body, out any) error {
		assert.Equal(t, http.MethodPost, method)
		assert.Equal(t, "/auth/login", path)
		authResponse(out, models.User{ID: "u1", Username: "alice", Role: models.RoleUser})
		return nil
	}}
	s := NewAuthSession(api, store, zap.NewNop())

	user, err := s.Login(context.Background(), "alice", "secretpw")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.True(t, s.IsAuthenticated())

	identity, ok := s.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, "u1", identity.ID)

	pair, ok := store.Get()
	require.True(t, ok)
	assert.Equal(t, "acc-1", pair.Access)
	assert.Equal(t, "ref-1", pair.Refresh)
}

func TestLogin_Rejected(t *testing.T) {
	api := &mockDoer{DoFunc: func(context.Context, string, string, any, any) error {
		return &gateway.StatusError{Code: http.StatusUnauthorized, Message: "bad credentials"}
	}}
	s := NewAuthSession(api, NewTokenStore(""), zap.NewNop())

	_, err := s.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, apperrs.ErrInvalidCredentials)
	assert.False(t, s.IsAuthenticated())
}

func TestRegister_ValidatesBeforeNetwork(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
		confirm  string
		field    string
	}{
		{"short username", "ab", "longenough", "longenough", "username"},
		{"bad username chars", "a b!", "longenough", "longenough", "username"},
		{"short password", "alice", "short", "short", "password"},
		{"mismatched confirmation", "alice", "longenough", "different", "confirmPassword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockDoer{DoFunc: func(context.Context, string, string, any, any) error {
				t.Fatal("network call made despite validation failure")
				return nil
			}}
			s := NewAuthSession(api, NewTokenStore(""), zap.NewNop())

			_, err := s.Register(context.Background(), tt.username, "a@b.c", tt.password, tt.confirm)
			var ve *apperrs.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
			assert.Zero(t, api.calls)
		})
	}
}

func TestRegister_Success(t *testing.T) {
	api := &mockDoer{DoFunc: func(_ context.Context, _, path string, body, out any) error {
		assert.Equal(t, "/auth/register", path)
		authResponse(out, models.User{ID: "u1", Username: "alice", Role: models.RoleAdmin})
		return nil
	}}
	s := NewAuthSession(api, NewTokenStore(""), zap.NewNop())

	user, err := s.Register(context.Background(), "alice", "a@b.c", "longenough", "longenough")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.True(t, s.IsAuthenticated())
}

// Logout while offline: the remote call fails, local state clears anyway.
func TestLogout_OfflineStillClearsLocally(t *testing.T) {
	store := NewTokenStore("")
	store.Set("acc-1", "ref-1")
	api := &mockDoer{DoFunc: func(context.Context, string, string, any, any) error {
		return errors.Join(apperrs.ErrNetworkUnavailable, errors.New("dial tcp: no route"))
	}}
	s := NewAuthSession(api, store, zap.NewNop())

	s.Logout(context.Background())

	assert.False(t, s.IsAuthenticated())
	_, ok := store.Get()
	assert.False(t, ok)
	_, ok = s.CurrentIdentity()
	assert.False(t, ok)
	assert.Equal(t, 1, api.calls)
}

func TestLogout_WithoutSessionIsNoop(t *testing.T) {
	api := &mockDoer{DoFunc: func(context.Context, string, string, any, any) error {
		t.Fatal("no remote call expected without a refresh token")
		return nil
	}}
	s := NewAuthSession(api, NewTokenStore(""), zap.NewNop())
	s.Logout(context.Background())
	assert.Zero(t, api.calls)
}

func TestRefreshIdentity(t *testing.T) {
	store := NewTokenStore("")
	store.Set("acc-1", "ref-1")
	api := &mockDoer{DoFunc: func(_ context.Context, method, path string, _, out any) error {
		assert.Equal(t, http.MethodGet, method)
		assert.Equal(t, "/auth/me", path)
		*(out.(*models.User)) = models.User{ID: "u1", Username: "alice", Role: models.RoleUser}
		return nil
	}}
	s := NewAuthSession(api, store, zap.NewNop())

	// Tokens loaded from disk, identity not yet known.
	_, ok := s.CurrentIdentity()
	require.False(t, ok)

	user, err := s.RefreshIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	identity, ok := s.CurrentIdentity()
	require.True(t, ok)
	assert.Equal(t, "u1", identity.ID)
}
