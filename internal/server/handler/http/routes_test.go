package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
	handler "github.com/Teerdaveni2002/password-vault/internal/server/handler/http"
	"github.com/Teerdaveni2002/password-vault/internal/token"
)

type mockAuthService struct {
	RegisterFunc func(ctx context.Context, username, email, password string) (models.AuthResponse, error)
	LoginFunc    func(ctx context.Context, username, password string) (models.AuthResponse, error)
	RefreshFunc  func(ctx context.Context, refreshToken string) (string, error)
	LogoutFunc   func(ctx context.Context, refreshToken string) error
	MeFunc       func(ctx context.Context, userID string) (models.User, error)
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (models.AuthResponse, error) {
	return m.RegisterFunc(ctx, username, email, password)
}
func (m *mockAuthService) Login(ctx context.Context, username, password string) (models.AuthResponse, error) {
	return m.LoginFunc(ctx, username, password)
}
func (m *mockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return m.RefreshFunc(ctx, refreshToken)
}
func (m *mockAuthService) Logout(ctx context.Context, refreshToken string) error {
	return m.LogoutFunc(ctx, refreshToken)
}
func (m *mockAuthService) Me(ctx context.Context, userID string) (models.User, error) {
	return m.MeFunc(ctx, userID)
}

type mockVaultService struct {
	CreateFunc func(ctx context.Context, owner models.User, in models.SecretInput) (models.Secret, error)
	GetFunc    func(ctx context.Context, viewer models.User, id string) (models.Secret, error)
	ListFunc   func(ctx context.Context, viewer models.User, search string, limit, offset int) ([]models.Secret, int, error)
	UpdateFunc func(ctx context.Context, viewer models.User, id string, in models.SecretInput) (models.Secret, error)
	DeleteFunc func(ctx context.Context, viewer models.User, id string) error
	ShareFunc  func(ctx context.Context, viewer models.User, id string) (models.Secret, error)
	ViewFunc   func(ctx context.Context, viewer models.User, id string) (models.PlainSecret, error)
}

func (m *mockVaultService) Create(ctx context.Context, owner models.User, in models.SecretInput) (models.Secret, error) {
	return m.CreateFunc(ctx, owner, in)
}
func (m *mockVaultService) Get(ctx context.Context, viewer models.User, id string) (models.Secret, error) {
	return m.GetFunc(ctx, viewer, id)
}
func (m *mockVaultService) List(ctx context.Context, viewer models.User, search string, limit, offset int) ([]models.Secret, int, error) {
	return m.ListFunc(ctx, viewer, search, limit, offset)
}
func (m *mockVaultService) Update(ctx context.Context, viewer models.User, id string, in models.SecretInput) (models.Secret, error) {
	return m.UpdateFunc(ctx, viewer, id, in)
}
func (m *mockVaultService) Delete(ctx context.Context, viewer models.User, id string) error {
	return m.DeleteFunc(ctx, viewer, id)
}
func (m *mockVaultService) Share(ctx context.Context, viewer models.User, id string) (models.Secret, error) {
	return m.ShareFunc(ctx, viewer, id)
}
func (m *mockVaultService) View(ctx context.Context, viewer models.User, id string) (models.PlainSecret, error) {
	return m.ViewFunc(ctx, viewer, id)
}

type mockRequestService struct {
	CreateFunc  func(ctx context.Context, requester models.User, secretID, reason string) (models.AccessRequest, error)
	ListFunc    func(ctx context.Context, viewer models.User, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error)
	ApproveFunc func(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error)
	RejectFunc  func(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error)
}

func (m *mockRequestService) Create(ctx context.Context, requester models.User, secretID, reason string) (models.AccessRequest, error) {
	return m.CreateFunc(ctx, requester, secretID, reason)
}
func (m *mockRequestService) List(ctx context.Context, viewer models.User, status models.RequestStatus, limit, offset int) ([]models.AccessRequest, int, error) {
	return m.ListFunc(ctx, viewer, status, limit, offset)
}
func (m *mockRequestService) Approve(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error) {
	return m.ApproveFunc(ctx, reviewer, requestID, notes)
}
func (m *mockRequestService) Reject(ctx context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error) {
	return m.RejectFunc(ctx, reviewer, requestID, notes)
}

type env struct {
	auth     *mockAuthService
	vault    *mockVaultService
	requests *mockRequestService
	tokens   *token.Manager
	router   http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	tokens, err := token.NewManager("test-secret", time.Minute)
	require.NoError(t, err)

	e := &env{
		auth:     &mockAuthService{},
		vault:    &mockVaultService{},
		requests: &mockRequestService{},
		tokens:   tokens,
	}
	e.router = handler.NewRouter(
		&handler.AuthHandler{AuthService: e.auth},
		&handler.SecretHandler{VaultService: e.vault},
		&handler.RequestHandler{RequestService: e.requests},
		tokens,
		zap.NewNop(),
	)
	return e
}

func (e *env) bearer(t *testing.T, user models.User) string {
	t.Helper()
	raw, err := e.tokens.CreateAccessToken(user)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + raw
}

func (e *env) do(method, target, body, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestRegister_Created(t *testing.T) {
	e := newEnv(t)
	e.auth.RegisterFunc = func(_ context.Context, username, email, password string) (models.AuthResponse, error) {
		assert.Equal(t, "alice", username)
		assert.Equal(t, "a@b.c", email)
		return models.AuthResponse{
			Access:  "acc",
			Refresh: "ref",
			User:    models.User{ID: "u1", Username: username, Role: models.RoleAdmin},
		}, nil
	}

	rec := e.do(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"a@b.c","password":"hunter22","confirmPassword":"hunter22"}`, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp models.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "acc", resp.Access)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
}

// A taken username must answer 400, never 401: clients treat a 401 on a
// token-carrying call as access-token expiry and would tear down their
// session over a routine register rejection.
func TestRegister_TakenUsernameIs400(t *testing.T) {
	e := newEnv(t)
	e.auth.RegisterFunc = func(context.Context, string, string, string) (models.AuthResponse, error) {
		return models.AuthResponse{}, apperrs.NewValidation(map[string]string{
			"username": "username or email already in use",
		})
	}

	rec := e.do(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"a@b.c","password":"hunter22","confirmPassword":"hunter22"}`, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Fields, "username")
}

func TestLogin_BadCredentialsIs401(t *testing.T) {
	e := newEnv(t)
	e.auth.LoginFunc = func(context.Context, string, string) (models.AuthResponse, error) {
		return models.AuthResponse{}, apperrs.ErrInvalidCredentials
	}

	rec := e.do(http.MethodPost, "/auth/login", `{"username":"alice","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_ReturnsAccessOnly(t *testing.T) {
	e := newEnv(t)
	e.auth.RefreshFunc = func(_ context.Context, refresh string) (string, error) {
		assert.Equal(t, "ref-1", refresh)
		return "acc-2", nil
	}

	rec := e.do(http.MethodPost, "/auth/refresh", `{"refresh":"ref-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "acc-2", body["access"])
	assert.NotContains(t, body, "refresh")
}

func TestRefresh_ExpiredSessionIs401(t *testing.T) {
	e := newEnv(t)
	e.auth.RefreshFunc = func(context.Context, string) (string, error) {
		return "", apperrs.ErrSessionExpired
	}

	rec := e.do(http.MethodPost, "/auth/refresh", `{"refresh":"revoked"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	e := newEnv(t)

	for _, target := range []string{"/passwords", "/password-requests", "/auth/me"} {
		rec := e.do(http.MethodGet, target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}

	rec := e.do(http.MethodGet, "/passwords", "", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListSecrets_PaginationEnvelope(t *testing.T) {
	e := newEnv(t)
	e.vault.ListFunc = func(_ context.Context, viewer models.User, search string, limit, offset int) ([]models.Secret, int, error) {
		assert.Equal(t, "u1", viewer.ID)
		assert.Equal(t, "mail", search)
		assert.Equal(t, 20, limit)
		assert.Equal(t, 20, offset)
		return []models.Secret{{ID: "s21"}}, 45, nil
	}

	auth := e.bearer(t, models.User{ID: "u1", Username: "alice", Role: models.RoleUser})
	rec := e.do(http.MethodGet, "/passwords?page=2&search=mail", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)

	var page models.Page[models.Secret]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 45, page.Count)
	assert.Equal(t, "/passwords?page=3", page.Next)
	assert.Equal(t, "/passwords?page=1", page.Previous)
}

func TestCreateSecret_ValidationFields(t *testing.T) {
	e := newEnv(t)
	e.vault.CreateFunc = func(context.Context, models.User, models.SecretInput) (models.Secret, error) {
		return models.Secret{}, apperrs.NewValidation(map[string]string{"title": "required"})
	}

	auth := e.bearer(t, models.User{ID: "u1", Role: models.RoleUser})
	rec := e.do(http.MethodPost, "/passwords", `{"username":"alice","password":"pw"}`, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "required", body.Fields["title"])
}

func TestView_UngrantedIs403(t *testing.T) {
	e := newEnv(t)
	e.vault.ViewFunc = func(_ context.Context, viewer models.User, id string) (models.PlainSecret, error) {
		assert.Equal(t, "s1", id)
		return models.PlainSecret{}, apperrs.ErrPlaintextUnavailable
	}

	auth := e.bearer(t, models.User{ID: "u2", Role: models.RoleUser})
	rec := e.do(http.MethodGet, "/passwords/s1/view", "", auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestView_GrantedReturnsPlaintext(t *testing.T) {
	e := newEnv(t)
	e.vault.ViewFunc = func(context.Context, models.User, string) (models.PlainSecret, error) {
		return models.PlainSecret{Password: "hunter2"}, nil
	}

	auth := e.bearer(t, models.User{ID: "u1", Role: models.RoleUser})
	rec := e.do(http.MethodGet, "/passwords/s1/view", "", auth)
	require.Equal(t, http.StatusOK, rec.Code)

	var plain models.PlainSecret
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	assert.Equal(t, "hunter2", plain.Password)
}

func TestApprove_AlreadyDecidedIs409(t *testing.T) {
	e := newEnv(t)
	e.requests.ApproveFunc = func(_ context.Context, reviewer models.User, requestID, notes string) (models.AccessRequest, error) {
		assert.Equal(t, "r1", requestID)
		return models.AccessRequest{}, apperrs.ErrInvalidTransition
	}

	auth := e.bearer(t, models.User{ID: "admin-1", Role: models.RoleAdmin})
	rec := e.do(http.MethodPost, "/password-requests/r1/approve", `{"adminNotes":"ok"}`, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApprove_NonReviewerIs403(t *testing.T) {
	e := newEnv(t)
	e.requests.ApproveFunc = func(context.Context, models.User, string, string) (models.AccessRequest, error) {
		return models.AccessRequest{}, apperrs.ErrNotAuthorized
	}

	auth := e.bearer(t, models.User{ID: "u1", Role: models.RoleUser})
	rec := e.do(http.MethodPost, "/password-requests/r1/approve", `{}`, auth)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRequest_UnknownSecretIs404(t *testing.T) {
	e := newEnv(t)
	e.requests.CreateFunc = func(context.Context, models.User, string, string) (models.AccessRequest, error) {
		return models.AccessRequest{}, apperrs.ErrNotFound
	}

	auth := e.bearer(t, models.User{ID: "u1", Role: models.RoleUser})
	rec := e.do(http.MethodPost, "/password-requests", `{"secretId":"ghost","reason":"ten chars!"}`, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNonJSONContentTypeRefused(t *testing.T) {
	e := newEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=alice"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}
