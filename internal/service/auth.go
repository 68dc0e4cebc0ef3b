// Package service provides the business logic of the vault server,
// delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Teerdaveni2002/password-vault/internal/apperrs"
	"github.com/Teerdaveni2002/password-vault/internal/models"
	"github.com/Teerdaveni2002/password-vault/internal/repository"
	"github.com/Teerdaveni2002/password-vault/internal/token"
)

// UserRepository defines the persistence operations required by the
// authentication service.
type UserRepository interface {
	// CreateUser creates a new user record with its password hash.
	CreateUser(ctx context.Context, u models.User, passwordHash []byte) error
	// UserExists returns true if a user with the given username or email exists.
	UserExists(ctx context.Context, username, email string) (bool, error)
	// GetByUsername fetches a user and its password hash.
	GetByUsername(ctx context.Context, username string) (models.User, []byte, error)
	// GetByID fetches a user by its identifier.
	GetByID(ctx context.Context, id string) (models.User, error)
	// CountUsers returns the number of registered users.
	CountUsers(ctx context.Context) (int, error)
	// StoreRefreshToken persists an issued refresh token fingerprint.
	StoreRefreshToken(ctx context.Context, id, userID, tokenHash string, expiresAt time.Time) error
	// LookupRefreshToken resolves a usable refresh token fingerprint to its user.
	LookupRefreshToken(ctx context.Context, tokenHash string) (string, error)
	// RevokeRefreshToken marks a refresh token unusable.
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
}

// AuthService implements register, login, refresh and logout.
type AuthService struct {
	repo       UserRepository
	tokens     *token.Manager
	refreshTTL time.Duration
}

// NewAuthService constructs an AuthService using the provided repository
// and token manager.
func NewAuthService(repo UserRepository, tokens *token.Manager, refreshTTL time.Duration) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, refreshTTL: refreshTTL}
}

// Register creates a user and issues its first credential pair. The very
// first registered user becomes the admin so a reviewer always exists.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (models.AuthResponse, error) {
	exists, err := s.repo.UserExists(ctx, username, email)
	if err != nil {
		return models.AuthResponse{}, err
	}
	// A taken name is a field-level rejection (400), never a credential
	// failure: a 401 here would make an authenticated client treat its
	// own access token as expired.
	if exists {
		return models.AuthResponse{}, apperrs.NewValidation(map[string]string{
			"username": "username or email already in use",
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.AuthResponse{}, fmt.Errorf("hash password: %w", err)
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return models.AuthResponse{}, err
	}
	role := models.RoleUser
	if count == 0 {
		role = models.RoleAdmin
	}

	user := models.User{
		ID:        uuid.New().String(),
		Username:  username,
		Email:     email,
		Role:      role,
		CreatedAt: token.NowTimeFunc().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user, hash); err != nil {
		return models.AuthResponse{}, err
	}
	return s.issuePair(ctx, user)
}

// Login verifies credentials and issues a credential pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (models.AuthResponse, error) {
	user, hash, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return models.AuthResponse{}, apperrs.ErrInvalidCredentials
		}
		return models.AuthResponse{}, err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return models.AuthResponse{}, apperrs.ErrInvalidCredentials
	}
	return s.issuePair(ctx, user)
}

// Refresh mints a new access token for a valid refresh token. The
// refresh token itself is not rotated: any process holding it may keep
// refreshing until logout or expiry, which keeps concurrent refreshes
// from independent clients benign.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	userID, err := s.repo.LookupRefreshToken(ctx, token.Fingerprint(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return "", apperrs.ErrSessionExpired
		}
		return "", err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return s.tokens.CreateAccessToken(user)
}

// Logout revokes the refresh token. Unknown tokens revoke to a no-op;
// logout never fails for the caller's benefit.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.RevokeRefreshToken(ctx, token.Fingerprint(refreshToken))
}

// Me returns the identity for an authenticated user ID.
func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNoRows) {
			return models.User{}, apperrs.ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) issuePair(ctx context.Context, user models.User) (models.AuthResponse, error) {
	access, err := s.tokens.CreateAccessToken(user)
	if err != nil {
		return models.AuthResponse{}, err
	}
	refresh, err := token.NewRefreshToken()
	if err != nil {
		return models.AuthResponse{}, err
	}
	expires := token.NowTimeFunc().Add(s.refreshTTL)
	if err := s.repo.StoreRefreshToken(ctx, uuid.New().String(), user.ID, token.Fingerprint(refresh), expires); err != nil {
		return models.AuthResponse{}, err
	}
	return models.AuthResponse{Access: access, Refresh: refresh, User: user}, nil
}
