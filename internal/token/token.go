// Package token mints and verifies the bearer credentials issued by the
// vault server: signed JWT access tokens and opaque refresh tokens that
// are stored server-side as SHA-256 fingerprints.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Teerdaveni2002/password-vault/internal/models"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Claims are the claims embedded in an access token.
type Claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Manager creates and parses access tokens with a shared HMAC secret.
type Manager struct {
	secret    []byte
	accessTTL time.Duration
}

// NewManager constructs a Manager. secret must be non-empty; accessTTL
// bounds the lifetime of every minted access token.
func NewManager(secret string, accessTTL time.Duration) (*Manager, error) {
	if secret == "" {
		return nil, fmt.Errorf("token manager: empty signing secret")
	}
	return &Manager{secret: []byte(secret), accessTTL: accessTTL}, nil
}

// CreateAccessToken mints a signed access token for the given user.
func (m *Manager) CreateAccessToken(user models.User) (string, error) {
	now := NowTimeFunc()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(m.accessTTL)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and expiry of an access token
// and returns its claims.
func (m *Manager) ParseAccessToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwtlib.WithTimeFunc(func() time.Time { return NowTimeFunc() }))
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// NewRefreshToken generates an opaque refresh token. The raw value goes
// to the client; only its fingerprint is stored.
func NewRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Fingerprint returns the deterministic base64url SHA-256 hash under
// which a refresh token is stored.
func Fingerprint(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
