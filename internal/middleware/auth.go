// Package middleware provides HTTP middlewares for authentication and logging.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/Teerdaveni2002/password-vault/internal/token"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// TokenParser verifies a raw access token and returns its claims.
type TokenParser interface {
	ParseAccessToken(raw string) (*token.Claims, error)
}

// BearerAuth enforces bearer-token authentication.
//
// It extracts the access token from the Authorization header, verifies
// it, and stores the claims in the request context for downstream
// handlers. Requests without a usable token are rejected with 401; the
// router mounts the public auth endpoints outside this middleware.
func BearerAuth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				http.Error(w, "authorization required", http.StatusUnauthorized)
				return
			}
			claims, err := parser.ParseAccessToken(raw)
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetClaimsFromContext extracts the verified access-token claims from the
// request context. Returns nil if the request was not authenticated.
func GetClaimsFromContext(ctx context.Context) *token.Claims {
	claims, _ := ctx.Value(claimsKey).(*token.Claims)
	return claims
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
