// Package http provides HTTP routing and middleware configuration for
// the vault service.
package http

import (
	"net/http"

	"github.com/Teerdaveni2002/password-vault/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter constructs the HTTP handler serving the vault API.
//
// Routes:
//
//	POST /auth/register, /auth/login, /auth/refresh, /auth/logout  (public)
//	GET  /auth/me                                                  (bearer)
//	GET/POST /passwords, GET/PATCH/DELETE /passwords/{id}          (bearer)
//	POST /passwords/{id}/share, GET /passwords/{id}/view           (bearer)
//	POST /password-requests, GET /password-requests                (bearer)
//	POST /password-requests/{id}/approve, .../reject               (bearer)
//
// Middleware chain (applied in order):
//  1. AllowContentType("application/json") — rejects non-JSON requests
//  2. WithRequestLogging(logger)           — logs incoming requests
//  3. BearerAuth(parser)                   — on the protected group only
func NewRouter(
	authHandler *AuthHandler,
	secretHandler *SecretHandler,
	requestHandler *RequestHandler,
	parser middleware.TokenParser,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json (or none,
	// for bodyless GETs).
	r.Use(chiMiddleware.AllowContentType("application/json", ""))

	// Log each request and its metadata.
	r.Use(middleware.WithRequestLogging(logger))

	// Public endpoints.
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.Post("/logout", authHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.BearerAuth(parser))
			r.Get("/me", authHandler.Me)
		})
	})

	// Protected group: requires a valid access token.
	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(parser))

		r.Route("/passwords", func(r chi.Router) {
			r.Get("/", secretHandler.List)
			r.Post("/", secretHandler.Create)
			r.Get("/{id}", secretHandler.Get)
			r.Patch("/{id}", secretHandler.Update)
			r.Delete("/{id}", secretHandler.Delete)
			r.Post("/{id}/share", secretHandler.Share)
			r.Get("/{id}/view", secretHandler.View)
		})

		r.Route("/password-requests", func(r chi.Router) {
			r.Get("/", requestHandler.List)
			r.Post("/", requestHandler.Create)
			r.Post("/{id}/approve", requestHandler.Approve)
			r.Post("/{id}/reject", requestHandler.Reject)
		})
	})

	return r
}
