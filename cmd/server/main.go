// Package main initializes and starts the password-vault server,
// wiring configuration, logging, the database, repositories, services
// and HTTP handlers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	nethttp "net/http"

	"github.com/Teerdaveni2002/password-vault/internal/config"
	"github.com/Teerdaveni2002/password-vault/internal/db"
	"github.com/Teerdaveni2002/password-vault/internal/logger"
	"github.com/Teerdaveni2002/password-vault/internal/repository"
	"github.com/Teerdaveni2002/password-vault/internal/server/handler/http"
	"github.com/Teerdaveni2002/password-vault/internal/service"
	"github.com/Teerdaveni2002/password-vault/internal/token"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse(flag.CommandLine, os.Args[1:])

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Initialize PostgreSQL connection and schema.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}

	// Periodically drop revoked and expired refresh tokens.
	db.StartExpiredTokenCleaner(context.Background(), postgresDB, time.Hour, zapLogger)

	// Token manager signs and verifies access tokens.
	tokens, err := token.NewManager(options.JWTSecret, options.AccessTTL)
	if err != nil {
		zapLogger.Fatal("cannot init token manager", zap.Error(err))
	}

	// The at-rest cipher for secret plaintexts.
	aead, err := service.NewAEAD(options.JWTSecret)
	if err != nil {
		zapLogger.Fatal("cannot init secret cipher", zap.Error(err))
	}

	// Initialize repositories.
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	secretRepo := repository.NewPostgresSecretRepository(postgresDB)
	requestRepo := repository.NewPostgresRequestRepository(postgresDB)

	// Initialize business-logic services.
	authService := service.NewAuthService(userRepo, tokens, options.RefreshTTL)
	vaultService := service.NewVaultService(secretRepo, requestRepo, aead)
	requestService := service.NewRequestService(requestRepo, secretRepo, options.ApprovalWindow)

	// Create HTTP handlers.
	authHandler := &http.AuthHandler{AuthService: authService}
	secretHandler := &http.SecretHandler{VaultService: vaultService}
	requestHandler := &http.RequestHandler{RequestService: requestService}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, secretHandler, requestHandler, tokens, zapLogger)

	server := &nethttp.Server{
		Addr:    options.Port,
		Handler: router,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}

// orDefault returns s, or def if s is empty. It stands in for cmp.Or,
// which requires Go 1.22, on the Go 1.21 toolchain used to build.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
