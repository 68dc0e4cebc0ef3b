// Package config provides functionality for managing configuration options
// for the vault server using command-line flags, environment variables and
// an optional JSON config file.
package config

import (
	"encoding/json"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"port"`

	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"database_dsn"`

	// JWTSecret signs access tokens. Must be set outside of local runs.
	JWTSecret string `json:"jwt_secret"`

	// AccessTTL is the access token lifetime.
	AccessTTL time.Duration `json:"-"`

	// RefreshTTL is the refresh token lifetime.
	RefreshTTL time.Duration `json:"-"`

	// ApprovalWindow is how long an approved access request stays usable.
	ApprovalWindow time.Duration `json:"-"`

	// LogLevel sets the zap log level.
	LogLevel string `json:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-"`
}

// Defaults mirror the original deployment: 15 minute access tokens,
// 7 day refresh tokens, 1 hour disclosure window.
const (
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
	defaultApprovalWindow = time.Hour
)

// Parse reads flags, the optional config file and environment variables,
// in that order of precedence (environment wins). It returns the resolved
// Options.
func Parse(fs FlagSet, args []string) *Options {
	options := &Options{
		AccessTTL:      defaultAccessTTL,
		RefreshTTL:     defaultRefreshTTL,
		ApprovalWindow: defaultApprovalWindow,
	}

	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.JWTSecret, "s", "", "access token signing secret")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.Config, "config", "", "path to config file")
	fs.StringVar(&options.Config, "c", "", "path to config file (shorthand)")
	fs.DurationVar(&options.AccessTTL, "access-ttl", defaultAccessTTL, "access token lifetime")
	fs.DurationVar(&options.RefreshTTL, "refresh-ttl", defaultRefreshTTL, "refresh token lifetime")
	fs.DurationVar(&options.ApprovalWindow, "approval-window", defaultApprovalWindow, "approved request disclosure window")
	_ = fs.Parse(args)

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		options.JWTSecret = secret
	}

	return options
}

// FlagSet is the subset of *flag.FlagSet that Parse needs; tests pass a
// fresh flag.FlagSet to avoid global flag registration collisions.
type FlagSet interface {
	StringVar(p *string, name string, value string, usage string)
	DurationVar(p *time.Duration, name string, value time.Duration, usage string)
	Parse(arguments []string) error
}
