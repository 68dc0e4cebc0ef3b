package config

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParse_Defaults(t *testing.T) {
	opts := Parse(newFlagSet(), nil)

	assert.Equal(t, "localhost:8080", opts.Port)
	assert.Equal(t, "info", opts.LogLevel)
	assert.Equal(t, 15*time.Minute, opts.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, opts.RefreshTTL)
	assert.Equal(t, time.Hour, opts.ApprovalWindow)
}

func TestParse_Flags(t *testing.T) {
	opts := Parse(newFlagSet(), []string{
		"-a", ":9090",
		"-d", "postgres://localhost/vault",
		"-s", "signing-secret",
		"-approval-window", "30m",
	})

	assert.Equal(t, ":9090", opts.Port)
	assert.Equal(t, "postgres://localhost/vault", opts.DatabaseDSN)
	assert.Equal(t, "signing-secret", opts.JWTSecret)
	assert.Equal(t, 30*time.Minute, opts.ApprovalWindow)
}

func TestParse_EnvironmentWins(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("DATABASE_DSN", "postgres://env/vault")
	t.Setenv("JWT_SECRET", "env-secret")

	opts := Parse(newFlagSet(), []string{"-a", ":9090", "-s", "flag-secret"})

	assert.Equal(t, ":7070", opts.Port)
	assert.Equal(t, "postgres://env/vault", opts.DatabaseDSN)
	assert.Equal(t, "env-secret", opts.JWTSecret)
}

func TestParse_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":":6060","log_level":"debug"}`), 0o600))

	opts := Parse(newFlagSet(), []string{"-c", path})

	assert.Equal(t, ":6060", opts.Port)
	assert.Equal(t, "debug", opts.LogLevel)
}
