// Package logger constructs the zap logger used across the client and
// server binaries.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap.Logger so callers can initialize it with a
// configurable level after construction.
type Logger struct {
	Log *zap.Logger
}

// New returns a Logger with a no-op core; call Init before use.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init replaces the core with a production logger at the given level
// ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	log, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = log
	return nil
}
