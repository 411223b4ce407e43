// Package cli wires configuration, logging and the storage backend into the
// expense-tracker command line.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"expense-tracker/internal/config"
	"expense-tracker/internal/log"
)

// SetupLogger initializes structured logging on w at the given level.
// The default slog logger is replaced so packages logging through slog
// share the same handler.
func SetupLogger(level slog.Level, w io.Writer) *log.Logger {
	logger := log.New(log.Config{
		Level:     level,
		Component: log.ComponentApp,
		Output:    w,
	})
	log.SetDefault(logger)
	return logger.WithComponent(log.ComponentCLI)
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration, lets override adjust it and
// validates the result.
func LoadAndValidateConfig(override func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NotifyInterrupt returns a context cancelled on SIGINT or SIGTERM.
func NotifyInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
