// Package cli provides common initialization utilities shared by
// cmd/gofinances and cmd/gofinances-cli.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"gofinances/internal/backend"
	"gofinances/internal/config"
	"gofinances/internal/log"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger.
func SetupLogger(level string) *log.Logger {
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeConfiguration).ToSlice()...)
		os.Exit(1)
	}
	return cfg
}

// OpenStore creates the configured store.
// Returns the store or exits the process on failure.
func OpenStore(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.Result {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateStore(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize store",
			log.NewFields().WithError(err).WithErrorType(log.ErrorTypeStorage).ToSlice()...)
		os.Exit(1)
	}
	return res
}

// GracefulShutdown returns a context that is cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
