package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

type Runner func(ctx context.Context) error

// Run executes a service entrypoint under a signal-aware context and maps
// its outcome to an exit code.
func Run(serviceName string, run Runner) int {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
	logger.Info().Msg("starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("failed")
		return 1
	}
	logger.Info().Msg("stopped")
	return 0
}

// Logger builds the root logger handed to components by the entrypoints.
func Logger(serviceName string) zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Str("service", serviceName).Logger()
}
