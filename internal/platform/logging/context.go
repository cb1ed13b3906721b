// Package logging carries a scoped *slog.Logger through context so services
// and repositories log with the fields of the request or sweep that invoked
// them.
package logging

import (
	"context"
	"log/slog"
)

// contextKey is a private type to avoid collisions with other context values.
type contextKey string

const loggerKey = contextKey("logger")

// WithLogger returns a context carrying the given logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the scoped logger, falling back to slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
