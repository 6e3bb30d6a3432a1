package logger

import (
	"context"
	"log/slog"
)

// contextKey is a private type for the logger context key to avoid collisions.
type contextKey struct{}

var loggerKey = contextKey{}

// WithLogger returns a copy of the context carrying the given logger.
// Handlers and middleware use this to propagate request-scoped loggers
// (e.g. with trace IDs attached) down to services and stores.
func WithLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext retrieves the logger from the context, falling back to
// slog.Default() if none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	return slog.Default()
}

// FromContextOrDefault retrieves the logger from the context, falling back to
// the provided default rather than the global one. Components pass their own
// component-tagged logger as the fallback.
func FromContextOrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if log, ok := ctx.Value(loggerKey).(*slog.Logger); ok && log != nil {
		return log
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
