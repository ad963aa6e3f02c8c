package logging

import (
	"context"
	"log/slog"
	"os"
)

// ctxKey is the key used to store the logger in a context.
// Using a custom type prevents collisions.
type ctxKey struct{}

// NewLogger builds the base structured logger. Production gets JSON output,
// development gets text at debug level.
func NewLogger(isProduction bool) *slog.Logger {
	if isProduction {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// WithCtx returns a context carrying the given logger, typically enriched
// with event-scoped fields by the ingestion layer.
func WithCtx(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromCtx retrieves the scoped logger from the context, falling back to the
// default logger when none was attached.
func FromCtx(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
