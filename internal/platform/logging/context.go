package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type ctxKey struct{}

var fallback atomic.Pointer[slog.Logger]

func init() {
	fallback.Store(slog.Default())
}

// FromContext returns the logger carried by ctx, or the process default.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
			return logger
		}
	}

	return fallback.Load()
}

// WithContext stores logger in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// withField derives the context logger with one extra string attribute.
func withField(ctx context.Context, key, value string) context.Context {
	return WithContext(ctx, FromContext(ctx).With(slog.String(key, value)))
}

// WithRequestID tags the context logger with the HTTP request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, "request_id", requestID)
}

// WithCorrelationID tags the context logger with the caller's correlation id.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return withField(ctx, "correlation_id", correlationID)
}

// WithCycleID tags every log line of one sync cycle.
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return withField(ctx, "cycle_id", cycleID)
}

// SetDefault installs logger as the fallback for FromContext and as slog's default.
func SetDefault(logger *slog.Logger) {
	fallback.Store(logger)
	slog.SetDefault(logger)
}
