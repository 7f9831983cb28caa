package logging

import (
	"context"
	"log/slog"
)

type ctxKey string

const (
	loggerKey    ctxKey = "logger"
	requestIDKey ctxKey = "request_id"
)

// WithRequest stores a request-scoped logger carrying the request ID in ctx.
func WithRequest(ctx context.Context, requestID string) context.Context {
	reqLogger := slog.Default().With("request_id", requestID)
	ctx = context.WithValue(ctx, requestIDKey, requestID)
	return context.WithValue(ctx, loggerKey, reqLogger)
}

// FromContext extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// RequestIDFromContext returns the request ID stored by WithRequest, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
