package logging

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ContextWithLogger returns a context carrying the logger. A nil logger
// leaves the context untouched.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request-scoped logger stored by ContextWithLogger,
// falling back to the process-wide zap.L().
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.L()
}
