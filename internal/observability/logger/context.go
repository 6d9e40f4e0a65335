package logger

import (
	"context"

	"go.uber.org/zap"
)

type loggerKey struct{}

// ToContext guarda l como logger del request.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// From devuelve el logger del request; fuera de un request (CLI, jobs) el singleton.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}
