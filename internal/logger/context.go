package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ctxKey is a private type used as the context key for the logger.
type ctxKey struct{}

// ToContext returns a new context carrying the provided logger.
func ToContext(ctx context.Context, l *zap.SugaredLogger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext extracts the logger from the context.
// Falls back to the global logger if the context carries none.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.SugaredLogger); ok {
		return l
	}

	return global
}

// WithName returns a context whose logger is named for scoped output,
// e.g. "wake" or "wsleep".
func WithName(ctx context.Context, name string) context.Context {
	return ToContext(ctx, FromContext(ctx).Named(name))
}

// WithKV returns a context whose logger carries an additional key-value pair.
func WithKV(ctx context.Context, key string, value any) context.Context {
	return ToContext(ctx, FromContext(ctx).With(key, value))
}

// WithFields returns a context whose logger carries additional structured fields.
func WithFields(ctx context.Context, fields ...zapcore.Field) context.Context {
	return ToContext(ctx, FromContext(ctx).Desugar().With(fields...).Sugar())
}
