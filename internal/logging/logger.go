// Package logging wraps zap the same way the teacher's internal/logging
// package does, generalized from per-HTTP-request fields to per-operation
// fields (rev, edit kind) for the stack engine's CLI.
package logging

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.Logger
}

func NewLogger(level string) (*Logger, error) {
	config := zap.NewProductionConfig()

	if level == "" {
		level = "info"
	}
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{logger}, nil
}

type opKey struct{}

// WithOp returns a context carrying an operation name (e.g. "fold", "drop")
// for log correlation, mirroring the teacher's WithRequestID.
func WithOp(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

func (l *Logger) WithOp(ctx context.Context) *zap.Logger {
	if op, ok := ctx.Value(opKey{}).(string); ok {
		return l.With(zap.String("op", op))
	}
	return l.Logger
}
