// Package zapadapter implements the observability logging interfaces with zap.
package zapadapter

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

const (
	traceIDKey = "trace_id"
	spanIDKey  = "span_id"
)

// Logger is a zap-backed Logger and ContextualLogger.
// The contextual methods add the trace and span ids of a recording span found in the context.
type Logger struct {
	sugared *zap.SugaredLogger
}

// New builds a logger for the given mode: "prod" or "production" selects the JSON production
// configuration, anything else the console development configuration. Both log from debug level up.
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(mode) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return Wrap(zapLogger), nil
}

// Wrap adapts an existing zap logger.
func Wrap(zapLogger *zap.Logger) *Logger {
	return &Logger{sugared: zapLogger.Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugared.Sync()
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{sugared: l.sugared.With(keysAndValues...)}
}

func (l *Logger) Debug(msg string, args ...any) { l.sugared.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sugared.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sugared.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sugared.Errorw(msg, args...) }

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.sugared.Debugw(msg, withTrace(ctx, args)...)
}

func (l *Logger) InfoContext(ctx context.Context, msg string, args ...any) {
	l.sugared.Infow(msg, withTrace(ctx, args)...)
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.sugared.Warnw(msg, withTrace(ctx, args)...)
}

func (l *Logger) ErrorContext(ctx context.Context, msg string, args ...any) {
	l.sugared.Errorw(msg, withTrace(ctx, args)...)
}

func withTrace(ctx context.Context, args []any) []any {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return args
	}

	out := make([]any, 0, len(args)+4)
	out = append(out, args...)

	return append(out, traceIDKey, spanCtx.TraceID().String(), spanIDKey, spanCtx.SpanID().String())
}

var (
	_ observability.Logger           = (*Logger)(nil)
	_ observability.ContextualLogger = (*Logger)(nil)
)
