package zapadapter_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/AntonStoeckl/lending-ledger-go/observability/zapadapter"
)

func newObservedLogger() (*zapadapter.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)

	return zapadapter.Wrap(zap.New(core)), logs
}

func Test_New_BuildsLoggerForEveryMode(t *testing.T) {
	for _, mode := range []string{"development", "prod", "PRODUCTION", ""} {
		t.Run(mode, func(t *testing.T) {
			logger, err := zapadapter.New(mode)

			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}
}

func Test_Logger_AllLevels(t *testing.T) {
	// arrange
	logger, logs := newObservedLogger()

	// act
	logger.Debug("operation started", "operation_type", "Borrow")
	logger.Info("operation completed", "operation_type", "Borrow")
	logger.Warn("notification delivery failed", "failed_subscribers", 2)
	logger.Error("operation failed", "error", "boom")

	// assert
	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "Borrow", entries[1].ContextMap()["operation_type"])
	assert.Equal(t, int64(2), entries[2].ContextMap()["failed_subscribers"])
}

func Test_Logger_Contextual_WithoutSpan_AddsNoTraceFields(t *testing.T) {
	logger, logs := newObservedLogger()

	logger.InfoContext(context.Background(), "operation completed", "user", "alice")

	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "alice", fields["user"])
	assert.NotContains(t, fields, "trace_id")
	assert.NotContains(t, fields, "span_id")
}

func Test_Logger_Contextual_WithSpan_AddsTraceFields(t *testing.T) {
	// arrange
	logger, logs := newObservedLogger()
	traceID := trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10}
	spanID := trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	// act
	logger.DebugContext(ctx, "operation started")
	logger.InfoContext(ctx, "operation completed")
	logger.WarnContext(ctx, "retrying operation")
	logger.ErrorContext(ctx, "operation failed")

	// assert
	require.Equal(t, 4, logs.Len())
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		assert.Equal(t, traceID.String(), fields["trace_id"])
		assert.Equal(t, spanID.String(), fields["span_id"])
	}
}

func Test_Logger_With_AddsFieldsToChild(t *testing.T) {
	logger, logs := newObservedLogger()

	logger.With("component", "ledger").Info("operation completed")

	assert.Equal(t, "ledger", logs.All()[0].ContextMap()["component"])
}
