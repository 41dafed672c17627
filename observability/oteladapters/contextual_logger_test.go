package oteladapters_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/log/noop"

	"github.com/AntonStoeckl/lending-ledger-go/observability/oteladapters"
)

func Test_NewSlogBridgeLogger_Construction(t *testing.T) {
	logger := oteladapters.NewSlogBridgeLogger("lending-ledger")

	assert.NotNil(t, logger)
}

func Test_SlogBridgeLogger_AllLevels(t *testing.T) {
	// arrange
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(handler)
	ctx := context.Background()

	// act
	logger.DebugContext(ctx, "operation started", "operation_type", "Borrow")
	logger.InfoContext(ctx, "operation completed", "operation_type", "Borrow")
	logger.WarnContext(ctx, "notification delivery failed", "failed_subscribers", 1)
	logger.ErrorContext(ctx, "operation failed", "error", "boom")

	// assert
	output := buf.String()
	assert.Contains(t, output, `"level":"DEBUG"`)
	assert.Contains(t, output, `"level":"INFO"`)
	assert.Contains(t, output, `"level":"WARN"`)
	assert.Contains(t, output, `"level":"ERROR"`)
	assert.Contains(t, output, `"operation_type":"Borrow"`)
	assert.Contains(t, output, `"failed_subscribers":1`)
}

func Test_OTelLogger_AllLevels(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("lending-ledger"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.DebugContext(ctx, "operation started", "operation_type", "Charge")
		logger.InfoContext(ctx, "operation completed", "sequence", uint64(7), "duration_ms", 1.5)
		logger.WarnContext(ctx, "retrying operation", "attempt_number", 2, "retryable", true)
		logger.ErrorContext(ctx, "operation failed", "error", errors.New("boom"))
	})
}

func Test_OTelLogger_IrregularArguments(t *testing.T) {
	logger := oteladapters.NewOTelLogger(noop.NewLoggerProvider().Logger("lending-ledger"))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "dangling key", "user", "alice", "title")
	}, "Odd number of args should not panic")

	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "non-string key", 42, "value")
	}, "Non-string keys should be skipped")

	assert.NotPanics(t, func() {
		logger.InfoContext(ctx, "struct value", "labels", map[string]string{"a": "b"})
	})
}
