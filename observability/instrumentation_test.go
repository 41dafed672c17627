package observability_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/testutil/testdoubles"
)

var errBusinessRule = errors.New("business rule violated")

func isBusinessRule(err error) bool {
	return errors.Is(err, errBusinessRule)
}

func Test_ClassifyStatus(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "nil error", err: nil, expected: observability.StatusSuccess},
		{name: "canceled", err: fmt.Errorf("wrapped: %w", context.Canceled), expected: observability.StatusCanceled},
		{name: "deadline exceeded", err: context.DeadlineExceeded, expected: observability.StatusTimeout},
		{name: "business rule", err: fmt.Errorf("borrow: %w", errBusinessRule), expected: observability.StatusRejected},
		{name: "anything else", err: errors.New("boom"), expected: observability.StatusError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, observability.ClassifyStatus(tc.err, isBusinessRule))
		})
	}
}

func Test_ClassifyStatus_WithoutRejectionPredicate(t *testing.T) {
	assert.Equal(t, observability.StatusError, observability.ClassifyStatus(errBusinessRule, nil))
}

func Test_Operation_Success_RecordsMetricsSpanAndLogs(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy()
	tracing := testdoubles.NewTracingCollectorSpy()
	logger := testdoubles.NewContextualLoggerSpy()
	collectors := observability.Collectors{ContextualLogger: logger, Metrics: metrics, Tracing: tracing}

	// act
	ctx, op := observability.Begin(context.Background(), collectors, observability.LedgerScope, "Borrow")
	op.End(ctx, observability.StatusSuccess, nil)

	// assert
	assert.True(t, metrics.HasCounterRecordForMetric(observability.LedgerOperationCallsMetric).
		WithOperation("Borrow").
		WithStatus(observability.StatusSuccess).
		Assert(), "Should count the call")
	assert.True(t, metrics.HasDurationRecordForMetric(observability.LedgerOperationDurationMetric).
		WithOperation("Borrow").
		Assert(), "Should record the duration")
	assert.True(t, tracing.HasFinishedSpan("ledger.operation", "Borrow", observability.StatusSuccess), "Should finish the span")
	assert.True(t, logger.HasLog("debug", observability.LogMsgOperationStarted), "Should log the start")
	assert.True(t, logger.HasInfoLog(observability.LogMsgOperationCompleted), "Should log the completion")
}

func Test_Operation_Rejected_LogsInfoNotError(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy()
	tracing := testdoubles.NewTracingCollectorSpy()
	collectors := observability.Collectors{ContextualLogger: logger, Tracing: tracing}

	// act
	ctx, op := observability.Begin(context.Background(), collectors, observability.PaymentScope, "Charge")
	op.End(ctx, observability.StatusRejected, errBusinessRule)

	// assert
	assert.True(t, logger.HasInfoLog(observability.LogMsgOperationRejected))
	assert.False(t, logger.HasErrorLog(observability.LogMsgOperationFailed))

	spans := tracing.GetSpanRecords()
	assert.Len(t, spans, 1)
	assert.Equal(t, errBusinessRule.Error(), spans[0].EndAttributes[observability.LogAttrError])
}

func Test_Operation_Failed_LogsError(t *testing.T) {
	logger := testdoubles.NewContextualLoggerSpy()
	collectors := observability.Collectors{Logger: logger}

	ctx, op := observability.Begin(context.Background(), collectors, observability.PaymentScope, "Refund")
	op.End(ctx, observability.StatusError, errors.New("boom"))

	assert.True(t, logger.HasErrorLog(observability.LogMsgOperationFailed))
}

func Test_Operation_WithoutCollectors_DoesNothing(t *testing.T) {
	ctx, op := observability.Begin(context.Background(), observability.Collectors{}, observability.LedgerScope, "Return")

	assert.NotPanics(t, func() {
		op.End(ctx, observability.StatusSuccess, nil)
	})
}

func Test_RecordDuration_PrefersContextualCollector(t *testing.T) {
	metrics := testdoubles.NewMetricsCollectorSpy()

	observability.RecordDuration(context.Background(), metrics, "some_metric", time.Second, nil)
	observability.IncrementCounter(context.Background(), metrics, "some_counter", nil)

	durations := metrics.GetDurationRecords()
	counters := metrics.GetCounterRecords()
	assert.Len(t, durations, 1)
	assert.Len(t, counters, 1)
	assert.True(t, durations[0].HadContext)
	assert.True(t, counters[0].HadContext)
}

func Test_BuildRetryLabels(t *testing.T) {
	labels := observability.BuildRetryLabels("Status", 2, "network")

	assert.Equal(t, map[string]string{
		"operation_type": "Status",
		"attempt_number": "2",
		"error_type":     "network",
	}, labels)
}
