package observability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// LedgerOperationDurationMetric tracks lending ledger operation duration (OpenTelemetry-compatible).
	LedgerOperationDurationMetric = "ledger_operation_duration_seconds"

	// LedgerOperationCallsMetric tracks total lending ledger operation calls.
	LedgerOperationCallsMetric = "ledger_operation_calls_total"

	// PaymentOperationDurationMetric tracks transaction processor operation duration.
	PaymentOperationDurationMetric = "payment_operation_duration_seconds"

	// PaymentOperationCallsMetric tracks total transaction processor operation calls.
	PaymentOperationCallsMetric = "payment_operation_calls_total"

	// PaymentGatewayFailuresMetric tracks classified gateway failures.
	//
	// Labels:
	//   - operation_type: Charge, Refund or Status
	//   - failure_kind: network, payment, refund, validation, unknown
	PaymentGatewayFailuresMetric = "payment_gateway_failures_total"

	// NotificationMessagesMetric tracks catalog notifications received by a metrics subscriber.
	NotificationMessagesMetric = "notification_messages_total"

	// NotificationDeliveryFailuresMetric tracks subscriber failures during a broadcast.
	NotificationDeliveryFailuresMetric = "notification_delivery_failures_total"

	// RetryAttemptsMetric tracks retry attempts.
	//
	// Labels:
	//   - operation_type: the retried operation
	//   - attempt_number: which retry attempt (1, 2, 3, ...)
	//   - error_type: category of the error causing the retry
	RetryAttemptsMetric = "retry_attempts_total"

	// RetryDelayMetric tracks backoff delays before each retry.
	RetryDelayMetric = "retry_delay_seconds"

	// RetryMaxAttemptsReachedMetric tracks when retries are exhausted.
	RetryMaxAttemptsReachedMetric = "retry_max_attempts_reached_total"

	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusRejected indicates that a business rule rejected the operation.
	StatusRejected = "rejected"

	// StatusError indicates an unexpected processing error.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// LogMsgOperationStarted is logged when an operation begins.
	LogMsgOperationStarted = "operation started"

	// LogMsgOperationCompleted is logged when an operation succeeds.
	LogMsgOperationCompleted = "operation completed"

	// LogMsgOperationRejected is logged when a business rule rejects an operation.
	LogMsgOperationRejected = "operation rejected"

	// LogMsgOperationFailed is logged when an operation fails unexpectedly.
	LogMsgOperationFailed = "operation failed"

	// LogMsgDeliveryFailed is logged when at least one subscriber failed to receive a notification.
	LogMsgDeliveryFailed = "notification delivery failed"

	// LogMsgNotification is logged by the log sink subscriber for every notification.
	LogMsgNotification = "catalog notification"

	// LogMsgRetrying is logged before a retry attempt.
	LogMsgRetrying = "retrying operation"

	// LogAttrOperationType identifies the operation in logs, metrics and spans.
	LogAttrOperationType = "operation_type"

	// LogAttrStatus indicates the processing status.
	LogAttrStatus = "status"

	// LogAttrDurationMS indicates the processing duration in milliseconds.
	LogAttrDurationMS = "duration_ms"

	// LogAttrError contains error details.
	LogAttrError = "error"

	// LogAttrUser identifies the user name.
	LogAttrUser = "user"

	// LogAttrTitle identifies the book title.
	LogAttrTitle = "title"

	// LogAttrEventType identifies the notification event type.
	LogAttrEventType = "event_type"

	// LogAttrSequence identifies the notification sequence number.
	LogAttrSequence = "sequence"

	// LogAttrTransactionID identifies a payment transaction.
	LogAttrTransactionID = "transaction_id"

	// LogAttrFailureKind identifies the classified gateway failure.
	LogAttrFailureKind = "failure_kind"

	// LogAttrAttemptNumber identifies a retry attempt.
	LogAttrAttemptNumber = "attempt_number"

	// LogAttrErrorType identifies the error category of a retry.
	LogAttrErrorType = "error_type"

	// LogAttrFailedSubscribers indicates how many subscribers failed during a broadcast.
	LogAttrFailedSubscribers = "failed_subscribers"
)

// Scope names the metrics and spans of one instrumented component.
type Scope struct {
	DurationMetric string
	CallsMetric    string
	SpanName       string
}

var (
	// LedgerScope instruments lending ledger operations.
	LedgerScope = Scope{
		DurationMetric: LedgerOperationDurationMetric,
		CallsMetric:    LedgerOperationCallsMetric,
		SpanName:       "ledger.operation",
	}

	// PaymentScope instruments transaction processor operations.
	PaymentScope = Scope{
		DurationMetric: PaymentOperationDurationMetric,
		CallsMetric:    PaymentOperationCallsMetric,
		SpanName:       "payment.operation",
	}
)

// Operation is one instrumented call of a component operation.
// It is created by Begin and must be ended exactly once with End.
type Operation struct {
	collectors    Collectors
	scope         Scope
	operationType string
	span          SpanContext
	started       time.Time
}

// Begin starts the instrumentation of an operation: it opens a span and logs the start.
// The returned context carries the span and must be used for the operation itself.
func Begin(ctx context.Context, collectors Collectors, scope Scope, operationType string, args ...any) (context.Context, *Operation) {
	op := &Operation{
		collectors:    collectors,
		scope:         scope,
		operationType: operationType,
		started:       time.Now(),
	}

	if collectors.Tracing != nil {
		ctx, op.span = collectors.Tracing.StartSpan(ctx, scope.SpanName, map[string]string{
			LogAttrOperationType: operationType,
		})
	}

	LogDebug(ctx, collectors, LogMsgOperationStarted, append([]any{LogAttrOperationType, operationType}, args...)...)

	return ctx, op
}

// End records metrics, finishes the span and logs the outcome of the operation.
// The status should be one of the Status constants, typically computed with ClassifyStatus.
func (o *Operation) End(ctx context.Context, status string, err error, args ...any) {
	duration := time.Since(o.started)

	labels := BuildOperationLabels(o.operationType, status)
	RecordDuration(ctx, o.collectors.Metrics, o.scope.DurationMetric, duration, labels)
	IncrementCounter(ctx, o.collectors.Metrics, o.scope.CallsMetric, labels)

	if o.collectors.Tracing != nil && o.span != nil {
		attrs := map[string]string{
			LogAttrStatus:     status,
			LogAttrDurationMS: formatDurationMS(duration),
		}
		if err != nil {
			attrs[LogAttrError] = err.Error()
		}

		o.collectors.Tracing.FinishSpan(o.span, status, attrs)
	}

	logArgs := append([]any{
		LogAttrOperationType, o.operationType,
		LogAttrStatus, status,
		LogAttrDurationMS, ToMilliseconds(duration),
	}, args...)

	switch {
	case err == nil:
		LogInfo(ctx, o.collectors, LogMsgOperationCompleted, logArgs...)
	case status == StatusRejected:
		LogInfo(ctx, o.collectors, LogMsgOperationRejected, append(logArgs, LogAttrError, err.Error())...)
	default:
		LogError(ctx, o.collectors, LogMsgOperationFailed, append(logArgs, LogAttrError, err.Error())...)
	}
}

// BuildOperationLabels creates standard metric labels for an operation.
func BuildOperationLabels(operationType, status string) map[string]string {
	return map[string]string{
		LogAttrOperationType: operationType,
		LogAttrStatus:        status,
	}
}

// BuildRetryLabels creates standard metric labels for retry operations.
func BuildRetryLabels(operationType string, attemptNumber int, errorType string) map[string]string {
	return map[string]string{
		LogAttrOperationType: operationType,
		LogAttrAttemptNumber: fmt.Sprintf("%d", attemptNumber),
		LogAttrErrorType:     errorType,
	}
}

// ClassifyStatus maps an operation error to a status.
// Errors accepted by isRejection are business rule rejections, not failures.
func ClassifyStatus(err error, isRejection func(error) bool) string {
	switch {
	case err == nil:
		return StatusSuccess
	case IsCancellationError(err):
		return StatusCanceled
	case IsTimeoutError(err):
		return StatusTimeout
	case isRejection != nil && isRejection(err):
		return StatusRejected
	default:
		return StatusError
	}
}

// RecordDuration records a duration with the context-aware method when the collector supports it.
func RecordDuration(ctx context.Context, collector MetricsCollector, metric string, duration time.Duration, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	collector.RecordDuration(metric, duration, labels)
}

// IncrementCounter increments a counter with the context-aware method when the collector supports it.
func IncrementCounter(ctx context.Context, collector MetricsCollector, metric string, labels map[string]string) {
	if collector == nil {
		return
	}

	if contextualCollector, ok := collector.(ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	collector.IncrementCounter(metric, labels)
}

// LogDebug logs at debug level, preferring the contextual logger.
func LogDebug(ctx context.Context, c Collectors, msg string, args ...any) {
	if c.ContextualLogger != nil {
		c.ContextualLogger.DebugContext(ctx, msg, args...)
	} else if c.Logger != nil {
		c.Logger.Debug(msg, args...)
	}
}

// LogInfo logs at info level, preferring the contextual logger.
func LogInfo(ctx context.Context, c Collectors, msg string, args ...any) {
	if c.ContextualLogger != nil {
		c.ContextualLogger.InfoContext(ctx, msg, args...)
	} else if c.Logger != nil {
		c.Logger.Info(msg, args...)
	}
}

// LogWarn logs at warn level, preferring the contextual logger.
func LogWarn(ctx context.Context, c Collectors, msg string, args ...any) {
	if c.ContextualLogger != nil {
		c.ContextualLogger.WarnContext(ctx, msg, args...)
	} else if c.Logger != nil {
		c.Logger.Warn(msg, args...)
	}
}

// LogError logs at error level, preferring the contextual logger.
func LogError(ctx context.Context, c Collectors, msg string, args ...any) {
	if c.ContextualLogger != nil {
		c.ContextualLogger.ErrorContext(ctx, msg, args...)
	} else if c.Logger != nil {
		c.Logger.Error(msg, args...)
	}
}

// ToMilliseconds converts a time.Duration to float64 milliseconds with precision.
func ToMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}

// IsCancellationError checks if an error is due to context cancellation.
func IsCancellationError(err error) bool {
	return errors.Is(err, context.Canceled)
}

// IsTimeoutError checks if an error is due to context deadline exceeded.
func IsTimeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func formatDurationMS(duration time.Duration) string {
	return fmt.Sprintf("%.2f", ToMilliseconds(duration))
}
