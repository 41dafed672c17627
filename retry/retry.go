// Package retry runs idempotent operations with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

const (
	defaultMaxAttempts  = 6
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3

	errorTypeNone             = "none"
	errorTypeCanceled         = "context_canceled"
	errorTypeDeadlineExceeded = "context_deadline_exceeded"
	errorTypeOther            = "other"

	labelFinalErrorType = "final_error_type"
)

var (
	// ErrNilMetricsCollector is returned when a nil metrics collector is provided to WithMetrics.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")

	// ErrEmptyOperationType is returned when an empty operation type is provided to WithMetrics.
	ErrEmptyOperationType = errors.New("operation type must not be empty")

	// ErrInvalidMaxAttempts is returned when max attempts are not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrNegativeBaseDelay is returned when the base delay is negative.
	ErrNegativeBaseDelay = errors.New("base delay must not be negative")

	// ErrInvalidJitterFactor is returned when the jitter factor is not between 0.0 and 1.0.
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")

	// ErrNilRetryableFunc is returned when a nil predicate is provided to WithRetryableFunc.
	ErrNilRetryableFunc = errors.New("retryable func must not be nil")

	// ErrNilErrorTypeFunc is returned when a nil classifier is provided to WithErrorTypeFunc.
	ErrNilErrorTypeFunc = errors.New("error type func must not be nil")
)

// Func is an operation that can be retried. It must be idempotent.
type Func func(ctx context.Context) error

// Metrics describes how a Do call went.
type Metrics struct {
	Attempts      int
	TotalDelay    time.Duration
	LastErrorType string
}

type config struct {
	maxAttempts   int
	baseDelay     time.Duration
	jitterFactor  float64
	isRetryable   func(error) bool
	errorType     func(error) string
	metrics       observability.MetricsCollector
	logger        observability.ContextualLogger
	operationType string
}

// Do executes fn and retries it while it fails with a retryable error, up to the maximum number of attempts.
//
// Retry schedule (default): 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, 160 ms, each plus up to 30% jitter.
//
// By default every error except context cancellation and deadline expiry is retryable;
// WithRetryableFunc narrows that down. Cancellation of ctx while waiting ends the loop with ctx.Err().
func Do(ctx context.Context, fn Func, options ...Option) (Metrics, error) {
	cfg, err := newConfig(options)
	if err != nil {
		return Metrics{}, err
	}

	var metrics Metrics
	var lastErr error

	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := cfg.baseDelay * time.Duration(1<<(attempt-1))
			jitter := rand.Float64() * float64(delay) * cfg.jitterFactor //nolint:gosec // math/rand is sufficient for jitter
			backoffDelay := delay + time.Duration(jitter)

			cfg.recordDelay(ctx, attempt, backoffDelay)

			timer := time.NewTimer(backoffDelay)
			select {
			case <-timer.C:
				metrics.TotalDelay += backoffDelay
			case <-ctx.Done():
				timer.Stop()
				metrics.LastErrorType = defaultErrorType(ctx.Err())
				return metrics, ctx.Err()
			}
		}

		metrics.Attempts++
		lastErr = fn(ctx)
		metrics.LastErrorType = cfg.classify(lastErr)

		if lastErr == nil {
			return metrics, nil
		}

		if !cfg.isRetryable(lastErr) {
			return metrics, lastErr
		}

		if attempt < cfg.maxAttempts-1 {
			cfg.recordAttempt(ctx, attempt+1, metrics.LastErrorType, lastErr)
		}
	}

	cfg.recordExhausted(ctx, metrics.LastErrorType)

	return metrics, lastErr
}

// Validate applies options to a default configuration and returns the first option error,
// the same error Do would return for them.
func Validate(options ...Option) error {
	_, err := newConfig(options)

	return err
}

func newConfig(options []Option) (*config, error) {
	cfg := &config{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
		isRetryable:  isNotContextError,
		errorType:    defaultErrorType,
	}

	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func (c *config) classify(err error) string {
	if err == nil {
		return errorTypeNone
	}

	return c.errorType(err)
}

func (c *config) recordDelay(ctx context.Context, attempt int, delay time.Duration) {
	if c.metrics == nil {
		return
	}

	observability.RecordDuration(ctx, c.metrics, observability.RetryDelayMetric, delay, map[string]string{
		observability.LogAttrOperationType: c.operationType,
		observability.LogAttrAttemptNumber: strconv.Itoa(attempt),
	})
}

func (c *config) recordAttempt(ctx context.Context, attemptNumber int, errorType string, err error) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, observability.LogMsgRetrying,
			observability.LogAttrOperationType, c.operationType,
			observability.LogAttrAttemptNumber, attemptNumber,
			observability.LogAttrErrorType, errorType,
			observability.LogAttrError, err.Error(),
		)
	}

	if c.metrics != nil {
		observability.IncrementCounter(ctx, c.metrics, observability.RetryAttemptsMetric,
			observability.BuildRetryLabels(c.operationType, attemptNumber, errorType))
	}
}

func (c *config) recordExhausted(ctx context.Context, errorType string) {
	if c.metrics == nil {
		return
	}

	observability.IncrementCounter(ctx, c.metrics, observability.RetryMaxAttemptsReachedMetric, map[string]string{
		observability.LogAttrOperationType: c.operationType,
		labelFinalErrorType:                errorType,
	})
}

// isNotContextError keeps timeouts and cancellations out of the retry loop.
func isNotContextError(err error) bool {
	return !observability.IsCancellationError(err) && !observability.IsTimeoutError(err)
}

func defaultErrorType(err error) string {
	switch {
	case err == nil:
		return errorTypeNone
	case observability.IsCancellationError(err):
		return errorTypeCanceled
	case observability.IsTimeoutError(err):
		return errorTypeDeadlineExceeded
	default:
		return errorTypeOther
	}
}
