package retry

import (
	"time"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// Option configures Do using the functional options pattern.
type Option func(*config) error

// WithMaxAttempts sets the maximum number of attempts, the first one included.
func WithMaxAttempts(attempts int) Option {
	return func(c *config) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		c.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the delay before the first retry.
// Actual delays: baseDelay, baseDelay*2, baseDelay*4, baseDelay*8, etc.
func WithBaseDelay(delay time.Duration) Option {
	return func(c *config) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		c.baseDelay = delay

		return nil
	}
}

// WithJitterFactor sets the jitter added as a share of each backoff delay.
// Valid range: 0.0 (no jitter) to 1.0 (100% jitter).
func WithJitterFactor(factor float64) Option {
	return func(c *config) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		c.jitterFactor = factor

		return nil
	}
}

// WithRetryableFunc sets the predicate deciding which errors are retried. All others fail fast.
func WithRetryableFunc(isRetryable func(error) bool) Option {
	return func(c *config) error {
		if isRetryable == nil {
			return ErrNilRetryableFunc
		}

		c.isRetryable = isRetryable

		return nil
	}
}

// WithErrorTypeFunc sets the classifier labeling errors in metrics, logs and Metrics.LastErrorType.
func WithErrorTypeFunc(errorType func(error) string) Option {
	return func(c *config) error {
		if errorType == nil {
			return ErrNilErrorTypeFunc
		}

		c.errorType = errorType

		return nil
	}
}

// WithMetrics records retry_attempts_total, retry_delay_seconds and retry_max_attempts_reached_total,
// labeled with operationType.
func WithMetrics(collector observability.MetricsCollector, operationType string) Option {
	return func(c *config) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operationType == "" {
			return ErrEmptyOperationType
		}

		c.metrics = collector
		c.operationType = operationType

		return nil
	}
}

// WithLogger logs every retry at warn level.
func WithLogger(logger observability.ContextualLogger) Option {
	return func(c *config) error {
		c.logger = logger
		return nil
	}
}
