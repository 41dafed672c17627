package payment

import (
	"fmt"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/retry"
)

// Option configures a Processor.
type Option func(*Processor) error

// WithLogger sets the logger for the Processor.
func WithLogger(logger observability.Logger) Option {
	return func(p *Processor) error {
		p.collectors.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger
// and also receives the warnings about retried status lookups.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(p *Processor) error {
		p.collectors.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the collector for the payment_* and retry_* metrics.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(p *Processor) error {
		p.collectors.Metrics = collector
		return nil
	}
}

// WithTracing opens a "payment.operation" span per call.
func WithTracing(collector observability.TracingCollector) Option {
	return func(p *Processor) error {
		p.collectors.Tracing = collector
		return nil
	}
}

// WithStatusRetry tunes the retries of status lookups, for example with retry.WithMaxAttempts.
// Invalid retry options make NewProcessor fail.
func WithStatusRetry(options ...retry.Option) Option {
	return func(p *Processor) error {
		if err := retry.Validate(options...); err != nil {
			return fmt.Errorf("status retry: %w", err)
		}

		p.statusRetry = append(p.statusRetry, options...)
		return nil
	}
}
