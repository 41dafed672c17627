package ledger

import (
	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// Option configures a Ledger.
type Option func(*Ledger) error

// WithLogger sets the logger for the Ledger.
//
// Debug level: operation starts
// Info level: completed operations and business rule rejections
// Error level: operations that failed unexpectedly.
func WithLogger(logger observability.Logger) Option {
	return func(l *Ledger) error {
		l.collectors.Logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger observability.ContextualLogger) Option {
	return func(l *Ledger) error {
		l.collectors.ContextualLogger = logger
		return nil
	}
}

// WithMetrics sets the collector for ledger_operation_duration_seconds and ledger_operation_calls_total.
func WithMetrics(collector observability.MetricsCollector) Option {
	return func(l *Ledger) error {
		l.collectors.Metrics = collector
		return nil
	}
}

// WithTracing opens a "ledger.operation" span per operation.
func WithTracing(collector observability.TracingCollector) Option {
	return func(l *Ledger) error {
		l.collectors.Tracing = collector
		return nil
	}
}
