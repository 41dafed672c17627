// Package observability defines the logging, metrics and tracing contracts used by
// the lending ledger and the transaction processor.
//
// The interfaces are dependency-free, so any backend (OpenTelemetry, zap, log/slog,
// Prometheus, ...) can be plugged in by implementing them. Ready-made adapters live in
// the oteladapters and zapadapter sub-packages.
//
// Components prefer a ContextualLogger over a plain Logger when both are configured,
// and a ContextualMetricsCollector over a plain MetricsCollector, so that telemetry is
// correlated with the active trace.
//
// The helper functions in this package implement the instrumentation pattern shared by
// all operations: start a span, log the start, run the operation, then record the
// duration and call metrics, finish the span and log the outcome.
package observability
