package testdoubles

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// MetricsCollectorSpy is a ContextualMetricsCollector that captures metrics calls for testing.
type MetricsCollectorSpy struct {
	durationRecords []SpyMetricRecord
	counterRecords  []SpyMetricRecord
	valueRecords    []SpyMetricRecord
	mu              sync.Mutex
	contextual      bool
}

// SpyMetricRecord represents one recorded metrics call.
type SpyMetricRecord struct {
	Metric     string
	Duration   time.Duration
	Value      float64
	Labels     map[string]string
	HadContext bool
}

// NewMetricsCollectorSpy creates a new MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

// RecordDuration implements observability.MetricsCollector.
func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.record(&s.durationRecords, SpyMetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels)})
}

// IncrementCounter implements observability.MetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.record(&s.counterRecords, SpyMetricRecord{Metric: metric, Labels: maps.Clone(labels)})
}

// RecordValue implements observability.MetricsCollector.
func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.record(&s.valueRecords, SpyMetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels)})
}

// RecordDurationContext implements observability.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordDurationContext(_ context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.record(&s.durationRecords, SpyMetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels), HadContext: true})
}

// IncrementCounterContext implements observability.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) IncrementCounterContext(_ context.Context, metric string, labels map[string]string) {
	s.record(&s.counterRecords, SpyMetricRecord{Metric: metric, Labels: maps.Clone(labels), HadContext: true})
}

// RecordValueContext implements observability.ContextualMetricsCollector.
func (s *MetricsCollectorSpy) RecordValueContext(_ context.Context, metric string, value float64, labels map[string]string) {
	s.record(&s.valueRecords, SpyMetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels), HadContext: true})
}

func (s *MetricsCollectorSpy) record(target *[]SpyMetricRecord, r SpyMetricRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	*target = append(*target, r)
}

// GetCounterRecords returns a copy of all captured counter records.
func (s *MetricsCollectorSpy) GetCounterRecords() []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyMetricRecord(nil), s.counterRecords...)
}

// GetDurationRecords returns a copy of all captured duration records.
func (s *MetricsCollectorSpy) GetDurationRecords() []SpyMetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpyMetricRecord(nil), s.durationRecords...)
}

// HasCounterRecordForMetric starts a fluent chain to check for a counter record.
func (s *MetricsCollectorSpy) HasCounterRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{records: s.GetCounterRecords(), metric: metric, labels: map[string]string{}}
}

// HasDurationRecordForMetric starts a fluent chain to check for a duration record.
func (s *MetricsCollectorSpy) HasDurationRecordForMetric(metric string) *MetricRecordMatcher {
	return &MetricRecordMatcher{records: s.GetDurationRecords(), metric: metric, labels: map[string]string{}}
}

// CountCounterRecordsForMetric counts counter records for a metric.
func (s *MetricsCollectorSpy) CountCounterRecordsForMetric(metric string) int {
	return s.HasCounterRecordForMetric(metric).Count()
}

// MetricRecordMatcher provides a fluent interface for checking metric records.
// A record matches when it has the metric name and every requested label.
type MetricRecordMatcher struct {
	records []SpyMetricRecord
	metric  string
	labels  map[string]string
}

// WithLabel requires the record to carry the label with the given value.
func (m *MetricRecordMatcher) WithLabel(key, value string) *MetricRecordMatcher {
	m.labels[key] = value
	return m
}

// WithStatus requires the status label.
func (m *MetricRecordMatcher) WithStatus(status string) *MetricRecordMatcher {
	return m.WithLabel(observability.LogAttrStatus, status)
}

// WithOperation requires the operation_type label.
func (m *MetricRecordMatcher) WithOperation(operationType string) *MetricRecordMatcher {
	return m.WithLabel(observability.LogAttrOperationType, operationType)
}

// Count returns how many records match.
func (m *MetricRecordMatcher) Count() int {
	count := 0

	for _, r := range m.records {
		if r.Metric != m.metric {
			continue
		}

		matches := true
		for k, v := range m.labels {
			if r.Labels[k] != v {
				matches = false
				break
			}
		}

		if matches {
			count++
		}
	}

	return count
}

// Assert returns true if at least one record matches.
func (m *MetricRecordMatcher) Assert() bool {
	return m.Count() > 0
}

var _ observability.ContextualMetricsCollector = (*MetricsCollectorSpy)(nil)
