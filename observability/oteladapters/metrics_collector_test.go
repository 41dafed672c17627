package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/lending-ledger-go/observability/oteladapters"
)

func newMetricsFixture() (*oteladapters.MetricsCollector, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return oteladapters.NewMetricsCollector(provider.Meter("test")), reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	return resourceMetrics
}

func Test_MetricsCollector_RecordDuration(t *testing.T) {
	// arrange
	collector, reader := newMetricsFixture()
	labels := map[string]string{"operation_type": "Borrow", "status": "success"}

	// act
	collector.RecordDuration("ledger_operation_duration_seconds", 150*time.Millisecond, labels)

	// assert
	histogram := findHistogramMetric(t, collect(t, reader), "ledger_operation_duration_seconds")
	require.Len(t, histogram.DataPoints, 1)
	dataPoint := histogram.DataPoints[0]
	assert.Equal(t, uint64(1), dataPoint.Count)
	assert.InDelta(t, 0.15, dataPoint.Sum, 0.001)
	assertHasAttribute(t, dataPoint.Attributes, "operation_type", "Borrow")
	assertHasAttribute(t, dataPoint.Attributes, "status", "success")
}

func Test_MetricsCollector_IncrementCounter_ReusesInstrument(t *testing.T) {
	// arrange
	collector, reader := newMetricsFixture()
	labels := map[string]string{"operation_type": "Charge", "failure_kind": "network"}

	// act
	collector.IncrementCounter("payment_gateway_failures_total", labels)
	collector.IncrementCounterContext(context.Background(), "payment_gateway_failures_total", labels)

	// assert
	counter := findCounterMetric(t, collect(t, reader), "payment_gateway_failures_total")
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(2), counter.DataPoints[0].Value)
	assertHasAttribute(t, counter.DataPoints[0].Attributes, "failure_kind", "network")
}

func Test_MetricsCollector_RecordValue(t *testing.T) {
	collector, reader := newMetricsFixture()

	collector.RecordValue("catalog_available_books", 3, nil)
	collector.RecordValueContext(context.Background(), "catalog_available_books", 5, nil)

	gauge := findGaugeMetric(t, collect(t, reader), "catalog_available_books")
	require.Len(t, gauge.DataPoints, 1)
	assert.InDelta(t, 5.0, gauge.DataPoints[0].Value, 0.0001)
}

func Test_MetricsCollector_ConcurrentUse(t *testing.T) {
	// arrange
	collector, reader := newMetricsFixture()
	const goroutines = 20

	// act
	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("notification_messages_total", map[string]string{"event_type": "added"})
			collector.RecordDuration("retry_delay_seconds", time.Millisecond, nil)
		}()
	}
	wg.Wait()

	// assert
	resourceMetrics := collect(t, reader)
	counter := findCounterMetric(t, resourceMetrics, "notification_messages_total")
	require.Len(t, counter.DataPoints, 1)
	assert.Equal(t, int64(goroutines), counter.DataPoints[0].Value)
	histogram := findHistogramMetric(t, resourceMetrics, "retry_delay_seconds")
	assert.Equal(t, uint64(goroutines), histogram.DataPoints[0].Count)
}

func assertHasAttribute(t *testing.T, set attribute.Set, key, expected string) {
	t.Helper()

	value, ok := set.Value(attribute.Key(key))
	require.True(t, ok, "attribute %s should be present", key)
	assert.Equal(t, expected, value.AsString())
}

func findHistogramMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Histogram[float64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if h, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				return &h
			}
		}
	}
	t.Fatalf("histogram metric %s not found", name)

	return nil
}

func findCounterMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Sum[int64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if c, ok := m.Data.(metricdata.Sum[int64]); ok && m.Name == name {
				return &c
			}
		}
	}
	t.Fatalf("counter metric %s not found", name)

	return nil
}

func findGaugeMetric(t *testing.T, resourceMetrics metricdata.ResourceMetrics, name string) *metricdata.Gauge[float64] {
	t.Helper()
	for _, scopeMetrics := range resourceMetrics.ScopeMetrics {
		for _, m := range scopeMetrics.Metrics {
			if g, ok := m.Data.(metricdata.Gauge[float64]); ok && m.Name == name {
				return &g
			}
		}
	}
	t.Fatalf("gauge metric %s not found", name)

	return nil
}
