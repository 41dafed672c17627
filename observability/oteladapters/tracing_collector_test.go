package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/observability/oteladapters"
)

func newTracingFixture() (*oteladapters.TracingCollector, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter, provider
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter, _ := newTracingFixture()

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "ledger.operation", map[string]string{
		"operation_type": "Borrow",
	})
	spanCtx.AddAttribute("user", "alice")
	collector.FinishSpan(spanCtx, observability.StatusSuccess, map[string]string{"title": "Dune"})

	// assert
	assert.NotNil(t, ctx)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "ledger.operation", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, "operation_type", "Borrow")
	assertSpanHasAttribute(t, span, "user", "alice")
	assertSpanHasAttribute(t, span, "title", "Dune")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	collector, exporter, _ := newTracingFixture()

	testCases := []struct {
		status              string
		expectedCode        codes.Code
		expectedDescription string
	}{
		{observability.StatusSuccess, codes.Ok, ""},
		{observability.StatusRejected, codes.Ok, ""},
		{observability.StatusError, codes.Error, "Operation failed"},
		{observability.StatusCanceled, codes.Error, "Operation canceled"},
		{observability.StatusTimeout, codes.Error, "Operation timed out"},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			exporter.Reset()

			_, spanCtx := collector.StartSpan(context.Background(), "payment.operation", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
			assert.Equal(t, tc.expectedDescription, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_UnknownStatus_BecomesAttribute(t *testing.T) {
	collector, exporter, _ := newTracingFixture()

	_, spanCtx := collector.StartSpan(context.Background(), "payment.operation", nil)
	collector.FinishSpan(spanCtx, "partially_settled", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assertSpanHasAttribute(t, spans[0], "status", "partially_settled")
}

func Test_TracingCollector_ChildOfContextSpan(t *testing.T) {
	// arrange
	collector, exporter, provider := newTracingFixture()
	parentCtx, parentSpan := provider.Tracer("test").Start(context.Background(), "demo")
	defer parentSpan.End()

	// act
	_, spanCtx := collector.StartSpan(parentCtx, "ledger.operation", nil)
	collector.FinishSpan(spanCtx, observability.StatusSuccess, nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, parentSpan.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

type foreignSpanContext struct{}

func (foreignSpanContext) SetStatus(string)            {}
func (foreignSpanContext) AddAttribute(string, string) {}

func Test_TracingCollector_FinishSpan_IgnoresForeignSpanContext(t *testing.T) {
	collector, exporter, _ := newTracingFixture()

	assert.NotPanics(t, func() {
		collector.FinishSpan(foreignSpanContext{}, observability.StatusSuccess, nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expected string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			assert.Equal(t, expected, attr.Value.AsString())
			return
		}
	}
	t.Errorf("span attribute %s not found", key)
}
