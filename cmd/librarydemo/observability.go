package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/observability/oteladapters"
	"github.com/AntonStoeckl/lending-ledger-go/observability/zapadapter"
)

// ObservabilityConfig holds the observability adapters handed to the components.
type ObservabilityConfig struct {
	Logger           observability.Logger
	ContextualLogger observability.ContextualLogger
	MetricsCollector observability.MetricsCollector
	TracingCollector observability.TracingCollector

	shutdown []func(context.Context) error
}

// NewObservabilityConfig always sets up zap logging. The otelslog and otellog backends install an
// OpenTelemetry LoggerProvider exporting log records to out. With observability enabled it also installs
// tracer and meter providers: spans are exported to out, metrics are collected on demand by Shutdown.
func (c Config) NewObservabilityConfig(out io.Writer) (*ObservabilityConfig, error) {
	zapLogger, err := zapadapter.New(c.LogMode)
	if err != nil {
		return nil, fmt.Errorf("creating zap logger: %w", err)
	}

	obs := &ObservabilityConfig{Logger: zapLogger, ContextualLogger: zapLogger}
	obs.shutdown = append(obs.shutdown, func(context.Context) error {
		// zap reports an error when syncing a terminal; nothing was lost in that case
		_ = zapLogger.Sync()
		return nil
	})

	res := resource.NewSchemaless(attribute.String("service.name", c.ServiceName))

	if c.LogBackend == logBackendOTelSlog || c.LogBackend == logBackendOTelLog {
		logExporter, err := stdoutlog.New(stdoutlog.WithWriter(out))
		if err != nil {
			return nil, fmt.Errorf("creating log exporter: %w", err)
		}

		loggerProvider := sdklog.NewLoggerProvider(
			sdklog.WithProcessor(sdklog.NewSimpleProcessor(logExporter)),
			sdklog.WithResource(res),
		)
		global.SetLoggerProvider(loggerProvider)
		obs.shutdown = append(obs.shutdown, loggerProvider.Shutdown)

		if c.LogBackend == logBackendOTelSlog {
			obs.ContextualLogger = oteladapters.NewSlogBridgeLogger(c.ServiceName)
		} else {
			obs.ContextualLogger = oteladapters.NewOTelLogger(loggerProvider.Logger(c.ServiceName))
		}
	}

	if !c.ObservabilityEnabled {
		return obs, nil
	}

	traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(out), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(traceExporter),
		sdktrace.WithResource(res),
	)

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	obs.TracingCollector = oteladapters.NewTracingCollector(otel.Tracer(c.ServiceName))
	obs.MetricsCollector = oteladapters.NewMetricsCollector(otel.Meter(c.ServiceName))

	obs.shutdown = append(obs.shutdown,
		meterProvider.Shutdown,
		tracerProvider.Shutdown,
		func(ctx context.Context) error {
			summary, err := summarizeMetrics(ctx, reader)
			if err != nil {
				return err
			}
			zapLogger.Info("metrics collected", "instruments", summary)

			return nil
		},
	)

	return obs, nil
}

// Shutdown runs the shutdown steps in reverse order of registration, even if some fail, and joins their errors.
func (o *ObservabilityConfig) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(o.shutdown) - 1; i >= 0; i-- {
		if err := o.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// summarizeMetrics maps every instrument name to the number of data points collected so far.
func summarizeMetrics(ctx context.Context, reader *sdkmetric.ManualReader) (map[string]int, error) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	summary := make(map[string]int)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Histogram[float64]:
				summary[m.Name] += len(data.DataPoints)
			case metricdata.Sum[int64]:
				summary[m.Name] += len(data.DataPoints)
			case metricdata.Gauge[float64]:
				summary[m.Name] += len(data.DataPoints)
			}
		}
	}

	return summary, nil
}
