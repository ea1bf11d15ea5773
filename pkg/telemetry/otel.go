package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	tracetype "go.opentelemetry.io/otel/trace"
)

// Options selects which signals are exported besides metrics.
type Options struct {
	ExportTraces bool
	ExportLogs   bool
	// Writer receives exported traces and logs; defaults to stderr.
	Writer io.Writer
	// Registerer receives the Prometheus collector; defaults to the global registry.
	Registerer promclient.Registerer
}

// Telemetry owns the OTel providers
type Telemetry struct {
	tp *trace.TracerProvider
	mp *sdkmetric.MeterProvider
	lp *sdklog.LoggerProvider
}

// Setup initializes OTel tracing, metrics and logging and binds the global
// metrics holder to the new meter provider.
func Setup(serviceName string, opts Options) (*Telemetry, error) {
	ctx := context.Background()
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	traceOpts := []trace.TracerProviderOption{trace.WithResource(res)}
	if opts.ExportTraces {
		traceExporter, err := stdouttrace.New(stdouttrace.WithWriter(opts.Writer), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, trace.WithBatcher(traceExporter))
	}
	tp := trace.NewTracerProvider(traceOpts...)
	otel.SetTracerProvider(tp)

	promOpts := []prometheus.Option{}
	if opts.Registerer != nil {
		promOpts = append(promOpts, prometheus.WithRegisterer(opts.Registerer))
	}
	metricExporter, err := prometheus.New(promOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(metricExporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if err := GetGlobalMetrics().InitMetrics(mp.Meter(serviceName)); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	logOpts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	if opts.ExportLogs {
		logExporter, err := stdoutlog.New(stdoutlog.WithWriter(opts.Writer), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create log exporter: %w", err)
		}
		logOpts = append(logOpts, sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)))
	}
	lp := sdklog.NewLoggerProvider(logOpts...)
	global.SetLoggerProvider(lp)

	return &Telemetry{
		tp: tp,
		mp: mp,
		lp: lp,
	}, nil
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.tp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("trace provider shutdown failed: %w", err))
	}
	if err := t.mp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("meter provider shutdown failed: %w", err))
	}
	if err := t.lp.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("log provider shutdown failed: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry shutdown errors: %v", errs)
	}
	return nil
}

// GetMeter returns a meter for the given name
func GetMeter(name string) metric.Meter {
	return otel.GetMeterProvider().Meter(name)
}

// GetTracer returns a tracer for the given name
func GetTracer(name string) tracetype.Tracer {
	return otel.GetTracerProvider().Tracer(name)
}
