// Package observer provides OTEL-based observability for code execution.
//
// It wraps a sandbox.Runner with an instrumented version that emits traces,
// metrics, and logs via OpenTelemetry, and records which rewrite rule fired
// for each request. Users export to any OTEL-compatible backend by setting
// standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/qiskit-studio/coderun/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	ExecRequests   metric.Int64Counter
	ExecTimeouts   metric.Int64Counter
	ExecFaults     metric.Int64Counter
	RewriteApplied metric.Int64Counter

	// Histograms
	ExecDuration metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("coderun")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := NewInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// NewInstruments builds instruments from the globally registered providers.
// With no providers registered, every instrument is a no-op, which is what
// tests and observer-disabled deployments get.
func NewInstruments() (*Instruments, error) {
	meter := otel.Meter(scopeName)

	execRequests, err := meter.Int64Counter("exec.requests",
		metric.WithDescription("Code execution request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	execTimeouts, err := meter.Int64Counter("exec.timeouts",
		metric.WithDescription("Executions killed at the deadline"),
		metric.WithUnit("{execution}"))
	if err != nil {
		return nil, err
	}

	execFaults, err := meter.Int64Counter("exec.faults",
		metric.WithDescription("Executions that ended in a runtime fault"),
		metric.WithUnit("{execution}"))
	if err != nil {
		return nil, err
	}

	rewriteApplied, err := meter.Int64Counter("rewrite.applied",
		metric.WithDescription("Rewrite rule applications by rule kind"),
		metric.WithUnit("{rewrite}"))
	if err != nil {
		return nil, err
	}

	execDuration, err := meter.Float64Histogram("exec.duration",
		metric.WithDescription("Code execution duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:         otel.Tracer(scopeName),
		Meter:          meter,
		Logger:         global.GetLoggerProvider().Logger(scopeName),
		ExecRequests:   execRequests,
		ExecTimeouts:   execTimeouts,
		ExecFaults:     execFaults,
		RewriteApplied: rewriteApplied,
		ExecDuration:   execDuration,
	}, nil
}

// RecordRewrite counts one rewrite decision by rule kind.
func (i *Instruments) RecordRewrite(ctx context.Context, kind string) {
	i.RewriteApplied.Add(ctx, 1, metric.WithAttributes(AttrRewriteKind.String(kind)))
}
