package observer

import (
	"context"
	"fmt"
	"time"

	coderun "github.com/qiskit-studio/coderun"
	"github.com/qiskit-studio/coderun/sandbox"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ObservedRunner wraps a sandbox.Runner with OTEL instrumentation.
type ObservedRunner struct {
	inner sandbox.Runner
	inst  *Instruments
}

var _ sandbox.Runner = (*ObservedRunner)(nil)

// WrapRunner returns an instrumented runner.
func WrapRunner(inner sandbox.Runner, inst *Instruments) *ObservedRunner {
	return &ObservedRunner{inner: inner, inst: inst}
}

func (o *ObservedRunner) Execute(ctx context.Context, code string) coderun.Outcome {
	backend := fmt.Sprintf("%T", o.inner)
	ctx, span := o.inst.Tracer.Start(ctx, "sandbox.execute", trace.WithAttributes(
		AttrExecBackend.String(backend),
		AttrExecCodeBytes.Int(len(code)),
	))
	defer span.End()
	start := time.Now()

	outcome := o.inner.Execute(ctx, code)

	durationMs := float64(time.Since(start).Milliseconds())
	status := outcomeStatus(outcome)
	if status != "ok" {
		span.SetStatus(codes.Error, status)
	}

	span.SetAttributes(
		AttrExecStatus.String(status),
		AttrExecTimedOut.Bool(outcome.TimedOut),
		AttrExecOutputBytes.Int(len(outcome.Output)),
	)

	o.inst.ExecRequests.Add(ctx, 1, metric.WithAttributes(
		AttrExecBackend.String(backend),
		attribute.String("status", status),
	))
	if outcome.TimedOut {
		o.inst.ExecTimeouts.Add(ctx, 1)
	} else if status == "fault" {
		o.inst.ExecFaults.Add(ctx, 1)
	}
	o.inst.ExecDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrExecBackend.String(backend),
	))

	// Structured log
	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("code executed"))
	rec.AddAttributes(
		otellog.String("exec.backend", backend),
		otellog.String("exec.status", status),
		otellog.Bool("exec.timed_out", outcome.TimedOut),
		otellog.Int("exec.output_bytes", len(outcome.Output)),
		otellog.Float64("exec.duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return outcome
}

func outcomeStatus(out coderun.Outcome) string {
	switch {
	case out.TimedOut:
		return "timeout"
	case out.Fault:
		return "fault"
	default:
		return "ok"
	}
}
