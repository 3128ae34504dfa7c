package runs

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"deskreport/internal/infrastructure"
	"deskreport/pkg/contracts/domain"
)

const (
	TracerName = "deskreport.runs"
)

// RunTracer instruments report runs with spans and business metrics. A nil
// *RunTracer is valid and records nothing.
type RunTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewRunTracer creates a RunTracer recording into metrics. Spans come from
// the global tracer provider.
func NewRunTracer(metrics *infrastructure.BusinessMetrics) (*RunTracer, error) {
	if metrics == nil {
		return nil, fmt.Errorf("business metrics are required")
	}
	return &RunTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}, nil
}

// TraceRun starts the execution span of a run.
func (t *RunTracer) TraceRun(ctx context.Context, run *domain.ReportRun) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	ctx, span := t.tracer.Start(ctx, "report.run.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("report.workspace_id", run.WorkspaceID),
			attribute.String("report.id", run.ReportID),
			attribute.String("report.run_id", run.ID),
		),
	)
	t.metrics.ReportRunsActive.Add(ctx, 1)
	return ctx, span
}

// RecordRunCompletion closes the span and records the run outcome.
func (t *RunTracer) RecordRunCompletion(ctx context.Context, span trace.Span, result Result, duration time.Duration) {
	if t == nil {
		return
	}
	defer span.End()

	status := string(domain.RunStatusSucceeded)
	if !result.Succeeded() {
		status = string(domain.RunStatusFailed)
	}
	attrs := metric.WithAttributes(
		attribute.String("status", status),
		attribute.String("source", result.Source),
	)

	t.metrics.ReportRunsActive.Add(ctx, -1)
	t.metrics.ReportRunsTotal.Add(ctx, 1, attrs)
	t.metrics.ReportRunDuration.Record(ctx, duration.Seconds(), attrs)

	span.SetAttributes(
		attribute.String("report.source", result.Source),
		attribute.String("report.status", status),
		attribute.Float64("report.duration_seconds", duration.Seconds()),
	)

	if !result.Succeeded() {
		span.RecordError(result.Err)
		span.SetStatus(codes.Error, result.Err.Error())
		return
	}

	t.metrics.ReportRunRows.Add(ctx, int64(result.RowCount), metric.WithAttributes(attribute.String("source", result.Source)))
	t.metrics.ReportArtifactBytes.Add(ctx, int64(len(result.FileBytes)), metric.WithAttributes(attribute.String("source", result.Source)))
	span.SetAttributes(
		attribute.Int("report.row_count", result.RowCount),
		attribute.Int("report.artifact_bytes", len(result.FileBytes)),
	)
	span.SetStatus(codes.Ok, "report run succeeded")
}
