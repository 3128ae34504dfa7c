package runs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"deskreport/pkg/contracts/domain"
)

// RunObserver is told about every run state change. Implementations must
// not block.
type RunObserver interface {
	RunChanged(ctx context.Context, run *domain.ReportRun)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithIDGenerator replaces the uuid run id generator.
func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

// WithObserver registers an observer for run transitions.
func WithObserver(obs RunObserver) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTracer enables spans and metrics for run executions.
func WithTracer(t *RunTracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator owns the run lifecycle: it creates the run, marks it running,
// executes the report and records exactly one terminal outcome.
//
// Runs of the same report are independent; nothing serializes them.
type Orchestrator struct {
	reports  ReportStore
	runs     RunStore
	executor Executor
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
	observer RunObserver
	tracer   *RunTracer
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(reports ReportStore, runs RunStore, executor Executor, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		reports:  reports,
		runs:     runs,
		executor: executor,
		logger:   logger.With(slog.String("component", "report_runs")),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunReport executes a report and returns the resulting run.
//
// A report that does not exist yields (nil, nil) and nothing is written.
// Execution failures, panics and cancellation produce a Failed run and are
// not returned as errors; the error result is reserved for store failures.
func (o *Orchestrator) RunReport(ctx context.Context, workspaceID, reportID string) (*domain.ReportRun, error) {
	logger := o.logger.With(
		slog.String("workspace_id", workspaceID),
		slog.String("report_id", reportID),
	)

	report, err := o.reports.FindReport(ctx, workspaceID, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to find report: %w", err)
	}
	if report == nil {
		logger.DebugContext(ctx, "report not found, no run created")
		return nil, nil
	}

	run := &domain.ReportRun{
		ID:          o.newID(),
		WorkspaceID: workspaceID,
		ReportID:    reportID,
		Status:      domain.RunStatusPending,
		StartedAt:   o.now(),
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	o.notify(ctx, run)

	logger = logger.With(slog.String("run_id", run.ID))

	if err := o.runs.MarkRunning(ctx, workspaceID, run.ID); err != nil {
		// The run stays Pending; the store allows no other exit from it.
		logger.ErrorContext(ctx, "failed to mark run running, run left pending",
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to mark run %s running: %w", run.ID, err)
	}
	run.Status = domain.RunStatusRunning
	o.notify(ctx, run)

	logger.InfoContext(ctx, "report run started")

	execCtx, span := o.tracer.TraceRun(ctx, run)
	started := o.now()
	result := o.execute(execCtx, workspaceID, *report)
	o.tracer.RecordRunCompletion(execCtx, span, result, o.now().Sub(started))

	// The terminal write must land even when the caller has gone away.
	writeCtx := context.WithoutCancel(ctx)
	completedAt := o.now()

	completion := failedCompletion(completedAt)
	if result.Succeeded() {
		completion = Completion{
			Status:      domain.RunStatusSucceeded,
			RowCount:    result.RowCount,
			FileBytes:   result.FileBytes,
			ContentType: result.ContentType,
			FileName:    result.FileName,
			CompletedAt: completedAt,
		}
	} else {
		logger.ErrorContext(ctx, "report run failed",
			slog.String("source", result.Source),
			slog.String("error", result.Err.Error()))
	}

	if err := o.runs.CompleteRun(writeCtx, workspaceID, run.ID, completion); err != nil {
		return nil, fmt.Errorf("failed to complete run: %w", err)
	}

	run.Status = completion.Status
	run.RowCount = completion.RowCount
	run.FileBytes = completion.FileBytes
	run.ContentType = completion.ContentType
	run.FileName = completion.FileName
	run.CompletedAt = &completedAt
	o.notify(writeCtx, run)

	if result.Succeeded() {
		report.LastRun = &completedAt
		if err := o.reports.UpdateReport(writeCtx, report); err != nil {
			logger.ErrorContext(ctx, "failed to update report last run",
				slog.String("error", err.Error()))
		}
		logger.InfoContext(ctx, "report run succeeded",
			slog.Int("row_count", result.RowCount),
			slog.Int("artifact_bytes", len(result.FileBytes)))
	}

	return run, nil
}

// execute runs the executor behind a recover boundary so a panicking source
// becomes a failed result.
func (o *Orchestrator) execute(ctx context.Context, workspaceID string, report domain.Report) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Err: fmt.Errorf("report execution panicked: %v", r)}
		}
	}()
	return o.executor.Execute(ctx, workspaceID, report)
}

// GetReportRuns returns a report and up to take of its most recent runs. A
// missing report yields (nil, nil, nil).
func (o *Orchestrator) GetReportRuns(ctx context.Context, workspaceID, reportID string, take int) (*domain.Report, []*domain.ReportRun, error) {
	report, err := o.reports.FindReport(ctx, workspaceID, reportID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find report: %w", err)
	}
	if report == nil {
		return nil, nil, nil
	}

	runs, err := o.runs.ListRunsForReport(ctx, workspaceID, reportID, take)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return report, runs, nil
}

// GetRun looks up a single run. A missing run yields (nil, nil).
func (o *Orchestrator) GetRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error) {
	run, err := o.runs.FindRun(ctx, workspaceID, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return run, nil
}

func (o *Orchestrator) notify(ctx context.Context, run *domain.ReportRun) {
	if o.observer == nil {
		return
	}
	o.observer.RunChanged(ctx, run.Clone())
}
