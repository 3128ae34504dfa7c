package runs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deskreport/pkg/contracts/domain"
)

var (
	// ErrRunNotFound is returned by transition writes for an unknown run.
	ErrRunNotFound = errors.New("report run not found")
	// ErrReportNotFound is returned when updating a report that does not exist.
	ErrReportNotFound = errors.New("report not found")
	// ErrInvalidTransition is returned for any write that breaks the
	// Pending -> Running -> Succeeded|Failed lifecycle.
	ErrInvalidTransition = errors.New("invalid report run transition")
	// ErrRunExists is returned when creating a run with a used id.
	ErrRunExists = errors.New("report run already exists")
)

// ReportStore is the report metadata a run needs. FindReport returns
// (nil, nil) when the report does not exist in the workspace.
type ReportStore interface {
	FindReport(ctx context.Context, workspaceID, reportID string) (*domain.Report, error)
	UpdateReport(ctx context.Context, report *domain.Report) error
}

// RunStore persists report runs. FindRun returns (nil, nil) for unknown runs.
// ListRunsForReport returns the newest runs first; take <= 0 means no limit.
type RunStore interface {
	CreateRun(ctx context.Context, run *domain.ReportRun) error
	MarkRunning(ctx context.Context, workspaceID, runID string) error
	CompleteRun(ctx context.Context, workspaceID, runID string, c Completion) error
	FindRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error)
	ListRunsForReport(ctx context.Context, workspaceID, reportID string, take int) ([]*domain.ReportRun, error)
}

// Completion is the single terminal write of a run.
type Completion struct {
	Status      domain.RunStatus
	RowCount    int
	FileBytes   []byte
	ContentType string
	FileName    string
	CompletedAt time.Time
}

// Validate checks the completion against the run invariants: the status is
// terminal and a failed run carries no rows and no payload.
func (c Completion) Validate() error {
	if !c.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidTransition, c.Status)
	}
	if c.Status == domain.RunStatusFailed && (c.RowCount != 0 || len(c.FileBytes) > 0) {
		return fmt.Errorf("%w: failed run cannot carry a payload", ErrInvalidTransition)
	}
	if c.RowCount < 0 {
		return fmt.Errorf("%w: negative row count", ErrInvalidTransition)
	}
	return nil
}

// failedCompletion is the terminal write for every failure path.
func failedCompletion(at time.Time) Completion {
	return Completion{Status: domain.RunStatusFailed, CompletedAt: at}
}
