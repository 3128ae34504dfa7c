package runs

import (
	"bytes"
	"errors"
	"io"
	"log/slog"

	"deskreport/internal/exporter"
	"deskreport/pkg/contracts/domain"
)

// Pager reads a window of rows back out of a stored run artifact without
// decoding the whole payload.
type Pager struct {
	logger *slog.Logger
}

// NewPager creates a Pager.
func NewPager(logger *slog.Logger) *Pager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pager{logger: logger.With(slog.String("component", "report_pager"))}
}

// GetRunPage returns rows ((page-1)*take, page*take] of the run artifact.
//
// Totals always come from run.RowCount, also for runs without a payload. A
// page past the end yields no rows; clamping page into [1, TotalPages] is
// left to the caller. take and page below 1 are treated as 1. Malformed or
// truncated artifacts yield whatever the reader can still decode.
func (p *Pager) GetRunPage(run domain.ReportRun, page, take int) domain.ReportRunPage {
	if take < 1 {
		take = 1
	}
	if page < 1 {
		page = 1
	}

	total := run.RowCount
	result := domain.ReportRunPage{
		Page:       page,
		Take:       take,
		TotalRows:  total,
		TotalPages: TotalPages(total, take),
		HasContent: len(run.FileBytes) > 0,
		Headers:    []string{},
		Rows:       [][]string{},
	}
	if !result.HasContent {
		return result
	}

	if total > 0 {
		result.FromRow = (page-1)*take + 1
		result.ToRow = min(page*take, total)
	}

	r := exporter.NewReader(bytes.NewReader(run.FileBytes))

	headers, err := r.Read()
	if err != nil {
		p.logReadError(run, err)
		return result
	}
	result.Headers = headers

	if _, err := r.Skip((page - 1) * take); err != nil {
		p.logReadError(run, err)
		return result
	}

	for len(result.Rows) < take {
		rec, err := r.Read()
		if err != nil {
			p.logReadError(run, err)
			break
		}
		result.Rows = append(result.Rows, rec)
	}
	return result
}

// TotalPages is max(1, ceil(rows/take)).
func TotalPages(rows, take int) int {
	if take < 1 {
		take = 1
	}
	if rows <= 0 {
		return 1
	}
	return (rows + take - 1) / take
}

func (p *Pager) logReadError(run domain.ReportRun, err error) {
	if errors.Is(err, io.EOF) {
		return
	}
	p.logger.Warn("failed to read run artifact",
		slog.String("workspace_id", run.WorkspaceID),
		slog.String("run_id", run.ID),
		slog.String("error", err.Error()))
}
