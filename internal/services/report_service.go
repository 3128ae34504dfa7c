package services

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"deskreport/internal/config"
	"deskreport/internal/definition"
	"deskreport/internal/exporter"
	"deskreport/internal/infrastructure"
	"deskreport/internal/runs"
	"deskreport/pkg/contracts/domain"
)

// Download formats
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// RunOrchestrator is the run core used by the service.
type RunOrchestrator interface {
	RunReport(ctx context.Context, workspaceID, reportID string) (*domain.ReportRun, error)
	GetReportRuns(ctx context.Context, workspaceID, reportID string, take int) (*domain.Report, []*domain.ReportRun, error)
	GetRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error)
}

// RunPager reads pages out of run artifacts.
type RunPager interface {
	GetRunPage(run domain.ReportRun, page, take int) domain.ReportRunPage
}

var (
	_ RunOrchestrator = (*runs.Orchestrator)(nil)
	_ RunPager        = (*runs.Pager)(nil)
)

// ParsedDefinition is a normalized definition plus the fields its source
// does not know about.
type ParsedDefinition struct {
	domain.ReportDefinition
	UnknownFields []string `json:"unknown_fields"`
}

// Artifact is a downloadable run payload.
type Artifact struct {
	Bytes       []byte
	ContentType string
	FileName    string
}

// ReportService is the facade the report handlers talk to.
type ReportService struct {
	catalog      definition.Catalog
	orchestrator RunOrchestrator
	pager        RunPager
	limits       config.ReportsConfig
	metrics      *infrastructure.BusinessMetrics
	logger       *slog.Logger
}

// NewReportService creates a report service. metrics may be nil.
func NewReportService(catalog definition.Catalog, orchestrator RunOrchestrator, pager RunPager, limits config.ReportsConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ReportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportService{
		catalog:      catalog,
		orchestrator: orchestrator,
		pager:        pager,
		limits:       limits,
		metrics:      metrics,
		logger:       logger.With(slog.String("component", "report_service")),
	}
}

// Sources lists the report sources and their projectable fields.
func (s *ReportService) Sources() map[string][]string {
	return s.catalog.Sources()
}

// BuildDefinition assembles a definition document. The source must be in the
// catalog; everything else is normalized by the codec.
func (s *ReportService) BuildDefinition(source, fields, filters string) (string, error) {
	if !s.catalog.HasSource(strings.TrimSpace(source)) {
		return "", fmt.Errorf("%w: unknown source %q", ErrInvalidDefinition, source)
	}
	return definition.Build(source, fields, filters), nil
}

// ParseDefinition normalizes a stored definition document. It never fails.
func (s *ReportService) ParseDefinition(raw string) ParsedDefinition {
	def := definition.Parse(raw)
	unknown := s.catalog.UnknownFields(def)
	if unknown == nil {
		unknown = []string{}
	}
	return ParsedDefinition{ReportDefinition: def, UnknownFields: unknown}
}

// RunReport executes a report and returns the terminal run.
func (s *ReportService) RunReport(ctx context.Context, workspaceID, reportID string) (*domain.ReportRun, error) {
	run, err := s.orchestrator.RunReport(ctx, workspaceID, reportID)
	if err != nil {
		return nil, fmt.Errorf("run report %s: %w", reportID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	return run, nil
}

// ListRuns returns the report and its newest runs. take <= 0 uses the
// configured default.
func (s *ReportService) ListRuns(ctx context.Context, workspaceID, reportID string, take int) (*domain.Report, []*domain.ReportRun, error) {
	if take <= 0 {
		take = s.limits.RecentRunsTake
	}
	report, list, err := s.orchestrator.GetReportRuns(ctx, workspaceID, reportID, take)
	if err != nil {
		return nil, nil, fmt.Errorf("list runs for report %s: %w", reportID, err)
	}
	if report == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
	}
	if list == nil {
		list = []*domain.ReportRun{}
	}
	return report, list, nil
}

// GetRun returns run metadata and payload.
func (s *ReportService) GetRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error) {
	run, err := s.orchestrator.GetRun(ctx, workspaceID, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, nil
}

// GetRunPage pages a run artifact. take 0 means the default page size and is
// otherwise clamped into [1, MaxPageSize]; page is clamped into
// [1, TotalPages].
func (s *ReportService) GetRunPage(ctx context.Context, workspaceID, runID string, page, take int) (domain.ReportRunPage, error) {
	run, err := s.GetRun(ctx, workspaceID, runID)
	if err != nil {
		return domain.ReportRunPage{}, err
	}

	take = s.clampTake(take)
	page = max(1, min(page, runs.TotalPages(run.RowCount, take)))

	result := s.pager.GetRunPage(*run, page, take)
	if s.metrics != nil {
		s.metrics.ReportPagesServed.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("has_content", result.HasContent)))
	}
	return result, nil
}

func (s *ReportService) clampTake(take int) int {
	if take == 0 {
		take = s.limits.DefaultPageSize
	}
	if s.limits.MaxPageSize > 0 {
		take = min(take, s.limits.MaxPageSize)
	}
	return max(1, take)
}

// Artifact returns the run payload in the requested format.
func (s *ReportService) Artifact(ctx context.Context, workspaceID, runID, format string) (*Artifact, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	run, err := s.GetRun(ctx, workspaceID, runID)
	if err != nil {
		return nil, err
	}
	if !run.HasContent() {
		return nil, fmt.Errorf("%w: %s", ErrNoArtifact, runID)
	}

	artifact := &Artifact{Bytes: run.FileBytes, ContentType: run.ContentType, FileName: run.FileName}
	if artifact.ContentType == "" {
		artifact.ContentType = exporter.ContentType
	}

	if format == FormatXLSX {
		base := strings.TrimSuffix(run.FileName, path.Ext(run.FileName))
		if base == "" {
			base = "report_" + run.ReportID
		}
		data, err := exporter.ToXLSX(run.FileBytes, base)
		if err != nil {
			s.logger.ErrorContext(ctx, "xlsx conversion failed",
				slog.String("workspace_id", workspaceID),
				slog.String("run_id", runID),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("convert run %s to xlsx: %w", runID, err)
		}
		artifact = &Artifact{Bytes: data, ContentType: exporter.XLSXContentType, FileName: base + ".xlsx"}
	}

	if s.metrics != nil {
		s.metrics.ReportDownloads.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
	}
	return artifact, nil
}
