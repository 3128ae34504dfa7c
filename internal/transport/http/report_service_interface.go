package http

import (
	"context"

	"deskreport/internal/services"
	"deskreport/pkg/contracts/domain"
)

// ReportServiceInterface defines the interface for report operations
type ReportServiceInterface interface {
	Sources() map[string][]string
	BuildDefinition(source, fields, filters string) (string, error)
	ParseDefinition(raw string) services.ParsedDefinition
	RunReport(ctx context.Context, workspaceID, reportID string) (*domain.ReportRun, error)
	ListRuns(ctx context.Context, workspaceID, reportID string, take int) (*domain.Report, []*domain.ReportRun, error)
	GetRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error)
	GetRunPage(ctx context.Context, workspaceID, runID string, page, take int) (domain.ReportRunPage, error)
	Artifact(ctx context.Context, workspaceID, runID, format string) (*services.Artifact, error)
}

var _ ReportServiceInterface = (*services.ReportService)(nil)
