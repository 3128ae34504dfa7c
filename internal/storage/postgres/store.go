// Package postgres persists reports and report runs in PostgreSQL through
// pgx v5. Run lifecycle guards are enforced by the UPDATE predicates, so a
// run can only move Pending -> Running -> Succeeded|Failed.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"deskreport/internal/runs"
	"deskreport/pkg/contracts/domain"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Config holds Postgres store configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	MaxConns int32
}

// Store is a Postgres-backed runs.ReportStore and runs.RunStore.
type Store struct {
	db     querier
	logger *slog.Logger
}

var (
	_ runs.ReportStore = (*Store)(nil)
	_ runs.RunStore    = (*Store)(nil)
)

// Open connects a pool and returns the store with a close function.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	return New(pool, logger), pool.Close, nil
}

// New wraps an existing pool or connection.
func New(db querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger.With(slog.String("component", "postgres_store"))}
}

// Ping checks that the database answers queries.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, "SELECT 1"); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// SaveReport inserts or replaces a report.
func (s *Store) SaveReport(ctx context.Context, report *domain.Report) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO reports (id, workspace_id, name, ready, definition_json, last_run,
                     schedule_enabled, schedule_cron, schedule_time_zone)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (workspace_id, id) DO UPDATE SET
  name = EXCLUDED.name,
  ready = EXCLUDED.ready,
  definition_json = EXCLUDED.definition_json,
  last_run = EXCLUDED.last_run,
  schedule_enabled = EXCLUDED.schedule_enabled,
  schedule_cron = EXCLUDED.schedule_cron,
  schedule_time_zone = EXCLUDED.schedule_time_zone`,
		report.ID, report.WorkspaceID, report.Name, report.Ready, report.DefinitionJSON, report.LastRun,
		report.Schedule.Enabled, report.Schedule.Cron, report.Schedule.TimeZone)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

// FindReport implements runs.ReportStore.
func (s *Store) FindReport(ctx context.Context, workspaceID, reportID string) (*domain.Report, error) {
	var r domain.Report
	err := s.db.QueryRow(ctx, `
SELECT id, workspace_id, name, ready, definition_json, last_run,
       schedule_enabled, schedule_cron, schedule_time_zone
FROM reports WHERE workspace_id = $1 AND id = $2`, workspaceID, reportID).Scan(
		&r.ID, &r.WorkspaceID, &r.Name, &r.Ready, &r.DefinitionJSON, &r.LastRun,
		&r.Schedule.Enabled, &r.Schedule.Cron, &r.Schedule.TimeZone)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find report %s: %w", reportID, err)
	}
	return &r, nil
}

// UpdateReport implements runs.ReportStore.
func (s *Store) UpdateReport(ctx context.Context, report *domain.Report) error {
	tag, err := s.db.Exec(ctx, `
UPDATE reports SET name = $3, ready = $4, definition_json = $5, last_run = $6,
  schedule_enabled = $7, schedule_cron = $8, schedule_time_zone = $9
WHERE workspace_id = $1 AND id = $2`,
		report.WorkspaceID, report.ID, report.Name, report.Ready, report.DefinitionJSON, report.LastRun,
		report.Schedule.Enabled, report.Schedule.Cron, report.Schedule.TimeZone)
	if err != nil {
		return fmt.Errorf("update report %s: %w", report.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", runs.ErrReportNotFound, report.ID)
	}
	return nil
}

// CreateRun implements runs.RunStore. New runs must be pending.
func (s *Store) CreateRun(ctx context.Context, run *domain.ReportRun) error {
	if run.Status != domain.RunStatusPending {
		return fmt.Errorf("%w: runs are created pending, got %s", runs.ErrInvalidTransition, run.Status)
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO report_runs (id, workspace_id, report_id, status, started_at)
VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.WorkspaceID, run.ReportID, string(run.Status), run.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", runs.ErrRunExists, run.ID)
		}
		return fmt.Errorf("create run %s: %w", run.ID, err)
	}
	return nil
}

// MarkRunning implements runs.RunStore.
func (s *Store) MarkRunning(ctx context.Context, workspaceID, runID string) error {
	tag, err := s.db.Exec(ctx, `
UPDATE report_runs SET status = 'running'
WHERE workspace_id = $1 AND id = $2 AND status = 'pending'`, workspaceID, runID)
	if err != nil {
		return fmt.Errorf("mark run %s running: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, workspaceID, runID, domain.RunStatusRunning)
	}
	return nil
}

// CompleteRun implements runs.RunStore.
func (s *Store) CompleteRun(ctx context.Context, workspaceID, runID string, c runs.Completion) error {
	if err := c.Validate(); err != nil {
		return err
	}

	var fileBytes []byte
	if len(c.FileBytes) > 0 {
		fileBytes = c.FileBytes
	}

	tag, err := s.db.Exec(ctx, `
UPDATE report_runs
SET status = $3, completed_at = $4, row_count = $5, file_bytes = $6, content_type = $7, file_name = $8
WHERE workspace_id = $1 AND id = $2 AND status = 'running'`,
		workspaceID, runID, string(c.Status), c.CompletedAt, c.RowCount, fileBytes, c.ContentType, c.FileName)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionError(ctx, workspaceID, runID, c.Status)
	}
	return nil
}

// transitionError explains why a guarded UPDATE matched no row.
func (s *Store) transitionError(ctx context.Context, workspaceID, runID string, to domain.RunStatus) error {
	var current string
	err := s.db.QueryRow(ctx, `SELECT status FROM report_runs WHERE workspace_id = $1 AND id = $2`,
		workspaceID, runID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", runs.ErrRunNotFound, runID)
	}
	if err != nil {
		return fmt.Errorf("load run %s status: %w", runID, err)
	}
	s.logger.WarnContext(ctx, "rejected run transition",
		slog.String("run_id", runID),
		slog.String("from", current),
		slog.String("to", string(to)))
	return fmt.Errorf("%w: %s -> %s", runs.ErrInvalidTransition, current, to)
}

const runColumns = `id, workspace_id, report_id, status, started_at, completed_at,
       row_count, file_bytes, content_type, file_name`

func scanRun(row pgx.Row) (*domain.ReportRun, error) {
	var (
		run    domain.ReportRun
		status string
	)
	if err := row.Scan(&run.ID, &run.WorkspaceID, &run.ReportID, &status, &run.StartedAt, &run.CompletedAt,
		&run.RowCount, &run.FileBytes, &run.ContentType, &run.FileName); err != nil {
		return nil, err
	}
	run.Status = domain.RunStatus(status)
	if len(run.FileBytes) == 0 {
		run.FileBytes = nil
	}
	return &run, nil
}

// FindRun implements runs.RunStore.
func (s *Store) FindRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error) {
	run, err := scanRun(s.db.QueryRow(ctx,
		`SELECT `+runColumns+` FROM report_runs WHERE workspace_id = $1 AND id = $2`, workspaceID, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run %s: %w", runID, err)
	}
	return run, nil
}

// ListRunsForReport implements runs.RunStore. A NULL limit returns every run.
func (s *Store) ListRunsForReport(ctx context.Context, workspaceID, reportID string, take int) ([]*domain.ReportRun, error) {
	var limit *int
	if take > 0 {
		limit = &take
	}

	rows, err := s.db.Query(ctx, `SELECT `+runColumns+` FROM report_runs
WHERE workspace_id = $1 AND report_id = $2
ORDER BY started_at DESC, seq DESC
LIMIT $3`, workspaceID, reportID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs for report %s: %w", reportID, err)
	}
	defer rows.Close()

	result := []*domain.ReportRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs for report %s: %w", reportID, err)
	}
	return result, nil
}
