package postgres

import (
	"context"
	"fmt"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS reports (
  id                 TEXT        NOT NULL,
  workspace_id       TEXT        NOT NULL,
  name               TEXT        NOT NULL DEFAULT '',
  ready              BOOLEAN     NOT NULL DEFAULT false,
  definition_json    TEXT        NOT NULL DEFAULT '',
  last_run           TIMESTAMPTZ NULL,
  schedule_enabled   BOOLEAN     NOT NULL DEFAULT false,
  schedule_cron      TEXT        NOT NULL DEFAULT '',
  schedule_time_zone TEXT        NOT NULL DEFAULT '',
  PRIMARY KEY (workspace_id, id)
);

CREATE TABLE IF NOT EXISTS report_runs (
  seq          BIGSERIAL   NOT NULL,
  id           TEXT        NOT NULL PRIMARY KEY,
  workspace_id TEXT        NOT NULL,
  report_id    TEXT        NOT NULL,
  status       TEXT        NOT NULL CHECK (status IN ('pending','running','succeeded','failed')),
  started_at   TIMESTAMPTZ NOT NULL,
  completed_at TIMESTAMPTZ NULL,
  row_count    INTEGER     NOT NULL DEFAULT 0,
  file_bytes   BYTEA       NULL,
  content_type TEXT        NOT NULL DEFAULT '',
  file_name    TEXT        NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS report_runs_by_report
  ON report_runs (workspace_id, report_id, started_at DESC, seq DESC);
`

// EnsureSchema creates the reports and report_runs tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	s.logger.InfoContext(ctx, "report schema ensured")
	return nil
}
