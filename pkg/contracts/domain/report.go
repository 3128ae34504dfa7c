package domain

import (
	"time"
)

// ReportDefinition describes what a report projects: the source collection,
// the ordered field list and an opaque filters document.
type ReportDefinition struct {
	Source      string   `json:"source"`
	Fields      []string `json:"fields"`
	FiltersJSON *string  `json:"filters_json,omitempty"`
}

// HasFilters reports whether the definition carries a filters document.
func (d ReportDefinition) HasFilters() bool {
	return d.FiltersJSON != nil
}

// ReportSchedule is carried with a report but not interpreted by the run core.
type ReportSchedule struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" db:"schedule_enabled"`
	Cron     string `json:"cron,omitempty" yaml:"cron" db:"schedule_cron"`
	TimeZone string `json:"time_zone,omitempty" yaml:"time_zone" db:"schedule_time_zone"`
}

// Report is a saved definition of a tabular extract owned by a workspace.
type Report struct {
	ID             string         `json:"id" yaml:"id" db:"id"`
	WorkspaceID    string         `json:"workspace_id" yaml:"workspace_id" db:"workspace_id"`
	Name           string         `json:"name" yaml:"name" db:"name"`
	Ready          bool           `json:"ready" yaml:"ready" db:"ready"`
	DefinitionJSON string         `json:"definition_json" yaml:"definition_json" db:"definition_json"`
	LastRun        *time.Time     `json:"last_run,omitempty" yaml:"last_run" db:"last_run"`
	Schedule       ReportSchedule `json:"schedule" yaml:"schedule"`
}

// RunStatus is the lifecycle state of a report run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSucceeded || s == RunStatusFailed
}

// IsValid reports whether s is a known status.
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return true
	}
	return false
}

// ReportRun is one execution of a report. A succeeded run holds the
// serialized artifact; any other status holds no payload.
type ReportRun struct {
	ID          string     `json:"id" db:"id"`
	WorkspaceID string     `json:"workspace_id" db:"workspace_id"`
	ReportID    string     `json:"report_id" db:"report_id"`
	Status      RunStatus  `json:"status" db:"status"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	RowCount    int        `json:"row_count" db:"row_count"`
	FileBytes   []byte     `json:"-" db:"file_bytes"`
	ContentType string     `json:"content_type,omitempty" db:"content_type"`
	FileName    string     `json:"file_name,omitempty" db:"file_name"`
}

// HasContent reports whether the run carries an artifact payload.
func (r *ReportRun) HasContent() bool {
	return r != nil && len(r.FileBytes) > 0
}

// Clone returns a deep copy of the run.
func (r *ReportRun) Clone() *ReportRun {
	if r == nil {
		return nil
	}
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	if r.FileBytes != nil {
		c.FileBytes = append([]byte(nil), r.FileBytes...)
	}
	return &c
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() *Report {
	if r == nil {
		return nil
	}
	c := *r
	if r.LastRun != nil {
		t := *r.LastRun
		c.LastRun = &t
	}
	return &c
}

// ReportRunPage is a window of rows read back from a run artifact.
type ReportRunPage struct {
	Page       int        `json:"page"`
	Take       int        `json:"take"`
	TotalRows  int        `json:"total_rows"`
	TotalPages int        `json:"total_pages"`
	FromRow    int        `json:"from_row"`
	ToRow      int        `json:"to_row"`
	HasContent bool       `json:"has_content"`
	Headers    []string   `json:"headers"`
	Rows       [][]string `json:"rows"`
}
