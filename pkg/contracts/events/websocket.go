// Package events contains the event contracts pushed to WebSocket clients
// while report runs progress.
package events

import (
	"time"

	"deskreport/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeRunStatus MessageType = "report_run:status"

	MessageTypeConnect    MessageType = "connect"
	MessageTypeDisconnect MessageType = "disconnect"
	MessageTypeError      MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is a message envelope with an arbitrary payload.
type WebSocketMessage struct {
	BaseMessage
	Data interface{} `json:"data,omitempty"`
}

// RunStatusEvent is emitted on every report run transition. It never carries
// the artifact bytes.
type RunStatusEvent struct {
	RunID       string           `json:"run_id"`
	WorkspaceID string           `json:"workspace_id"`
	ReportID    string           `json:"report_id"`
	Status      domain.RunStatus `json:"status"`
	RowCount    int              `json:"row_count"`
	FileName    string           `json:"file_name,omitempty"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// NewRunStatusEvent projects a run into its event form.
func NewRunStatusEvent(run *domain.ReportRun) RunStatusEvent {
	return RunStatusEvent{
		RunID:       run.ID,
		WorkspaceID: run.WorkspaceID,
		ReportID:    run.ReportID,
		Status:      run.Status,
		RowCount:    run.RowCount,
		FileName:    run.FileName,
		StartedAt:   run.StartedAt,
		CompletedAt: run.CompletedAt,
	}
}

// ErrorMessage represents an error message
type ErrorMessage struct {
	BaseMessage
	Data struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"data"`
}
