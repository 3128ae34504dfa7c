package services

import "errors"

// Report service errors
var (
	ErrReportNotFound     = errors.New("report not found")
	ErrRunNotFound        = errors.New("report run not found")
	ErrNoArtifact         = errors.New("report run has no artifact")
	ErrInvalidDefinition  = errors.New("invalid report definition")
	ErrUnsupportedFormat  = errors.New("unsupported download format")
	ErrServiceUnavailable = errors.New("service temporarily unavailable")
)
