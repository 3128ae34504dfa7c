// Package api contains the request contracts of the deskreport HTTP API.
// Version v1 represents the current stable API version.
package api

// PaginationRequest carries run page parameters.
type PaginationRequest struct {
	Page int `json:"page" query:"page" validate:"omitempty,min=1"`
	Take int `json:"take" query:"take" validate:"omitempty,min=1"`
}

// BuildDefinitionRequest asks the server to assemble a definition document.
type BuildDefinitionRequest struct {
	Source  string `json:"source" validate:"required,report_source"`
	Fields  string `json:"fields" validate:"required"`
	Filters string `json:"filters,omitempty"`
}

// ParseDefinitionRequest asks the server to normalize a definition document.
type ParseDefinitionRequest struct {
	Definition string `json:"definition"`
}

// ListRunsRequest bounds the number of runs returned for a report.
type ListRunsRequest struct {
	Take int `json:"take" query:"take" validate:"omitempty,min=1,max=200"`
}

// DownloadRequest selects the artifact download format.
type DownloadRequest struct {
	Type string `json:"type" query:"type" validate:"omitempty,oneof=csv xlsx"`
}
