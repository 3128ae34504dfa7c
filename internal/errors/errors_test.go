package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	err := New(http.StatusNotFound, "REPORT_NOT_FOUND", "Report not found")
	assert.Equal(t, "Report not found", err.Error())

	var target *APIError
	wrapped := fmt.Errorf("lookup: %w", err)
	require.True(t, errors.As(wrapped, &target))
	assert.Equal(t, http.StatusNotFound, target.StatusCode)
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrValidationFailed, http.StatusBadRequest, "VALIDATION_FAILED"},
		{ErrInvalidSource, http.StatusBadRequest, "INVALID_SOURCE"},
		{ErrReportNotFound, http.StatusNotFound, "REPORT_NOT_FOUND"},
		{ErrRunNotFound, http.StatusNotFound, "RUN_NOT_FOUND"},
		{ErrArtifactMissing, http.StatusNotFound, "ARTIFACT_NOT_FOUND"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{ErrInternalServer, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
		{ErrServiceUnavailable, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestErrValidation(t *testing.T) {
	err := ErrValidation("take", "take must be a positive integer")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	details, ok := err.Details.(ValidationErrors)
	require.True(t, ok)
	require.Len(t, details.Errors, 1)
	assert.Equal(t, "take", details.Errors[0].Field)
}

func TestAPIError_WithDetails(t *testing.T) {
	err := ErrRunNotFound.WithDetails(map[string]string{"run_id": "run-1"})
	assert.Equal(t, CodeRunNotFound, err.ErrorCode)
	assert.Equal(t, map[string]string{"run_id": "run-1"}, err.Details)
	assert.Nil(t, ErrRunNotFound.Details, "shared error is not modified")
}

func TestNewWithDetails(t *testing.T) {
	err := NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large", map[string]int64{"max_size": 10})
	assert.Equal(t, http.StatusRequestEntityTooLarge, err.StatusCode)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", err.ErrorCode)
	assert.Equal(t, map[string]int64{"max_size": 10}, err.Details)
}

func TestInvalidRequestWithError(t *testing.T) {
	err := InvalidRequestWithError(errors.New("unexpected EOF"))
	assert.Equal(t, "INVALID_REQUEST", err.ErrorCode)
	assert.Equal(t, "unexpected EOF", err.Details)
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	problem := NewProblemDetails(http.StatusNotFound, TypeRunNotFound, "Not Found", "Report run not found", "/api/workspaces/ws/runs/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	data, err := json.Marshal(problem)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypeRunNotFound, decoded["type"])
	assert.Equal(t, "Report run not found", decoded["detail"])
	assert.Equal(t, "abc", decoded["trace_id"])
	assert.Equal(t, float64(http.StatusNotFound), decoded["status"], "standard members win over extensions")
}

func TestProblemDetails_OmitsEmptyMembers(t *testing.T) {
	data, err := json.Marshal(&ProblemDetails{Type: TypeInternal, Title: "Internal Server Error", Status: 500})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/internal","title":"Internal Server Error","status":500}`, string(data))
}
