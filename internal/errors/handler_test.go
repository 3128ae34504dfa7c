package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deskreport/internal/infrastructure"
	"deskreport/internal/shared/testutil"
)

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantCode   string
		wantLevel  slog.Level
	}{
		{
			name:       "deadline exceeded",
			err:        fmt.Errorf("run: %w", context.DeadlineExceeded),
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
			wantLevel:  slog.LevelError,
		},
		{
			name:       "report not found",
			err:        ErrReportNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeReportNotFound,
			wantCode:   "REPORT_NOT_FOUND",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "run not found",
			err:        ErrRunNotFound,
			wantStatus: http.StatusNotFound,
			wantType:   TypeRunNotFound,
			wantCode:   "RUN_NOT_FOUND",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "validation",
			err:        ErrValidation("source", "source is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
			wantCode:   "VALIDATION_FAILED",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "wrapped api error",
			err:        fmt.Errorf("download: %w", ErrArtifactMissing),
			wantStatus: http.StatusNotFound,
			wantType:   TypeArtifactNotFound,
			wantCode:   "ARTIFACT_NOT_FOUND",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "payload too large",
			err:        NewWithDetails(http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large", nil),
			wantStatus: http.StatusRequestEntityTooLarge,
			wantType:   TypeTooLarge,
			wantCode:   "PAYLOAD_TOO_LARGE",
			wantLevel:  slog.LevelWarn,
		},
		{
			name:       "unknown error",
			err:        errors.New("connection reset by peer"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantLevel:  slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			handler := NewErrorHandler(logger, false)

			req := httptest.NewRequest(http.MethodGet, "/api/workspaces/ws/runs/x", nil)
			req = req.WithContext(infrastructure.WithTraceID(req.Context(), "trace-1"))
			rec := httptest.NewRecorder()

			handler.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "trace-1", body["trace_id"])
			assert.Equal(t, "/api/workspaces/ws/runs/x", body["instance"])
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			assert.NotContains(t, body, "stack")

			rec2, ok := logs.FindMessage("request failed")
			require.True(t, ok)
			assert.Equal(t, tt.wantLevel, rec2.Level)
			assert.Equal(t, "error_handler", rec2.Attrs["component"])
		})
	}
}

func TestErrorHandler_HandleErrorNil(t *testing.T) {
	rec := httptest.NewRecorder()
	NewErrorHandler(nil, false).HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestErrorHandler_StackOnlyForServerErrors(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), true)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	handler.HandleError(rec, req, errors.New("boom"))
	assert.Contains(t, decodeProblem(t, rec), "stack")

	rec = httptest.NewRecorder()
	handler.HandleError(rec, req, ErrReportNotFound)
	assert.NotContains(t, decodeProblem(t, rec), "stack")
}

func TestErrorHandler_RecoveryMiddleware(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	handler := NewErrorHandler(logger, false)

	panicking := handler.RecoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map")
	}))

	rec := httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, decodeProblem(t, rec)["type"])
	assert.True(t, logs.ContainsMessage("panic recovered"))
}

func TestErrorHandler_NotFoundAndMethodNotAllowed(t *testing.T) {
	handler := NewErrorHandler(slog.Default(), false)

	rec := httptest.NewRecorder()
	handler.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	handler.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/reports/sources", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}
