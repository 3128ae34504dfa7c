package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"deskreport/internal/definition"
	apierrors "deskreport/internal/errors"
	"deskreport/internal/middleware"
	"deskreport/internal/services"
	"deskreport/internal/shared/testutil"
	"deskreport/pkg/contracts/domain"
)

type mockReportService struct {
	mock.Mock
}

func (m *mockReportService) Sources() map[string][]string {
	args := m.Called()
	return args.Get(0).(map[string][]string)
}

func (m *mockReportService) BuildDefinition(source, fields, filters string) (string, error) {
	args := m.Called(source, fields, filters)
	return args.String(0), args.Error(1)
}

func (m *mockReportService) ParseDefinition(raw string) services.ParsedDefinition {
	args := m.Called(raw)
	return args.Get(0).(services.ParsedDefinition)
}

func (m *mockReportService) RunReport(ctx context.Context, workspaceID, reportID string) (*domain.ReportRun, error) {
	args := m.Called(ctx, workspaceID, reportID)
	run, _ := args.Get(0).(*domain.ReportRun)
	return run, args.Error(1)
}

func (m *mockReportService) ListRuns(ctx context.Context, workspaceID, reportID string, take int) (*domain.Report, []*domain.ReportRun, error) {
	args := m.Called(ctx, workspaceID, reportID, take)
	report, _ := args.Get(0).(*domain.Report)
	list, _ := args.Get(1).([]*domain.ReportRun)
	return report, list, args.Error(2)
}

func (m *mockReportService) GetRun(ctx context.Context, workspaceID, runID string) (*domain.ReportRun, error) {
	args := m.Called(ctx, workspaceID, runID)
	run, _ := args.Get(0).(*domain.ReportRun)
	return run, args.Error(1)
}

func (m *mockReportService) GetRunPage(ctx context.Context, workspaceID, runID string, page, take int) (domain.ReportRunPage, error) {
	args := m.Called(ctx, workspaceID, runID, page, take)
	return args.Get(0).(domain.ReportRunPage), args.Error(1)
}

func (m *mockReportService) Artifact(ctx context.Context, workspaceID, runID, format string) (*services.Artifact, error) {
	args := m.Called(ctx, workspaceID, runID, format)
	a, _ := args.Get(0).(*services.Artifact)
	return a, args.Error(1)
}

func newTestRouter(t *testing.T, svc ReportServiceInterface) http.Handler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler, definition.DefaultCatalog())

	r := chi.NewRouter()
	r.Mount("/api", NewReportHandler(svc, validator, logger, errorHandler).Routes())
	return r
}

func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleRun() *domain.ReportRun {
	done := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return &domain.ReportRun{
		ID: "run-1", WorkspaceID: "ws-1", ReportID: "r-1",
		Status: domain.RunStatusSucceeded, StartedAt: done.Add(-time.Second), CompletedAt: &done,
		RowCount: 1, FileBytes: []byte("Id\n1\n"), ContentType: "text/csv", FileName: "open_tickets.csv",
	}
}

func TestReportHandler_GetSources(t *testing.T) {
	svc := &mockReportService{}
	svc.On("Sources").Return(map[string][]string{"tickets": {"Id", "Subject"}})

	w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/reports/sources", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tickets":["Id","Subject"]}`, w.Body.String())
}

func TestReportHandler_BuildDefinition(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setupMock  func(*mockReportService)
		wantStatus int
		wantCode   string
	}{
		{
			name: "success",
			body: `{"source":"tickets","fields":"Id,Subject"}`,
			setupMock: func(m *mockReportService) {
				m.On("BuildDefinition", "tickets", "Id,Subject", "").
					Return(`{"source":"tickets","fields":["Id","Subject"],"filters":[]}`, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unknown source rejected by validation",
			body:       `{"source":"invoices","fields":"Id"}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_FAILED",
		},
		{
			name:       "malformed body",
			body:       `{"source":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_REQUEST",
		},
		{
			name: "service rejects source",
			body: `{"source":"tickets","fields":"Id"}`,
			setupMock: func(m *mockReportService) {
				m.On("BuildDefinition", "tickets", "Id", "").Return("", services.ErrInvalidDefinition)
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "INVALID_SOURCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReportService{}
			if tt.setupMock != nil {
				tt.setupMock(svc)
			}

			w := serve(t, newTestRouter(t, svc), http.MethodPost, "/api/reports/definitions/build", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
				return
			}
			assert.Equal(t, `{"source":"tickets","fields":["Id","Subject"],"filters":[]}`, body["definition"])
			svc.AssertExpectations(t)
		})
	}
}

func TestReportHandler_ParseDefinition(t *testing.T) {
	svc := &mockReportService{}
	svc.On("ParseDefinition", `{"source":"contacts"}`).Return(services.ParsedDefinition{
		ReportDefinition: domain.ReportDefinition{Source: "contacts", Fields: []string{}},
		UnknownFields:    []string{},
	})

	w := serve(t, newTestRouter(t, svc), http.MethodPost, "/api/reports/definitions/parse",
		`{"definition":"{\"source\":\"contacts\"}"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "contacts", body["source"])
	assert.Equal(t, []interface{}{}, body["unknown_fields"])
}

func TestReportHandler_RunReport(t *testing.T) {
	tests := []struct {
		name       string
		run        *domain.ReportRun
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "created", run: sampleRun(), wantStatus: http.StatusCreated},
		{name: "report missing", err: services.ErrReportNotFound, wantStatus: http.StatusNotFound, wantCode: "REPORT_NOT_FOUND"},
		{name: "store failure", err: errors.New("db down"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReportService{}
			svc.On("RunReport", mock.Anything, "ws-1", "r-1").Return(tt.run, tt.err)

			w := serve(t, newTestRouter(t, svc), http.MethodPost, "/api/workspaces/ws-1/reports/r-1/runs", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, body["error_code"])
			}
			if tt.run != nil {
				assert.Equal(t, "run-1", body["id"])
				assert.Equal(t, "succeeded", body["status"])
				assert.Equal(t, true, body["has_content"])
				assert.NotContains(t, body, "file_bytes")
			}
		})
	}
}

func TestReportHandler_ListRuns(t *testing.T) {
	t.Run("passes take through", func(t *testing.T) {
		failed := &domain.ReportRun{ID: "run-2", Status: domain.RunStatusFailed}
		svc := &mockReportService{}
		svc.On("ListRuns", mock.Anything, "ws-1", "r-1", 5).
			Return(&domain.Report{ID: "r-1", Name: "Open tickets"}, []*domain.ReportRun{sampleRun(), failed}, nil)

		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/reports/r-1/runs?take=5", "")

		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Report domain.Report `json:"report"`
			Runs   []struct {
				ID         string `json:"id"`
				HasContent bool   `json:"has_content"`
			} `json:"runs"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Open tickets", resp.Report.Name)
		require.Len(t, resp.Runs, 2)
		assert.True(t, resp.Runs[0].HasContent)
		assert.False(t, resp.Runs[1].HasContent)
	})

	t.Run("take out of range", func(t *testing.T) {
		svc := &mockReportService{}
		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/reports/r-1/runs?take=999", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "ListRuns", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReportHandler_GetRun(t *testing.T) {
	svc := &mockReportService{}
	svc.On("GetRun", mock.Anything, "ws-1", "missing").Return(nil, services.ErrRunNotFound)

	w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/missing", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "RUN_NOT_FOUND", body["error_code"])
	assert.Equal(t, apierrors.TypeRunNotFound, body["type"])
	assert.Equal(t, map[string]interface{}{"workspace_id": "ws-1", "run_id": "missing"}, body["details"])
}

func TestReportHandler_GetRunPage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantPage   int
		wantTake   int
		wantStatus int
	}{
		{name: "defaults", query: "", wantPage: 1, wantTake: 0, wantStatus: http.StatusOK},
		{name: "explicit", query: "?page=3&take=10", wantPage: 3, wantTake: 10, wantStatus: http.StatusOK},
		{name: "out of range values reach the service", query: "?page=-2&take=5000", wantPage: -2, wantTake: 5000, wantStatus: http.StatusOK},
		{name: "non numeric page", query: "?page=two", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockReportService{}
			svc.On("GetRunPage", mock.Anything, "ws-1", "run-1", tt.wantPage, tt.wantTake).
				Return(domain.ReportRunPage{Page: 1, Take: 25, HasContent: true, Headers: []string{"Id"}, Rows: [][]string{{"1"}}}, nil)

			w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/run-1/page"+tt.query, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				svc.AssertExpectations(t)
				body := decodeBody(t, w)
				assert.Equal(t, true, body["has_content"])
			}
		})
	}
}

func TestReportHandler_Download(t *testing.T) {
	t.Run("csv attachment", func(t *testing.T) {
		svc := &mockReportService{}
		svc.On("Artifact", mock.Anything, "ws-1", "run-1", "csv").
			Return(&services.Artifact{Bytes: []byte("Id\n1\n"), ContentType: "text/csv", FileName: "open_tickets.csv"}, nil)

		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/run-1/download", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="open_tickets.csv"`, w.Header().Get("Content-Disposition"))
		assert.Equal(t, "Id\n1\n", w.Body.String())
	})

	t.Run("xlsx requested", func(t *testing.T) {
		svc := &mockReportService{}
		svc.On("Artifact", mock.Anything, "ws-1", "run-1", "xlsx").
			Return(&services.Artifact{Bytes: []byte("PK"), ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", FileName: "open_tickets.xlsx"}, nil)

		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/run-1/download?type=XLSX", "")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "open_tickets.xlsx")
	})

	t.Run("no artifact", func(t *testing.T) {
		svc := &mockReportService{}
		svc.On("Artifact", mock.Anything, "ws-1", "run-2", "csv").Return(nil, services.ErrNoArtifact)

		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/run-2/download?type=csv", "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "ARTIFACT_NOT_FOUND", decodeBody(t, w)["error_code"])
	})

	t.Run("unknown type", func(t *testing.T) {
		svc := &mockReportService{}
		w := serve(t, newTestRouter(t, svc), http.MethodGet, "/api/workspaces/ws-1/runs/run-1/download?type=pdf", "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "Artifact", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestReportHandler_RunTimeout(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)
	validator := middleware.NewValidationMiddleware(logger, errorHandler, definition.DefaultCatalog())

	svc := &mockReportService{}
	svc.On("RunReport", mock.Anything, "ws-1", "r-1").
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	r := chi.NewRouter()
	r.Mount("/api", NewReportHandler(svc, validator, logger, errorHandler).
		WithTimeouts(time.Second, 20*time.Millisecond).Routes())

	w := serve(t, r, http.MethodPost, "/api/workspaces/ws-1/reports/r-1/runs", "")

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, apierrors.TypeTimeout, decodeBody(t, w)["type"])
}
