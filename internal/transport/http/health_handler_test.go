package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "deskreport/internal/errors"
	"deskreport/internal/services"
	"deskreport/internal/shared/testutil"
)

func TestHealthHandler_Routes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		storageErr error
		wantStatus int
		wantState  string
	}{
		{name: "health", path: "/api/health/", wantStatus: http.StatusOK, wantState: "ok"},
		{name: "live", path: "/api/health/live", wantStatus: http.StatusOK, wantState: "alive"},
		{name: "ready", path: "/api/health/ready", wantStatus: http.StatusOK, wantState: "ready"},
		{name: "not ready", path: "/api/health/ready", storageErr: errors.New("pool closed"), wantStatus: http.StatusServiceUnavailable, wantState: "not_ready"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			checks := map[string]services.HealthCheckFunc{
				"storage": func(context.Context) error { return tt.storageErr },
			}
			h := NewHealthHandler(services.NewHealthService("1.0.0", checks, logger), logger)

			r := chi.NewRouter()
			r.Mount("/api/health", h.Routes())
			w := serve(t, r, http.MethodGet, tt.path, "")

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantState, decodeBody(t, w)["status"])
		})
	}
}

func TestHealthHandler_Version(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	h := NewHealthHandler(services.NewHealthService("2.1.0", nil, logger), logger)

	w := httptest.NewRecorder()
	h.Version(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2.1.0", decodeBody(t, w)["version"])
}

func TestMetricsHandler(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errorHandler := apierrors.NewErrorHandler(logger, false)

	t.Run("delegates to exporter", func(t *testing.T) {
		exporter := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("report_runs_total 3\n"))
		})
		w := serve(t, NewMetricsHandler(exporter, errorHandler), http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "report_runs_total")
	})

	t.Run("telemetry disabled", func(t *testing.T) {
		w := serve(t, NewMetricsHandler(nil, errorHandler), http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
