package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"deskreport/internal/shared/testutil"
)

func TestHealthService_ReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheckFunc
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checks",
			wantStatus: "ready",
		},
		{
			name: "all ready",
			checks: map[string]HealthCheckFunc{
				"storage": func(context.Context) error { return nil },
			},
			wantStatus: "ready",
		},
		{
			name: "one failing",
			checks: map[string]HealthCheckFunc{
				"storage":   func(context.Context) error { return errors.New("connection refused") },
				"websocket": func(context.Context) error { return nil },
			},
			wantStatus: "not_ready",
			wantFailed: []string{"storage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			hs := NewHealthService("1.2.3", tt.checks, logger)

			status := hs.ReadinessCheck(context.Background())
			assert.Equal(t, tt.wantStatus, status.Status)
			assert.Equal(t, "1.2.3", status.Version)
			assert.Len(t, status.Services, len(tt.checks))
			for _, name := range tt.wantFailed {
				assert.Equal(t, "not_ready", status.Services[name].Status)
				assert.NotEmpty(t, status.Services[name].Message)
				assert.True(t, logs.ContainsAttr("check", name))
			}
		})
	}
}

func TestHealthService_LivenessAndVersion(t *testing.T) {
	hs := NewHealthService("1.2.3", nil, nil)

	live := hs.LivenessCheck(context.Background())
	assert.Equal(t, "alive", live.Status)
	assert.Contains(t, live.Runtime, "goroutines")

	assert.Equal(t, "ok", hs.HealthCheck(context.Background()).Status)

	version := hs.Version()
	assert.Equal(t, "1.2.3", version["version"])
	assert.Equal(t, "v1", version["api_version"])
}
