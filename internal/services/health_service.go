package services

import (
	"context"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"deskreport/pkg/contracts"
)

// HealthCheckFunc probes one dependency. A nil error means ready.
type HealthCheckFunc func(ctx context.Context) error

// HealthService provides health check functionality
type HealthService struct {
	version   string
	checks    map[string]HealthCheckFunc
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. checks are evaluated on every
// readiness probe.
func NewHealthService(version string, checks map[string]HealthCheckFunc, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if checks == nil {
		checks = map[string]HealthCheckFunc{}
	}
	return &HealthService{
		version:   version,
		checks:    checks,
		startTime: time.Now(),
		logger:    logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck runs every registered check.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  make(map[string]ServiceHealth, len(hs.checks)),
	}

	names := make([]string, 0, len(hs.checks))
	for name := range hs.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := hs.checks[name](ctx); err != nil {
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("error", err.Error()))
			status.Services[name] = ServiceHealth{Status: "not_ready", Message: err.Error()}
			status.Status = "not_ready"
			continue
		}
		status.Services[name] = ServiceHealth{Status: "ready"}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":     hs.version,
		"api_version": contracts.APIVersion,
		"git_commit":  info.GitCommit,
		"build_time":  info.BuildTime,
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"uptime":      time.Since(hs.startTime).Seconds(),
		"start_time":  hs.startTime.Format(time.RFC3339),
	}
}
