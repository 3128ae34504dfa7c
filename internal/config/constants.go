package config

import "time"

// Application constants
const (
	AppName = "DeskReport"

	// EnvPrefix namespaces every environment variable, e.g. DESKREPORT_SERVER_PORT.
	EnvPrefix = "DESKREPORT"

	// ConfigFileEnv names an explicit YAML config file.
	ConfigFileEnv = "DESKREPORT_CONFIG"

	// Storage drivers
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	// Report paging
	DefaultPageSize   = 25
	DefaultMaxPage    = 500
	DefaultRecentRuns = 20

	// Network timeouts
	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 5 * time.Minute
	DefaultRunTimeout      = 10 * time.Minute

	// WebSocket
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second

	// Endpoints
	APIBasePath       = "/api"
	HealthEndpoint    = "/api/health"
	MetricsEndpoint   = "/metrics"
	WebSocketEndpoint = "/ws"
)
