package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"deskreport/internal/config"
	"deskreport/internal/definition"
	apierrors "deskreport/internal/errors"
	"deskreport/internal/infrastructure"
	customMiddleware "deskreport/internal/middleware"
	"deskreport/internal/runs"
	"deskreport/internal/services"
	"deskreport/internal/sources"
	"deskreport/internal/storage/postgres"
	handlers "deskreport/internal/transport/http"
	ws "deskreport/internal/websocket"
	"deskreport/pkg/contracts"
)

// store is what the orchestrator needs from a storage backend.
type store interface {
	runs.ReportStore
	runs.RunStore
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Catalog       definition.Catalog
	Store         store
	Orchestrator  *runs.Orchestrator
	ReportService *services.ReportService
	HealthService *services.HealthService
	WebSocketHub  *ws.Hub

	Router *chi.Mux
	Server *http.Server

	errorHandler *apierrors.ErrorHandler
	closers      []func()
}

// Option customizes New.
type Option func(*Application)

// WithLogger replaces the logger built from the logging config.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.Logger = logger }
}

// New wires every component from cfg. The returned application owns open
// resources; call Close when it is not run.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Application, error) {
	a := &Application{Config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	if a.Logger == nil {
		logger, err := infrastructure.InitializeLogger(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		a.Logger = logger
		a.closers = append(a.closers, func() { _ = infrastructure.CloseLogFile() })
	}

	a.Logger.InfoContext(ctx, "application starting",
		slog.String("version", contracts.Version),
		slog.String("storage", cfg.Storage.Driver))

	if err := a.initializeTelemetry(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initializeServices(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeTelemetry() error {
	providers, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(a.Config.Telemetry), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	a.OTelProviders = providers
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(ctx); err != nil {
			a.Logger.Error("error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	})

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	if err != nil {
		return err
	}
	a.Metrics = metrics
	return nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices(ctx context.Context) error {
	fixtures := &sources.Fixtures{}
	if path := a.Config.Storage.FixturesFile; path != "" {
		f, err := sources.LoadFixtures(path)
		if err != nil {
			return err
		}
		fixtures = f
		a.Logger.InfoContext(ctx, "fixtures loaded",
			slog.String("path", path),
			slog.Int("reports", len(f.Reports)),
			slog.Int("tickets", len(f.Tickets)))
	}

	repo := sources.NewMemoryRepository()
	repo.Seed(fixtures)
	registry, err := sources.NewRegistry(repo.Collaborators())
	if err != nil {
		return fmt.Errorf("failed to build source registry: %w", err)
	}
	a.Catalog = definition.NewCatalog(registry.Columns())

	checks := map[string]services.HealthCheckFunc{}
	switch a.Config.Storage.Driver {
	case config.StoragePostgres:
		pg, closePool, err := postgres.Open(ctx, postgres.Config{
			DSN:      a.Config.Storage.PostgresDSN,
			MaxConns: a.Config.Storage.MaxConns,
		}, a.Logger)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closePool)
		if a.Config.Storage.EnsureSchema {
			if err := pg.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		checks["storage"] = pg.Ping
		a.Store = pg
	default:
		mem := runs.NewMemoryStore()
		for i := range fixtures.Reports {
			if err := mem.SaveReport(ctx, &fixtures.Reports[i]); err != nil {
				return fmt.Errorf("failed to seed report %s: %w", fixtures.Reports[i].ID, err)
			}
		}
		a.Store = mem
	}

	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, a.Metrics, a.Logger)
	checks["websocket"] = a.WebSocketHub.Healthy

	tracer, err := runs.NewRunTracer(a.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create run tracer: %w", err)
	}

	a.Orchestrator = runs.NewOrchestrator(a.Store, a.Store, runs.NewEngine(registry, a.Logger), a.Logger,
		runs.WithObserver(a.WebSocketHub),
		runs.WithTracer(tracer),
	)

	a.ReportService = services.NewReportService(a.Catalog, a.Orchestrator, runs.NewPager(a.Logger),
		a.Config.Reports, a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(contracts.Version, checks, a.Logger)
	a.errorHandler = apierrors.NewErrorHandler(a.Logger, a.Config.Telemetry.Environment == "development")

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	// Minimal middleware ahead of the websocket route; nothing here buffers
	// the ResponseWriter.
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.StripSlashes)

	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		Handle("/ws", ws.NewHandler(a.WebSocketHub, a.Config.Security.AllowedOrigins, a.errorHandler))

	r.Handle("/metrics", handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.errorHandler))

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer
		otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
		if err != nil {
			a.Logger.Error("failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
		} else {
			r.Use(otelMiddleware.Handler)
		}

		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.errorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(customMiddleware.CORSConfig{
				AllowedOrigins: a.Config.Security.AllowedOrigins,
				Logger:         a.Logger,
			}))
		}

		if rl := a.Config.Security.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger, a.errorHandler).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	validator := customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler, a.Catalog)
	reportHandler := handlers.NewReportHandler(a.ReportService, validator, a.Logger, a.errorHandler).
		WithTimeouts(a.Config.Server.RequestTimeout, a.Config.Reports.RunTimeout)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger, a.errorHandler))
			r.Mount("/health", healthHandler.Routes())
			r.Get("/version", healthHandler.Version)
		})

		r.Mount("/", reportHandler.Routes())
	})
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	// Report runs may hold the response open for the whole run timeout.
	writeTimeout := max(a.Config.Server.WriteTimeout, a.Config.Reports.RunTimeout+time.Second)

	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   writeTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		a.Close()
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server, the websocket hub and the shutdown watcher on
// ln until ctx is cancelled or the server fails, then shuts down within
// Server.ShutdownTimeout. Resources are released before it returns.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	defer a.Close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.WebSocketHub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "server listening", slog.String("address", ln.Addr().String()))
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.Logger.InfoContext(ctx, "shutting down application")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	err := g.Wait()
	a.Logger.InfoContext(ctx, "application shutdown complete")
	return err
}

// Close releases the store pool and telemetry providers. It is idempotent.
func (a *Application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
