package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bikepulse/internal/analysis"
	"bikepulse/internal/config"
	"bikepulse/internal/dataset"
	apierrors "bikepulse/internal/errors"
	"bikepulse/internal/infrastructure"
	customMiddleware "bikepulse/internal/middleware"
	"bikepulse/internal/services"
	handlers "bikepulse/internal/transport/http"
	ws "bikepulse/internal/websocket"
)

var (
	// Version is overridden at build time with -ldflags.
	Version = config.AppVersion
	// BuildTime is set at compile time
	BuildTime = ""
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Store            *dataset.Store
	Watcher          *dataset.Watcher
	WebSocketHub     *ws.Hub
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	Metrics          *infrastructure.DashboardMetrics
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders

	// OpenBrowser opens the dashboard once the server answers.
	OpenBrowser bool

	cancel     context.CancelFunc
	background sync.WaitGroup
}

// NewApplication loads the configuration and logger and builds the
// application.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to load configuration", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return New(cfg, logger)
}

// New wires every component from cfg without starting anything.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", Version))

	paths, err := cfg.Paths.Resolve()
	if err != nil {
		return nil, apierrors.NewConfigError("failed to resolve paths", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, apierrors.NewStorageError("failed to ensure directories", err).
			WithContext("exports_dir", paths.ExportsDir)
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.NewDashboardMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize dashboard metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}
	app.createServer()
	return app, nil
}

// newSource picks the dataset source from the data config.
func newSource(cfg config.DataConfig, paths *config.Paths) dataset.Source {
	if cfg.Source == config.SourceFile {
		return dataset.NewFileSource(paths.DataDir)
	}
	return dataset.NewHTTPSource(cfg.BaseURL, cfg.FetchTimeout)
}

func thresholds(c config.ClustersConfig) analysis.Thresholds {
	return analysis.Thresholds{
		Low:    analysis.UserPair{Casual: c.LowCasual, Registered: c.LowRegistered},
		Medium: analysis.UserPair{Casual: c.MediumCasual, Registered: c.MediumRegistered},
	}
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	src := newSource(a.Config.Data, a.Paths)
	a.Store = dataset.NewStore(src, a.Logger, dataset.WithLoadRecorder(a.Metrics))

	a.WebSocketHub = ws.NewHub(a.Logger, a.Metrics)

	// Every successful or failed reload reaches open dashboards, whatever
	// triggered it.
	a.Store.OnReload(func(ds *dataset.Dataset) {
		a.WebSocketHub.Broadcast(infrastructure.EnsureTraceID(context.Background()), ws.TypeDatasetReloaded, map[string]interface{}{
			"source":    ds.Source,
			"days":      len(ds.Days),
			"hours":     len(ds.Hours),
			"loaded_at": ds.LoadedAt,
		})
	})
	a.Store.OnReloadFailure(func(err error) {
		a.WebSocketHub.Broadcast(infrastructure.EnsureTraceID(context.Background()), ws.TypeDatasetError, map[string]string{
			"error": err.Error(),
		})
	})

	if a.Config.Data.Source == config.SourceFile && a.Config.Data.Watch {
		w, err := dataset.NewWatcher(a.Store, a.Paths.DataDir, a.Config.Data.WatchDebounce, a.Logger)
		if err != nil {
			// The dashboard still works without live file updates.
			infrastructure.WithError(a.Logger, err).Warn("dataset watcher disabled",
				slog.String("dir", a.Paths.DataDir))
		} else {
			a.Watcher = w
		}
	}

	a.DashboardService = services.NewDashboardService(a.Store, thresholds(a.Config.Clusters), a.Metrics, a.Logger)
	a.HealthService = services.NewHealthService(Version, BuildTime, a.Store, a.WebSocketHub, a.Logger)
	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)

	// Minimal middleware that won't interfere with WebSocket
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	// WebSocket route outside the timeout and header middleware
	wsHandler := ws.NewHandler(a.WebSocketHub, a.Config.WebSocket,
		a.Config.Security.AllowedOrigins, a.Config.Logging.Development, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.OTelProviders.Tracer, a.Logger)).
		Handle(config.WebSocketEndpoint, wsHandler)

	// Prometheus metrics outside the middleware group for performance
	r.Mount(config.MetricsEndpoint, handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.WebSocketHub).Routes())

	validator := customMiddleware.NewQueryValidator(a.Logger)
	page, err := handlers.NewDashboardHandler(a.DashboardService, validator, a.Logger)
	if err != nil {
		return err
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit → Timeout
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(errorHandler))

		secure := customMiddleware.DefaultSecureHeaders()
		secure.DevMode = a.Config.Logging.Development
		r.Use(secure.Handler)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}
		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Handle("/", page)
		a.setupAPIRoutes(r, validator, errorHandler)
	})

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, validator handlers.QueryValidator, errorHandler *apierrors.ErrorHandler) {
	svc := a.DashboardService

	healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
	r.Mount(config.HealthEndpoint, healthHandler.Routes())
	r.Get(config.APIBasePath+"/version", healthHandler.Version)

	r.Mount(config.DataEndpoint, handlers.NewDataHandler(svc, validator, a.Logger, errorHandler).Routes())
	r.Mount(config.ChartsEndpoint, handlers.NewChartHandler(svc, validator, a.Logger, errorHandler).Routes())
	r.Mount(config.ExportEndpoint, handlers.NewExportHandler(svc, validator, a.Logger, errorHandler).Routes())

	r.Route(config.DatasetEndpoint, func(r chi.Router) {
		r.Use(customMiddleware.AuditLog(a.Logger))
		r.Mount("/", handlers.NewDatasetHandler(svc, a.Logger, errorHandler).Routes())
	})
}

// getCORSConfig allows the configured origins plus the server's own address.
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := append([]string{}, a.Config.Security.AllowedOrigins...)
	self := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	if !containsFold(origins, self) {
		origins = append(origins, self)
	}

	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
		Logger:         a.Logger,
	}
	a.Logger.Debug("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start loads the dataset, starts the background workers and begins serving.
// A failed initial load is not fatal: the dashboard reports the missing
// dataset until a reload succeeds.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", Version),
		slog.String("address", a.Server.Addr),
		slog.String("data_source", a.Config.Data.Source),
		slog.String("data_dir", a.Paths.DataDir))

	bgCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	// The hub must run before the first reload broadcasts.
	a.WebSocketHub.Start()

	if _, err := a.Store.Reload(ctx); err != nil {
		infrastructure.WithError(a.Logger, err).WarnContext(ctx, "initial dataset load failed")
	}

	if interval := a.Config.Data.RefreshInterval; interval > 0 {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.Store.RefreshEvery(bgCtx, interval)
		}()
	}
	if a.Watcher != nil {
		a.Watcher.Start(bgCtx)
	}

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.Server.Addr = ln.Addr().String()

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			infrastructure.WithError(a.Logger, err).ErrorContext(bgCtx, "Server error")
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", "http://"+a.Server.Addr))

	if a.OpenBrowser {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.openWhenReady(bgCtx)
		}()
	}
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if a.cancel != nil {
		a.cancel()
	}
	if a.Watcher != nil {
		if err := a.Watcher.Close(); err != nil {
			infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error closing dataset watcher")
		}
	}
	a.WebSocketHub.Stop()
	a.background.Wait()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			infrastructure.WithError(a.Logger, err).ErrorContext(ctx, "Error shutting down OpenTelemetry")
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.Logger.Info("Received interrupt signal")

	// ctx is already cancelled; shutdown gets a fresh deadline.
	return a.Stop(context.Background())
}

// openWhenReady polls the liveness endpoint and then opens the dashboard.
func (a *Application) openWhenReady(ctx context.Context) {
	url := "http://" + a.Server.Addr
	client := &http.Client{Timeout: time.Second}

	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := client.Get(url + config.HealthEndpoint + "/live")
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			if err := openBrowser(ctx, url); err != nil {
				infrastructure.WithError(a.Logger, err).WarnContext(ctx, "Failed to open browser",
					slog.String("url", url))
			}
			return
		}
	}
	a.Logger.WarnContext(ctx, "Server did not become ready for browser opening", slog.String("url", url))
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
