package app

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"salespulse/internal/analytics"
	"salespulse/internal/config"
	"salespulse/internal/dataprocessing"
	apierrors "salespulse/internal/errors"
	"salespulse/internal/infrastructure"
	"salespulse/internal/insights"
	"salespulse/internal/mcp"
	"salespulse/internal/middleware"
	"salespulse/internal/services"
	handlers "salespulse/internal/transport/http"
)

var (
	// BuildTime is set at compile time
	BuildTime = time.Now().UTC().Format(time.RFC3339)
	// BuildID is a unique identifier for this build
	BuildID = generateBuildID()
)

func generateBuildID() string {
	h := sha256.New()
	h.Write([]byte(config.AppVersion))
	h.Write([]byte(time.Now().Format("2006-01-02")))
	return fmt.Sprintf("%x", h.Sum(nil))[:12]
}

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	MCP           *mcp.Server
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	Runtime       *infrastructure.RuntimeCollector

	closers []io.Closer
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Store    *services.DatasetStore
	Engine   *analytics.Engine
	Insights *insights.Client
	Sales    *services.SalesService
	Health   *services.HealthService
}

// NewApplication loads configuration from configPath (or the default search
// list when empty) and the environment, then builds the application.
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := infrastructure.InitializeLogger(cfg.Logging, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	app, err := New(cfg, logger)
	if err != nil {
		closer.Close()
		return nil, err
	}
	app.closers = append(app.closers, closer)
	return app, nil
}

// New builds the application from an already loaded configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("dataset", cfg.Dataset.Path),
		slog.Bool("insights_enabled", cfg.Insights.Enabled()))

	otelCfg := infrastructure.OTelConfigFrom(cfg.Telemetry)
	otelProviders, err := infrastructure.InitializeOTel(otelCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	collector, err := infrastructure.NewRuntimeCollector(otelProviders.Meter, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create runtime collector: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		Runtime:       collector,
	}

	app.Services = BuildServices(cfg, logger, metrics, services.WithRuntimeCollector(collector))
	app.MCP = mcp.NewServer(app.Services.Sales, logger, mcp.WithMetrics(metrics))

	app.setupRouter()
	app.createServer()

	return app, nil
}

// BuildServices wires the dataset store, engine, insight client and the
// sales and health services from cfg. metrics may be nil.
func BuildServices(cfg *config.Config, logger *slog.Logger, metrics *infrastructure.BusinessMetrics, healthOpts ...services.HealthOption) *ServiceContainer {
	var loaderOpts []dataprocessing.LoaderOption
	if cfg.Dataset.Sheet != "" {
		loaderOpts = append(loaderOpts, dataprocessing.WithSheet(cfg.Dataset.Sheet))
	}
	loader := dataprocessing.NewLoader(logger, loaderOpts...)
	store := services.NewDatasetStore(loader, cfg.Dataset.Path, logger, metrics)

	engine := analytics.NewEngine(
		analytics.WithPreviewSize(cfg.Engine.PreviewSize),
		analytics.WithTopN(cfg.Engine.TopN),
	)

	clientOpts := []insights.ClientOption{}
	if metrics != nil {
		clientOpts = append(clientOpts, insights.WithMetrics(metrics))
	}
	client := insights.NewClient(insightsConfig(cfg.Insights), logger, clientOpts...)

	sales := services.NewSalesService(store, engine, logger,
		services.WithGenerator(client),
		services.WithMaxPreview(cfg.Engine.MaxPreview),
		services.WithBusinessMetrics(metrics),
	)

	healthOpts = append([]services.HealthOption{services.WithBuildInfo(BuildTime, BuildID)}, healthOpts...)
	health := services.NewHealthService(config.AppVersion, sales, logger, healthOpts...)

	return &ServiceContainer{
		Store:    store,
		Engine:   engine,
		Insights: client,
		Sales:    sales,
		Health:   health,
	}
}

func insightsConfig(cfg config.InsightsConfig) insights.Config {
	retry := insights.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	return insights.Config{
		APIKey:          cfg.APIKey,
		BaseURL:         cfg.BaseURL,
		Model:           cfg.Model,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Timeout:         cfg.Timeout,
		CacheTTL:        cfg.CacheTTL,
		Retry:           retry,
	}
}

// setupRouter builds the router. Order: RequestID, RealIP, OTel, logger,
// recovery, security headers, CORS, rate limit, timeout.
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	errorHandler := apierrors.NewErrorHandler(a.Logger, false)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewOTelMiddleware(a.OTelProviders, a.Metrics).Handler)
		r.Use(middleware.StructuredLogger(a.Logger))
		r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
		r.Use(middleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(middleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(middleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.Use(middleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		a.setupAPIRoutes(r, errorHandler)
	})

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, errorHandler *apierrors.ErrorHandler) {
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Mount("/api/health", healthHandler.Routes())
	r.Get("/api/version", healthHandler.Version)

	validation := middleware.NewValidationMiddleware(a.Logger, errorHandler, a.Config.Server.MaxBodyBytes)
	salesHandler := handlers.NewSalesHandler(a.Services.Sales, validation, a.Logger, errorHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(a.Logger, a.Config.Security.APIKeys))
		r.Mount("/api/sales", salesHandler.Routes())
		r.Method(http.MethodPost, "/mcp", a.MCP)
	})
}

func (a *Application) getCORSConfig() middleware.CORSConfig {
	return middleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		MaxAge:         300,
		Logger:         a.Logger,
	}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         a.Config.ListenAddr(),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Preload loads the dataset so the first request does not pay for it. A
// failure is logged and left to readiness; requests retry the load.
func (a *Application) Preload(ctx context.Context) {
	ds, err := a.Services.Store.Get(ctx)
	if err != nil {
		a.Logger.WarnContext(ctx, "dataset preload failed",
			slog.String("path", a.Services.Store.Path()),
			slog.String("error", err.Error()))
		return
	}
	a.Logger.InfoContext(ctx, "dataset preloaded",
		slog.String("path", a.Services.Store.Path()),
		slog.Int("rows", ds.Stats.Rows))
}

// Start serves HTTP until ctx is done, then shuts down gracefully.
func (a *Application) Start(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "starting application",
		slog.String("address", a.Server.Addr),
		slog.String("level", a.Config.Logging.Level))

	if a.Config.Dataset.LoadOnStart {
		a.Preload(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Runtime.Start(gctx)
		return nil
	})

	g.Go(func() error {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "application shutdown complete")

	for _, c := range a.closers {
		c.Close()
	}
	return nil
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.Start(ctx)
}
