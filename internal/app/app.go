package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/config"
	"github.com/temcen/reelrank/internal/database"
	"github.com/temcen/reelrank/internal/handlers"
	"github.com/temcen/reelrank/internal/middleware"
	"github.com/temcen/reelrank/internal/services"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	registry *prometheus.Registry
	router   *gin.Engine

	cancelWorkers context.CancelFunc
	workers       sync.WaitGroup
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config:   cfg,
		logger:   setupLogger(cfg),
		registry: prometheus.NewRegistry(),
	}

	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize database connections
	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	// Initialize services
	svc, err := services.New(cfg, app.logger, db, app.registry)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svc

	app.handlers = handlers.New(cfg, app.logger, svc)
	app.setupRouter()

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// Start launches the interaction ingestion worker.
func (a *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancelWorkers = cancel

	a.workers.Add(1)
	go func() {
		defer a.workers.Done()
		if err := a.services.Ingestion.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.WithError(err).Error("Interaction ingestion worker exited")
		}
	}()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if a.cancelWorkers != nil {
		a.cancelWorkers()
	}

	done := make(chan struct{})
	go func() {
		a.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		a.logger.Warn("Timed out waiting for background workers")
	}

	var errs []error
	if err := a.services.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing message bus")
		errs = append(errs, err)
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	a.router = newRouter(a.config, a.logger, a.registry, a.handlers, a.services.Auth, a.services.RateLimit)
}

func newRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	registry *prometheus.Registry,
	h *handlers.Handlers,
	tokens middleware.TokenValidator,
	limiter middleware.Limiter,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS(cfg))

	if cfg.Monitoring.Enabled {
		router.Use(middleware.NewHTTPMetrics(registry).Handler())
		router.GET(cfg.Monitoring.MetricsPath, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	// Health check (no auth required)
	router.GET("/health", h.Health.Check)

	api := router.Group("/api/v1")
	{
		if cfg.Auth.Enabled {
			api.Use(middleware.Auth(tokens, logger))
		}
		if cfg.Auth.RateLimit.Enabled {
			api.Use(middleware.RateLimit(limiter, logger))
		}

		api.POST("/interactions", h.Interaction.Record)

		recommendations := api.Group("/recommendations")
		{
			recommendations.GET("/users/:userId", h.Recommendation.ForUser)
			recommendations.GET("/items/:itemId/similar", h.Recommendation.Similar)
			recommendations.GET("/trending", h.Recommendation.Trending)
			recommendations.GET("/popular", h.Recommendation.Popular)
		}
	}

	return router
}
