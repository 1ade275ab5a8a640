package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/weather-dashboard/internal/config"
	"github.com/vzahanych/weather-dashboard/internal/dashboard"
	"github.com/vzahanych/weather-dashboard/internal/server/handlers"
	"github.com/vzahanych/weather-dashboard/internal/server/middlewares"
	"github.com/vzahanych/weather-dashboard/pkg/telemetry"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.ServerConfig
	engine  *gin.Engine
	server  *http.Server
	ctrl    *dashboard.Controller
	metrics *handlers.MetricsHandler
	checks  []handlers.ReadinessCheck
	logger  *zap.Logger
	tele    *telemetry.Telemetry
}

// NewServer builds the HTTP front of ctrl. metrics should be the recorder the
// controller reports to; a fresh one is used when nil.
func NewServer(cfg config.ServerConfig, ctrl *dashboard.Controller, metrics *handlers.MetricsHandler, logger *zap.Logger, tele *telemetry.Telemetry, checks ...handlers.ReadinessCheck) *Server {
	if metrics == nil {
		metrics = handlers.NewMetricsHandler(logger)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.SetHTMLTemplate(dashboardTemplate)

	httpMetrics := middlewares.NewMetricsMiddleware(logger)
	metrics.SetHTTPStats(httpMetrics)

	engine.Use(middlewares.RequestIDMiddleware())
	engine.Use(middlewares.LoggingMiddleware(logger, true, "/health", "/health/live", "/health/ready", "/metrics"))
	engine.Use(middlewares.RecoveryMiddleware(logger, true))
	engine.Use(middlewares.TelemetryMiddleware(logger, tele))
	engine.Use(httpMetrics.Handler())

	s := &Server{
		cfg:     cfg,
		engine:  engine,
		ctrl:    ctrl,
		metrics: metrics,
		checks:  checks,
		logger:  logger,
		tele:    tele,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	dash := handlers.NewDashboardHandler(s.ctrl, s.logger)

	// Business endpoints
	s.engine.GET("/", dash.Page)
	api := s.engine.Group("/api")
	{
		api.GET("/dashboard", dash.Snapshot)
		api.POST("/location", dash.SetLocation)
		api.POST("/search", dash.Search)
		api.POST("/map/pan", dash.Pan)
		api.POST("/map/zoom", dash.Zoom)
	}

	// Health endpoints (Kubernetes friendly)
	health := handlers.NewHealthHandler(s.logger, s.checks...)
	s.engine.GET("/health", health.Health)
	s.engine.GET("/health/live", health.Liveness)
	s.engine.GET("/health/ready", health.Readiness)

	// Monitoring endpoints
	s.engine.GET("/metrics", s.metrics.ServeMetrics)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.IdleTimeout) * time.Second,
	}

	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
