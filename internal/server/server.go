package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/inferloop/qualitygate/internal/export"
	"github.com/inferloop/qualitygate/internal/observability/health"
	"github.com/inferloop/qualitygate/internal/observability/metrics"
	"github.com/inferloop/qualitygate/internal/quality"
	"github.com/inferloop/qualitygate/pkg/constants"
	"github.com/inferloop/qualitygate/pkg/models"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	logger     *logrus.Logger
	config     *Config
	handlers   *Handlers
	metrics    *metrics.PrometheusMetrics
}

// NewServer creates a new HTTP server instance. metrics may be nil, in which
// case /metrics is not served and nothing is recorded.
func NewServer(config *Config, engine *quality.Engine, pm *metrics.PrometheusMetrics, logger *logrus.Logger) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	if engine == nil {
		return nil, fmt.Errorf("quality engine is required")
	}

	monitor := health.NewHealthMonitor(constants.DefaultHealthCheckTimeout, nil, logger)
	registerHealthChecks(monitor, engine, pm)

	server := &Server{
		router:   mux.NewRouter(),
		logger:   logger,
		config:   config,
		handlers: NewHandlers(engine, export.NewExportEngine(logger), pm, monitor, config, logger),
		metrics:  pm,
	}

	server.setupRoutes()
	server.setupMiddleware()

	server.httpServer = &http.Server{
		Addr:         config.GetAddress(),
		Handler:      server.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server, nil
}

// Start serves until the server is stopped. It returns nil after a graceful Stop.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Starting HTTP server")

	var err error
	if s.config.TLSCertFile != "" && s.config.TLSKeyFile != "" {
		s.logger.Info("Starting HTTPS server")
		err = s.httpServer.ListenAndServeTLS(s.config.TLSCertFile, s.config.TLSKeyFile)
	} else {
		err = s.httpServer.ListenAndServe()
	}

	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.WithError(err).Error("Error shutting down HTTP server")
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// setupRoutes sets up the HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handlers.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/version", s.handlers.Version).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	// API routes live on the root router: a subrouter answers 404 rather than
	// 405 for a known path with the wrong method
	s.router.HandleFunc(constants.APIPrefix+"/assess", s.handlers.Assess).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc(constants.APIPrefix+"/profile", s.handlers.Profile).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc(constants.APIPrefix+"/config", s.handlers.Config).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(s.handlers.NotFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(s.handlers.MethodNotAllowed)
}

// setupMiddleware sets up HTTP middleware
func (s *Server) setupMiddleware() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	if s.config.EnableCORS {
		s.router.Use(s.corsMiddleware)
	}

	s.router.Use(s.requestSizeLimitMiddleware)
	s.router.Use(s.securityHeadersMiddleware)
}

// GetRouter returns the HTTP router
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// GetConfig returns the server configuration
func (s *Server) GetConfig() *Config {
	return s.config
}

// canary is the dataset the engine health check profiles
var canary = models.NewDataset("health-check",
	models.Column{Name: "value", Values: models.Values(1, 2, 3)},
)

func registerHealthChecks(monitor *health.HealthMonitor, engine *quality.Engine, pm *metrics.PrometheusMetrics) {
	monitor.RegisterCheck("engine", true, func(ctx context.Context) error {
		_, _, err := engine.Profile(ctx, canary)
		return err
	})

	if pm != nil {
		monitor.RegisterCheck("metrics", false, func(ctx context.Context) error {
			_, err := pm.GetRegistry().Gather()
			return err
		})
	}
}
