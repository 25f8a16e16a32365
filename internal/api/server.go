package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api/auth"
	mw "github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api/middleware"
	v2 "github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api/v2"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/consensus"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/logging"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/observability"
)

// Server is the main HTTP server for the consensus service.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   *log.Logger
	slogger  *slog.Logger
	levelVar *slog.LevelVar

	// Dependencies
	dataStore datastore.Interface
	engine    *consensus.Engine
	metrics   *observability.Metrics

	// API controller
	apiController *v2.Controller

	// Lifecycle management
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startTime time.Time

	// Cleanup
	logCloser func() error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the standard logger for the server.
func WithLogger(logger *log.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithDataStore sets the datastore for the server.
func WithDataStore(ds datastore.Interface) ServerOption {
	return func(s *Server) {
		s.dataStore = ds
	}
}

// WithEngine sets the consensus engine for the server.
func WithEngine(engine *consensus.Engine) ServerOption {
	return func(s *Server) {
		s.engine = engine
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// New creates a new HTTP server with the given settings and options.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:    config,
		settings:  settings,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = log.Default()
	}

	if err := s.initLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.slogger.Info("HTTP server initialized",
		"address", config.Address(),
		"debug", config.Debug,
	)

	return s, nil
}

// initLogger initializes the structured logger for the server.
func (s *Server) initLogger() error {
	s.levelVar = new(slog.LevelVar)
	s.levelVar.Set(s.config.LogLevel)

	logger, closer, err := logging.NewFileLogger(DefaultLogPath, "server", s.levelVar)
	if err != nil {
		// Fallback to discard logger
		s.logger.Printf("Warning: Failed to initialize server logger: %v", err)
		handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: s.levelVar})
		s.slogger = slog.New(handler).With("service", "server")
		s.logCloser = func() error { return nil }
		return nil
	}

	s.slogger = logger
	s.logCloser = closer
	s.logger.Printf("Server logging initialized to %s", DefaultLogPath)
	return nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	// Request logging using custom middleware package
	s.echo.Use(mw.NewRequestLogger(s.slogger))

	securityConfig := mw.SecurityConfig{
		AllowedOrigins:        s.config.AllowedOrigins,
		AllowCredentials:      true,
		HSTSMaxAge:            mw.HSTSMaxAge,
		HSTSExcludeSubdomains: false,
	}

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	// Health check endpoint at root level
	s.echo.GET("/health", s.healthCheck)

	// Prometheus scrape endpoint
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	authService := auth.NewGatewayService(
		s.settings.Security.AdminToken,
		s.settings.Security.RequireAuth,
	)
	authMiddleware := auth.NewMiddleware(authService)

	apiController, err := v2.New(
		s.echo,
		s.dataStore,
		s.settings,
		s.engine,
		s.logger,
		s.metrics,
		v2.WithAuthService(authService),
		v2.WithAuthMiddleware(authMiddleware.Authenticate),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize API v2: %w", err)
	}
	s.apiController = apiController

	s.slogger.Info("Routes initialized", "api_version", "v2")

	return nil
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)

	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.settings.Version,
		"build_date":     s.settings.BuildDate,
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// Start begins serving HTTP requests in a background goroutine.
// Use Shutdown() to stop the server.
func (s *Server) Start() {
	go func() {
		if err := s.startBlocking(); err != nil {
			s.slogger.Error("Server error", "error", err)
		}
	}()

	s.logger.Printf("HTTP server starting on %s", s.config.Address())
}

// startBlocking begins serving HTTP requests and blocks until shutdown.
func (s *Server) startBlocking() error {
	addr := s.config.Address()

	s.slogger.Info("Starting HTTP server", "address", addr)

	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown starts the server and handles graceful shutdown
// on SIGINT/SIGTERM.
func (s *Server) StartWithGracefulShutdown() error {
	s.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.slogger.Info("Shutdown signal received, initiating graceful shutdown...")

	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.slogger.Error("Error during server shutdown", "error", err)
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.wg.Wait()

	if s.logCloser != nil {
		if err := s.logCloser(); err != nil {
			s.logger.Printf("Error closing log file: %v", err)
		}
	}

	s.slogger.Info("Server shutdown complete")
	return nil
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance, useful for testing.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
