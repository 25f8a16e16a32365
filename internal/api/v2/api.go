// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"log"
	"net/http"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/api/auth"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/conf"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/consensus"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/datastore"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/logging"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/observability"
)

// proposalCacheTTL bounds how stale a cached proposal listing may get.
// Write paths invalidate eagerly; the TTL only covers missed invalidations.
const (
	proposalCacheTTL     = 30 * time.Second
	proposalCacheCleanup = 5 * time.Minute
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Engine   *consensus.Engine
	Settings *conf.Settings

	logger         *log.Logger
	apiLogger      *slog.Logger   // Structured logger for API operations
	apiLevelVar    *slog.LevelVar // Dynamic level control
	apiLoggerClose func() error   // Function to close the log file

	proposalCache *cache.Cache           // Cache for proposal listings, keyed by redaction id
	metrics       *observability.Metrics // Shared metrics instance
	startTime     time.Time

	// Auth related fields (injected from server via functional options)
	authService    auth.Service        // Authentication service
	authMiddleware echo.MiddlewareFunc // Authentication middleware function
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthMiddleware sets the authentication middleware for the controller.
func WithAuthMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Controller) {
		c.authMiddleware = mw
	}
}

// WithAuthService sets the authentication service for the controller.
func WithAuthService(svc auth.Service) Option {
	return func(c *Controller) {
		c.authService = svc
	}
}

// New creates a new API controller, returning an error if initialization fails.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	engine *consensus.Engine, logger *log.Logger,
	metrics *observability.Metrics, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, ds, settings, engine, logger, metrics, true, opts...)
}

// NewWithOptions creates a new API controller with optional route initialization.
// Set initializeRoutes to false for testing against handlers directly.
func NewWithOptions(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	engine *consensus.Engine, logger *log.Logger,
	metrics *observability.Metrics, initializeRoutes bool, opts ...Option) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		Echo:          e,
		DS:            ds,
		Engine:        engine,
		Settings:      settings,
		logger:        logger,
		proposalCache: cache.New(proposalCacheTTL, proposalCacheCleanup),
		metrics:       metrics,
		startTime:     time.Now(),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.initLogger()

	c.Group = e.Group("/api/v2")
	if c.metrics != nil && c.metrics.HTTP != nil {
		c.Group.Use(c.metricsMiddleware())
	}
	if c.authMiddleware != nil {
		c.Group.Use(c.authMiddleware)
	}

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// initLogger sets up the structured logger for API request handling.
// Falls back to the service logger when the dedicated file cannot be opened.
func (c *Controller) initLogger() {
	c.apiLevelVar = new(slog.LevelVar)
	if c.Settings != nil && (c.Settings.WebServer.Debug || c.Settings.Debug) {
		c.apiLevelVar.Set(slog.LevelDebug)
	}

	logger, closer, err := logging.NewFileLogger("logs/api.log", "api", c.apiLevelVar)
	if err != nil {
		c.logger.Printf("Warning: failed to initialize API log file: %v", err)
		c.apiLogger = logging.ForService("api")
		c.apiLoggerClose = func() error { return nil }
		return
	}

	c.apiLogger = logger
	c.apiLoggerClose = closer
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"redaction routes", c.initRedactionRoutes},
		{"proposal routes", c.initProposalRoutes},
		{"vote routes", c.initVoteRoutes},
		{"cascade routes", c.initCascadeRoutes},
		{"admin routes", c.initAdminRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("Initializing %s...", initializer.name)
		initializer.fn()
	}
}

// metricsMiddleware records per-route request counts and latencies.
// The route template is used as the path label to keep cardinality bounded.
func (c *Controller) metricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			c.metrics.HTTP.RecordRequest(
				ctx.Request().Method,
				ctx.Path(),
				ctx.Response().Status,
				time.Since(start).Seconds(),
			)
			return err
		}
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if c.Settings != nil {
		response["version"] = c.Settings.Version
		response["build_date"] = c.Settings.BuildDate
	}

	dbStatus := "connected"
	if _, err := c.DS.GetRedaction(1); err != nil && errors.IsCategory(err, errors.CategoryDatabase) {
		dbStatus = "disconnected"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// Error response structure
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a unique identifier for error tracking using
// cryptographic randomness
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)
	ip := ctx.RealIP()

	c.logger.Printf("API Error [%s] from %s: %s: %v",
		errorResp.CorrelationID, ip, message, err)

	if c.apiLogger != nil {
		errorStr := message
		if err != nil {
			errorStr = err.Error()
		}

		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ip,
		)
	}

	return ctx.JSON(code, errorResp)
}

// HandleEngineError maps a consensus or datastore error to its HTTP status
// by error category and writes the response. Validation failures surface the
// violated constraint verbatim so researchers can correct their submission.
func (c *Controller) HandleEngineError(ctx echo.Context, err error, message string) error {
	return c.HandleError(ctx, err, message, statusForError(err))
}

// statusForError translates the error taxonomy into HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.IsCategory(err, errors.CategoryValidation),
		errors.IsCategory(err, errors.CategoryEvidence):
		return http.StatusBadRequest
	case errors.IsCategory(err, errors.CategoryNotFound):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryForbidden):
		return http.StatusForbidden
	case errors.IsCategory(err, errors.CategoryConflict),
		errors.IsCategory(err, errors.CategoryConsensus),
		errors.IsCategory(err, errors.CategoryState):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// requireActor resolves the authenticated user for a request into a
// consensus actor. Routes behind the auth middleware always carry a user;
// a missing one indicates a route registered outside the protected group.
func (c *Controller) requireActor(ctx echo.Context) (consensus.Actor, error) {
	user, ok := auth.CurrentUser(ctx)
	if !ok {
		return consensus.Actor{}, errors.NewStd("no authenticated user attached to request")
	}
	return consensus.Actor{ID: user.ID, Admin: user.Admin}, nil
}

// invalidateProposalCache drops the cached listings for a redaction after a
// write. Cascade writes may touch redactions beyond the request target, so
// callers pass every affected id.
func (c *Controller) invalidateProposalCache(redactionIDs ...uint) {
	for _, id := range redactionIDs {
		c.proposalCache.Delete(proposalCacheKey(id))
	}
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings != nil && c.Settings.WebServer.Debug {
		c.logger.Printf(format, v...)
	}
}

// Shutdown releases controller resources. Safe to call more than once.
func (c *Controller) Shutdown() {
	c.proposalCache.Flush()
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
		c.apiLoggerClose = nil
	}
}
