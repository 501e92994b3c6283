// internal/api/v2/api.go
package api

import (
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/mkarjala/species-atlas/internal/api/auth"
	"github.com/mkarjala/species-atlas/internal/chart"
	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
	"github.com/mkarjala/species-atlas/internal/logging"
	"github.com/mkarjala/species-atlas/internal/observability"
)

// Cache TTLs for read endpoints. Writes invalidate eagerly, so these only
// bound staleness across processes.
const (
	speciesCacheTTL     = time.Minute
	speciesCacheCleanup = 5 * time.Minute
	speciesListCacheKey = "species:all"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings

	ChartLoader *chart.Loader

	logger         *log.Logger
	apiLogger      *slog.Logger // Structured logger for API operations
	apiLoggerClose func() error // Function to close the log file

	speciesCache *cache.Cache           // Cache for species list queries
	metrics      *observability.Metrics // Shared metrics instance
	startTime    time.Time

	// Auth related fields (injected from server via functional options)
	authService    auth.Service
	authMiddleware echo.MiddlewareFunc
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

// New creates a new API controller and registers all routes.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	chartLoader *chart.Loader, logger *log.Logger,
	metrics *observability.Metrics, opts ...Option) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}

	c := &Controller{
		Echo:         e,
		DS:           ds,
		Settings:     settings,
		ChartLoader:  chartLoader,
		logger:       logger,
		speciesCache: cache.New(speciesCacheTTL, speciesCacheCleanup),
		metrics:      metrics,
		startTime:    time.Now(),
	}

	// Initialize structured logger for API requests
	if settings.WebServer.Log.Enabled {
		apiLogPath := "logs/api.log"
		apiLogger, closeFunc, err := logging.NewFileLogger(apiLogPath, "api", slog.LevelInfo)
		if err != nil {
			logger.Printf("Warning: Failed to initialize API structured logger: %v", err)
		} else {
			c.apiLogger = apiLogger
			c.apiLoggerClose = closeFunc
		}
	}
	if c.apiLogger == nil {
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	}

	// Apply functional options (auth middleware and service injected from server)
	for _, opt := range opts {
		opt(c)
	}
	if c.authMiddleware == nil {
		logger.Println("Warning: Auth middleware not configured")
	}

	// Create v2 API group
	c.Group = e.Group("/api/v2")

	// Configure middlewares
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("1M")) // Limit request body to prevent DoS
	// Request metrics are recorded by the server-level middleware chain.
	c.Group.Use(c.LoggingMiddleware())

	c.initRoutes()

	return c, nil
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	c.initAuthRoutes()
	c.initSpeciesRoutes()
	c.initChartRoutes()
}

// GetAuthMiddleware returns the authentication middleware injected from the
// server, or a pass-through when none was configured.
func (c *Controller) GetAuthMiddleware() echo.MiddlewareFunc {
	if c.authMiddleware == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}
	return c.authMiddleware
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			if c.apiLogger == nil {
				return err
			}

			req := ctx.Request()
			res := ctx.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(ctx.Request().Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"version":   c.Settings.Version,
		"timestamp": time.Now().Format(time.RFC3339),
	}

	// Simple connectivity probe against the datastore
	dbStatus := "connected"
	if _, err := c.DS.GetAllSpecies(ctx.Request().Context()); err != nil {
		dbStatus = "disconnected"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	uptime := time.Since(c.startTime)
	response["uptime"] = uptime.String()
	response["uptime_seconds"] = uptime.Seconds()

	return ctx.JSON(http.StatusOK, response)
}

// Shutdown performs cleanup of resources used by the API controller.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}
	if c.speciesCache != nil {
		c.speciesCache.Flush()
	}
}

// ErrorResponse is the JSON error body returned by all API endpoints.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Message       string            `json:"message"`
	Code          int               `json:"code"`
	CorrelationID string            `json:"correlation_id"` // Unique identifier for tracking this error
	Fields        map[string]string `json:"fields,omitempty"`
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a short unique identifier for error tracking
// using cryptographic randomness.
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
	c.logErrorResponse(ctx, err, errorResp)
	return ctx.JSON(code, errorResp)
}

// HandleValidationError returns a 422 carrying the per-field messages.
func (c *Controller) HandleValidationError(ctx echo.Context, fields datastore.FieldErrors) error {
	errorResp := NewErrorResponse(fields, "Validation failed", http.StatusUnprocessableEntity)
	errorResp.Fields = map[string]string(fields)
	c.logErrorResponse(ctx, fields, errorResp)
	return ctx.JSON(http.StatusUnprocessableEntity, errorResp)
}

func (c *Controller) logErrorResponse(ctx echo.Context, err error, errorResp *ErrorResponse) {
	ip := ctx.RealIP()
	c.logger.Printf("API Error [%s] from %s: %s: %v", errorResp.CorrelationID, ip, errorResp.Message, err)

	if c.apiLogger != nil {
		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", errorResp.Message,
			"error", errorResp.Error,
			"code", errorResp.Code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ip,
		)
	}
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)
		if c.apiLogger != nil {
			c.apiLogger.Debug(msg)
		}
	}
}
