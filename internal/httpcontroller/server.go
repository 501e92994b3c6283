// internal/httpcontroller/server.go
package httpcontroller

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/crypto/acme/autocert"

	"github.com/mkarjala/species-atlas/internal/api/auth"
	api "github.com/mkarjala/species-atlas/internal/api/v2"
	"github.com/mkarjala/species-atlas/internal/chart"
	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
	"github.com/mkarjala/species-atlas/internal/logging"
	"github.com/mkarjala/species-atlas/internal/observability"
	"github.com/mkarjala/species-atlas/internal/security"
)

// Server encapsulates the Echo server and related configuration.
type Server struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings

	AuthService    auth.Service
	AuthMiddleware echo.MiddlewareFunc
	ChartLoader    *chart.Loader
	Metrics        *observability.Metrics
	APIV2          *api.Controller

	// Page routes keyed by path
	pageRoutes map[string]PageRouteConfig

	webLogger      *slog.Logger // Structured logger for web operations
	webLoggerClose func() error // Function to close the log file
}

// New initializes a new HTTP server with the given settings and datastore.
func New(settings *conf.Settings, dataStore datastore.Interface, sessionManager *security.SessionManager, metrics *observability.Metrics) (*Server, error) {
	configureDefaultSettings(settings)

	s := &Server{
		Echo:        echo.New(),
		DS:          dataStore,
		Settings:    settings,
		Metrics:     metrics,
		ChartLoader: chart.NewLoader(settings.Chart.Source, time.Duration(settings.Chart.FetchTimeout)*time.Second),
	}

	// Configure an IP extractor
	s.Echo.IPExtractor = echo.ExtractIPFromXFFHeader()

	// Wire session-backed authentication into the middleware chain
	s.AuthService = auth.NewSecurityAdapter(sessionManager)
	s.AuthMiddleware = auth.NewMiddleware(s.AuthService).Authenticate

	if err := s.initializeServer(); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins listening and serving HTTP requests.
func (s *Server) Start() {
	errChan := make(chan error)

	go func() {
		var err error

		if s.Settings.Security.AutoTLS {
			s.Echo.AutoTLSManager.Prompt = autocert.AcceptTOS
			s.Echo.AutoTLSManager.Cache = autocert.DirCache("certs")
			s.Echo.AutoTLSManager.HostPolicy = autocert.HostWhitelist(s.Settings.Security.Host)

			err = s.Echo.StartAutoTLS(":" + s.Settings.WebServer.Port)
		} else {
			err = s.Echo.Start(":" + s.Settings.WebServer.Port)
		}

		if err != nil {
			errChan <- err
		}
	}()

	go handleServerError(errChan)

	fmt.Printf("HTTP server started on port %s (AutoTLS: %v)\n", s.Settings.WebServer.Port, s.Settings.Security.AutoTLS)
}

// initializeServer configures and initializes the server.
func (s *Server) initializeServer() error {
	s.Echo.HideBanner = true
	s.initLogger()
	s.configureMiddleware()
	if err := s.initRoutes(); err != nil {
		return err
	}

	// Initialize the JSON API v2
	s.Debug("Initializing JSON API v2")
	apiController, err := api.New(
		s.Echo,
		s.DS,
		s.Settings,
		s.ChartLoader,
		log.Default(),
		s.Metrics,
		api.WithAuthService(s.AuthService),
		api.WithAuthMiddleware(s.AuthMiddleware),
	)
	if err != nil {
		return err
	}
	s.APIV2 = apiController

	return nil
}

// configureMiddleware sets up the middleware chain shared by all routes.
func (s *Server) configureMiddleware() {
	s.Echo.Use(middleware.Recover())
	s.Echo.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 6,
		Skipper: func(c echo.Context) bool {
			// SVG compresses well but metrics scrapes should stay cheap
			return c.Path() == "/metrics"
		},
	}))
	s.Echo.Use(s.LoggingMiddleware())
	if s.Metrics != nil {
		s.Echo.Use(s.Metrics.Middleware())
	}
}

// configureDefaultSettings sets default values for server settings.
func configureDefaultSettings(settings *conf.Settings) {
	if settings.WebServer.Port == "" {
		settings.WebServer.Port = "8080"
	}
}

// handleServerError listens for server errors and handles them.
func handleServerError(errChan chan error) {
	for err := range errChan {
		log.Printf("Server error: %v", err)
	}
}

// initLogger initializes the structured web request logger.
func (s *Server) initLogger() {
	if !s.Settings.WebServer.Log.Enabled {
		return
	}

	webLogPath := "logs/web.log"
	webLogger, closeFunc, err := logging.NewFileLogger(webLogPath, "web", slog.LevelInfo)
	if err != nil {
		log.Printf("Warning: Failed to initialize web structured logger: %v", err)
		// Continue without structured logging rather than failing completely
		return
	}
	s.webLogger = webLogger
	s.webLoggerClose = closeFunc
	log.Printf("Web structured logging initialized to %s", webLogPath)

	// Discard Echo's default log output, rely on middleware
	s.Echo.Logger.SetOutput(io.Discard)
	s.Echo.Logger.SetLevel(99)
}

// Debug logs debug messages if debug mode is enabled
func (s *Server) Debug(format string, v ...any) {
	if s.Settings.WebServer.Debug {
		switch len(v) {
		case 0:
			log.Print(format)
		default:
			log.Printf(format, v...)
		}

		if s.webLogger != nil {
			var msg string
			switch len(v) {
			case 0:
				msg = format
			default:
				msg = fmt.Sprintf(format, v...)
			}
			s.webLogger.Debug(msg)
		}
	}
}

// Shutdown performs cleanup operations and gracefully stops the server
func (s *Server) Shutdown() error {
	if s.APIV2 != nil {
		s.APIV2.Shutdown()
	}

	if s.webLoggerClose != nil {
		if err := s.webLoggerClose(); err != nil {
			log.Printf("Error closing web log file: %v", err)
		}
	}

	return s.Echo.Close()
}

// LogError logs an error with structured request information
func (s *Server) LogError(c echo.Context, err error, message string) {
	log.Printf("ERROR: %s: %v", message, err)

	if s.webLogger != nil {
		req := c.Request()
		s.webLogger.Error("Error",
			"message", message,
			"error", err.Error(),
			"path", req.URL.Path,
			"method", req.Method,
			"ip", c.RealIP(),
			"user_agent", req.UserAgent(),
		)
	}
}

// LoggingMiddleware creates a middleware function that logs HTTP requests
// with detailed structured information.
func (s *Server) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if s.webLogger == nil {
				return next(ctx)
			}

			start := time.Now()

			err := next(ctx)

			req := ctx.Request()
			res := ctx.Response()

			attrs := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"query", req.URL.RawQuery,
				"status", res.Status,
				"ip", ctx.RealIP(),
				"user_agent", req.UserAgent(),
				"latency_ms", time.Since(start).Milliseconds(),
				"bytes_out", res.Size,
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				s.webLogger.Error("HTTP Request", attrs...)
			case res.Status >= 400:
				s.webLogger.Warn("HTTP Request", attrs...)
			default:
				s.webLogger.Info("HTTP Request", attrs...)
			}

			return err
		}
	}
}
