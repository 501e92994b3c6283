// internal/api/auth/service.go
package auth

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/logging"
)

// GetLogger returns the auth package logger.
func GetLogger() *slog.Logger {
	return logging.ForService("auth")
}

// Context keys for authentication values stored in echo.Context. They are
// prefixed with "auth:" to prevent collisions with other packages.
const (
	// CtxKeyIsAuthenticated indicates whether the request is authenticated.
	CtxKeyIsAuthenticated = "auth:isAuthenticated"
	// CtxKeyUsername contains the authenticated user's username.
	CtxKeyUsername = "auth:username"
)

// Service defines the authentication interface consumed by middleware and
// handlers.
type Service interface {
	// CheckAccess validates if a request has access to protected resources.
	// Returns nil on success, or an error on failure.
	CheckAccess(c echo.Context) error

	// IsAuthRequired checks if authentication is required at all.
	IsAuthRequired(c echo.Context) bool

	// GetUsername retrieves the username of the authenticated user.
	GetUsername(c echo.Context) string

	// AuthenticateBasic verifies username/password credentials.
	AuthenticateBasic(c echo.Context, username, password string) error

	// EstablishSession creates a fresh authenticated session.
	EstablishSession(c echo.Context, username string) error

	// Logout invalidates the current session.
	Logout(c echo.Context) error
}
