// internal/api/auth/middleware.go
package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/security"
)

// Middleware provides authentication middleware backed by a Service.
type Middleware struct {
	AuthService Service
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(service Service) *Middleware {
	return &Middleware{AuthService: service}
}

// Authenticate is the main middleware function. It runs before the handler,
// so an unauthenticated request is turned away before any data is fetched.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.AuthService == nil {
			GetLogger().Error("Authentication middleware called with nil AuthService",
				"path", c.Request().URL.Path,
				"ip", c.RealIP())
			return c.JSON(http.StatusInternalServerError, map[string]string{
				"error": "Internal configuration error: authentication service not available",
			})
		}

		// Auth disabled: the request is effectively authenticated.
		if !m.AuthService.IsAuthRequired(c) {
			c.Set(CtxKeyIsAuthenticated, true)
			return next(c)
		}

		if err := m.AuthService.CheckAccess(c); err == nil {
			c.Set(CtxKeyIsAuthenticated, true)
			c.Set(CtxKeyUsername, m.AuthService.GetUsername(c))
			return next(c)
		}

		return m.handleUnauthenticated(c)
	}
}

// handleUnauthenticated determines the appropriate response for
// unauthenticated requests: browsers are redirected to the login page, API
// clients receive 401 JSON.
func (m *Middleware) handleUnauthenticated(c echo.Context) error {
	path := c.Request().URL.Path
	ip := c.RealIP()

	GetLogger().Info("Authentication required but not provided/valid",
		"path", path,
		"ip", ip)

	if isBrowserRequest(c) {
		return c.Redirect(http.StatusFound, buildLoginRedirectURL(c))
	}

	return c.JSON(http.StatusUnauthorized, map[string]string{
		"error": "Authentication required",
	})
}

// isBrowserRequest determines if the request is from a browser or an API
// client.
func isBrowserRequest(c echo.Context) bool {
	return strings.Contains(c.Request().Header.Get("Accept"), "text/html")
}

// buildLoginRedirectURL constructs the login URL with a safe redirect
// parameter pointing back at the originally requested page.
func buildLoginRedirectURL(c echo.Context) string {
	const loginPath = "/login"

	originURL := c.Request().URL
	target := originURL.Path
	if target == "" || strings.HasPrefix(target, loginPath) {
		target = "/"
	}
	if originURL.RawQuery != "" {
		target += "?" + originURL.RawQuery
	}
	target = security.ValidateRedirect(target)

	return loginPath + "?redirect=" + url.QueryEscape(target)
}
