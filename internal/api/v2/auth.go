// internal/api/v2/auth.go
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/api/auth"
	"github.com/mkarjala/species-atlas/internal/security"
)

// LoginRequest is the JSON body accepted by the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthStatusResponse describes the current session state.
type AuthStatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	AuthRequired  bool   `json:"auth_required"`
}

// initAuthRoutes registers authentication endpoints
func (c *Controller) initAuthRoutes() {
	group := c.Group.Group("/auth")
	group.POST("/login", c.Login)
	group.POST("/logout", c.Logout)
	group.GET("/status", c.GetAuthStatus)
}

// Login handles POST /api/v2/auth/login. On success a fresh session cookie is
// issued; any previous session values are discarded.
func (c *Controller) Login(ctx echo.Context) error {
	if c.authService == nil {
		return c.HandleError(ctx, nil, "Authentication is not configured", http.StatusInternalServerError)
	}

	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := c.authService.AuthenticateBasic(ctx, req.Username, req.Password); err != nil {
		switch {
		case errors.Is(err, security.ErrRateLimited):
			return c.HandleError(ctx, err, "Too many login attempts, try again later", http.StatusTooManyRequests)
		case errors.Is(err, security.ErrInvalidCredentials):
			return c.HandleError(ctx, err, "Invalid username or password", http.StatusUnauthorized)
		default:
			return c.HandleError(ctx, err, "Login failed", http.StatusInternalServerError)
		}
	}

	if err := c.authService.EstablishSession(ctx, req.Username); err != nil {
		return c.HandleError(ctx, err, "Failed to establish session", http.StatusInternalServerError)
	}

	redirect := security.ValidateRedirect(ctx.QueryParam("redirect"))

	return ctx.JSON(http.StatusOK, map[string]any{
		"success":  true,
		"username": req.Username,
		"redirect": redirect,
	})
}

// Logout handles POST /api/v2/auth/logout
func (c *Controller) Logout(ctx echo.Context) error {
	if c.authService == nil {
		return c.HandleError(ctx, nil, "Authentication is not configured", http.StatusInternalServerError)
	}

	if err := c.authService.Logout(ctx); err != nil {
		return c.HandleError(ctx, err, "Failed to log out", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

// GetAuthStatus handles GET /api/v2/auth/status
func (c *Controller) GetAuthStatus(ctx echo.Context) error {
	if c.authService == nil {
		return ctx.JSON(http.StatusOK, AuthStatusResponse{Authenticated: false, AuthRequired: false})
	}

	required := c.authService.IsAuthRequired(ctx)
	resp := AuthStatusResponse{AuthRequired: required}

	if !required {
		resp.Authenticated = true
		return ctx.JSON(http.StatusOK, resp)
	}

	if err := c.authService.CheckAccess(ctx); err == nil {
		resp.Authenticated = true
		resp.Username = c.authService.GetUsername(ctx)
	}

	// Also honor values already set by the auth middleware on this request
	if v, ok := ctx.Get(auth.CtxKeyIsAuthenticated).(bool); ok && v {
		resp.Authenticated = true
		if u, ok := ctx.Get(auth.CtxKeyUsername).(string); ok && u != "" {
			resp.Username = u
		}
	}

	return ctx.JSON(http.StatusOK, resp)
}
