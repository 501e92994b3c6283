// internal/api/auth/adapter.go
package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/security"
)

// SecurityAdapter implements Service on top of the security package's
// session manager.
type SecurityAdapter struct {
	Sessions *security.SessionManager
}

// NewSecurityAdapter wraps a session manager in the Service interface.
func NewSecurityAdapter(sessions *security.SessionManager) *SecurityAdapter {
	return &SecurityAdapter{Sessions: sessions}
}

// CheckAccess validates the session cookie on the request.
func (a *SecurityAdapter) CheckAccess(c echo.Context) error {
	if a.Sessions.IsUserAuthenticated(c) {
		return nil
	}
	return security.ErrSessionNotFound
}

// IsAuthRequired reports whether authentication is enabled in settings.
func (a *SecurityAdapter) IsAuthRequired(c echo.Context) bool {
	return a.Sessions.IsAuthenticationEnabled()
}

// GetUsername returns the session's username.
func (a *SecurityAdapter) GetUsername(c echo.Context) string {
	return a.Sessions.GetUsername(c)
}

// AuthenticateBasic verifies credentials against the configured ones.
func (a *SecurityAdapter) AuthenticateBasic(c echo.Context, username, password string) error {
	return a.Sessions.AuthenticateBasic(c, username, password)
}

// EstablishSession creates a fresh session for the user.
func (a *SecurityAdapter) EstablishSession(c echo.Context, username string) error {
	return a.Sessions.EstablishSession(c, username)
}

// Logout destroys the current session.
func (a *SecurityAdapter) Logout(c echo.Context) error {
	return a.Sessions.Logout(c)
}
