// Package security implements session-based authentication for the web UI and
// JSON API: a gorilla/sessions cookie store, password login with constant-time
// credential comparison, and per-client login rate limiting.
package security

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"

	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/errors"
	"github.com/mkarjala/species-atlas/internal/logging"
)

const sessionName = "species-atlas-session"

// Session value keys.
const (
	sessionKeyUsername  = "username"
	sessionKeyIssuedAt  = "issued_at"
	sessionKeyAuthented = "authenticated"
)

// Sentinel errors for authentication failures.
var (
	ErrInvalidCredentials = errors.NewStd("invalid credentials")
	ErrRateLimited        = errors.NewStd("too many login attempts")
	ErrSessionNotFound    = errors.NewStd("session not found or expired")
)

// SessionManager owns the cookie store and the login flow.
type SessionManager struct {
	Settings *conf.Settings
	store    *sessions.CookieStore
	limiter  *loginLimiter
	logger   *slog.Logger
}

// NewSessionManager creates a session manager from settings. The cookie store
// is keyed with the configured session secret.
func NewSessionManager(settings *conf.Settings) *SessionManager {
	store := sessions.NewCookieStore([]byte(settings.Security.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(settings.Security.SessionDuration.Seconds()),
		Secure:   settings.Security.AutoTLS,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionManager{
		Settings: settings,
		store:    store,
		limiter:  newLoginLimiter(),
		logger:   logging.ForService("security"),
	}
}

// IsAuthenticationEnabled reports whether login is required at all.
func (sm *SessionManager) IsAuthenticationEnabled() bool {
	return sm.Settings.Security.BasicAuth.Enabled
}

// AuthenticateBasic verifies the supplied credentials against the configured
// ones. Both comparisons always run and are combined with bitwise AND so that
// a matching username alone does not change response timing.
func (sm *SessionManager) AuthenticateBasic(c echo.Context, username, password string) error {
	ip := c.RealIP()
	if !sm.limiter.allow(ip) {
		sm.logger.Warn("Login attempt rate limited", "ip", ip)
		return ErrRateLimited
	}

	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(sm.Settings.Security.BasicAuth.Username))
	passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(sm.Settings.Security.BasicAuth.Password))
	if (userMatch & passMatch) != 1 {
		sm.logger.Warn("Failed login attempt", "username", username, "ip", ip)
		return ErrInvalidCredentials
	}

	sm.limiter.reset(ip)
	return nil
}

// EstablishSession creates a fresh authenticated session for the user.
// The previous session contents are discarded first to mitigate fixation.
func (sm *SessionManager) EstablishSession(c echo.Context, username string) error {
	session, _ := sm.store.Get(c.Request(), sessionName)
	session.Values = map[any]any{
		sessionKeyAuthented: true,
		sessionKeyUsername:  username,
		sessionKeyIssuedAt:  time.Now().Unix(),
	}
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return errors.New(err).
			Category(errors.CategoryAuth).
			Component("security").
			Build()
	}
	sm.logger.Info("Session established", "username", username, "ip", c.RealIP())
	return nil
}

// IsUserAuthenticated reports whether the request carries a valid, unexpired
// session.
func (sm *SessionManager) IsUserAuthenticated(c echo.Context) bool {
	if !sm.IsAuthenticationEnabled() {
		return true
	}

	session, err := sm.store.Get(c.Request(), sessionName)
	if err != nil {
		// A cookie signed with a previous secret is simply not a session.
		return false
	}

	authenticated, _ := session.Values[sessionKeyAuthented].(bool)
	if !authenticated {
		return false
	}

	issuedAt, ok := session.Values[sessionKeyIssuedAt].(int64)
	if !ok {
		return false
	}
	expiry := time.Unix(issuedAt, 0).Add(sm.Settings.Security.SessionDuration)
	return time.Now().Before(expiry)
}

// GetUsername returns the authenticated username, or an empty string.
func (sm *SessionManager) GetUsername(c echo.Context) string {
	session, err := sm.store.Get(c.Request(), sessionName)
	if err != nil {
		return ""
	}
	username, _ := session.Values[sessionKeyUsername].(string)
	return username
}

// Logout destroys the current session.
func (sm *SessionManager) Logout(c echo.Context) error {
	session, err := sm.store.Get(c.Request(), sessionName)
	if err != nil {
		// Nothing to destroy; the logout intent is met.
		return nil
	}
	session.Values = map[any]any{}
	session.Options.MaxAge = -1
	if err := session.Save(c.Request(), c.Response()); err != nil {
		return errors.New(err).
			Category(errors.CategoryAuth).
			Component("security").
			Build()
	}
	sm.logger.Info("User logged out", "ip", c.RealIP())
	return nil
}
