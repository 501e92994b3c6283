// validate.go: validation of loaded settings before the application starts.
package conf

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/mkarjala/species-atlas/internal/errors"
)

// ValidateSettings checks a loaded Settings struct for inconsistencies that
// would prevent the application from running correctly.
func ValidateSettings(settings *Settings) error {
	var errs []error

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		errs = append(errs, err)
	}
	if err := validateSecuritySettings(&settings.Security); err != nil {
		errs = append(errs, err)
	}
	if err := validateOutputSettings(&settings.Output); err != nil {
		errs = append(errs, err)
	}
	if err := validateChartSettings(&settings.Chart); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func validateWebServerSettings(ws *WebServerSettings) error {
	if ws.Port == "" {
		ws.Port = "8080"
		return nil
	}
	port, err := strconv.Atoi(ws.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.Newf("invalid webserver port: %q", ws.Port).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

func validateSecuritySettings(sec *SecuritySettings) error {
	if sec.AutoTLS && sec.Host == "" {
		return errors.Newf("security.host must be set when autotls is enabled").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}

	if sec.BasicAuth.Enabled {
		if sec.BasicAuth.Username == "" || sec.BasicAuth.Password == "" {
			return errors.Newf("security.basicauth requires both username and password").
				Category(errors.CategoryConfiguration).
				Component("conf").
				Build()
		}
	}

	// An unset session secret would make cookies forgeable across restarts
	// in a predictable way, so generate one.
	if sec.SessionSecret == "" {
		sec.SessionSecret = GenerateRandomSecret()
	}

	if sec.SessionDuration <= 0 {
		return errors.Newf("security.sessionduration must be positive, got %v", sec.SessionDuration).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

func validateOutputSettings(out *OutputSettings) error {
	if out.SQLite.Enabled && out.MySQL.Enabled {
		return errors.Newf("only one of output.sqlite and output.mysql may be enabled").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if !out.SQLite.Enabled && !out.MySQL.Enabled {
		return errors.Newf("no database backend enabled").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	if out.SQLite.Enabled && out.SQLite.Path == "" {
		return errors.Newf("output.sqlite.path must not be empty").
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

func validateChartSettings(chart *ChartSettings) error {
	if chart.FetchTimeout <= 0 {
		return errors.Newf("chart.fetchtimeout must be positive, got %d", chart.FetchTimeout).
			Category(errors.CategoryConfiguration).
			Component("conf").
			Build()
	}
	return nil
}

// GenerateRandomSecret returns a URL-safe random secret suitable for session
// cookie signing.
func GenerateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		// This should never happen on a healthy system
		panic(fmt.Sprintf("failed to generate random secret: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
