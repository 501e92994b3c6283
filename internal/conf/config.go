// config.go: settings struct and functions to load and access application settings.
package conf

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// LogConfig contains log rotation settings shared by all file loggers.
type LogConfig struct {
	Enabled    bool // true to enable file logging
	MaxSize    int  // maximum log file size in megabytes before rotation
	MaxBackups int  // number of rotated files to keep
	MaxAge     int  // maximum age of rotated files in days
}

// MainSettings contains application-wide settings.
type MainSettings struct {
	Name string    // name of this node, used in log records
	Log  LogConfig // log rotation settings
}

// WebServerSettings contains settings for the HTTP server.
type WebServerSettings struct {
	Debug bool      // true to enable debug logging and the /metrics endpoint
	Port  string    // port to listen on
	Log   LogConfig // web request log settings
}

// BasicAuthSettings contains credentials for the password login flow.
type BasicAuthSettings struct {
	Enabled  bool   // true to require authentication
	Username string // login username, doubles as the species author identity
	Password string // login password
}

// SecuritySettings contains authentication and TLS settings.
type SecuritySettings struct {
	Host            string            // hostname for AutoTLS certificates
	AutoTLS         bool              // true to enable automatic TLS via Let's Encrypt
	SessionSecret   string            // secret key for session cookie signing
	SessionDuration time.Duration     // how long sessions remain valid
	BasicAuth       BasicAuthSettings // password login settings
}

// SQLiteSettings contains settings for the SQLite database backend.
type SQLiteSettings struct {
	Enabled bool   // true to use SQLite
	Path    string // path to the database file
}

// MySQLSettings contains settings for the MySQL database backend.
type MySQLSettings struct {
	Enabled  bool   // true to use MySQL
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// OutputSettings selects and configures the database backend.
type OutputSettings struct {
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// ChartSettings configures the animal speed chart data source.
type ChartSettings struct {
	Source       string // URL or local file path of the speed CSV
	FetchTimeout int    // HTTP fetch timeout in seconds
}

// Settings is the root configuration structure.
type Settings struct {
	Debug bool // true to enable debug output globally

	Version   string `yaml:"-"` // build version, runtime value
	BuildDate string `yaml:"-"` // build date, runtime value

	Main      MainSettings
	WebServer WebServerSettings
	Security  SecuritySettings
	Output    OutputSettings
	Chart     ChartSettings
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the shared Settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		settingsInstance = &Settings{}
		if err := initViper(); err != nil {
			log.Printf("Error initializing settings: %v", err)
		}
		if err := viper.Unmarshal(settingsInstance); err != nil {
			log.Printf("Error unmarshaling settings: %v", err)
		}
	})
	return settingsInstance
}

// Load reads the configuration, unmarshals it and validates the result.
func Load() (*Settings, error) {
	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// initViper sets defaults, registers config search paths and reads the config
// file. A missing config file is not an error: defaults apply.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("SPECIES_ATLAS")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !isConfigNotFound(err, &notFound) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
	}
	return nil
}

func isConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return false
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml:
// the working directory first, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	configDir, err := os.UserConfigDir()
	if err != nil {
		// Headless systems may have no user config dir; the working
		// directory alone is enough to run.
		return paths, nil
	}
	paths = append(paths, filepath.Join(configDir, "species-atlas"))
	return paths, nil
}
