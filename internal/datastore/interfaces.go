// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/errors"
	"github.com/mkarjala/species-atlas/internal/logging"
)

// ErrSpeciesNotFound is returned when a lookup matches no row.
var ErrSpeciesNotFound = errors.NewStd("species not found")

// Interface abstracts the underlying database implementation and defines the
// operations the rest of the application uses.
type Interface interface {
	Open() error
	Close() error

	GetAllSpecies(ctx context.Context) ([]Species, error)
	GetSpecies(ctx context.Context, id uint) (Species, error)
	CreateSpecies(ctx context.Context, species *Species) error
	UpdateSpecies(ctx context.Context, species *Species) error
	SearchSpecies(ctx context.Context, query string, limit, offset int) ([]Species, error)
	CountSpeciesByKingdom(ctx context.Context) ([]KingdomCount, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a datastore instance for the backend enabled in settings.
// ValidateSettings guarantees exactly one backend is enabled.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

// createGormLogger returns a GORM logger that routes slow-query and error
// output through the application's structured logger.
func createGormLogger(debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(
		&slogWriter{logger: logging.ForService("datastore")},
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// slogWriter adapts slog to GORM's Printf-style logger interface.
type slogWriter struct {
	logger *slog.Logger
}

func (w *slogWriter) Printf(format string, args ...any) {
	if w.logger == nil {
		log.Printf(format, args...)
		return
	}
	w.logger.Info("gorm", "detail", fmt.Sprintf(format, args...))
}

// performAutoMigration runs GORM AutoMigrate for every model table.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	if err := db.AutoMigrate(&Species{}); err != nil {
		return errors.New(err).
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Component("datastore").
			Build()
	}
	if debug {
		log.Printf("%s database connection initialized: %s", dbType, connectionInfo)
	}
	return nil
}
