// Package serve implements the serve command, which runs the web server.
package serve

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/datastore"
	"github.com/mkarjala/species-atlas/internal/httpcontroller"
	"github.com/mkarjala/species-atlas/internal/observability"
	"github.com/mkarjala/species-atlas/internal/security"
)

// Command returns the serve subcommand.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the species atlas web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(settings)
		},
	}
	return cmd
}

func runServer(settings *conf.Settings) error {
	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			log.Printf("Error closing datastore: %v", err)
		}
	}()

	sessionManager := security.NewSessionManager(settings)
	metrics := observability.NewMetrics()

	server, err := httpcontroller.New(settings, ds, sessionManager, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize web server: %w", err)
	}

	server.Start()

	// Block until an interrupt or termination signal arrives, then shut down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, shutting down", sig)

	if err := server.Shutdown(); err != nil {
		return fmt.Errorf("error during shutdown: %w", err)
	}
	return nil
}
