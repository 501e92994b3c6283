package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mkarjala/species-atlas/cmd"
	"github.com/mkarjala/species-atlas/internal/conf"
	"github.com/mkarjala/species-atlas/internal/logging"
)

// version and buildDate are populated at link time via -ldflags.
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	settings.Version = version
	settings.BuildDate = buildDate

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)
	logging.SetRotation(settings.Main.Log.MaxSize, settings.Main.Log.MaxBackups, settings.Main.Log.MaxAge)

	rootCmd := cmd.RootCommand(settings)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
