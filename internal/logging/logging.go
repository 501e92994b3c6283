// Package logging configures the application's structured loggers. It provides a
// JSON logger for machine consumption, a text logger for humans, and rotated
// per-service file loggers built on lumberjack.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	mu               sync.RWMutex
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Rotation settings applied to every file logger created by NewFileLogger.
// Overridden from configuration at startup via SetRotation.
var rotation = struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}{MaxSizeMB: 100, MaxBackups: 3, MaxAgeDays: 28}

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		level := a.Value.Any().(slog.Level)
		if label, ok := levelNames[level]; ok {
			a.Value = slog.StringValue(label)
		}
	}
	return a
}

// Init initializes the logging system. JSON output goes to stdout and becomes
// the slog default logger.
func Init(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured (JSON) logger.
// Returns nil if Init() has not been called.
func Structured() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return structuredLogger
}

// ForService creates a new logger instance with the 'service' attribute added.
// It uses the global structured logger as the base, falling back to the slog
// default when Init() has not been called.
func ForService(serviceName string) *slog.Logger {
	if l := Structured(); l != nil {
		return l.With("service", serviceName)
	}
	return slog.Default().With("service", serviceName)
}

// SetRotation overrides the rotation settings used by NewFileLogger.
// Zero or negative values keep the current setting.
func SetRotation(maxSizeMB, maxBackups, maxAgeDays int) {
	mu.Lock()
	defer mu.Unlock()
	if maxSizeMB > 0 {
		rotation.MaxSizeMB = maxSizeMB
	}
	if maxBackups > 0 {
		rotation.MaxBackups = maxBackups
	}
	if maxAgeDays > 0 {
		rotation.MaxAgeDays = maxAgeDays
	}
}

// NewFileLogger creates a slog.Logger writing JSON logs to the given file path,
// rotated by lumberjack, with a 'service' attribute on every record. It returns
// the logger, a function to close the underlying writer, and an error if setup
// fails.
func NewFileLogger(filePath, serviceName string, level slog.Leveler) (*slog.Logger, func() error, error) {
	// lumberjack does not create directories
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	mu.RLock()
	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    rotation.MaxSizeMB,
		MaxBackups: rotation.MaxBackups,
		MaxAge:     rotation.MaxAgeDays,
	}
	mu.RUnlock()

	fileHandler := slog.NewJSONHandler(logWriter, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevelNames,
	})

	logger := slog.New(fileHandler).With("service", serviceName)
	return logger, logWriter.Close, nil
}

// NewDiscardLogger returns a logger writing to io.Discard, for callers that
// want a non-nil logger when file logging fails.
func NewDiscardLogger(serviceName string, level slog.Leveler) *slog.Logger {
	handler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("service", serviceName)
}

// Debug logs a debug message using the default slog logger.
func Debug(msg string, args ...any) {
	slog.Debug(msg, args...)
}

// Info logs an info message using the default slog logger.
func Info(msg string, args ...any) {
	slog.Info(msg, args...)
}

// Warn logs a warning message using the default slog logger.
func Warn(msg string, args ...any) {
	slog.Warn(msg, args...)
}

// Error logs an error message using the default slog logger.
func Error(msg string, args ...any) {
	slog.Error(msg, args...)
}

// Fatal logs a fatal message using the custom Fatal level and then exits.
func Fatal(msg string, args ...any) {
	slog.Log(context.TODO(), LevelFatal, msg, args...)
	os.Exit(1)
}
