// Package logging wraps log/slog with a console handler and a weekly
// rotating JSON file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/giygas/drugcompat/config"
)

type LoggingService struct {
	Logger  *slog.Logger
	rotator *RotatingLogger
}

var (
	DefaultLoggingService *LoggingService
	serviceMu             sync.Mutex
)

// InitLogger sets up the global logger. Console output follows the
// environment and LOG_LEVEL; the file always records debug and up.
func InitLogger(logDir string, env config.Environment, logLevel string, retentionWeeks int, maxFileSize int64) {
	initLogger(logDir, GetConsoleLogLevel(env, logLevel, false), retentionWeeks, maxFileSize, os.Stdout)
}

func initLogger(logDir string, consoleLevel slog.Level, retentionWeeks int, maxFileSize int64, console io.Writer) {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.rotator != nil {
		_ = DefaultLoggingService.rotator.Close()
	}

	consoleHandler := slog.NewTextHandler(console, &slog.HandlerOptions{Level: consoleLevel})
	service := &LoggingService{Logger: slog.New(consoleHandler)}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		service.Logger.Error("Failed to create logs directory, logging to console only", "dir", logDir, "error", err)
	} else {
		rotator := NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, maxFileSize)
		if err := rotator.open(); err != nil {
			service.Logger.Error("Failed to open log file, logging to console only", "error", err)
		} else {
			rotator.startCleanup()
			fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: GetFileLogLevel()})
			service.Logger = slog.New(&multiHandler{handlers: []slog.Handler{consoleHandler, fileHandler}})
			service.rotator = rotator
		}
	}

	DefaultLoggingService = service
	slog.SetDefault(service.Logger)
}

// InitConsoleLogger sets up a console-only logger, used by the one-shot
// commands that must not touch the log directory.
func InitConsoleLogger(w io.Writer, level slog.Level) {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.rotator != nil {
		_ = DefaultLoggingService.rotator.Close()
	}

	DefaultLoggingService = &LoggingService{
		Logger: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
	slog.SetDefault(DefaultLoggingService.Logger)
}

// Close flushes and closes the log file
func Close() {
	serviceMu.Lock()
	defer serviceMu.Unlock()

	if DefaultLoggingService != nil && DefaultLoggingService.rotator != nil {
		if err := DefaultLoggingService.rotator.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
	DefaultLoggingService = nil
}

// ResetForTest points the global logger at dir for the duration of a test
func ResetForTest(t testing.TB, dir string, env config.Environment, logLevel string, retentionWeeks int, maxFileSize int64) {
	t.Helper()
	initLogger(dir, GetConsoleLogLevel(env, logLevel, testing.Verbose()), retentionWeeks, maxFileSize, os.Stdout)
	t.Cleanup(Close)
}

// GetConsoleLogLevel picks the console level. Tests stay quiet unless run
// with -v; elsewhere an explicit level wins over the environment default.
func GetConsoleLogLevel(env config.Environment, logLevel string, verbose bool) slog.Level {
	if env == config.EnvTest {
		if verbose {
			return slog.LevelInfo
		}
		return slog.LevelError
	}

	if logLevel != "" {
		return parseLogLevel(logLevel)
	}

	switch env {
	case config.EnvProduction, config.EnvStaging:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// GetFileLogLevel is the level of the rotating file
func GetFileLogLevel() slog.Level {
	return slog.LevelDebug
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logger(level slog.Level) *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		// Fallback to console logger if not initialized
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	return DefaultLoggingService.Logger
}

// Package-level functions for direct access

func Info(msg string, args ...any) {
	logger(slog.LevelInfo).Info(msg, args...)
}

func Error(msg string, args ...any) {
	logger(slog.LevelError).Error(msg, args...)
}

func Warn(msg string, args ...any) {
	logger(slog.LevelWarn).Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	logger(slog.LevelDebug).Debug(msg, args...)
}

// multiHandler fans records out to several handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, h := range m.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		newHandlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
