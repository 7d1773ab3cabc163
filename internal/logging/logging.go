// Package logging provides structured logging using Go's log/slog,
// plus a rotating file sink under a project's logs/ directory.
//
// Configuration is controlled via environment variables:
//   - CONTEXTENGINE_LOG_LEVEL: debug, info, warn, error (default: info)
//   - CONTEXTENGINE_LOG_FORMAT: text, json (default: text)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config holds logging configuration.
type Config struct {
	Level  slog.Level
	Format string    // "text" or "json"
	Output io.Writer // defaults to os.Stderr
	Source string    // component name for context
}

// DefaultConfig returns sensible defaults for the given source component.
func DefaultConfig(source string) Config {
	return Config{
		Level:  LevelInfo,
		Format: "text",
		Output: os.Stderr,
		Source: source,
	}
}

// LoadConfigFromEnv reads logging config from environment variables.
func LoadConfigFromEnv(source string) Config {
	cfg := DefaultConfig(source)

	if level := os.Getenv("CONTEXTENGINE_LOG_LEVEL"); level != "" {
		switch strings.ToLower(level) {
		case "debug":
			cfg.Level = LevelDebug
		case "info":
			cfg.Level = LevelInfo
		case "warn", "warning":
			cfg.Level = LevelWarn
		case "error":
			cfg.Level = LevelError
		}
	}

	if format := os.Getenv("CONTEXTENGINE_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}

	return cfg
}

// New creates a configured slog.Logger with the given configuration.
func New(cfg Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{Level: cfg.Level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return slog.New(handler).With("source", cfg.Source)
}

// Default returns a logger with configuration loaded from environment.
func Default(source string) *slog.Logger {
	return New(LoadConfigFromEnv(source))
}

// Nop returns a logger that discards all output.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

// MonthlyFileWriter backs a project's logs/log-YYYY-MM.txt rotation
// requirement. It swaps the underlying lumberjack.Logger's filename
// whenever the calendar month changes, and delegates size-based
// rollover of the current month's file to lumberjack itself.
type MonthlyFileWriter struct {
	mu      sync.Mutex
	dir     string
	month   string
	current *lumberjack.Logger
}

// NewMonthlyFileWriter returns a writer that rotates into dir/log-YYYY-MM.txt,
// creating dir if necessary.
func NewMonthlyFileWriter(dir string) (*MonthlyFileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	w := &MonthlyFileWriter{dir: dir}
	w.rotateLocked(time.Now())
	return w, nil
}

func (w *MonthlyFileWriter) rotateLocked(now time.Time) {
	month := now.Format("2006-01")
	if month == w.month && w.current != nil {
		return
	}
	if w.current != nil {
		w.current.Close()
	}
	w.month = month
	w.current = &lumberjack.Logger{
		Filename:   filepath.Join(w.dir, fmt.Sprintf("log-%s.txt", month)),
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     90, // days
		Compress:   true,
	}
}

// Write implements io.Writer, rotating to a new month's file as needed.
func (w *MonthlyFileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rotateLocked(time.Now())
	return w.current.Write(p)
}

// Close closes the current month's file.
func (w *MonthlyFileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current != nil {
		return w.current.Close()
	}
	return nil
}
