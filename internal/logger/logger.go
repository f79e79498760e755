// Package logger provides leveled logging for docrag.
// Info and above are always written; Debug is written only in verbose mode.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	level   = new(slog.LevelVar)
	log     = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose enables or disables debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetLevel sets the minimum level by name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	verbose = l <= slog.LevelDebug
	level.Set(l)
}

// SetOutput sets the writer for log records. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w)
}

func emit(l slog.Level, format string, args ...any) {
	mu.RLock()
	lg := log
	mu.RUnlock()
	if !lg.Enabled(context.Background(), l) {
		return
	}
	lg.Log(context.Background(), l, fmt.Sprintf(format, args...))
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) { emit(slog.LevelDebug, format, args...) }

// Info logs an informational message.
func Info(format string, args ...any) { emit(slog.LevelInfo, format, args...) }

// Warn logs a warning.
func Warn(format string, args ...any) { emit(slog.LevelWarn, format, args...) }

// Error logs an error.
func Error(format string, args ...any) { emit(slog.LevelError, format, args...) }
