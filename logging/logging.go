// Package logging is the component-tagged slog setup shared by the
// display stack.
package logging

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

const (
	ComponentKMS     Component = "kms"
	ComponentPlanes  Component = "planes"
	ComponentPost    Component = "post"
	ComponentGralloc Component = "gralloc"
	ComponentHWC     Component = "hwc"
	ComponentCmd     Component = "cmd"
)

// Format specifies the output format for logging.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

var (
	defaultLogger *slog.Logger
	logLevel      = new(slog.LevelVar)
	logMutex      sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelInfo)
	defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

func Level() slog.Level {
	return logLevel.Level()
}

// ParseLevel maps "debug", "info", "warn" and "error" to a level,
// defaulting to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()
	defaultLogger = logger
}

// SetFormat points the default logger at w with the given format,
// keeping the current level.
func SetFormat(w io.Writer, format Format) {
	opts := &slog.HandlerOptions{Level: logLevel}
	var h slog.Handler
	switch format {
	case FormatJSON:
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	SetLogger(slog.New(h))
}

// Logger returns the default logger tagged with component.
func Logger(component Component) *slog.Logger {
	logMutex.RLock()
	defer logMutex.RUnlock()
	return defaultLogger.With("component", string(component))
}

func Debug(component Component, msg string, args ...any) {
	Logger(component).Debug(msg, args...)
}

func Info(component Component, msg string, args ...any) {
	Logger(component).Info(msg, args...)
}

func Warn(component Component, msg string, args ...any) {
	Logger(component).Warn(msg, args...)
}

func Error(component Component, msg string, args ...any) {
	Logger(component).Error(msg, args...)
}
