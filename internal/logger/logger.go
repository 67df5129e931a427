// Package logger holds the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"sync"
)

// Config selects the destination and verbosity of the logger.
type Config struct {
	Out   io.Writer
	Debug bool
}

var (
	mu     sync.RWMutex
	global = slog.New(slog.NewTextHandler(io.Discard, nil))
)

// Setup installs a text logger writing to cfg.Out. The returned func restores the discard logger.
func Setup(cfg Config) func() {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}

	level := slog.LevelInfo
	addSource := false
	if cfg.Debug {
		level = slog.LevelDebug
		addSource = true
	}

	Set(slog.New(slog.NewTextHandler(cfg.Out, &slog.HandlerOptions{
		Level:     level,
		AddSource: addSource,
	})))

	return func() {
		Set(slog.New(slog.NewTextHandler(io.Discard, nil)))
	}
}

// Set replaces the global logger. A nil logger is ignored.
func Set(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	global = l
	mu.Unlock()
}

// L returns the current global logger.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}
