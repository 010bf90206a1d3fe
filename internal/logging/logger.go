// Pipewatch - CI/CD Pipeline Monitoring and Deployment Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/pipewatch

// Package logging provides structured logging for pipewatch built on
// zerolog. The package exposes a small facade so callers never import
// zerolog directly and the output format can be switched between
// human-readable console output and JSON from configuration.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	mu     sync.RWMutex
)

func init() {
	// Sensible default until Configure is called: console output at
	// info level so early startup failures are still visible.
	logger = zerolog.New(consoleWriter(os.Stderr)).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
}

// Config controls logger behaviour. Zero value is usable: info level,
// console format, stderr output.
type Config struct {
	// Level is one of trace, debug, info, warn, error. Unknown values
	// fall back to info.
	Level string

	// Format is "console" or "json". Anything else means json.
	Format string

	// Output overrides the destination writer. Nil means stderr.
	Output io.Writer
}

// Configure replaces the package logger. Safe for concurrent use,
// though it is normally called once during startup before any
// goroutines are spawned.
func Configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = consoleWriter(out)
	}

	l := zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().Timestamp().Logger()

	mu.Lock()
	logger = l
	mu.Unlock()
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns the current package logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Trace starts a trace-level event.
func Trace() *zerolog.Event { l := Logger(); return l.Trace() }

// Debug starts a debug-level event.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info-level event.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warn-level event.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error-level event.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal-level event. The program exits after Msg.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// With returns a child context for building a sub-logger with
// additional fields.
func With() zerolog.Context { return Logger().With() }
