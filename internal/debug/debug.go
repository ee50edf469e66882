// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package debug provides the internal debug tracing channel.
//
// Tracing is off by default. Setting TASKRUN_DEBUG in the environment turns
// on a console-format zerolog logger on stderr, which the transport, session
// and store layers use to trace requests, stream frames and state changes.
// This is a developer channel, not a user-facing surface: normal output is
// never routed through it.
//
// Usage:
//
//	log := debug.For("ollama")
//	log.Debug().Int("status", resp.StatusCode).Msg("chat response")
package debug

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu      sync.Mutex
	logger  zerolog.Logger
	enabled bool
	loaded  bool
)

// setup initializes the package logger from the environment.
// Called lazily so tests can flip TASKRUN_DEBUG before first use.
func setup() {
	loaded = true
	v := os.Getenv("TASKRUN_DEBUG")
	if v == "" || v == "0" || v == "false" {
		enabled = false
		logger = zerolog.Nop()
		return
	}

	enabled = true
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	logger = zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// Enabled reports whether debug tracing is active.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		setup()
	}
	return enabled
}

// Logger returns the process-wide debug logger.
// Returns a no-op logger unless TASKRUN_DEBUG is set.
func Logger() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if !loaded {
		setup()
	}
	return logger
}

// For returns a child logger tagged with a component name.
func For(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// ResetForTesting clears the cached logger so the next call re-reads the
// environment. Only for use in tests.
func ResetForTesting() {
	mu.Lock()
	defer mu.Unlock()
	loaded = false
	enabled = false
	logger = zerolog.Nop()
}
