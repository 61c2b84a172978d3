/*
Copyright (C) 2026 Fieldline HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package logging configures the process-wide zerolog logger. Development
// environments get a colorized console writer at debug level; everything
// else emits JSON at info level so log shippers can parse it.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the root logger for the given environment and installs it as
// the zerolog global.
func Setup(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	var writer io.Writer = os.Stdout
	level := zerolog.InfoLevel
	if environment == "development" {
		writer = zerolog.ConsoleWriter{Out: os.Stdout}
		level = zerolog.DebugLevel
	}
	if override, ok := levelFromEnv(); ok {
		level = override
	}

	logger := zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Str("service", "fieldline").
		Logger()
	log.Logger = logger
	return logger
}

// levelFromEnv reads FIELDLINE_LOG_LEVEL, letting operators raise or lower
// verbosity without touching the environment mode.
func levelFromEnv() (zerolog.Level, bool) {
	raw := os.Getenv("FIELDLINE_LOG_LEVEL")
	if raw == "" {
		return zerolog.NoLevel, false
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return zerolog.NoLevel, false
	}
	return level, true
}
