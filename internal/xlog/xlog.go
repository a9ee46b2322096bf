// Package xlog constructs the process-wide zerolog logger; in this module
// only cmd/counterdemo logs through it. It is configured once, from the ARBOR_LOG environment
// variable, the way the embedding's tracing integration is configured from
// RUST_LOG in the system this core was ported from.
package xlog

import (
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Logger returns the process-wide logger, initializing it from ARBOR_LOG on
// first use. Accepted values are the usual zerolog level names
// (trace, debug, info, warn, error) plus "off" to disable logging
// entirely; an empty or unrecognized value defaults to "info".
func Logger() zerolog.Logger {
	once.Do(func() {
		level := parseLevel(os.Getenv("ARBOR_LOG"))
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
			Level(level).
			With().Timestamp().Logger()
	})
	return logger
}

func parseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	case "", "info":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}
