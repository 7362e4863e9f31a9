// Package logging configures the global zerolog logger and emits the
// one-line startup summary of each binary.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global logger. level is one of trace, debug, info,
// warn, error; anything else means info. An empty level falls back to
// STYLIST_LOG_LEVEL.
func Init(level string) {
	InitWithWriter(level, zerolog.ConsoleWriter{Out: os.Stderr})
}

// InitWithWriter is Init with an explicit output, used by the MCP server
// whose stdout carries the protocol.
func InitWithWriter(level string, w io.Writer) {
	if level == "" {
		level = os.Getenv("STYLIST_LOG_LEVEL")
	}
	zerolog.SetGlobalLevel(ParseLevel(level))
	log.Logger = log.Output(w)
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
