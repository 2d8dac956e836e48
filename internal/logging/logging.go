// Package logging builds the zerolog logger shared by the server and the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger writing human-readable lines in development and JSON in
// production. The global zerolog logger is replaced so packages that log via
// zerolog/log share the same output.
func New(appEnv string) zerolog.Logger {
	return NewWithWriter(appEnv, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(appEnv string, w io.Writer) zerolog.Logger {
	out := w
	level := zerolog.DebugLevel
	if appEnv == "production" {
		level = zerolog.InfoLevel
	} else {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}

	logger := zerolog.New(out).Level(level).With().Timestamp().Str("env", appEnv).Logger()
	log.Logger = logger
	return logger
}
