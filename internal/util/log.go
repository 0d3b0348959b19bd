package util

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process-wide zerolog.Logger. env selects the writer:
// anything other than "production" gets a human-readable console writer,
// since that's the only place a developer is watching stdout live; a
// production deploy gets structured JSON for log aggregation to parse.
func NewLogger(level, env string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if strings.ToLower(env) == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(lvl)
	}
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	return zerolog.New(console).With().Timestamp().Logger().Level(lvl)
}
