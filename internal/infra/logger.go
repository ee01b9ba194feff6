package infra

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the logging contract shared by every package in the service.
type Logger = zerolog.Logger

// NewLogger builds the process logger. Development and CLI runs get a
// console writer; CLI output goes to stderr so command results on stdout
// stay clean. LOG_LEVEL overrides the environment default.
func NewLogger(appEnv string) zerolog.Logger {
	return newLogger(appEnv, os.Getenv("LOG_LEVEL"), nil)
}

func newLogger(appEnv, levelName string, out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch appEnv {
	case "development":
		level = zerolog.DebugLevel
	case "cli":
		level = zerolog.WarnLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelName))); err == nil && levelName != "" {
		level = parsed
	}

	if out == nil {
		out = os.Stdout
		if appEnv == "cli" {
			out = os.Stderr
		}
		if appEnv == "development" || appEnv == "cli" {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "foundation").
		Logger()
}
