// Package logging builds the zerolog loggers deepstub components write to.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10
	maxLogBackups = 3
	maxLogAgeDays = 30
)

// Log levels - aliases for zerolog levels
const (
	ErrorLevel = zerolog.ErrorLevel
	WarnLevel  = zerolog.WarnLevel
	InfoLevel  = zerolog.InfoLevel
	DebugLevel = zerolog.DebugLevel
	TraceLevel = zerolog.TraceLevel
)

// Config defines the configuration for logger creation
type Config struct {
	// Writer takes precedence over File; tests pass a buffer.
	Writer io.Writer
	// File enables a rotated log file. Without Writer or File, logs go to stderr.
	File      string
	Level     zerolog.Level
	Component string
}

// NewLogger builds a logger from config.
func NewLogger(config Config) zerolog.Logger {
	var writer io.Writer

	switch {
	case config.Writer != nil:
		writer = config.Writer
	case config.File != "":
		writer = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
	default:
		writer = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true}
	}

	ctx := zerolog.New(writer).With().Timestamp()
	if config.Component != "" {
		ctx = ctx.Str("component", config.Component)
	}

	return ctx.Logger().Level(config.Level)
}

// New creates a new context with a logger attached
func New(ctx context.Context, config Config) context.Context {
	logger := NewLogger(config)

	return logger.WithContext(ctx)
}

// Get retrieves the logger from the provided context
// Returns the logger associated with the context, or a disabled logger if none exists
func Get(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}

// ParseLevel accepts zerolog level names, case-insensitively. The empty string is WarnLevel.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return WarnLevel, nil
	}

	if name == "warning" {
		name = "warn"
	}

	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	return level, nil
}
