// Package logger provides structured logging for databucket
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with databucket-specific functionality
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	// Pretty printing for development
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "databucket").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// Info logs an info message
func (l *Logger) Info() *zerolog.Event {
	return l.zlog.Info()
}

// Debug logs a debug message
func (l *Logger) Debug() *zerolog.Event {
	return l.zlog.Debug()
}

// Warn logs a warning message
func (l *Logger) Warn() *zerolog.Event {
	return l.zlog.Warn()
}

// Error logs an error message
func (l *Logger) Error() *zerolog.Event {
	return l.zlog.Error()
}

// OpLogger returns a logger scoped to one data operation, carrying the
// tenant scope and actor on every event.
func (l *Logger) OpLogger(operation string, projectID, bucketID int64, actor string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("operation", operation).
			Int64("project_id", projectID).
			Int64("bucket_id", bucketID).
			Str("actor", actor).
			Logger(),
	}
}

// LogOperation logs a completed data operation with structured fields.
func (l *Logger) LogOperation(operation string, duration time.Duration, rows int64, err error) {
	event := l.zlog.Info().
		Str("operation", operation).
		Dur("duration_ms", duration).
		Int64("rows", rows)

	if err != nil {
		event = l.zlog.Error().
			Str("operation", operation).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("data operation completed")
}
