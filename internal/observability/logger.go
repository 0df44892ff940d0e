// Package observability provides the ocrbatch logger: a console sink and an
// optional file sink, each gated at its own level.
package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the process logger from the logging configuration. The console
// sink (human-readable, stderr) honors PrintLevel; the file sink (JSON
// lines) honors Level. The returned closer flushes and closes the log file,
// if one was opened.
func New(cfg LogConfig) (zerolog.Logger, func() error, error) {
	consoleOut := cfg.ConsoleOut
	if consoleOut == nil {
		consoleOut = os.Stderr
	}

	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: zerolog.ConsoleWriter{
			Out:        consoleOut,
			TimeFormat: time.RFC3339,
		}},
		Level: ParseLevel(cfg.PrintLevel),
	}

	writers := []io.Writer{console}
	closer := func() error { return nil }

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: f},
			Level:  ParseLevel(cfg.Level),
		})
		closer = f.Close
	}

	// The logger itself runs at the most permissive of the two sink levels;
	// each sink filters independently above that.
	base := ParseLevel(cfg.PrintLevel)
	if fileLevel := ParseLevel(cfg.Level); fileLevel < base {
		base = fileLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(base).
		With().
		Timestamp().
		Str("service", "ocrbatch").
		Logger()

	return logger, closer, nil
}

// LogConfig holds logger construction settings.
type LogConfig struct {
	Level      string // file sink level
	PrintLevel string // console sink level
	LogFile    string // empty disables the file sink
	ConsoleOut io.Writer
}

// ParseLevel converts a string level to zerolog.Level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}
