package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestSinksFilterIndependently(t *testing.T) {
	var console bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "run.log")

	logger, closer, err := New(LogConfig{
		Level:      "debug",
		PrintLevel: "warn",
		LogFile:    logFile,
		ConsoleOut: &console,
	})
	require.NoError(t, err)

	logger.Debug().Msg("debug record")
	logger.Warn().Msg("warn record")
	require.NoError(t, closer())

	// Console only sees warn and above.
	assert.NotContains(t, console.String(), "debug record")
	assert.Contains(t, console.String(), "warn record")

	// The file sink runs at debug and sees both, as JSON lines.
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"debug record"`)
	assert.Contains(t, string(data), `"warn record"`)
	assert.Contains(t, string(data), `"service":"ocrbatch"`)
}

func TestNoFileSink(t *testing.T) {
	var console bytes.Buffer

	logger, closer, err := New(LogConfig{
		Level:      "debug",
		PrintLevel: "info",
		ConsoleOut: &console,
	})
	require.NoError(t, err)

	logger.Info().Str("file", "a.pdf").Msg("processing")
	require.NoError(t, closer())

	assert.Contains(t, console.String(), "processing")
}

func TestBadLogFilePath(t *testing.T) {
	_, _, err := New(LogConfig{
		LogFile: filepath.Join(t.TempDir(), "missing", "run.log"),
	})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "open log file"))
}
