package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json", ""} {
		log, err := New("debug", format)
		require.NoError(t, err, "format %q", format)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	}

	_, err := New("info", "xml")
	assert.ErrorContains(t, err, "unknown log format")
}

func TestForRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	ForRun(zap.New(core), "run-1").Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "run-1", logs.All()[0].ContextMap()["run_id"])

	assert.NotNil(t, ForRun(nil, "run-2"))
	assert.NotNil(t, OrNop(nil))
}
