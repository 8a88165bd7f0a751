package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/dipscan/pkg/config"
)

func TestNew(t *testing.T) {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "debug",
		LogFormat: "json",
	}

	log := New(cfg)
	require.NotNil(t, log)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"panic", zerolog.PanicLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestWithFields(t *testing.T) {
	cfg := &config.Config{Env: "development", LogLevel: "info", LogFormat: "json"}
	log := New(cfg)

	child := log.WithFields(map[string]interface{}{
		"ticker": "AAPL",
		"batch":  3,
	})
	require.NotNil(t, child)
	// Parent must not be mutated
	assert.NotSame(t, log, child)
}
