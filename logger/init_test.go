package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLevelFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		envValue      string
		expectedLevel LogLevel
	}{
		{"trace level", "trace", LevelTrace},
		{"debug level", "debug", LevelDebug},
		{"info level", "info", LevelInfo},
		{"warn level", "warn", LevelWarn},
		{"warning alias", "warning", LevelWarn},
		{"error level", "error", LevelError},
		{"none level", "none", LevelNone},
		{"uppercase trace", "TRACE", LevelTrace},
		{"mixed case debug", "DeBuG", LevelDebug},
		{"empty string", "", LevelInfo},
		{"invalid value", "invalid", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvLevel, tt.envValue)
			assert.Equal(t, tt.expectedLevel, GetLevelFromEnv())
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, ok := ParseLevel(" Error ")
	assert.True(t, ok)
	assert.Equal(t, LevelError, level)

	_, ok = ParseLevel("loud")
	assert.False(t, ok)
}

func TestLogLevelConstants(t *testing.T) {
	assert.Equal(t, LogLevel(0), LevelTrace)
	assert.Equal(t, LogLevel(1), LevelDebug)
	assert.Equal(t, LogLevel(2), LevelInfo)
	assert.Equal(t, LogLevel(3), LevelWarn)
	assert.Equal(t, LogLevel(4), LevelError)
	assert.Equal(t, LogLevel(5), LevelNone)
}

func TestConsoleLoggerSink(t *testing.T) {
	var buf bytes.Buffer
	log := NewConsoleLogger(LevelNone)
	log.SetSink(&buf, LevelDebug)

	log.WithPrefix("[loader]").With(map[string]interface{}{"key": "/api/cases"}).Info("loaded %d cases", 137)
	log.Trace("hidden")

	out := buf.String()
	assert.Contains(t, out, "[INFO ]")
	assert.Contains(t, out, "[loader] loaded 137 cases")
	assert.Contains(t, out, `{"key":"/api/cases"}`)
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "\x1b[")
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestConsoleLoggerStack(t *testing.T) {
	next := NewTestLogger()
	log := NewConsoleLogger(LevelNone).Stack(next)
	log.Warn("cache %s", "miss")
	assert.True(t, next.Contains("WARNING", "cache miss"))
}
