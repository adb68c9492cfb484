package env

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentuity/go-caselaw/config"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.env")

	tests := []struct {
		name     string
		content  string
		expected []EnvLine
	}{
		{
			name:     "empty file",
			content:  "",
			expected: []EnvLine{},
		},
		{
			name: "valid env file",
			content: `
CASELAW_API_URL=http://localhost:8001
CASELAW_API_TOKEN="secret"
CASELAW_LOG_LEVEL='debug'
# This is a comment
export CASELAW_API_RETRIES=3
`,
			expected: []EnvLine{
				{Key: "CASELAW_API_URL", Val: "http://localhost:8001"},
				{Key: "CASELAW_API_TOKEN", Val: "secret"},
				{Key: "CASELAW_LOG_LEVEL", Val: "debug"},
				{Key: "CASELAW_API_RETRIES", Val: "3"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, os.WriteFile(tmpFile, []byte(tt.content), 0644))
			got, err := ParseEnvFile(tmpFile)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("non-existent file", func(t *testing.T) {
		got, err := ParseEnvFile(filepath.Join(tmpDir, "nonexistent.env"))
		assert.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestParseEnvBufferInterpolation(t *testing.T) {
	got, err := ParseEnvBuffer([]byte(`
HOST=api.internal
CASELAW_API_URL=http://${HOST}:${PORT:-8001}
LATER=${AFTER}
AFTER=value
MISSING=${NOPE}
EMPTY=${}
`))
	require.NoError(t, err)
	vals := map[string]string{}
	for _, e := range got {
		vals[e.Key] = e.Val
	}
	assert.Equal(t, "http://api.internal:8001", vals["CASELAW_API_URL"])
	assert.Equal(t, "value", vals["LATER"])
	assert.Equal(t, "${NOPE}", vals["MISSING"])
	assert.Equal(t, "${}", vals["EMPTY"])
}

func TestParseEnvBufferInvalid(t *testing.T) {
	_, err := ParseEnvBuffer([]byte("=value"))
	assert.Error(t, err)
}

func TestProcessEnvLine(t *testing.T) {
	tests := []struct {
		line string
		want EnvLine
	}{
		{"KEY=value", EnvLine{Key: "KEY", Val: "value"}},
		{"KEY = 'quoted value'", EnvLine{Key: "KEY", Val: "quoted value"}},
		{`KEY="a=b"`, EnvLine{Key: "KEY", Val: "a=b"}},
		{"export KEY=1", EnvLine{Key: "KEY", Val: "1"}},
		{"KEY", EnvLine{Key: "KEY"}},
		{`KEY="unbalanced`, EnvLine{Key: "KEY", Val: `"unbalanced`}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, ProcessEnvLine(tt.line))
		})
	}
}

func TestLookup(t *testing.T) {
	t.Setenv("CASELAW_TEST_FROM_OS", "os")
	lookup := Lookup([]EnvLine{{Key: "CASELAW_TEST_FROM_OS", Val: "file"}, {Key: "CASELAW_TEST_FROM_FILE", Val: "file"}})

	val, ok := lookup("CASELAW_TEST_FROM_OS")
	assert.True(t, ok)
	assert.Equal(t, "os", val)

	val, ok = lookup("CASELAW_TEST_FROM_FILE")
	assert.True(t, ok)
	assert.Equal(t, "file", val)

	_, ok = lookup("CASELAW_TEST_UNSET")
	assert.False(t, ok)
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("env-file", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("otlp-endpoint", "", "")
	cmd.Flags().Bool("no-telemetry", false, "")
	return cmd
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(config.EnvAPIURL, "")
	os.Unsetenv(config.EnvAPIURL)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("CASELAW_API_URL=http://from-env-file:8001\n"), 0644))

	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("env-file", envFile))
	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env-file:8001", cfg.API.URL)
}

func TestFlagOrValue(t *testing.T) {
	cmd := newCommand()
	assert.Equal(t, "from-config", FlagOrValue(cmd, "log-level", "from-config"))
	require.NoError(t, cmd.Flags().Set("log-level", "debug"))
	assert.Equal(t, "debug", FlagOrValue(cmd, "log-level", "from-config"))
	assert.Equal(t, "x", FlagOrValue(cmd, "missing", "x"))
}

func TestLogLevel(t *testing.T) {
	cfg := config.Default()
	cmd := newCommand()
	assert.Equal(t, logger.LevelInfo, LogLevel(cmd, cfg))

	cfg.Log.Level = "warn"
	assert.Equal(t, logger.LevelWarn, LogLevel(cmd, cfg))

	require.NoError(t, cmd.Flags().Set("log-level", "trace"))
	assert.Equal(t, logger.LevelTrace, LogLevel(cmd, cfg))

	require.NoError(t, cmd.Flags().Set("log-level", "bogus"))
	assert.Equal(t, logger.LevelInfo, LogLevel(cmd, cfg))
}

func TestNewTelemetryDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Telemetry.Endpoint = "collector.invalid:4318"
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("no-telemetry", "true"))

	log := logger.NewTestLogger()
	got, shutdown, err := NewTelemetry(context.Background(), cmd, cfg, log)
	require.NoError(t, err)
	assert.Same(t, log, got)
	shutdown()
}

func TestNewTelemetryWithoutEndpoint(t *testing.T) {
	log := logger.NewTestLogger()
	got, shutdown, err := NewTelemetry(context.Background(), newCommand(), config.Default(), log)
	require.NoError(t, err)
	assert.Same(t, log, got)
	require.NotNil(t, shutdown)
	shutdown()
}
