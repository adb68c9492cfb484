// Package env reads .env files and resolves command line settings from
// flags, the environment and the config file.
package env

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/agentuity/go-caselaw/config"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/agentuity/go-caselaw/telemetry"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

type EnvLine struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseEnvFile parses an environment file. A missing file yields no lines.
func ParseEnvFile(filename string) ([]EnvLine, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []EnvLine{}, nil
		}
		return nil, errors.Wrapf(err, "failed to read env file: %s", filename)
	}
	return ParseEnvBuffer(buf)
}

func dequote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ProcessEnvLine splits a KEY=value line. An optional "export " prefix is
// dropped and surrounding quotes are removed from the value.
func ProcessEnvLine(line string) EnvLine {
	line = strings.TrimPrefix(line, "export ")
	key, val, found := strings.Cut(line, "=")
	if !found {
		return EnvLine{Key: strings.TrimSpace(line)}
	}
	return EnvLine{Key: strings.TrimSpace(key), Val: dequote(strings.TrimSpace(val))}
}

// interpolate replaces ${NAME} and ${NAME:-default} with values from vars.
// A reference without a value or default is kept as written.
func interpolate(input string, vars map[string]string) string {
	if !strings.Contains(input, "${") {
		return input
	}
	var out strings.Builder
	rest := input
	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			out.WriteString(rest)
			return out.String()
		}
		end := strings.IndexByte(rest[start:], '}')
		if end == -1 {
			out.WriteString(rest)
			return out.String()
		}
		end += start
		out.WriteString(rest[:start])
		ref := rest[start : end+1]
		name, def, _ := strings.Cut(rest[start+2:end], ":-")
		switch val := vars[name]; {
		case name == "":
			out.WriteString(ref)
		case val != "":
			out.WriteString(val)
		case def != "":
			out.WriteString(def)
		default:
			out.WriteString(ref)
		}
		rest = rest[end+1:]
	}
}

// ParseEnvBuffer parses KEY=value lines, skipping blanks and # comments.
// Values may reference earlier or later keys with ${NAME}.
func ParseEnvBuffer(buf []byte) ([]EnvLine, error) {
	envs := make([]EnvLine, 0)
	vars := make(map[string]string)
	for i, line := range strings.Split(string(buf), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		env := ProcessEnvLine(line)
		if env.Key == "" {
			return nil, errors.Newf("invalid env line %d: %q", i+1, line)
		}
		env.Val = interpolate(env.Val, vars)
		vars[env.Key] = env.Val
		envs = append(envs, env)
	}
	for i := range envs {
		envs[i].Val = interpolate(envs[i].Val, vars)
	}
	return envs, nil
}

// Lookup returns a lookup function reading the process environment first
// and envs second.
func Lookup(envs []EnvLine) func(string) (string, bool) {
	vars := make(map[string]string, len(envs))
	for _, e := range envs {
		vars[e.Key] = e.Val
	}
	return func(name string) (string, bool) {
		if val, ok := os.LookupEnv(name); ok {
			return val, true
		}
		val, ok := vars[name]
		return val, ok
	}
}

// LoadConfig loads the config file named by the --config flag with the
// environment read from the process and the --env-file flag.
func LoadConfig(cmd *cobra.Command) (config.Config, error) {
	filename, _ := cmd.Flags().GetString("config")
	envFile, _ := cmd.Flags().GetString("env-file")
	var envs []EnvLine
	if envFile != "" {
		var err error
		if envs, err = ParseEnvFile(envFile); err != nil {
			return config.Config{}, err
		}
	}
	return config.LoadWithLookup(filename, Lookup(envs))
}

// FlagOrValue returns the string flag when it was set on the command line
// and value otherwise.
func FlagOrValue(cmd *cobra.Command, flagName string, value string) string {
	if cmd.Flags().Changed(flagName) {
		if flagValue, err := cmd.Flags().GetString(flagName); err == nil {
			return flagValue
		}
	}
	return value
}

// LogLevel is the --log-level flag, or the configured level.
func LogLevel(cmd *cobra.Command, cfg config.Config) logger.LogLevel {
	if level, ok := logger.ParseLevel(FlagOrValue(cmd, "log-level", cfg.Log.Level)); ok {
		return level
	}
	return logger.LevelInfo
}

// NewLogger returns a console logger at LogLevel.
func NewLogger(cmd *cobra.Command, cfg config.Config) logger.Logger {
	log.SetFlags(0)
	return logger.NewConsoleLogger(LogLevel(cmd, cfg))
}

// NewTelemetry installs tracing and log export for the command and returns
// the logger to use from then on. The flags it reads are:
//
// --no-telemetry (boolean): if set, telemetry is disabled
//
// --otlp-endpoint (string): the OTLP/HTTP collector, overriding the config
func NewTelemetry(ctx context.Context, cmd *cobra.Command, cfg config.Config, log logger.Logger) (logger.Logger, telemetry.ShutdownFunc, error) {
	if noTelemetry, err := cmd.Flags().GetBool("no-telemetry"); err == nil && noTelemetry {
		return log, func() {}, nil
	}
	endpoint := FlagOrValue(cmd, "otlp-endpoint", cfg.Telemetry.Endpoint)
	otelLog, shutdown, err := telemetry.New(ctx, log, LogLevel(cmd, cfg), endpoint, cfg.Telemetry.Token, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, nil, errors.Wrap(err, "error creating telemetry")
	}
	return otelLog, shutdown, nil
}
