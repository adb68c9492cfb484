// Package config loads the settings shared by every component from a YAML
// file and the environment.
package config

import (
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/agentuity/go-caselaw/logger"
	"github.com/cockroachdb/errors"
	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvAPIURL       = "CASELAW_API_URL"
	EnvAPIToken     = "CASELAW_API_TOKEN"
	EnvOTLPEndpoint = "CASELAW_OTLP_ENDPOINT"
	EnvRetries      = "CASELAW_API_RETRIES"
)

var ErrConfigNotFound = errors.New("config file not found")

// Duration is a time.Duration read from strings such as "300ms", "5m" or "1d".
type Duration time.Duration

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return str2duration.String(time.Duration(d))
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	if text == "" || text == "0" {
		*d = 0
		return nil
	}
	val, err := str2duration.ParseDuration(text)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q at line %d", text, value.Line)
	}
	*d = Duration(val)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}

type APIConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token,omitempty"`
	// Retries is the number of attempts for a retryable failure. 1 never retries.
	Retries        int      `yaml:"retries"`
	Timeout        Duration `yaml:"timeout"`
	CircuitBreaker bool     `yaml:"circuit_breaker"`
}

type CacheConfig struct {
	Capacity    int      `yaml:"capacity"`
	TTL         Duration `yaml:"ttl"`
	ExpiryCheck Duration `yaml:"expiry_check,omitempty"`
}

type LoaderConfig struct {
	BatchSize          int      `yaml:"batch_size"`
	MaxItems           int      `yaml:"max_items"`
	BatchDelay         Duration `yaml:"batch_delay"`
	CacheTTL           Duration `yaml:"cache_ttl"`
	PageTTL            Duration `yaml:"page_ttl"`
	PreloadPages       int      `yaml:"preload_pages"`
	PreloadConcurrency int      `yaml:"preload_concurrency"`
}

type StoreConfig struct {
	ItemsPerPage         int      `yaml:"items_per_page"`
	NotificationDuration Duration `yaml:"notification_duration"`
	SyncReloadDelay      Duration `yaml:"sync_reload_delay"`
	FiltersTTL           Duration `yaml:"filters_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type TelemetryConfig struct {
	// Endpoint is the OTLP/HTTP collector address. Empty disables tracing.
	Endpoint    string `yaml:"endpoint,omitempty"`
	Token       string `yaml:"token,omitempty"`
	ServiceName string `yaml:"service_name"`
}

type Config struct {
	API       APIConfig       `yaml:"api"`
	Cache     CacheConfig     `yaml:"cache"`
	Loader    LoaderConfig    `yaml:"loader"`
	Store     StoreConfig     `yaml:"store"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		API: APIConfig{
			URL:     "http://localhost:8001",
			Retries: 1,
			Timeout: Duration(30 * time.Second),
		},
		Cache: CacheConfig{
			Capacity: 100,
			TTL:      Duration(5 * time.Minute),
		},
		Loader: LoaderConfig{
			BatchSize:          100,
			MaxItems:           1000,
			BatchDelay:         Duration(100 * time.Millisecond),
			CacheTTL:           Duration(5 * time.Minute),
			PageTTL:            Duration(10 * time.Minute),
			PreloadPages:       2,
			PreloadConcurrency: 2,
		},
		Store: StoreConfig{
			ItemsPerPage:         20,
			NotificationDuration: Duration(5 * time.Second),
			SyncReloadDelay:      Duration(5 * time.Second),
			FiltersTTL:           Duration(10 * time.Minute),
		},
		Log: LogConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			ServiceName: "caselaw",
		},
	}
}

// Load reads filename over the defaults, applies the environment and
// validates the result. An empty filename skips the file.
func Load(filename string) (Config, error) {
	return LoadWithLookup(filename, os.LookupEnv)
}

// LoadWithLookup is Load with the environment read through lookup.
func LoadWithLookup(filename string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if filename != "" {
		of, err := os.Open(filename)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return cfg, errors.Wrapf(ErrConfigNotFound, "%s", filename)
			}
			return cfg, errors.Wrapf(err, "failed to open config file: %s", filename)
		}
		defer of.Close()
		dec := yaml.NewDecoder(of)
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, errors.Wrapf(err, "failed to decode YAML config file: %s", filename)
		}
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if val, ok := lookup(EnvAPIURL); ok && val != "" {
		c.API.URL = val
	}
	if val, ok := lookup(EnvAPIToken); ok && val != "" {
		c.API.Token = val
	}
	if val, ok := lookup(EnvOTLPEndpoint); ok {
		c.Telemetry.Endpoint = val
	}
	if val, ok := lookup(logger.EnvLevel); ok && val != "" {
		c.Log.Level = val
	}
	if val, ok := lookup(EnvRetries); ok && val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvRetries)
		}
		c.API.Retries = n
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Newf("invalid api.url value: %q", c.API.URL)
	}
	if c.API.Retries < 1 {
		return errors.Newf("api.retries must be at least 1, got %d", c.API.Retries)
	}
	if c.Cache.Capacity < 1 {
		return errors.Newf("cache.capacity must be at least 1, got %d", c.Cache.Capacity)
	}
	if c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive")
	}
	if c.Loader.BatchSize < 1 || c.Loader.BatchSize > 100 {
		return errors.Newf("loader.batch_size must be between 1 and 100, got %d", c.Loader.BatchSize)
	}
	if c.Loader.MaxItems < 0 {
		return errors.Newf("loader.max_items must not be negative, got %d", c.Loader.MaxItems)
	}
	if c.Loader.BatchDelay < 0 {
		return errors.New("loader.batch_delay must not be negative")
	}
	if c.Loader.PreloadPages < 0 {
		return errors.Newf("loader.preload_pages must not be negative, got %d", c.Loader.PreloadPages)
	}
	if c.Store.ItemsPerPage < 1 {
		return errors.Newf("store.items_per_page must be at least 1, got %d", c.Store.ItemsPerPage)
	}
	if _, ok := logger.ParseLevel(c.Log.Level); !ok {
		return errors.Newf("invalid log.level value: %q", c.Log.Level)
	}
	return nil
}

// LogLevel returns the configured level.
func (c Config) LogLevel() logger.LogLevel {
	level, _ := logger.ParseLevel(c.Log.Level)
	return level
}

// Save writes the config as YAML.
func (c Config) Save(filename string) error {
	of, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer of.Close()
	enc := yaml.NewEncoder(of)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrapf(err, "failed to encode config file: %s", filename)
	}
	return enc.Close()
}
