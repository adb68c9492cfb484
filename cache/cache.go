package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

type Cache interface {
	// Get retrieves a value from the cache. A hit refreshes the entry's
	// last-accessed time, which is what the LRU eviction orders by.
	// Encoded []byte values are copied in and out; other values are
	// returned as stored, so store them with Encode for value semantics.
	Get(ctx context.Context, key string) (bool, any, error)

	// Set stores a value in the cache with a TTL. If expires <= 0,
	// the cache's configured default TTL is used.
	Set(ctx context.Context, key string, val any, expires time.Duration) error

	// Hits returns the number of times a key has been read.
	Hits(ctx context.Context, key string) (bool, int)

	// Delete removes a key from the cache.
	Delete(ctx context.Context, key string) (bool, error)

	// Clear removes every entry.
	Clear(ctx context.Context) error

	// InvalidatePattern removes every entry whose key contains pattern and
	// returns how many were removed.
	InvalidatePattern(ctx context.Context, pattern string) (int, error)

	// Entry returns a copy of the entry stored under key without touching it.
	Entry(ctx context.Context, key string) (Entry, bool)

	// Stats returns entry counts for diagnostics.
	Stats(ctx context.Context) Stats

	// Close shuts down the cache.
	Close() error
}

// Entry is a point-in-time copy of a cached value and its bookkeeping.
type Entry struct {
	Key            string
	Value          any
	CreatedAt      time.Time
	ExpiresAt      time.Time
	LastAccessedAt time.Time
	Hits           int
}

// Stats reports how many entries are held and how many of them are stale.
type Stats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
	MaxSize int `json:"max_size"`
}

// Get retrieves a typed value from the cache.
// Values stored as-is are returned with a direct type assertion.
// Values stored as msgpack ([]byte produced by Encode) are decoded into a
// fresh T, so callers never share memory with the cached copy.
func Get[T any](ctx context.Context, c Cache, key string) (bool, T, error) {
	found, val, err := c.Get(ctx, key)
	if !found || err != nil {
		var zero T
		return false, zero, err
	}
	if typed, ok := val.(T); ok {
		return true, typed, nil
	}
	if data, ok := val.([]byte); ok {
		var result T
		if err := msgpack.Unmarshal(data, &result); err != nil {
			var zero T
			return false, zero, fmt.Errorf("cache: failed to unmarshal value: %w", err)
		}
		return true, result, nil
	}
	var zero T
	return false, zero, fmt.Errorf("cache: cannot convert value of type %T to %T", val, zero)
}

// Encode serializes v with msgpack so it can be stored by value.
// Read it back with Get.
func Encode(v any) ([]byte, error) {
	data, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to marshal value: %w", err)
	}
	return data, nil
}

// DefaultExpires is the TTL used when Set is called with expires <= 0.
const DefaultExpires = 5 * time.Minute

// DefaultCapacity is the maximum number of entries held by default.
const DefaultCapacity = 100

// config holds the resolved configuration for a cache implementation.
type config struct {
	defaultExpires time.Duration
	capacity       int
	expiryCheck    time.Duration
	now            func() time.Time
}

// Option configures a Cache implementation.
type Option func(*config)

func defaultConfig() config {
	return config{
		defaultExpires: DefaultExpires,
		capacity:       DefaultCapacity,
		now:            time.Now,
	}
}

func applyOptions(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity <= 0 {
		cfg.capacity = DefaultCapacity
	}
	if cfg.defaultExpires <= 0 {
		cfg.defaultExpires = DefaultExpires
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return cfg
}

// WithExpires sets the default TTL for cached values. This is used when
// Set is called with expires <= 0. Defaults to DefaultExpires (5 minutes).
func WithExpires(d time.Duration) Option {
	return func(c *config) { c.defaultExpires = d }
}

// WithCapacity sets the maximum number of entries. Defaults to DefaultCapacity.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithExpiryCheck enables a background sweep of expired entries at the given
// interval. Disabled by default: expired entries are purged lazily on Get
// and eagerly before every insert.
func WithExpiryCheck(d time.Duration) Option {
	return func(c *config) { c.expiryCheck = d }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *config) { c.now = now }
}

// CacheConfig configures the Exec helper.
type CacheConfig struct {
	// Expires is the TTL for cached values. The cache default is used if zero.
	Expires time.Duration
	// Key is the cache key. Required.
	Key string
}

// Invoker is a function that produces a value of type T.
// The bool return indicates whether a value was found. Return false to signal
// "not found" without caching a zero value.
type Invoker[T any] func(ctx context.Context) (T, bool, error)

// Exec is a cache-aside helper. It checks the cache for config.Key first.
// On a miss it calls invoke; a found value is stored and returned.
// If the cache Set fails after a successful invoke, the value is still
// returned.
func Exec[T any](ctx context.Context, config CacheConfig, c Cache, invoke Invoker[T]) (bool, T, error) {
	found, val, err := Get[T](ctx, c, config.Key)
	if err != nil {
		var zero T
		return false, zero, err
	}
	if found {
		return true, val, nil
	}

	result, ok, err := invoke(ctx)
	if err != nil {
		var zero T
		return false, zero, err
	}
	if !ok {
		var zero T
		return false, zero, nil
	}

	_ = c.Set(ctx, config.Key, result, config.Expires)

	return true, result, nil
}
