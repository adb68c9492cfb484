package loader

import (
	"net/url"
	"time"

	"github.com/agentuity/go-caselaw/logger"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultBatchSize is the number of records requested per batch.
	DefaultBatchSize = 50
	// DefaultBatchDelay is the pause between two batches of a progressive load.
	DefaultBatchDelay = 100 * time.Millisecond
	// DefaultProgressiveTTL is how long a completed progressive load is cached.
	DefaultProgressiveTTL = 5 * time.Minute
	// DefaultPageTTL is how long a single page is cached.
	DefaultPageTTL = 10 * time.Minute
	// DefaultPreloadConcurrency bounds how many pages are pre-fetched at once.
	DefaultPreloadConcurrency = 2
)

// Progress reports the state of a running load after each batch.
type Progress[T any] struct {
	// Loaded is the number of records received so far.
	Loaded int
	// Total is the expected number of records, or -1 when unknown.
	Total int
	// Data holds every record received so far.
	Data []T
	// Batch holds the records of the batch that just arrived. Empty for a
	// cache hit.
	Batch []T
}

// ProgressiveOptions configures LoadProgressively.
type ProgressiveOptions[T any] struct {
	// BatchSize is the number of records requested per batch. Defaults to
	// DefaultBatchSize.
	BatchSize int
	// MaxItems caps the number of records loaded. Zero loads until the
	// server runs out.
	MaxItems int
	// SkipCache forces a network load even when a cached result exists.
	SkipCache bool
	// CacheTTL is the lifetime of the cached result. Defaults to
	// DefaultProgressiveTTL.
	CacheTTL time.Duration
	// Params are extra query parameters, such as filters. They are part of
	// the cache key.
	Params url.Values
	// OnProgress is called after every batch, and once for a cache hit.
	OnProgress func(Progress[T])
	// OnError is called with the failure message when the load fails. It
	// is not called for aborted loads.
	OnError func(message string)
}

func (o ProgressiveOptions[T]) withDefaults() ProgressiveOptions[T] {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxItems < 0 {
		o.MaxItems = 0
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultProgressiveTTL
	}
	return o
}

// PageOptions configures LoadPage and LoadWithPreloading.
type PageOptions[T any] struct {
	SkipCache bool
	// CacheTTL defaults to DefaultPageTTL.
	CacheTTL   time.Duration
	Params     url.Values
	OnProgress func(Progress[T])
}

func (o PageOptions[T]) withDefaults() PageOptions[T] {
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultPageTTL
	}
	return o
}

type options struct {
	logger             logger.Logger
	batchDelay         time.Duration
	preloadConcurrency int
	tracerProvider     trace.TracerProvider
}

// Option configures a Loader.
type Option func(*options)

// WithLogger sets the logger. Defaults to a console logger.
func WithLogger(log logger.Logger) Option {
	return func(o *options) { o.logger = log }
}

// WithBatchDelay sets the pause between batches. Zero disables it.
func WithBatchDelay(d time.Duration) Option {
	return func(o *options) { o.batchDelay = d }
}

// WithPreloadConcurrency bounds the number of pages pre-fetched at once.
func WithPreloadConcurrency(n int) Option {
	return func(o *options) { o.preloadConcurrency = n }
}

// WithTracerProvider sets the tracer provider used for load spans. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}
