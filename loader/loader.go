// Package loader fetches large record sets from a paginated endpoint in
// batches, caching completed results and reporting progress as batches
// arrive. Every load can be aborted by key, and pages can be pre-fetched in
// the background.
package loader

import (
	"context"
	"net/url"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/agentuity/go-caselaw/cache"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "github.com/agentuity/go-caselaw/loader"

// ErrAborted is the cause of a load cancelled with AbortLoading or AbortAll.
var ErrAborted = errors.New("load aborted")

// Fetcher retrieves one batch of records. The params always carry skip and
// limit alongside any caller supplied parameters.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, endpoint string, params url.Values) ([]T, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc[T any] func(ctx context.Context, endpoint string, params url.Values) ([]T, error)

func (f FetcherFunc[T]) Fetch(ctx context.Context, endpoint string, params url.Values) ([]T, error) {
	return f(ctx, endpoint, params)
}

// Outcome tells how a load ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeError
	OutcomeAborted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeError:
		return "error"
	case OutcomeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a load. Data is only set on success and is never
// shared with the cache.
type Result[T any] struct {
	Outcome   Outcome
	Data      []T
	FromCache bool
	Err       error
	Message   string
}

// Loader runs batched loads against a Fetcher, backed by a Cache.
type Loader[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	cache   cache.Cache
	fetcher Fetcher[T]
	logger  logger.Logger
	tracer  trace.Tracer

	batchDelay         time.Duration
	preloadConcurrency int

	mu       sync.Mutex
	nextID   uint64
	inflight map[string]map[uint64]context.CancelCauseFunc

	background sync.WaitGroup
}

// New returns a Loader. Background pre-fetches run under ctx and stop when
// it is cancelled or Close is called.
func New[T any](ctx context.Context, c cache.Cache, fetcher Fetcher[T], opts ...Option) *Loader[T] {
	o := options{
		batchDelay:         DefaultBatchDelay,
		preloadConcurrency: DefaultPreloadConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.NewConsoleLogger()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.preloadConcurrency <= 0 {
		o.preloadConcurrency = 1
	}
	lctx, cancel := context.WithCancel(ctx)
	return &Loader[T]{
		ctx:                lctx,
		cancel:             cancel,
		cache:              c,
		fetcher:            fetcher,
		logger:             o.logger.WithPrefix("[loader]"),
		tracer:             o.tracerProvider.Tracer(tracerName),
		batchDelay:         o.batchDelay,
		preloadConcurrency: o.preloadConcurrency,
		inflight:           make(map[string]map[uint64]context.CancelCauseFunc),
	}
}

// ProgressiveKey returns the cache and abort key of a progressive load.
func (l *Loader[T]) ProgressiveKey(endpoint string, opts ProgressiveOptions[T]) string {
	opts = opts.withDefaults()
	return cache.GenerateKey(endpoint, cache.ParamsFromValues(opts.Params, map[string]any{
		"batchSize": opts.BatchSize,
		"maxItems":  opts.MaxItems,
	}))
}

// PageKey returns the cache and abort key of a single page.
func (l *Loader[T]) PageKey(endpoint string, page, pageSize int, params url.Values) string {
	return cache.GenerateKey(endpoint, cache.ParamsFromValues(params, map[string]any{
		"page":     page,
		"pageSize": pageSize,
	}))
}

// LoadProgressively loads every record of endpoint in batches of
// opts.BatchSize, stopping at a short or empty batch or once opts.MaxItems
// records have arrived. A cached result for the same key is returned without
// any request. Only a complete load is cached: a failed or aborted load
// discards what it received.
func (l *Loader[T]) LoadProgressively(ctx context.Context, endpoint string, opts ProgressiveOptions[T]) Result[T] {
	opts = opts.withDefaults()
	key := l.ProgressiveKey(endpoint, opts)

	ctx, span := l.tracer.Start(ctx, "loader.LoadProgressively", trace.WithAttributes(
		attribute.String("loader.key", key),
		attribute.Int("loader.batch_size", opts.BatchSize),
		attribute.Int("loader.max_items", opts.MaxItems),
	))
	defer span.End()

	if !opts.SkipCache {
		if data, ok := l.cached(ctx, key); ok {
			span.SetAttributes(attribute.Bool("loader.from_cache", true), attribute.Int("loader.items", len(data)))
			l.logger.Debug("%s served from cache (%d records)", key, len(data))
			if opts.OnProgress != nil {
				opts.OnProgress(Progress[T]{Loaded: len(data), Total: len(data), Data: data})
			}
			return Result[T]{Outcome: OutcomeSuccess, Data: data, FromCache: true}
		}
	}

	ctx, done := l.register(ctx, key)
	defer done()

	total := -1
	if opts.MaxItems > 0 {
		total = opts.MaxItems
	}

	all := make([]T, 0, opts.BatchSize)
	for {
		limit := opts.BatchSize
		if opts.MaxItems > 0 && opts.MaxItems-len(all) < limit {
			limit = opts.MaxItems - len(all)
		}
		batch, err := l.fetchBatch(ctx, endpoint, opts.Params, len(all), limit)
		if err != nil {
			return l.fail(ctx, span, key, err, opts.OnError)
		}
		all = append(all, batch...)

		if opts.OnProgress != nil {
			opts.OnProgress(Progress[T]{Loaded: len(all), Total: total, Data: slices.Clone(all), Batch: batch})
		}

		if len(batch) < limit || (opts.MaxItems > 0 && len(all) >= opts.MaxItems) {
			break
		}
		if err := sleep(ctx, l.batchDelay); err != nil {
			return l.fail(ctx, span, key, err, opts.OnError)
		}
	}

	if err := context.Cause(ctx); err != nil {
		return l.fail(ctx, span, key, err, opts.OnError)
	}

	l.store(ctx, key, all, opts.CacheTTL)
	span.SetAttributes(attribute.Int("loader.items", len(all)))
	l.logger.Debug("%s loaded %d records", key, len(all))
	return Result[T]{Outcome: OutcomeSuccess, Data: all}
}

// LoadPage loads a single page of pageSize records. Pages are numbered from
// 1 and cached independently of each other.
func (l *Loader[T]) LoadPage(ctx context.Context, endpoint string, page, pageSize int, opts PageOptions[T]) Result[T] {
	opts = opts.withDefaults()
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultBatchSize
	}
	key := l.PageKey(endpoint, page, pageSize, opts.Params)

	ctx, span := l.tracer.Start(ctx, "loader.LoadPage", trace.WithAttributes(
		attribute.String("loader.key", key),
		attribute.Int("loader.page", page),
		attribute.Int("loader.page_size", pageSize),
	))
	defer span.End()

	if !opts.SkipCache {
		if data, ok := l.cached(ctx, key); ok {
			span.SetAttributes(attribute.Bool("loader.from_cache", true))
			if opts.OnProgress != nil {
				opts.OnProgress(Progress[T]{Loaded: len(data), Total: -1, Data: data})
			}
			return Result[T]{Outcome: OutcomeSuccess, Data: data, FromCache: true}
		}
	}

	ctx, done := l.register(ctx, key)
	defer done()

	batch, err := l.fetchBatch(ctx, endpoint, opts.Params, (page-1)*pageSize, pageSize)
	if err == nil {
		err = context.Cause(ctx)
	}
	if err != nil {
		return l.fail(ctx, span, key, err, nil)
	}

	l.store(ctx, key, batch, opts.CacheTTL)
	if opts.OnProgress != nil {
		opts.OnProgress(Progress[T]{Loaded: len(batch), Total: -1, Data: slices.Clone(batch), Batch: batch})
	}
	return Result[T]{Outcome: OutcomeSuccess, Data: batch}
}

// LoadWithPreloading loads page and then pre-fetches the following
// preloadPages pages in the background. Pre-fetch failures are logged and
// otherwise ignored. A short page has no successor, so nothing is
// pre-fetched after it.
func (l *Loader[T]) LoadWithPreloading(ctx context.Context, endpoint string, page, pageSize, preloadPages int, opts PageOptions[T]) Result[T] {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultBatchSize
	}
	res := l.LoadPage(ctx, endpoint, page, pageSize, opts)
	if res.Outcome != OutcomeSuccess || preloadPages <= 0 || len(res.Data) < pageSize {
		return res
	}

	opts.OnProgress = nil
	l.background.Add(1)
	go func() {
		defer l.background.Done()
		var g errgroup.Group
		g.SetLimit(l.preloadConcurrency)
		for next := page + 1; next <= page+preloadPages; next++ {
			g.Go(func() error {
				if l.ctx.Err() != nil {
					return nil
				}
				r := l.LoadPage(l.ctx, endpoint, next, pageSize, opts)
				if r.Outcome == OutcomeError {
					l.logger.Warn("preload of page %d failed: %s", next, r.Message)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
	return res
}

// AbortLoading cancels every in-flight load registered under key and
// returns how many were cancelled.
func (l *Loader[T]) AbortLoading(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	loads := l.inflight[key]
	for _, cancel := range loads {
		cancel(ErrAborted)
	}
	delete(l.inflight, key)
	return len(loads)
}

// AbortAll cancels every in-flight load.
func (l *Loader[T]) AbortAll() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var count int
	for key, loads := range l.inflight {
		for _, cancel := range loads {
			cancel(ErrAborted)
			count++
		}
		delete(l.inflight, key)
	}
	return count
}

// IsLoading reports whether a load is in flight under key.
func (l *Loader[T]) IsLoading(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.inflight[key]) > 0
}

// Wait blocks until every background pre-fetch has finished.
func (l *Loader[T]) Wait() {
	l.background.Wait()
}

// Close aborts every load and waits for background work to stop.
func (l *Loader[T]) Close() error {
	l.cancel()
	if n := l.AbortAll(); n > 0 {
		l.logger.Debug("aborted %d loads on close", n)
	}
	l.background.Wait()
	return nil
}

func (l *Loader[T]) register(parent context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(parent)
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	loads := l.inflight[key]
	if loads == nil {
		loads = make(map[uint64]context.CancelCauseFunc)
		l.inflight[key] = loads
	}
	loads[id] = cancel
	l.mu.Unlock()

	return ctx, func() {
		l.mu.Lock()
		if loads, ok := l.inflight[key]; ok {
			delete(loads, id)
			if len(loads) == 0 {
				delete(l.inflight, key)
			}
		}
		l.mu.Unlock()
		cancel(nil)
	}
}

func (l *Loader[T]) fetchBatch(ctx context.Context, endpoint string, base url.Values, skip, limit int) ([]T, error) {
	ctx, span := l.tracer.Start(ctx, "loader.fetchBatch", trace.WithAttributes(
		attribute.Int("loader.skip", skip),
		attribute.Int("loader.limit", limit),
	))
	defer span.End()

	params := make(url.Values, len(base)+2)
	for name, vals := range base {
		params[name] = slices.Clone(vals)
	}
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))

	batch, err := l.fetcher.Fetch(ctx, endpoint, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(batch) > limit {
		batch = batch[:limit]
	}
	span.SetAttributes(attribute.Int("loader.received", len(batch)))
	return batch, nil
}

// fail turns err into an aborted or error result. A load whose context was
// cancelled is aborted; a deadline is an error.
func (l *Loader[T]) fail(ctx context.Context, span trace.Span, key string, err error, onError func(string)) Result[T] {
	if aborted(ctx, err) {
		span.SetAttributes(attribute.Bool("loader.aborted", true))
		l.logger.Debug("%s aborted", key)
		return Result[T]{Outcome: OutcomeAborted, Err: ErrAborted}
	}
	msg := err.Error()
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	l.logger.Error("%s failed: %s", key, msg)
	if onError != nil {
		onError(msg)
	}
	return Result[T]{Outcome: OutcomeError, Err: err, Message: msg}
}

func aborted(ctx context.Context, err error) bool {
	if cause := context.Cause(ctx); cause != nil {
		return !errors.Is(cause, context.DeadlineExceeded)
	}
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

func (l *Loader[T]) cached(ctx context.Context, key string) ([]T, bool) {
	found, data, err := cache.Get[[]T](ctx, l.cache, key)
	if err != nil {
		l.logger.Warn("ignoring unreadable cache entry %s: %s", key, err)
		return nil, false
	}
	if !found {
		return nil, false
	}
	if data == nil {
		data = []T{}
	}
	return data, true
}

func (l *Loader[T]) store(ctx context.Context, key string, data []T, ttl time.Duration) {
	encoded, err := cache.Encode(data)
	if err != nil {
		l.logger.Warn("not caching %s: %s", key, err)
		return
	}
	if err := l.cache.Set(ctx, key, encoded, ttl); err != nil {
		l.logger.Warn("not caching %s: %s", key, err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
