// Package store is the single owner of the case record set. State changes
// only through Reduce, and the store aggregates failures from the loader
// and the API into the error slot and notifications.
package store

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/agentuity/go-caselaw/api"
	"github.com/agentuity/go-caselaw/cache"
	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/loader"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Default messages used when the server does not provide one.
const (
	MessageLoadFailed   = "Failed to load cases"
	MessageUpdateFailed = "Failed to update case"
	MessageCreateFailed = "Failed to create case"
	MessageSyncFailed   = "Failed to start synchronisation"
)

// Backend is the part of the API the store talks to.
type Backend interface {
	FetchCases(ctx context.Context, endpoint string, params url.Values) ([]caselaw.Case, error)
	UpdateCase(ctx context.Context, id string, update caselaw.Case) (caselaw.Case, error)
	CreateCase(ctx context.Context, record caselaw.Case) (caselaw.Case, error)
	Facets(ctx context.Context) (caselaw.Facets, error)
	TriggerSync(ctx context.Context) (string, error)
}

var _ Backend = (*api.Client)(nil)

// Deps are the collaborators of a Store.
type Deps struct {
	Backend Backend
	Cache   cache.Cache
	Logger  logger.Logger
	// LoaderOptions are passed to the loader the store builds.
	LoaderOptions []loader.Option
}

// Config tunes a Store. Zero values take the documented defaults.
type Config struct {
	// Endpoint is the collection endpoint. Defaults to api.CasesEndpoint.
	Endpoint string
	// ItemsPerPage defaults to DefaultItemsPerPage.
	ItemsPerPage int
	// BatchSize defaults to api.MaxPageSize.
	BatchSize int
	// MaxItems caps a full load. Defaults to 1000; negative loads everything.
	MaxItems int
	CacheTTL time.Duration
	PageTTL  time.Duration
	// PreloadPages is how many pages LoadPage pre-fetches after the
	// requested one.
	PreloadPages int
	// NotificationDuration is how long the store's own notifications stay
	// up. Defaults to 5s.
	NotificationDuration time.Duration
	// SyncReloadDelay is the wait between triggering a sync and reloading.
	// Defaults to 5s.
	SyncReloadDelay time.Duration
	// FiltersTTL is how long the available filters are cached. Defaults
	// to 10m.
	FiltersTTL time.Duration
	// Now is the clock used for LastSync.
	Now func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = api.CasesEndpoint
	}
	if c.ItemsPerPage <= 0 {
		c.ItemsPerPage = DefaultItemsPerPage
	}
	if c.BatchSize <= 0 {
		c.BatchSize = api.MaxPageSize
	}
	switch {
	case c.MaxItems == 0:
		c.MaxItems = 1000
	case c.MaxItems < 0:
		c.MaxItems = 0
	}
	if c.NotificationDuration <= 0 {
		c.NotificationDuration = 5 * time.Second
	}
	if c.SyncReloadDelay <= 0 {
		c.SyncReloadDelay = 5 * time.Second
	}
	if c.FiltersTTL <= 0 {
		c.FiltersTTL = 10 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

type Store struct {
	ctx     context.Context
	cancel  context.CancelFunc
	config  Config
	backend Backend
	cache   cache.Cache
	loader  *loader.Loader[caselaw.Case]
	logger  logger.Logger

	mu    sync.Mutex
	state State

	// loads counts running loads; Loading is set while it is above zero.
	loadMu sync.Mutex
	loads  int

	timerMu      sync.Mutex
	notifyTimers map[string]*time.Timer
	syncTimer    *time.Timer
	pending      sync.WaitGroup
}

// New returns a Store. Background work (the reload after a sync and
// pre-fetched pages) stops when ctx is cancelled or Close is called.
func New(ctx context.Context, deps Deps, config Config) (*Store, error) {
	if deps.Backend == nil {
		return nil, errors.New("store: backend is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("store: cache is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewConsoleLogger()
	}
	config = config.withDefaults()
	log := deps.Logger.WithPrefix("[store]")

	sctx, cancel := context.WithCancel(ctx)
	opts := append([]loader.Option{loader.WithLogger(deps.Logger)}, deps.LoaderOptions...)
	return &Store{
		ctx:     sctx,
		cancel:  cancel,
		config:  config,
		backend: deps.Backend,
		cache:   deps.Cache,
		loader:  loader.New[caselaw.Case](sctx, deps.Cache, loader.FetcherFunc[caselaw.Case](deps.Backend.FetchCases), opts...),
		logger:  log,
		state:   InitialState(config.ItemsPerPage),

		notifyTimers: make(map[string]*time.Timer),
	}, nil
}

// Dispatch applies a to the state. Transitions are applied one at a time in
// the order Dispatch is called.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	s.mu.Unlock()
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// PaginatedCases returns the current page of the filtered view.
func (s *Store) PaginatedCases() []caselaw.Case {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.state.Pagination
	return caselaw.CloneAll(caselaw.Paginate(s.state.FilteredCases, p.CurrentPage, p.ItemsPerPage))
}

// IsLoading reports whether a load or record update is running.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Loading
}

// Populate replaces the record set.
func (s *Store) Populate(cases []caselaw.Case) {
	s.Dispatch(SetAllCases{Cases: cases})
}

func (s *Store) loadOptions() loader.ProgressiveOptions[caselaw.Case] {
	return loader.ProgressiveOptions[caselaw.Case]{
		BatchSize: s.config.BatchSize,
		MaxItems:  s.config.MaxItems,
		CacheTTL:  s.config.CacheTTL,
	}
}

func (s *Store) beginLoad() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.loads++
	if s.loads == 1 {
		s.Dispatch(SetLoading{Loading: true})
	}
}

func (s *Store) endLoad() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	s.loads--
	if s.loads == 0 {
		s.Dispatch(SetLoading{Loading: false})
	}
}

// LoadKey is the cache key of a full load.
func (s *Store) LoadKey() string {
	return s.loader.ProgressiveKey(s.config.Endpoint, s.loadOptions())
}

// Load fetches the whole record set, from the cache when possible, and
// populates the store with it. onProgress, when set, sees every batch.
func (s *Store) Load(ctx context.Context, onProgress func(loaded int)) error {
	s.beginLoad()
	defer s.endLoad()
	s.Dispatch(SetError{})

	opts := s.loadOptions()
	if onProgress != nil {
		opts.OnProgress = func(p loader.Progress[caselaw.Case]) { onProgress(p.Loaded) }
	}
	res := s.loader.LoadProgressively(ctx, s.config.Endpoint, opts)
	switch res.Outcome {
	case loader.OutcomeSuccess:
		s.Dispatch(SetAllCases{Cases: res.Data})
		s.Dispatch(SetLastSync{At: s.config.Now()})
		s.logger.Debug("loaded %d cases (cached: %v)", len(res.Data), res.FromCache)
		return nil
	case loader.OutcomeAborted:
		return res.Err
	default:
		s.fail(res.Err, MessageLoadFailed)
		return res.Err
	}
}

// Refresh drops every cached response of the collection and loads again.
func (s *Store) Refresh(ctx context.Context, onProgress func(loaded int)) error {
	if n, err := s.cache.InvalidatePattern(ctx, s.config.Endpoint); err != nil {
		s.logger.Warn("failed to invalidate cached cases: %s", err)
	} else if n > 0 {
		s.logger.Debug("invalidated %d cached responses", n)
	}
	return s.Load(ctx, onProgress)
}

// AbortLoad cancels a running full load.
func (s *Store) AbortLoad() bool {
	return s.loader.AbortLoading(s.LoadKey()) > 0
}

// LoadPage fetches one page of the server side view matching the active
// filters and pre-fetches the following pages. The store state is not
// changed.
func (s *Store) LoadPage(ctx context.Context, page int) ([]caselaw.Case, bool, error) {
	s.mu.Lock()
	params := s.state.ActiveFilters.Params()
	pageSize := s.state.Pagination.ItemsPerPage
	s.mu.Unlock()

	res := s.loader.LoadWithPreloading(ctx, s.config.Endpoint, page, pageSize, s.config.PreloadPages, loader.PageOptions[caselaw.Case]{
		CacheTTL: s.config.PageTTL,
		Params:   params,
	})
	switch res.Outcome {
	case loader.OutcomeSuccess:
		return res.Data, res.FromCache, nil
	case loader.OutcomeAborted:
		return nil, false, res.Err
	default:
		s.fail(res.Err, MessageLoadFailed)
		return nil, false, res.Err
	}
}

// CommitRecord replaces a record locally without calling the API.
func (s *Store) CommitRecord(record caselaw.Case) {
	s.Dispatch(UpdateCase{Case: record})
}

// AddRecord appends a record locally without calling the API.
func (s *Store) AddRecord(record caselaw.Case) {
	s.Dispatch(AddCase{Case: record})
}

// UpdateRecord sends the replacement to the API and commits the record the
// server returns.
func (s *Store) UpdateRecord(ctx context.Context, id string, update caselaw.Case) (caselaw.Case, error) {
	s.beginLoad()
	defer s.endLoad()

	updated, err := s.backend.UpdateCase(ctx, id, update)
	if err != nil {
		if !isCancel(ctx, err) {
			s.fail(err, MessageUpdateFailed)
		}
		return caselaw.Case{}, err
	}
	s.Dispatch(UpdateCase{Case: updated})
	s.invalidate(ctx)
	return updated, nil
}

// CreateRecord stores a new record through the API and adds it.
func (s *Store) CreateRecord(ctx context.Context, record caselaw.Case) (caselaw.Case, error) {
	created, err := s.backend.CreateCase(ctx, record)
	if err != nil {
		if !isCancel(ctx, err) {
			s.fail(err, MessageCreateFailed)
		}
		return caselaw.Case{}, err
	}
	s.Dispatch(AddCase{Case: created})
	s.invalidate(ctx)
	return created, nil
}

func (s *Store) invalidate(ctx context.Context) {
	if _, err := s.cache.InvalidatePattern(ctx, s.config.Endpoint); err != nil {
		s.logger.Warn("failed to invalidate cached cases: %s", err)
	}
}

func (s *Store) SetFilter(criteria caselaw.FilterCriteria) {
	s.Dispatch(SetActiveFilters{Criteria: criteria})
}

// UpdateFilterField sets one filter field by name.
func (s *Store) UpdateFilterField(field caselaw.FilterField, value string) error {
	if !field.Valid() {
		return errors.Newf("unknown filter field %q", field)
	}
	s.Dispatch(UpdateFilter{Field: field, Value: value})
	return nil
}

func (s *Store) ClearFilters() {
	s.Dispatch(ClearFilters{})
}

// SetPage moves to page n. Values below 1 select the first page.
func (s *Store) SetPage(n int) {
	s.Dispatch(UpdatePage{Page: n})
}

func (s *Store) SetPagination(currentPage, itemsPerPage int) {
	s.Dispatch(SetPagination{CurrentPage: currentPage, ItemsPerPage: itemsPerPage})
}

// SetNotification shows n and, when n.Duration is positive, clears it once
// the duration has passed unless another notification replaced it first.
func (s *Store) SetNotification(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = NotificationInfo
	}
	s.Dispatch(SetNotification{Notification: n})
	s.armNotification(n)
	return n
}

// armNotification clears n after its duration. Every notification has its
// own timer; ClearNotification only matches the ID it was armed for, so a
// timer outliving its notification does nothing.
func (s *Store) armNotification(n Notification) {
	if n.Duration <= 0 {
		return
	}
	id := n.ID
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	s.notifyTimers[id] = time.AfterFunc(n.Duration, func() {
		s.timerMu.Lock()
		delete(s.notifyTimers, id)
		s.timerMu.Unlock()
		s.Dispatch(ClearNotification{ID: id})
	})
}

func (s *Store) ClearNotification() {
	s.Dispatch(ClearNotification{})
}

// FetchAvailableFilters loads the filter values, from the cache when
// possible. Failures are logged and returned but not shown to the user.
func (s *Store) FetchAvailableFilters(ctx context.Context) (caselaw.Facets, error) {
	key := cache.GenerateKey(api.FiltersEndpoint, nil)
	_, facets, err := cache.Exec[caselaw.Facets](ctx, cache.CacheConfig{Key: key, Expires: s.config.FiltersTTL}, s.cache, func(ctx context.Context) (caselaw.Facets, bool, error) {
		facets, err := s.backend.Facets(ctx)
		if err != nil {
			return caselaw.Facets{}, false, err
		}
		return facets, true, nil
	})
	if err != nil {
		s.logger.Warn("failed to fetch available filters: %s", err)
		return caselaw.Facets{}, err
	}
	s.Dispatch(SetAvailableFilters{Facets: facets})
	return facets.Clone(), nil
}

// SyncFromSource asks the server to refresh its data and reloads once
// SyncReloadDelay has passed. Syncing stays set until the reload ends.
// It returns the server's message.
func (s *Store) SyncFromSource(ctx context.Context) (string, error) {
	s.Dispatch(SetSyncing{Syncing: true})
	s.Dispatch(SetError{})

	message, err := s.backend.TriggerSync(ctx)
	if err != nil {
		if !isCancel(ctx, err) {
			s.fail(err, MessageSyncFailed)
		}
		s.Dispatch(SetSyncing{Syncing: false})
		return "", err
	}
	if message != "" {
		s.SetNotification(Notification{Message: message, Type: NotificationSuccess, Duration: s.config.NotificationDuration})
	}

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.syncTimer != nil && s.syncTimer.Stop() {
		s.pending.Done()
	}
	s.pending.Add(1)
	s.syncTimer = time.AfterFunc(s.config.SyncReloadDelay, func() {
		defer s.pending.Done()
		if err := s.Refresh(s.ctx, nil); err != nil {
			s.logger.Warn("reload after sync failed: %s", err)
		}
		s.Dispatch(SetSyncing{Syncing: false})
	})
	return message, nil
}

// Wait blocks until a pending reload after a sync and every background
// page pre-fetch have finished.
func (s *Store) Wait() {
	s.pending.Wait()
	s.loader.Wait()
}

// Close stops background work. The state stays readable.
func (s *Store) Close() error {
	s.timerMu.Lock()
	for id, t := range s.notifyTimers {
		t.Stop()
		delete(s.notifyTimers, id)
	}
	if s.syncTimer != nil && s.syncTimer.Stop() {
		s.pending.Done()
		s.Dispatch(SetSyncing{Syncing: false})
	}
	s.timerMu.Unlock()

	s.cancel()
	s.pending.Wait()
	return s.loader.Close()
}

// fail records a failure in the error slot and as a notification.
func (s *Store) fail(err error, fallback string) {
	message := api.Message(err, fallback)
	s.logger.Error("%s: %s", fallback, err)
	s.Dispatch(SetError{Message: message})
	s.SetNotification(Notification{Message: message, Type: NotificationError, Duration: s.config.NotificationDuration})
}

func isCancel(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || (ctx.Err() != nil && !errors.Is(err, context.DeadlineExceeded))
}
