package store

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/agentuity/go-caselaw/api"
	"github.com/agentuity/go-caselaw/cache"
	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/agentuity/go-caselaw/loader"
	"github.com/agentuity/go-caselaw/logger"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend serves an in-memory record set the way the API does.
type fakeBackend struct {
	mu         sync.Mutex
	cases      []caselaw.Case
	queries    []url.Values
	fetchErr   error
	updateErr  error
	updates    []string
	facets     caselaw.Facets
	facetCalls int
	facetErr   error
	syncCalls  int
	syncMsg    string
	syncErr    error
}

func (b *fakeBackend) setCases(cases []caselaw.Case) {
	b.mu.Lock()
	b.cases = cases
	b.mu.Unlock()
}

func (b *fakeBackend) fetches() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queries)
}

func (b *fakeBackend) FetchCases(ctx context.Context, endpoint string, params url.Values) ([]caselaw.Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, params)
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	matching := b.cases
	if t := params.Get("case_type"); t != "" {
		matching = caselaw.Filter(matching, caselaw.FilterCriteria{CaseType: t})
	}
	skip, _ := strconv.Atoi(params.Get("skip"))
	limit, _ := strconv.Atoi(params.Get("limit"))
	if skip >= len(matching) {
		return []caselaw.Case{}, nil
	}
	end := min(skip+limit, len(matching))
	return caselaw.CloneAll(matching[skip:end]), nil
}

func (b *fakeBackend) UpdateCase(ctx context.Context, id string, update caselaw.Case) (caselaw.Case, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, id)
	if b.updateErr != nil {
		return caselaw.Case{}, b.updateErr
	}
	update.ID = id
	update.Summary = "updated by server"
	return update, nil
}

func (b *fakeBackend) CreateCase(ctx context.Context, record caselaw.Case) (caselaw.Case, error) {
	record.ID = "created"
	return record, nil
}

func (b *fakeBackend) Facets(ctx context.Context) (caselaw.Facets, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.facetCalls++
	return b.facets, b.facetErr
}

func (b *fakeBackend) TriggerSync(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.syncCalls++
	return b.syncMsg, b.syncErr
}

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newStore(t *testing.T, backend Backend, config Config) (*Store, cache.Cache, *logger.TestLogger) {
	t.Helper()
	ctx := context.Background()
	c := cache.NewInMemory(ctx)
	log := logger.NewTestLogger()
	if config.Now == nil {
		config.Now = func() time.Time { return fixedNow }
	}
	s, err := New(ctx, Deps{
		Backend:       backend,
		Cache:         c,
		Logger:        log,
		LoaderOptions: []loader.Option{loader.WithBatchDelay(0)},
	}, config)
	require.NoError(t, err)
	t.Cleanup(func() {
		s.Close()
		c.Close()
	})
	return s, c, log
}

func numbered(n int) []caselaw.Case {
	cases := make([]caselaw.Case, n)
	for i := range cases {
		typ := caselaw.TypeOrder
		if i%2 == 1 {
			typ = caselaw.TypeDecision
		}
		cases[i] = caselaw.Case{
			ID:   fmt.Sprint(i + 1),
			Date: fmt.Sprintf("2024-%02d-01", i%12+1),
			Type: typ,
		}
	}
	return cases
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(context.Background(), Deps{}, Config{})
	assert.Error(t, err)
	_, err = New(context.Background(), Deps{Backend: &fakeBackend{}}, Config{})
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	s, _, _ := newStore(t, backend, Config{})

	var progress []int
	require.NoError(t, s.Load(context.Background(), func(n int) { progress = append(progress, n) }))
	assert.Equal(t, []int{10}, progress)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Len(t, state.AllCases, 10)
	assert.Len(t, state.FilteredCases, 10)
	assert.Equal(t, 10, state.Stats.TotalCases)
	assert.Equal(t, 10, state.Pagination.TotalCount)
	require.NotNil(t, state.LastSync)
	assert.Equal(t, fixedNow, *state.LastSync)

	// the second load is served from the cache
	require.NoError(t, s.Load(context.Background(), nil))
	assert.Equal(t, 1, backend.fetches())
	assert.Len(t, s.State().AllCases, 10)
}

func TestLoadBatches(t *testing.T) {
	backend := &fakeBackend{cases: numbered(250)}
	s, _, _ := newStore(t, backend, Config{})

	var progress []int
	require.NoError(t, s.Load(context.Background(), func(n int) { progress = append(progress, n) }))
	assert.Equal(t, []int{100, 200, 250}, progress)
	assert.Len(t, s.State().AllCases, 250)
	assert.Equal(t, "0", backend.queries[0].Get("skip"))
	assert.Equal(t, "200", backend.queries[2].Get("skip"))
}

func TestLoadMaxItems(t *testing.T) {
	backend := &fakeBackend{cases: numbered(50)}
	s, _, _ := newStore(t, backend, Config{BatchSize: 10, MaxItems: 25})
	require.NoError(t, s.Load(context.Background(), nil))
	assert.Len(t, s.State().AllCases, 25)
	assert.Equal(t, "5", backend.queries[2].Get("limit"))
}

func TestRefreshBypassesCache(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	s, c, _ := newStore(t, backend, Config{})
	ctx := context.Background()

	require.NoError(t, s.Load(ctx, nil))
	_, ok := c.Entry(ctx, s.LoadKey())
	require.True(t, ok)

	backend.setCases(tenCases()[:4])
	require.NoError(t, s.Load(ctx, nil))
	assert.Len(t, s.State().AllCases, 10, "served from cache")

	require.NoError(t, s.Refresh(ctx, nil))
	assert.Len(t, s.State().AllCases, 4)
	assert.Equal(t, 2, backend.fetches())
}

func TestLoadFailure(t *testing.T) {
	backend := &fakeBackend{fetchErr: &api.Error{Status: 503, Detail: "Database unavailable", TheError: errors.New("request failed")}}
	s, c, log := newStore(t, backend, Config{})

	err := s.Load(context.Background(), nil)
	require.Error(t, err)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Equal(t, "Database unavailable", state.Error)
	require.NotNil(t, state.Notification)
	assert.Equal(t, NotificationError, state.Notification.Type)
	assert.Equal(t, "Database unavailable", state.Notification.Message)
	assert.NotEmpty(t, state.Notification.ID)
	assert.Empty(t, state.AllCases)
	assert.True(t, log.Contains("ERROR", MessageLoadFailed))

	_, ok := c.Entry(context.Background(), s.LoadKey())
	assert.False(t, ok, "a failed load is not cached")
}

func TestLoadFailureFallbackMessage(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("connection refused")}
	s, _, _ := newStore(t, backend, Config{})
	require.Error(t, s.Load(context.Background(), nil))
	assert.Equal(t, MessageLoadFailed, s.State().Error)
}

func TestLoadErrorClearedBySuccess(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("boom"), cases: tenCases()}
	s, _, _ := newStore(t, backend, Config{})
	require.Error(t, s.Load(context.Background(), nil))
	require.NotEmpty(t, s.State().Error)

	backend.mu.Lock()
	backend.fetchErr = nil
	backend.mu.Unlock()
	require.NoError(t, s.Load(context.Background(), nil))
	assert.Empty(t, s.State().Error)
}

func TestLoadAbortedIsSilent(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	s, _, log := newStore(t, backend, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Load(ctx, nil)
	assert.ErrorIs(t, err, loader.ErrAborted)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
	assert.Nil(t, state.Notification)
	assert.False(t, log.Contains("ERROR", MessageLoadFailed))
}

func TestAbortLoad(t *testing.T) {
	blocked := make(chan struct{})
	backend := &blockingBackend{fakeBackend: fakeBackend{cases: tenCases()}, blocked: blocked}
	s, _, _ := newStore(t, backend, Config{})

	errc := make(chan error, 1)
	go func() { errc <- s.Load(context.Background(), nil) }()
	<-blocked
	assert.True(t, s.IsLoading())
	assert.True(t, s.AbortLoad())

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, loader.ErrAborted)
	case <-time.After(2 * time.Second):
		t.Fatal("load was not aborted")
	}
	assert.Empty(t, s.State().Error)
	assert.False(t, s.AbortLoad())
}

// blockingBackend holds every fetch until its context is done.
type blockingBackend struct {
	fakeBackend
	once    sync.Once
	blocked chan struct{}
}

func (b *blockingBackend) FetchCases(ctx context.Context, endpoint string, params url.Values) ([]caselaw.Case, error) {
	b.once.Do(func() { close(b.blocked) })
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestFilterView(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{cases: tenCases()}, Config{})
	require.NoError(t, s.Load(context.Background(), nil))

	s.SetFilter(caselaw.FilterCriteria{CaseType: caselaw.TypeOrder, DateFrom: "2024-01-01"})
	state := s.State()
	assert.Equal(t, []string{"2", "4", "6", "9"}, ids(state.FilteredCases))
	for _, c := range state.FilteredCases {
		assert.Equal(t, caselaw.TypeOrder, c.Type)
		at, ok := caselaw.ParseDate(c.Date)
		require.True(t, ok)
		assert.False(t, at.Before(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	}
	assert.Equal(t, 10, state.Stats.TotalCases)

	require.NoError(t, s.UpdateFilterField(caselaw.FieldLanguage, "EN"))
	assert.Equal(t, []string{"6"}, ids(s.State().FilteredCases))

	assert.Error(t, s.UpdateFilterField("jurisdiction", "x"))

	s.ClearFilters()
	assert.Len(t, s.State().FilteredCases, 10)
}

func TestFilterResetsPage(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{ItemsPerPage: 2})
	s.Populate(numbered(20))
	s.SetPage(5)
	require.Equal(t, 5, s.State().Pagination.CurrentPage)

	require.NoError(t, s.UpdateFilterField(caselaw.FieldCaseType, caselaw.TypeOrder))
	assert.Equal(t, 1, s.State().Pagination.CurrentPage)
	assert.Equal(t, 10, s.State().Pagination.TotalCount)
}

func TestPaginatedCases(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})
	s.Populate(numbered(45))

	assert.Len(t, s.PaginatedCases(), 20)
	s.SetPage(3)
	page := s.PaginatedCases()
	assert.Equal(t, []string{"41", "42", "43", "44", "45"}, ids(page))
	assert.Equal(t, 3, s.State().Pagination.Pages())

	s.SetPage(4)
	assert.Empty(t, s.PaginatedCases())

	s.SetPagination(1, 50)
	assert.Len(t, s.PaginatedCases(), 45)

	page = s.PaginatedCases()
	page[0].ID = "changed"
	assert.Equal(t, "1", s.State().AllCases[0].ID)
}

func TestStateIsSnapshot(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})
	s.Populate(tenCases())
	state := s.State()
	state.AllCases[0].ID = "changed"
	state.Stats.ByType[caselaw.TypeOrder] = 99
	assert.Equal(t, "1", s.State().AllCases[0].ID)
	assert.Equal(t, 6, s.State().Stats.ByType[caselaw.TypeOrder])
}

func TestUpdateRecord(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	s, c, _ := newStore(t, backend, Config{})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, nil))
	s.SetFilter(caselaw.FilterCriteria{CaseType: caselaw.TypeOrder})
	require.Len(t, s.State().FilteredCases, 6)

	record := s.State().AllCases[0]
	record.Type = caselaw.TypeDecision
	updated, err := s.UpdateRecord(ctx, record.ID, record)
	require.NoError(t, err)
	assert.Equal(t, "updated by server", updated.Summary)

	state := s.State()
	assert.False(t, state.Loading)
	assert.Equal(t, caselaw.TypeDecision, state.AllCases[0].Type)
	assert.Equal(t, "updated by server", state.AllCases[0].Summary)
	assert.Len(t, state.FilteredCases, 5)
	assert.Equal(t, 5, state.Stats.ByType[caselaw.TypeDecision])

	_, ok := c.Entry(ctx, s.LoadKey())
	assert.False(t, ok, "cached collection is invalidated")
}

func TestUpdateRecordFailure(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	backend.updateErr = &api.Error{Status: 404, Detail: "Case not found", TheError: errors.New("not found")}
	s, _, _ := newStore(t, backend, Config{})
	require.NoError(t, s.Load(context.Background(), nil))

	_, err := s.UpdateRecord(context.Background(), "1", caselaw.Case{Type: caselaw.TypeDecision})
	require.Error(t, err)
	assert.Equal(t, 404, api.StatusCode(err))

	state := s.State()
	assert.Equal(t, "Case not found", state.Error)
	assert.Equal(t, caselaw.TypeOrder, state.AllCases[0].Type)
}

func TestLocalRecords(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})
	s.Populate(tenCases())

	s.AddRecord(caselaw.Case{ID: "11", Date: "2024-08-01", Type: caselaw.TypeOrder})
	assert.Equal(t, 11, s.State().Stats.TotalCases)
	assert.Equal(t, "11", s.State().Stats.Recent[0].ID)

	s.CommitRecord(caselaw.Case{ID: "11", Date: "2024-08-01", Type: caselaw.TypeDecision})
	assert.Equal(t, 5, s.State().Stats.ByType[caselaw.TypeDecision])

	created, err := s.CreateRecord(context.Background(), caselaw.Case{Date: "2024-09-01", Type: caselaw.TypeOrder})
	require.NoError(t, err)
	assert.Equal(t, "created", created.ID)
	assert.Len(t, s.State().AllCases, 12)
}

func TestNotificationAutoClear(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})

	n := s.SetNotification(Notification{Message: "saved", Type: NotificationSuccess, Duration: 20 * time.Millisecond})
	assert.NotEmpty(t, n.ID)
	require.NotNil(t, s.State().Notification)
	assert.Eventually(t, func() bool { return s.State().Notification == nil }, time.Second, 5*time.Millisecond)
}

func TestNotificationReplacedIsNotClearedByOldTimer(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})

	s.SetNotification(Notification{Message: "first", Duration: 20 * time.Millisecond})
	second := s.SetNotification(Notification{Message: "second"})
	assert.Equal(t, NotificationInfo, second.Type)

	time.Sleep(60 * time.Millisecond)
	state := s.State()
	require.NotNil(t, state.Notification)
	assert.Equal(t, "second", state.Notification.Message)

	s.ClearNotification()
	assert.Nil(t, s.State().Notification)
}

func TestOverlappingNotificationsEachClear(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})

	// first is shown before second but its timer is armed after second's
	first := Notification{ID: "first", Message: "first", Type: NotificationError, Duration: time.Hour}
	s.Dispatch(SetNotification{Notification: first})
	s.SetNotification(Notification{ID: "second", Message: "second", Duration: 20 * time.Millisecond})
	s.armNotification(first)

	require.NotNil(t, s.State().Notification)
	assert.Equal(t, "second", s.State().Notification.ID)
	assert.Eventually(t, func() bool { return s.State().Notification == nil }, time.Second, 5*time.Millisecond)
}

func TestConcurrentNotificationsClear(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.SetNotification(Notification{Message: fmt.Sprintf("n%d", i), Duration: 10 * time.Millisecond})
		}()
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return s.State().Notification == nil }, time.Second, 5*time.Millisecond)
}

func TestCloseStopsNotificationTimers(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})
	s.SetNotification(Notification{Message: "pending", Duration: time.Hour})
	require.NoError(t, s.Close())

	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	assert.Empty(t, s.notifyTimers)
}

// gatedBackend holds the first fetch until gate is closed.
type gatedBackend struct {
	fakeBackend
	once    sync.Once
	started chan struct{}
	gate    chan struct{}
}

func (b *gatedBackend) FetchCases(ctx context.Context, endpoint string, params url.Values) ([]caselaw.Case, error) {
	first := false
	b.once.Do(func() {
		first = true
		close(b.started)
	})
	if first {
		select {
		case <-b.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return b.fakeBackend.FetchCases(ctx, endpoint, params)
}

func TestOverlappingLoadsKeepLoading(t *testing.T) {
	backend := &gatedBackend{
		fakeBackend: fakeBackend{cases: tenCases()},
		started:     make(chan struct{}),
		gate:        make(chan struct{}),
	}
	s, _, _ := newStore(t, backend, Config{})

	errc := make(chan error, 1)
	go func() { errc <- s.Load(context.Background(), nil) }()
	<-backend.started

	require.NoError(t, s.Load(context.Background(), nil))
	assert.True(t, s.IsLoading(), "the first load is still running")

	close(backend.gate)
	select {
	case err := <-errc:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("first load did not finish")
	}
	assert.False(t, s.IsLoading())
}

func TestFetchAvailableFilters(t *testing.T) {
	backend := &fakeBackend{facets: caselaw.Facets{
		CaseTypes:      []string{caselaw.TypeDecision, caselaw.TypeOrder},
		CourtDivisions: []string{"Munich LD", "Paris LD"},
		Languages:      []string{"DE", "EN", "FR"},
	}}
	s, _, _ := newStore(t, backend, Config{})
	ctx := context.Background()

	facets, err := s.FetchAvailableFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DE", "EN", "FR"}, facets.Languages)
	assert.Equal(t, []string{"Munich LD", "Paris LD"}, s.State().AvailableFilters.CourtDivisions)

	_, err = s.FetchAvailableFilters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.facetCalls)
}

func TestFetchAvailableFiltersFailure(t *testing.T) {
	backend := &fakeBackend{facetErr: errors.New("boom")}
	s, _, log := newStore(t, backend, Config{})
	_, err := s.FetchAvailableFilters(context.Background())
	require.Error(t, err)
	assert.Empty(t, s.State().Error)
	assert.Nil(t, s.State().Notification)
	assert.True(t, log.Contains("WARNING", "failed to fetch available filters"))
}

func TestSyncFromSource(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()[:3], syncMsg: "Sync started"}
	s, _, _ := newStore(t, backend, Config{SyncReloadDelay: 50 * time.Millisecond})
	ctx := context.Background()
	require.NoError(t, s.Load(ctx, nil))

	backend.setCases(tenCases())
	msg, err := s.SyncFromSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sync started", msg)

	state := s.State()
	assert.True(t, state.Syncing)
	require.NotNil(t, state.Notification)
	assert.Equal(t, NotificationSuccess, state.Notification.Type)
	assert.Equal(t, "Sync started", state.Notification.Message)

	s.Wait()
	state = s.State()
	assert.False(t, state.Syncing)
	assert.Len(t, state.AllCases, 10)
	assert.Equal(t, 1, backend.syncCalls)
}

func TestSyncFailure(t *testing.T) {
	backend := &fakeBackend{syncErr: &api.Error{Status: 500, TheError: errors.New("internal")}}
	s, _, _ := newStore(t, backend, Config{})

	_, err := s.SyncFromSource(context.Background())
	require.Error(t, err)
	state := s.State()
	assert.False(t, state.Syncing)
	assert.Equal(t, MessageSyncFailed, state.Error)
	require.NotNil(t, state.Notification)
	assert.Equal(t, NotificationError, state.Notification.Type)
}

func TestCloseCancelsPendingSync(t *testing.T) {
	backend := &fakeBackend{syncMsg: "ok"}
	s, _, _ := newStore(t, backend, Config{SyncReloadDelay: time.Hour})
	_, err := s.SyncFromSource(context.Background())
	require.NoError(t, err)
	require.True(t, s.State().Syncing)

	require.NoError(t, s.Close())
	assert.False(t, s.State().Syncing)
	assert.Equal(t, 0, backend.fetches())
}

func TestLoadPage(t *testing.T) {
	backend := &fakeBackend{cases: tenCases()}
	s, _, _ := newStore(t, backend, Config{ItemsPerPage: 2, PreloadPages: 1})
	ctx := context.Background()
	s.SetFilter(caselaw.FilterCriteria{CaseType: caselaw.TypeOrder})

	page, fromCache, err := s.LoadPage(ctx, 1)
	require.NoError(t, err)
	assert.False(t, fromCache)
	assert.Equal(t, []string{"1", "2"}, ids(page))
	s.Wait()

	page, fromCache, err = s.LoadPage(ctx, 2)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, []string{"4", "6"}, ids(page))
	s.Wait()

	backend.mu.Lock()
	defer backend.mu.Unlock()
	for _, q := range backend.queries {
		assert.Equal(t, caselaw.TypeOrder, q.Get("case_type"))
	}
	assert.Len(t, backend.queries, 3)
	assert.Empty(t, s.State().AllCases, "pages do not change the record set")
}

func TestConcurrentDispatch(t *testing.T) {
	s, _, _ := newStore(t, &fakeBackend{}, Config{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.AddRecord(caselaw.Case{ID: fmt.Sprint(i), Type: caselaw.TypeOrder})
			_ = s.State()
		}(i)
	}
	wg.Wait()
	state := s.State()
	assert.Len(t, state.AllCases, 50)
	assert.Equal(t, 50, state.Stats.TotalCases)
	assert.Equal(t, 50, state.Pagination.TotalCount)
}

func TestStoreAgainstAPI(t *testing.T) {
	months := []caselaw.Case{
		{ID: "a", Date: "2024-01-10", Type: caselaw.TypeOrder},
		{ID: "b", Date: "2024-02-10", Type: caselaw.TypeDecision},
		{ID: "c", Date: "2024-03-10", Type: caselaw.TypeDecision},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == api.CasesEndpoint && r.Method == http.MethodGet:
			skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
			if skip > 0 {
				w.Write([]byte(`[]`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[
				{"id":"a","date":"2024-01-10","type":"Order"},
				{"id":"b","date":"2024-02-10","type":"Decision"},
				{"id":"c","date":"2024-03-10","type":"Decision"}
			]`))
		case r.URL.Path == api.SyncEndpoint:
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"detail":"Sync already running"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := api.New(srv.URL, api.WithLogger(logger.NewTestLogger()))
	s, _, _ := newStore(t, client, Config{})
	require.NoError(t, s.Load(context.Background(), nil))

	state := s.State()
	assert.Equal(t, ids(months), ids(state.FilteredCases))
	assert.Equal(t, map[string]int{"2024-01": 1, "2024-02": 1, "2024-03": 1}, state.Stats.ByMonth)

	s.SetFilter(caselaw.FilterCriteria{CaseType: caselaw.TypeOrder})
	assert.Equal(t, []string{"a"}, ids(s.State().FilteredCases))

	_, err := s.SyncFromSource(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Sync already running", s.State().Error)
	assert.Len(t, s.State().AllCases, 3)
}
