package router_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/aicleaner/internal/cache"
	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/router"
)

type staticHealth []string

func (s staticHealth) HealthyProviders() []string { return s }

func verdict(action providers.Action, confidence float64, reasoning string) providers.AnalysisResult {
	return providers.AnalysisResult{
		Action:     action,
		Confidence: confidence,
		Reasoning:  reasoning,
		Metadata:   map[string]any{},
	}
}

func succeed(r providers.AnalysisResult) func(context.Context) (providers.AnalysisResult, error) {
	return func(context.Context) (providers.AnalysisResult, error) { return r, nil }
}

func fail(err error) func(context.Context) (providers.AnalysisResult, error) {
	return func(context.Context) (providers.AnalysisResult, error) { return providers.AnalysisResult{}, err }
}

func testImage(t *testing.T) providers.Image {
	t.Helper()
	img, err := providers.NewImage("front_door.jpg", []byte("\xff\xd8\xff\xe0 jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	return img
}

func newOrchestrator(
	t *testing.T, healthy []string, settings router.Settings, stubs ...*router.StubProvider,
) *router.Orchestrator {
	t.Helper()
	reg := router.NewRegistry()
	for _, s := range stubs {
		require.NoError(t, reg.Register(s))
	}
	return router.NewOrchestrator(reg, staticHealth(healthy), func() router.Settings { return settings }, nil)
}

func TestAnalyzeWithFailover_NoHealthyProviders(t *testing.T) {
	t.Parallel()

	a := &router.StubProvider{ID: "a", AnalyzeFn: succeed(verdict(providers.ActionDelete, 1, "x"))}
	o := newOrchestrator(t, nil, router.Settings{}, a)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})

	assert.Equal(t, providers.ActionKeep, got.Action)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, router.ReasonNoProviders, got.Metadata[providers.MetaError])
	assert.Zero(t, a.Calls())
}

func TestAnalyzeWithFailover_FirstFailsSecondAnswers(t *testing.T) {
	t.Parallel()

	want := verdict(providers.ActionDelete, 0.9, "empty porch")
	a := &router.StubProvider{ID: "a", AnalyzeFn: fail(errors.New("connection reset"))}
	b := &router.StubProvider{ID: "b", AnalyzeFn: succeed(want)}
	c := &router.StubProvider{ID: "c", AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "never asked"))}
	o := newOrchestrator(t, []string{"a", "b", "c"}, router.Settings{}, a, b, c)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})

	assert.Equal(t, want, got)
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
	assert.Zero(t, c.Calls())
}

func TestAnalyzeWithFailover_InvalidResultsAndPanicsAreSkipped(t *testing.T) {
	t.Parallel()

	bad := &router.StubProvider{ID: "bad", AnalyzeFn: succeed(verdict("archive", 0.5, "x"))}
	outOfRange := &router.StubProvider{ID: "range", AnalyzeFn: succeed(verdict(providers.ActionKeep, 2, "x"))}
	blank := &router.StubProvider{ID: "blank", AnalyzeFn: succeed(verdict(providers.ActionKeep, 0.5, ""))}
	panics := &router.StubProvider{ID: "panics", AnalyzeFn: func(context.Context) (providers.AnalysisResult, error) {
		panic("nil map")
	}}
	good := &router.StubProvider{ID: "good", AnalyzeFn: succeed(verdict(providers.ActionKeep, 0.4, "person"))}

	o := newOrchestrator(t, []string{"bad", "range", "blank", "panics", "good"}, router.Settings{},
		bad, outOfRange, blank, panics, good)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})
	assert.Equal(t, "person", got.Reasoning)
	assert.Equal(t, 1, panics.Calls())
}

func TestAnalyzeWithFailover_AllFail(t *testing.T) {
	t.Parallel()

	a := &router.StubProvider{ID: "a", AnalyzeFn: fail(errors.New("boom"))}
	b := &router.StubProvider{ID: "b", AnalyzeFn: fail(providers.ErrEmptyResponse)}
	o := newOrchestrator(t, []string{"a", "b"}, router.Settings{}, a, b)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})

	assert.Equal(t, providers.ActionKeep, got.Action)
	assert.Equal(t, router.ReasonAllProvidersFailed, got.Metadata[providers.MetaError])
	assert.Equal(t, 1, a.Calls())
	assert.Equal(t, 1, b.Calls())
}

func TestAnalyzeWithFailover_PrivacyFiltersCloudProviders(t *testing.T) {
	t.Parallel()

	cloud := &router.StubProvider{ID: "cloud", AnalyzeFn: succeed(verdict(providers.ActionDelete, 1, "cloud"))}
	local := &router.StubProvider{ID: "local", IsLocal: true,
		AnalyzeFn: succeed(verdict(providers.ActionKeep, 0.7, "local"))}
	o := newOrchestrator(t, []string{"cloud", "local"},
		router.Settings{Privacy: providers.PrivacyLocalOnly}, cloud, local)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})
	assert.Equal(t, "local", got.Reasoning)
	assert.Zero(t, cloud.Calls())

	// a task override widens the level
	got = o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{Privacy: providers.PrivacyCloud})
	assert.Equal(t, "cloud", got.Reasoning)
}

func TestAnalyzeWithFailover_OnlyCloudUnderLocalOnly(t *testing.T) {
	t.Parallel()

	cloud := &router.StubProvider{ID: "cloud", AnalyzeFn: succeed(verdict(providers.ActionDelete, 1, "cloud"))}
	o := newOrchestrator(t, []string{"cloud"}, router.Settings{Privacy: providers.PrivacyLocalOnly}, cloud)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})
	assert.Equal(t, router.ReasonAllProvidersFailed, got.Metadata[providers.MetaError])
	assert.Zero(t, cloud.Calls())
}

func TestAnalyzeWithFailover_UnknownHealthyNameIsSkipped(t *testing.T) {
	t.Parallel()

	b := &router.StubProvider{ID: "b", AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "b"))}
	o := newOrchestrator(t, []string{"ghost", "b"}, router.Settings{}, b)

	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})
	assert.Equal(t, "b", got.Reasoning)
}

func TestAnalyzeWithFailover_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	a := &router.StubProvider{ID: "a", AnalyzeFn: func(context.Context) (providers.AnalysisResult, error) {
		cancel()
		return providers.AnalysisResult{}, context.Canceled
	}}
	b := &router.StubProvider{ID: "b", AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "b"))}
	o := newOrchestrator(t, []string{"a", "b"}, router.Settings{}, a, b)

	got := o.AnalyzeWithFailover(ctx, testImage(t), router.Task{})
	assert.Equal(t, router.ReasonCanceled, got.Metadata[providers.MetaError])
	assert.Zero(t, b.Calls())
}

func TestAnalyzeWithFailover_Cache(t *testing.T) {
	t.Parallel()

	cfg := cache.DefaultConfig()
	c, err := cache.New(&cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	a := &router.StubProvider{ID: "a", AnalyzeFn: succeed(verdict(providers.ActionDelete, 0.8, "blank"))}
	reg := router.NewRegistry()
	require.NoError(t, reg.Register(a))
	o := router.NewOrchestrator(reg, staticHealth{"a"},
		func() router.Settings { return router.Settings{CacheTTL: time.Minute} }, nil, router.WithCache(c))

	img := testImage(t)
	first := o.AnalyzeWithFailover(context.Background(), img, router.Task{})
	assert.Nil(t, first.Metadata[providers.MetaCached])

	require.Eventually(t, func() bool {
		second := o.AnalyzeWithFailover(context.Background(), img, router.Task{})
		return second.Metadata[providers.MetaCached] == true && second.Reasoning == "blank"
	}, 2*time.Second, 10*time.Millisecond)
	calls := a.Calls()

	o.AnalyzeWithFailover(context.Background(), img, router.Task{SkipCache: true})
	assert.Equal(t, calls+1, a.Calls())

	// a different prompt is a different cache entry
	o.AnalyzeWithFailover(context.Background(), img, router.Task{Prompt: "other", SkipCache: false})
	assert.Equal(t, calls+2, a.Calls())
}

type switchableHealth struct {
	mu    sync.Mutex
	names []string
}

func (h *switchableHealth) set(names ...string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names = names
}

func (h *switchableHealth) HealthyProviders() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.names
}

func TestAnalyzeWithFailover_CacheHitWithoutHealthyProviders(t *testing.T) {
	t.Parallel()

	cfg := cache.DefaultConfig()
	c, err := cache.New(&cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	a := &router.StubProvider{ID: "a", AnalyzeFn: succeed(verdict(providers.ActionKeep, 0.9, "cat on porch"))}
	reg := router.NewRegistry()
	require.NoError(t, reg.Register(a))
	healthView := &switchableHealth{}
	healthView.set("a")
	o := router.NewOrchestrator(reg, healthView,
		func() router.Settings { return router.Settings{CacheTTL: time.Minute} }, nil, router.WithCache(c))

	img := testImage(t)
	o.AnalyzeWithFailover(context.Background(), img, router.Task{})

	// every breaker open: a cached verdict is still served
	healthView.set()
	require.Eventually(t, func() bool {
		got := o.AnalyzeWithFailover(context.Background(), img, router.Task{})
		return got.Metadata[providers.MetaCached] == true && got.Reasoning == "cat on porch"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, a.Calls())

	// a miss still falls back to the no_providers default
	other, err := providers.NewImage("driveway.jpg", []byte("\xff\xd8\xff\xe0 other bytes"), "image/jpeg")
	require.NoError(t, err)
	got := o.AnalyzeWithFailover(context.Background(), other, router.Task{})
	assert.Equal(t, router.ReasonNoProviders, got.Metadata[providers.MetaError])

	got = o.AnalyzeWithFailover(context.Background(), img, router.Task{SkipCache: true})
	assert.Equal(t, router.ReasonNoProviders, got.Metadata[providers.MetaError])
	assert.Equal(t, 1, a.Calls())
}

func TestCacheKeyScopesPrivacyAndPrompt(t *testing.T) {
	t.Parallel()

	img := testImage(t)
	base := router.CacheKey(img, providers.PrivacyHybrid, "p")
	assert.Equal(t, base, router.CacheKey(img, providers.PrivacyHybrid, "p"))
	assert.NotEqual(t, base, router.CacheKey(img, providers.PrivacyCloud, "p"))
	assert.NotEqual(t, base, router.CacheKey(img, providers.PrivacyHybrid, "q"))
}

// With a real monitor: once every breaker is open, nothing is analyzed.
func TestAnalyzeWithFailover_AllBreakersOpen(t *testing.T) {
	t.Parallel()

	down := func(context.Context) (health.ProviderHealth, error) {
		return health.ProviderHealth{}, errors.New("unreachable")
	}
	a := &router.StubProvider{ID: "a", HealthFn: down, AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "a"))}
	b := &router.StubProvider{ID: "b", HealthFn: down, AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "b"))}

	reg := router.NewRegistry()
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	mon := health.NewMonitor(health.Config{MaxFailures: 1, TimeoutMS: 500}, nil)
	for _, name := range reg.Names() {
		p, _ := reg.Get(name)
		require.NoError(t, mon.RegisterProvider(name, p))
	}
	require.NoError(t, mon.CheckNow(context.Background()))
	require.Empty(t, mon.HealthyProviders())

	o := router.NewOrchestrator(reg, mon, nil, nil)
	got := o.AnalyzeWithFailover(context.Background(), testImage(t), router.Task{})

	assert.Equal(t, providers.ActionKeep, got.Action)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, router.ReasonNoProviders, got.Metadata[providers.MetaError])
	assert.Zero(t, a.Calls())
	assert.Zero(t, b.Calls())
}

func TestAnalyzeWithFailover_Concurrent(t *testing.T) {
	t.Parallel()

	a := &router.StubProvider{ID: "a", AnalyzeFn: succeed(verdict(providers.ActionKeep, 1, "a"))}
	o := newOrchestrator(t, []string{"a"}, router.Settings{}, a)

	img := testImage(t)
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := o.AnalyzeWithFailover(context.Background(), img, router.Task{})
			assert.Equal(t, "a", got.Reasoning)
		}()
	}
	wg.Wait()
	assert.Equal(t, 16, a.Calls())
}
