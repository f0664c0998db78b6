package health_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/aicleaner/internal/health"
)

type fakeProbe struct {
	err    error
	status health.Status
	delay  time.Duration
	calls  atomic.Int32
	panics bool
}

func (p *fakeProbe) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	p.calls.Add(1)
	if p.panics {
		panic("probe exploded")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return health.ProviderHealth{}, ctx.Err()
		}
	}
	if p.err != nil {
		return health.ProviderHealth{}, p.err
	}
	return health.ProviderHealth{Status: p.status, ResponseTimeMS: 5, LastCheck: time.Now()}, nil
}

type mapSource map[string]health.Probe

func (s mapSource) Probe(name string) (health.Probe, bool) {
	p, ok := s[name]
	return p, ok
}

func newTestMonitor(cfg health.Config) *health.Monitor {
	logger := zerolog.Nop()
	if cfg.TimeoutMS == 0 {
		cfg.TimeoutMS = 100
	}
	return health.NewMonitor(cfg, &logger)
}

func TestMonitorRegisterRejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy}))

	err := m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy})
	assert.ErrorIs(t, err, health.ErrDuplicateProvider)
	assert.Error(t, m.RegisterProvider("", nil))
	assert.Equal(t, []string{"a"}, m.Names())
}

func TestMonitorNeverCheckedIsNotHealthy(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy}))

	assert.Empty(t, m.HealthyProviders())
}

func TestMonitorHealthyProvidersSkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{MaxFailures: 1, RecoveryTimeoutMS: 60000})
	require.NoError(t, m.RegisterProvider("A", &fakeProbe{status: health.StatusHealthy}))
	require.NoError(t, m.RegisterProvider("B", &fakeProbe{err: errors.New("connection refused")}))

	require.NoError(t, m.CheckNow(context.Background()))

	assert.Equal(t, health.StateOpen, m.BreakerFor("B").State())
	assert.Equal(t, []string{"A"}, m.HealthyProviders())
	assert.True(t, m.IsHealthy("A"))
	assert.False(t, m.IsHealthy("B"))
}

func TestMonitorOpenBreakerSynthesizesOffline(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{err: errors.New("boom")}
	m := newTestMonitor(health.Config{MaxFailures: 1, RecoveryTimeoutMS: 60000})
	require.NoError(t, m.RegisterProvider("B", probe))

	require.NoError(t, m.CheckNow(context.Background()))
	require.NoError(t, m.CheckNow(context.Background()))

	assert.Equal(t, int32(1), probe.calls.Load(), "probe called while breaker open")

	snap, ok := m.ProviderMetrics("B")
	require.True(t, ok)
	require.NotNil(t, snap.CurrentHealth)
	assert.Equal(t, health.StatusOffline, snap.CurrentHealth.Status)
	assert.Equal(t, "Circuit breaker open", snap.CurrentHealth.ErrorMessage)
	assert.InDelta(t, 1.0, snap.CurrentHealth.ErrorRate, 1e-9)
	assert.Equal(t, int64(2), snap.TotalRequests)
	assert.Equal(t, int64(1), snap.CircuitBreaker.FailureCount)
}

func TestMonitorTimeoutRecordsOfflineAndOneFailure(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{TimeoutMS: 30})
	require.NoError(t, m.RegisterProvider("C", &fakeProbe{status: health.StatusHealthy, delay: time.Second}))

	start := time.Now()
	require.NoError(t, m.CheckNow(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	snap, ok := m.ProviderMetrics("C")
	require.True(t, ok)
	require.NotNil(t, snap.CurrentHealth)
	assert.Equal(t, health.StatusOffline, snap.CurrentHealth.Status)
	assert.InDelta(t, 1.0, snap.CurrentHealth.ErrorRate, 1e-9)
	assert.Equal(t, int64(1), snap.CircuitBreaker.FailureCount)
	assert.Equal(t, int64(1), snap.FailedRequests)
}

func TestMonitorProbePanicIsOffline(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("P", &fakeProbe{panics: true}))

	require.NoError(t, m.CheckNow(context.Background()))

	snap, ok := m.ProviderMetrics("P")
	require.True(t, ok)
	assert.Equal(t, health.StatusOffline, snap.CurrentHealth.Status)
	assert.Contains(t, snap.CurrentHealth.ErrorMessage, "panicked")
}

func TestMonitorResolvesProbeFromSource(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{status: health.StatusDegraded}
	m := newTestMonitor(health.Config{CheckIntervalMS: 60000})
	require.NoError(t, m.RegisterProvider("R", nil))
	require.NoError(t, m.RegisterProvider("missing", nil))

	require.NoError(t, m.Start(context.Background(), mapSource{"R": probe}))
	defer m.Stop()

	require.Eventually(t, func() bool {
		return len(m.HealthyProviders()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"R"}, m.HealthyProviders())
	snap, _ := m.ProviderMetrics("missing")
	require.NotNil(t, snap.CurrentHealth)
	assert.Equal(t, health.StatusOffline, snap.CurrentHealth.Status)
}

func TestMonitorCallbacksReceiveAllMetrics(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy}))
	require.NoError(t, m.RegisterProvider("b", &fakeProbe{status: health.StatusUnhealthy}))

	var mu sync.Mutex
	var seen []map[string]health.MetricsSnapshot
	record := func(_ context.Context, metrics map[string]health.MetricsSnapshot) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, metrics)
		return nil
	}
	m.OnUpdate(record)
	m.OnUpdate(func(context.Context, map[string]health.MetricsSnapshot) error {
		return errors.New("ignored")
	})
	m.OnUpdate(func(context.Context, map[string]health.MetricsSnapshot) error {
		panic("callback exploded")
	})

	require.NoError(t, m.CheckNow(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Len(t, seen[0], 2)
	assert.Equal(t, health.StatusUnhealthy, seen[0]["b"].CurrentHealth.Status)
}

func TestMonitorStartStop(t *testing.T) {
	t.Parallel()

	probe := &fakeProbe{status: health.StatusHealthy}
	m := newTestMonitor(health.Config{CheckIntervalMS: 20})
	require.NoError(t, m.RegisterProvider("a", probe))

	require.NoError(t, m.Start(context.Background(), nil))
	assert.ErrorIs(t, m.Start(context.Background(), nil), health.ErrAlreadyRunning)
	assert.True(t, m.Running())

	require.Eventually(t, func() bool {
		return probe.calls.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	m.Stop()
	m.Stop()
	assert.False(t, m.Running())

	calls := probe.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, probe.calls.Load(), "probe called after Stop")
}

func TestMonitorCheckNowCanceledContext(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{TimeoutMS: 1000})
	require.NoError(t, m.RegisterProvider("slow", &fakeProbe{status: health.StatusHealthy, delay: time.Second}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.CheckNow(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	snap, _ := m.ProviderMetrics("slow")
	assert.Zero(t, snap.TotalRequests)
}

func TestMonitorResetCircuitBreaker(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{MaxFailures: 1, RecoveryTimeoutMS: 60000})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{err: errors.New("down")}))
	require.NoError(t, m.CheckNow(context.Background()))
	require.Equal(t, health.StateOpen, m.BreakerFor("a").State())

	assert.True(t, m.ResetCircuitBreaker("a"))
	assert.Equal(t, health.StateClosed, m.BreakerFor("a").State())
	assert.False(t, m.ResetCircuitBreaker("nope"))
}

func TestCryptoRandDuration(t *testing.T) {
	t.Parallel()

	assert.Zero(t, health.CryptoRandDurationExported(0))
	for i := 0; i < 100; i++ {
		d := health.CryptoRandDurationExported(time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Second)
	}
}

// within fails the test if fn does not return before the deadline.
func within(t *testing.T, d time.Duration, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-time.After(d):
		t.Fatal("call blocked: provider lock still held")
	}
}

func TestMonitorCheckNowReleasesLockAfterPanic(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy}))

	saved := m.SwapMetricsFor("a", nil)
	err := m.CheckNow(context.Background())
	require.ErrorIs(t, err, health.ErrTickPanic)
	m.SwapMetricsFor("a", saved)

	within(t, time.Second, func() {
		assert.Empty(t, m.HealthyProviders())
	})

	require.NoError(t, m.CheckNow(context.Background()))
	within(t, time.Second, func() {
		assert.Equal(t, []string{"a"}, m.HealthyProviders())
		snap, ok := m.ProviderMetrics("a")
		assert.True(t, ok)
		assert.Equal(t, int64(1), snap.TotalRequests)
	})
}

func TestMonitorLoopRetriesAfterFailedTick(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{CheckIntervalMS: 60000, ErrorBackoffMS: 20})

	var (
		calls    atomic.Int32
		saved    *health.Metrics
		restored = make(chan struct{})
	)
	probe := health.ProbeFunc(func(context.Context) (health.ProviderHealth, error) {
		// The first tick runs with broken metrics so it fails as a whole;
		// the retry after the backoff runs with them restored.
		switch calls.Add(1) {
		case 1:
			saved = m.SwapMetricsFor("a", nil)
		case 2:
			m.SwapMetricsFor("a", saved)
			close(restored)
		}
		return health.ProviderHealth{Status: health.StatusHealthy, LastCheck: time.Now()}, nil
	})
	require.NoError(t, m.RegisterProvider("a", probe))
	require.NoError(t, m.Start(context.Background(), nil))
	t.Cleanup(m.Stop)

	select {
	case <-restored:
	case <-time.After(2 * time.Second):
		t.Fatal("no tick ran after the failed one")
	}

	var healthy []string
	require.Eventually(t, func() bool {
		healthy = m.HealthyProviders()
		return len(healthy) == 1
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"a"}, healthy)
	snap, ok := m.ProviderMetrics("a")
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.TotalRequests)
}

func TestMonitorImportHistoryReleasesLockAfterPanic(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(health.Config{})
	require.NoError(t, m.RegisterProvider("a", &fakeProbe{status: health.StatusHealthy}))
	require.NoError(t, m.CheckNow(context.Background()))
	export := m.ExportHistory()

	saved := m.SwapMetricsFor("a", nil)
	assert.Panics(t, func() { _, _ = m.ImportHistory(export) })
	m.SwapMetricsFor("a", saved)

	within(t, time.Second, func() {
		restored, err := m.ImportHistory(export)
		assert.NoError(t, err)
		assert.Equal(t, 1, restored)
	})
}
