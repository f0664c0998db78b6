package health

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Messages recorded on synthetic OFFLINE results.
const (
	msgCircuitOpen     = "Circuit breaker open"
	msgProbeNotFound   = "provider not found in registry"
	msgCheckTimeout    = "health check timed out"
	maxIntervalJitter  = 2 * time.Second
	intervalJitterFrac = 20
)

// Probe performs a lightweight liveness check against one provider.
type Probe interface {
	HealthCheck(ctx context.Context) (ProviderHealth, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (ProviderHealth, error)

// HealthCheck calls f(ctx).
func (f ProbeFunc) HealthCheck(ctx context.Context) (ProviderHealth, error) {
	return f(ctx)
}

// ProbeSource resolves probes by provider name. The provider registry implements it.
type ProbeSource interface {
	Probe(name string) (Probe, bool)
}

// UpdateCallback receives the metrics of every provider after each tick.
// Callbacks run concurrently; a tick waits for all of them before finishing.
type UpdateCallback func(ctx context.Context, metrics map[string]MetricsSnapshot) error

type providerEntry struct {
	probe   Probe
	breaker *CircuitBreaker
	metrics *Metrics
	name    string
	mu      sync.Mutex
}

// Monitor owns one circuit breaker and one Metrics per provider and runs the
// periodic health loop.
type Monitor struct {
	source    ProbeSource
	logger    *zerolog.Logger
	index     map[string]*providerEntry
	cancel    context.CancelFunc
	entries   []*providerEntry
	callbacks []UpdateCallback
	cfg       Config
	wg        sync.WaitGroup
	mu        sync.RWMutex
	runMu     sync.Mutex
	running   bool
}

// NewMonitor creates a Monitor. Providers are added with RegisterProvider.
func NewMonitor(cfg Config, logger *zerolog.Logger) *Monitor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Monitor{
		cfg:    cfg,
		logger: logger,
		index:  make(map[string]*providerEntry),
	}
}

// RegisterProvider adds a provider. Registration order is priority order.
// A nil probe is resolved from the ProbeSource given to Start.
func (m *Monitor) RegisterProvider(name string, probe Probe) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrUnknownProvider)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, name)
	}
	entry := &providerEntry{
		name:    name,
		probe:   probe,
		breaker: NewCircuitBreaker(name, m.cfg.BreakerConfig(), m.logger),
		metrics: NewMetrics(),
	}
	m.entries = append(m.entries, entry)
	m.index[name] = entry
	return nil
}

// OnUpdate registers a callback invoked after every tick.
func (m *Monitor) OnUpdate(cb UpdateCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Names returns registered provider names in priority order.
func (m *Monitor) Names() []string {
	return lo.Map(m.snapshotEntries(), func(e *providerEntry, _ int) string {
		return e.name
	})
}

// Start begins periodic monitoring. The first tick runs immediately.
func (m *Monitor) Start(ctx context.Context, source ProbeSource) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}

	m.mu.Lock()
	m.source = source
	m.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.run(runCtx)

	m.logger.Info().
		Dur("interval", m.cfg.GetCheckInterval()).
		Dur("timeout", m.cfg.GetTimeout()).
		Int("providers", len(m.Names())).
		Msg("health monitor started")
	return nil
}

// Stop cancels the monitoring loop and waits for it to exit. Safe to call
// more than once.
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.running = false
}

// Running reports whether the monitoring loop is active.
func (m *Monitor) Running() bool {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	return m.running
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		wait := m.cfg.GetCheckInterval()
		if err := m.CheckNow(ctx); err != nil {
			if ctx.Err() != nil {
				m.logger.Info().Msg("health monitor stopped")
				return
			}
			wait = m.cfg.GetErrorBackoff()
			m.logger.Error().Err(err).Dur("backoff", wait).Msg("health monitoring tick failed")
		} else {
			wait += cryptoRandDuration(min(maxIntervalJitter, wait/intervalJitterFrac))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Info().Msg("health monitor stopped")
			return
		case <-timer.C:
		}
	}
}

type checkOutcome struct {
	entry  *providerEntry
	health ProviderHealth
}

// CheckNow runs one health tick synchronously.
func (m *Monitor) CheckNow(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTickPanic, r)
		}
	}()

	entries := m.snapshotEntries()
	blocked := make(map[*providerEntry]ProviderHealth)
	checked := make(map[*providerEntry]ProviderHealth, len(entries))
	results := make(chan checkOutcome, len(entries))
	pending := make(map[*providerEntry]struct{}, len(entries))

	for _, e := range entries {
		if !e.breaker.ShouldAllowRequest() {
			blocked[e] = Offline(msgCircuitOpen, 0)
			continue
		}
		pending[e] = struct{}{}
		go func(e *providerEntry) {
			results <- checkOutcome{entry: e, health: m.checkProvider(ctx, e)}
		}(e)
	}

	deadline := time.NewTimer(2 * m.cfg.GetTimeout())
	defer deadline.Stop()

collect:
	for len(pending) > 0 {
		select {
		case out := <-results:
			delete(pending, out.entry)
			checked[out.entry] = out.health
		case <-deadline.C:
			break collect
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for e := range pending {
		checked[e] = Offline(msgCheckTimeout, 2*m.cfg.GetTimeout())
	}

	for _, e := range entries {
		if h, ok := blocked[e]; ok {
			m.apply(e, h, false)
			continue
		}
		m.apply(e, checked[e], true)
	}

	m.notify(ctx)
	return nil
}

// checkProvider runs one probe under its own timeout. Errors, panics, and
// timeouts all produce an OFFLINE result.
func (m *Monitor) checkProvider(ctx context.Context, e *providerEntry) ProviderHealth {
	probe := e.probe
	if probe == nil {
		m.mu.RLock()
		source := m.source
		m.mu.RUnlock()
		if source != nil {
			probe, _ = source.Probe(e.name)
		}
	}
	if probe == nil {
		return Offline(msgProbeNotFound, 0)
	}

	checkCtx, cancel := context.WithTimeout(ctx, m.cfg.GetTimeout())
	defer cancel()

	type probeResult struct {
		err    error
		health ProviderHealth
	}
	done := make(chan probeResult, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- probeResult{err: fmt.Errorf("health check panicked: %v", r)}
			}
		}()
		h, err := probe.HealthCheck(checkCtx)
		done <- probeResult{health: h, err: err}
	}()

	select {
	case res := <-done:
		elapsed := time.Since(start)
		if res.err != nil {
			if errors.Is(res.err, context.DeadlineExceeded) {
				return Offline(msgCheckTimeout, elapsed)
			}
			return Offline(res.err.Error(), elapsed)
		}
		h := res.health
		if !h.Status.Valid() {
			h = Evaluate(elapsed, nil, m.cfg.GetDegradedThreshold())
		}
		if h.LastCheck.IsZero() {
			h.LastCheck = time.Now()
		}
		return h
	case <-checkCtx.Done():
		return Offline(msgCheckTimeout, time.Since(start))
	}
}

// apply records a result into the provider's breaker and metrics, then logs it.
func (m *Monitor) apply(e *providerEntry, h ProviderHealth, feedBreaker bool) {
	state := e.record(h, feedBreaker)

	event := m.logger.Debug()
	if !h.Status.IsAvailable() {
		event = m.logger.Warn()
	}
	event.
		Str("provider", e.name).
		Str("status", string(h.Status)).
		Float64("response_time_ms", h.ResponseTimeMS).
		Str("circuit_state", StateName(state)).
		Str("error", h.ErrorMessage).
		Msg("provider health checked")
}

// record updates breaker and metrics under the provider lock and returns the
// resulting breaker state. The lock is released even if an update panics.
func (e *providerEntry) record(h ProviderHealth, feedBreaker bool) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if feedBreaker {
		if h.Status.IsAvailable() {
			e.breaker.RecordSuccess()
		} else {
			e.breaker.RecordFailure()
		}
	}
	e.metrics.Update(h)
	return e.breaker.State()
}

// notify fans the current metrics out to every callback and waits for them.
func (m *Monitor) notify(ctx context.Context) {
	m.mu.RLock()
	callbacks := append([]UpdateCallback(nil), m.callbacks...)
	m.mu.RUnlock()
	if len(callbacks) == 0 {
		return
	}

	metrics := m.AllMetrics()
	var wg sync.WaitGroup
	for i, cb := range callbacks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error().Int("callback", i).Interface("panic", r).Msg("health update callback panicked")
				}
			}()
			if err := cb(ctx, metrics); err != nil {
				m.logger.Warn().Int("callback", i).Err(err).Msg("health update callback failed")
			}
		}()
	}
	wg.Wait()
}

func (m *Monitor) snapshotEntries() []*providerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*providerEntry(nil), m.entries...)
}

func (m *Monitor) entry(name string) (*providerEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.index[name]
	return e, ok
}

// HealthyProviders returns, in priority order, the providers whose breaker
// allows requests and whose latest check was healthy or degraded. Providers
// that were never checked are not included.
func (m *Monitor) HealthyProviders() []string {
	return lo.FilterMap(m.snapshotEntries(), func(e *providerEntry, _ int) (string, bool) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if !e.breaker.ShouldAllowRequest() {
			return "", false
		}
		current, ok := e.metrics.Current()
		return e.name, ok && current.Status.IsAvailable()
	})
}

// IsHealthy reports whether name is in HealthyProviders.
func (m *Monitor) IsHealthy(name string) bool {
	return lo.Contains(m.HealthyProviders(), name)
}

// ProviderMetrics returns the metrics snapshot of one provider.
func (m *Monitor) ProviderMetrics(name string) (MetricsSnapshot, bool) {
	e, ok := m.entry(name)
	if !ok {
		return MetricsSnapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics.snapshot(e.name, e.breaker.Snapshot()), true
}

// AllMetrics returns the metrics snapshot of every provider keyed by name.
func (m *Monitor) AllMetrics() map[string]MetricsSnapshot {
	entries := m.snapshotEntries()
	out := make(map[string]MetricsSnapshot, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out[e.name] = e.metrics.snapshot(e.name, e.breaker.Snapshot())
		e.mu.Unlock()
	}
	return out
}

// ResetCircuitBreaker forces a provider's breaker back to CLOSED.
// Returns false if the provider is unknown.
func (m *Monitor) ResetCircuitBreaker(name string) bool {
	e, ok := m.entry(name)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.breaker.Reset()
	return true
}

// cryptoRandDuration returns a cryptographically random duration between 0 and maxDur.
func cryptoRandDuration(maxDur time.Duration) time.Duration {
	if maxDur <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	n := binary.LittleEndian.Uint64(b[:])
	//nolint:gosec // G115: maxDur is always positive (checked above)
	return time.Duration(n % uint64(maxDur))
}
