// Package ro turns health monitor ticks into reactive streams (samber/ro):
// per-provider status events, transition filtering and transition logging.
//
// Use it for event streams. Plain request/response code stays on lo and
// direct calls.
package ro

import (
	"context"
	"slices"
	"sync"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/samber/ro"

	"github.com/omarluq/aicleaner/internal/health"
)

// StatusEvent is one provider's state after a health tick.
type StatusEvent struct {
	Provider     string
	Status       health.Status
	CircuitState string
	Message      string
}

// UpdateSource is the part of health.Monitor that publishes ticks.
type UpdateSource interface {
	OnUpdate(cb health.UpdateCallback)
}

// Events flattens a metrics map into StatusEvents sorted by provider name.
func Events(metrics map[string]health.MetricsSnapshot) []StatusEvent {
	names := lo.Keys(metrics)
	slices.Sort(names)
	return lo.Map(names, func(name string, _ int) StatusEvent {
		snap := metrics[name]
		ev := StatusEvent{
			Provider:     name,
			Status:       health.StatusOffline,
			CircuitState: snap.CircuitBreaker.State,
		}
		if snap.CurrentHealth != nil {
			ev.Status = snap.CurrentHealth.Status
			ev.Message = snap.CurrentHealth.ErrorMessage
		}
		return ev
	})
}

// StatusEvents registers a monitor callback and streams every provider's
// state after each tick. When the buffer is full the tick is dropped rather
// than blocking the monitor.
func StatusEvents(source UpdateSource, buffer int) ro.Observable[StatusEvent] {
	ch := make(chan StatusEvent, max(buffer, 1))
	source.OnUpdate(func(_ context.Context, metrics map[string]health.MetricsSnapshot) error {
		for _, ev := range Events(metrics) {
			select {
			case ch <- ev:
			default:
				return nil
			}
		}
		return nil
	})
	return ro.FromChannel(ch)
}

// Transitions passes an event only when the provider's status or circuit
// state differs from the last one seen for that provider.
func Transitions() func(ro.Observable[StatusEvent]) ro.Observable[StatusEvent] {
	type key struct {
		status  health.Status
		circuit string
	}
	var mu sync.Mutex
	last := make(map[string]key)

	return ro.Filter(func(ev StatusEvent) bool {
		mu.Lock()
		defer mu.Unlock()
		k := key{status: ev.Status, circuit: ev.CircuitState}
		prev, seen := last[ev.Provider]
		last[ev.Provider] = k
		return !seen || prev != k
	})
}

// LogTransitions logs each event: warn when the provider became unusable,
// info otherwise.
func LogTransitions(logger *zerolog.Logger) func(ro.Observable[StatusEvent]) ro.Observable[StatusEvent] {
	return ro.DoOnNext(func(ev StatusEvent) {
		e := logger.Info()
		if !ev.Status.IsAvailable() {
			e = logger.Warn()
		}
		if ev.Message != "" {
			e = e.Str("error", ev.Message)
		}
		e.Str("provider", ev.Provider).
			Str("status", string(ev.Status)).
			Str("circuit_state", ev.CircuitState).
			Msg("provider status changed")
	})
}

// WatchTransitions logs provider status transitions for as long as ctx lives.
func WatchTransitions(ctx context.Context, source UpdateSource, logger *zerolog.Logger) ro.Subscription {
	stream := ro.Pipe2(
		StatusEvents(source, 64),
		Transitions(),
		LogTransitions(logger),
	)
	return stream.SubscribeWithContext(ctx, ro.OnNextWithContext(func(context.Context, StatusEvent) {}))
}
