package health

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// State represents the circuit breaker state.
type State = gobreaker.State

// Circuit breaker state constants.
const (
	StateClosed   = gobreaker.StateClosed
	StateOpen     = gobreaker.StateOpen
	StateHalfOpen = gobreaker.StateHalfOpen
)

// StateName returns the snake_case name used in API output and history files.
func StateName(s State) string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerSnapshot is a point-in-time copy of a breaker's counters.
type BreakerSnapshot struct {
	LastFailureTime *time.Time `json:"last_failure_time,omitempty"`
	CircuitOpenTime *time.Time `json:"circuit_open_time,omitempty"`
	State           string     `json:"state"`
	FailureCount    int64      `json:"failure_count"`
	SuccessCount    int64      `json:"success_count"`
}

// CircuitBreaker wraps sony/gobreaker TwoStepCircuitBreaker for provider health tracking.
//
// gobreaker owns the state machine. The counters exposed by Snapshot are kept
// alongside it because gobreaker clears its own counts on every transition.
type CircuitBreaker struct {
	cb     atomic.Pointer[gobreaker.TwoStepCircuitBreaker[struct{}]]
	logger *zerolog.Logger
	name   string
	cfg    CircuitBreakerConfig

	failures    atomic.Int64
	successes   atomic.Int64
	lastFailure atomic.Int64 // unix nanos, 0 when unset
	openedAt    atomic.Int64 // unix nanos, 0 when unset
}

// NewCircuitBreaker creates a new CircuitBreaker with the given configuration.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig, logger *zerolog.Logger) *CircuitBreaker {
	c := &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
	}
	c.cb.Store(c.newBreaker())
	return c
}

func (c *CircuitBreaker) newBreaker() *gobreaker.TwoStepCircuitBreaker[struct{}] {
	failureThreshold := uint64(c.cfg.GetFailureThreshold()) //nolint:gosec // getter never returns <= 0
	successThreshold := c.cfg.GetSuccessThreshold()

	settings := gobreaker.Settings{
		Name:        c.name,
		MaxRequests: uint32(successThreshold), //nolint:gosec // getter never returns <= 0
		// Interval 0 keeps closed-state counts until the next transition.
		Interval: 0,
		Timeout:  c.cfg.GetRecoveryTimeout(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return uint64(counts.TotalFailures) >= failureThreshold
		},
		OnStateChange: c.onStateChange,
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	}
	return gobreaker.NewTwoStepCircuitBreaker[struct{}](settings)
}

// onStateChange runs under gobreaker's lock; it must not call back into the breaker.
func (c *CircuitBreaker) onStateChange(name string, from, to gobreaker.State) {
	now := time.Now().UnixNano()
	switch to {
	case StateOpen:
		c.openedAt.Store(now)
	case StateHalfOpen:
		c.successes.Store(0)
	case StateClosed:
		c.failures.Store(0)
		c.openedAt.Store(0)
	}

	if c.logger == nil {
		return
	}
	event := c.logger.Info()
	if to == StateOpen {
		event = c.logger.Warn()
	}
	event.
		Str("provider", name).
		Str("from", StateName(from)).
		Str("to", StateName(to)).
		Msg("circuit breaker state change")
}

// Name returns the circuit breaker's name.
func (c *CircuitBreaker) Name() string {
	return c.name
}

// State returns the current circuit breaker state. Reading the state moves an
// OPEN breaker to HALF-OPEN once the recovery timeout has elapsed.
func (c *CircuitBreaker) State() State {
	return c.cb.Load().State()
}

// ShouldAllowRequest reports whether a check or call may be attempted.
//
// An OPEN breaker starts allowing once strictly more than the recovery
// timeout has passed since it opened: gobreaker compares its expiry with
// Before, so the exact instant open_time+recovery_timeout is still denied.
func (c *CircuitBreaker) ShouldAllowRequest() bool {
	return c.State() != StateOpen
}

// RecordSuccess reports a successful check to the circuit breaker.
// Returns false if the breaker is OPEN and the success was not recorded.
func (c *CircuitBreaker) RecordSuccess() bool {
	done, err := c.cb.Load().Allow()
	if err != nil {
		return false
	}
	c.successes.Add(1)
	done(nil)
	return true
}

// RecordFailure reports a failed check to the circuit breaker.
// Returns false if the breaker is OPEN and the failure was not recorded.
func (c *CircuitBreaker) RecordFailure() bool {
	done, err := c.cb.Load().Allow()
	if err != nil {
		return false
	}
	c.failures.Add(1)
	c.lastFailure.Store(time.Now().UnixNano())
	done(ErrHealthCheckFailed)
	return true
}

// Reset forces the breaker back to CLOSED with cleared counters.
func (c *CircuitBreaker) Reset() {
	c.cb.Store(c.newBreaker())
	c.failures.Store(0)
	c.successes.Store(0)
	c.lastFailure.Store(0)
	c.openedAt.Store(0)
	if c.logger != nil {
		c.logger.Info().Str("provider", c.name).Msg("circuit breaker reset")
	}
}

// Snapshot returns the breaker state and counters.
func (c *CircuitBreaker) Snapshot() BreakerSnapshot {
	return BreakerSnapshot{
		State:           StateName(c.State()),
		FailureCount:    c.failures.Load(),
		SuccessCount:    c.successes.Load(),
		LastFailureTime: unixNanoPtr(c.lastFailure.Load()),
		CircuitOpenTime: unixNanoPtr(c.openedAt.Load()),
	}
}

func unixNanoPtr(n int64) *time.Time {
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n)
	return &t
}
