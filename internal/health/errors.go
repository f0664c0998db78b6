package health

import "errors"

// Sentinel errors for health tracking.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open and rejecting requests.
	ErrCircuitOpen = errors.New("health: circuit breaker is open")

	// ErrHealthCheckFailed is recorded against a breaker when a check reports
	// a status other than healthy or degraded.
	ErrHealthCheckFailed = errors.New("health: health check failed")

	// ErrHealthCheckTimeout is returned when a provider does not answer within the check timeout.
	ErrHealthCheckTimeout = errors.New("health: health check timed out")

	// ErrUnknownProvider is returned for operations on a provider that was never registered.
	ErrUnknownProvider = errors.New("health: unknown provider")

	// ErrDuplicateProvider is returned when a provider name is registered twice.
	ErrDuplicateProvider = errors.New("health: provider already registered")

	// ErrAlreadyRunning is returned when Start is called on a running monitor.
	ErrAlreadyRunning = errors.New("health: monitor already running")

	// ErrTickPanic wraps a panic recovered from a monitoring tick.
	ErrTickPanic = errors.New("health: monitoring tick panicked")
)
