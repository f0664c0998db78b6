package health

import "github.com/rs/zerolog"

// NewTestBreaker creates a breaker with a nop logger (for testing).
func NewTestBreaker(failureThreshold, recoveryMS, successThreshold int) *CircuitBreaker {
	logger := zerolog.Nop()
	return NewCircuitBreaker("test-provider", CircuitBreakerConfig{
		FailureThreshold:  failureThreshold,
		RecoveryTimeoutMS: recoveryMS,
		SuccessThreshold:  successThreshold,
	}, &logger)
}

// CryptoRandDurationExported exports cryptoRandDuration for testing.
var CryptoRandDurationExported = cryptoRandDuration

// BreakerFor returns the breaker of a registered provider (for testing).
func (m *Monitor) BreakerFor(name string) *CircuitBreaker {
	e, ok := m.entry(name)
	if !ok {
		return nil
	}
	return e.breaker
}

// StatusHistoryFor returns the status history of a registered provider (for testing).
func (m *Monitor) StatusHistoryFor(name string) []StatusRecord {
	e, ok := m.entry(name)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.metrics.StatusHistory()
}

// SwapMetricsFor replaces the metrics of a registered provider and returns
// the previous value (for testing).
func (m *Monitor) SwapMetricsFor(name string, metrics *Metrics) *Metrics {
	e, ok := m.entry(name)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.metrics
	e.metrics = metrics
	return prev
}
