package health

import (
	"time"
)

// Status is the liveness verdict of a single health check.
type Status string

// Provider status values.
const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
	StatusOffline   Status = "offline"
)

// IsAvailable reports whether the status still accepts traffic.
func (s Status) IsAvailable() bool {
	return s == StatusHealthy || s == StatusDegraded
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusDegraded, StatusUnhealthy, StatusOffline:
		return true
	default:
		return false
	}
}

// ProviderHealth is the immutable result of one health check.
type ProviderHealth struct {
	LastCheck      time.Time `json:"last_check"`
	Status         Status    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ResponseTimeMS float64   `json:"response_time_ms"`
	ErrorRate      float64   `json:"error_rate"`
}

// Offline builds an OFFLINE result with error rate 1.0.
func Offline(message string, elapsed time.Duration) ProviderHealth {
	return ProviderHealth{
		Status:         StatusOffline,
		ResponseTimeMS: durationMS(elapsed),
		ErrorRate:      1.0,
		LastCheck:      time.Now(),
		ErrorMessage:   message,
	}
}

// Evaluate classifies a probe round trip. Errors are offline, responses slower
// than degradedAfter are degraded, anything else is healthy.
func Evaluate(elapsed time.Duration, err error, degradedAfter time.Duration) ProviderHealth {
	if err != nil {
		return Offline(err.Error(), elapsed)
	}
	status := StatusHealthy
	if degradedAfter > 0 && elapsed > degradedAfter {
		status = StatusDegraded
	}
	return ProviderHealth{
		Status:         status,
		ResponseTimeMS: durationMS(elapsed),
		LastCheck:      time.Now(),
	}
}

func durationMS(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
