// Package health provides provider health monitoring for aicleaner.
//
// The package implements:
//   - Circuit breaker state machine (CLOSED -> OPEN -> HALF-OPEN -> CLOSED)
//   - Rolling per-provider metrics with trend detection
//   - A periodic monitor that checks every provider concurrently
//
// Provider liveness is owned by the monitor's periodic checks. The analysis
// path reads the monitor's verdict but never feeds the breakers itself.
package health

import "time"

// Default configuration values.
const (
	DefaultCheckIntervalMS       = 60000 // 60 seconds between health ticks
	DefaultTimeoutMS             = 10000 // per-provider health check timeout
	DefaultMaxFailures           = 5     // failures to open circuit
	DefaultRecoveryTimeoutMS     = 60000 // 60 seconds before half-open
	DefaultSuccessThreshold      = 3     // successes in half-open to close
	DefaultDegradedThresholdMS   = 5000  // slower checks are reported as degraded
	DefaultErrorBackoffMS        = 30000 // wait after a failed tick
	DefaultResponseTimeWindow    = 100
	DefaultErrorRateWindow       = 100
	DefaultStatusHistoryCapacity = 50
)

// Config defines monitor and circuit breaker behavior.
type Config struct {
	// HistoryFile is where ExportHistory output is persisted on shutdown and
	// restored from on start. Empty disables persistence.
	HistoryFile string `yaml:"history_file" toml:"history_file"`

	// CheckIntervalMS is the time between health ticks. Default: 60000
	CheckIntervalMS int `yaml:"check_interval_ms" toml:"check_interval_ms"`

	// TimeoutMS bounds a single provider health check. A whole tick waits at
	// most twice this long. Default: 10000
	TimeoutMS int `yaml:"timeout_ms" toml:"timeout_ms"`

	// MaxFailures is the number of failures recorded while CLOSED before the
	// circuit opens. Default: 5
	MaxFailures int `yaml:"max_failures" toml:"max_failures"`

	// RecoveryTimeoutMS is how long the circuit stays open before a probe is
	// allowed through. Default: 60000
	RecoveryTimeoutMS int `yaml:"recovery_timeout_ms" toml:"recovery_timeout_ms"`

	// SuccessThreshold is the number of consecutive half-open successes that
	// close the circuit. Default: 3
	SuccessThreshold int `yaml:"success_threshold" toml:"success_threshold"`

	// DegradedThresholdMS marks a successful but slow check as degraded.
	// Default: 5000
	DegradedThresholdMS int `yaml:"degraded_threshold_ms" toml:"degraded_threshold_ms"`

	// ErrorBackoffMS is the pause after a tick that failed as a whole.
	// Default: 30000
	ErrorBackoffMS int `yaml:"error_backoff_ms" toml:"error_backoff_ms"`
}

func millisOr(value, fallback int) time.Duration {
	if value <= 0 {
		return time.Duration(fallback) * time.Millisecond
	}
	return time.Duration(value) * time.Millisecond
}

// GetCheckInterval returns the tick interval or the 60s default.
func (c *Config) GetCheckInterval() time.Duration {
	return millisOr(c.CheckIntervalMS, DefaultCheckIntervalMS)
}

// GetTimeout returns the per-check timeout or the 10s default.
func (c *Config) GetTimeout() time.Duration {
	return millisOr(c.TimeoutMS, DefaultTimeoutMS)
}

// GetMaxFailures returns the failure threshold or default 5.
func (c *Config) GetMaxFailures() int {
	if c.MaxFailures <= 0 {
		return DefaultMaxFailures
	}
	return c.MaxFailures
}

// GetRecoveryTimeout returns the open duration or the 60s default.
func (c *Config) GetRecoveryTimeout() time.Duration {
	return millisOr(c.RecoveryTimeoutMS, DefaultRecoveryTimeoutMS)
}

// GetSuccessThreshold returns the half-open success threshold or default 3.
func (c *Config) GetSuccessThreshold() int {
	if c.SuccessThreshold <= 0 {
		return DefaultSuccessThreshold
	}
	return c.SuccessThreshold
}

// GetDegradedThreshold returns the latency above which a check is degraded.
func (c *Config) GetDegradedThreshold() time.Duration {
	return millisOr(c.DegradedThresholdMS, DefaultDegradedThresholdMS)
}

// GetErrorBackoff returns the pause after a failed tick or the 30s default.
func (c *Config) GetErrorBackoff() time.Duration {
	return millisOr(c.ErrorBackoffMS, DefaultErrorBackoffMS)
}

// BreakerConfig returns the circuit breaker portion of the configuration.
func (c *Config) BreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:  c.GetMaxFailures(),
		RecoveryTimeoutMS: int(c.GetRecoveryTimeout() / time.Millisecond),
		SuccessThreshold:  c.GetSuccessThreshold(),
	}
}

// CircuitBreakerConfig defines circuit breaker behavior.
type CircuitBreakerConfig struct {
	FailureThreshold  int
	RecoveryTimeoutMS int
	SuccessThreshold  int
}

// GetFailureThreshold returns the configured failure threshold or default 5.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultMaxFailures
	}
	return c.FailureThreshold
}

// GetRecoveryTimeout returns the open duration as time.Duration.
func (c *CircuitBreakerConfig) GetRecoveryTimeout() time.Duration {
	return millisOr(c.RecoveryTimeoutMS, DefaultRecoveryTimeoutMS)
}

// GetSuccessThreshold returns the configured half-open threshold or default 3.
func (c *CircuitBreakerConfig) GetSuccessThreshold() int {
	if c.SuccessThreshold <= 0 {
		return DefaultSuccessThreshold
	}
	return c.SuccessThreshold
}
