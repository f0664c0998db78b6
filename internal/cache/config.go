package cache

import (
	"errors"
	"fmt"
)

// Mode selects the cache backend.
type Mode string

const (
	// ModeSingle uses the in-process Ristretto cache (default).
	ModeSingle Mode = "single"

	// ModeDisabled stores nothing.
	ModeDisabled Mode = "disabled"
)

// Config defines cache configuration.
type Config struct {
	Mode      Mode            `yaml:"mode" toml:"mode"`
	Ristretto RistrettoConfig `yaml:"ristretto" toml:"ristretto"`
}

// RistrettoConfig configures the Ristretto backend. Cost is measured in bytes
// of encoded verdicts.
type RistrettoConfig struct {
	// NumCounters should be about 10x the expected number of items.
	NumCounters int64 `yaml:"num_counters" toml:"num_counters"`

	// MaxCost bounds the total bytes held.
	MaxCost int64 `yaml:"max_cost" toml:"max_cost"`

	BufferItems int64 `yaml:"buffer_items" toml:"buffer_items"`
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeSingle:
		if c.Ristretto.MaxCost <= 0 {
			return errors.New("cache: ristretto.max_cost must be positive")
		}
		if c.Ristretto.NumCounters <= 0 {
			return errors.New("cache: ristretto.num_counters must be positive")
		}
	case ModeDisabled:
		// nothing to check
	case "":
		return errors.New("cache: mode is required")
	default:
		return fmt.Errorf("cache: unknown mode %q", c.Mode)
	}
	return nil
}

// DefaultRistrettoConfig sizes the cache for roughly ten thousand verdicts.
func DefaultRistrettoConfig() RistrettoConfig {
	return RistrettoConfig{
		NumCounters: 100_000,
		MaxCost:     8 << 20,
		BufferItems: 64,
	}
}

// DefaultConfig returns a single-mode config with default sizing.
func DefaultConfig() Config {
	return Config{Mode: ModeSingle, Ristretto: DefaultRistrettoConfig()}
}
