package cache

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// New creates the backend selected by cfg.Mode. A nil logger disables logging.
func New(cfg *Config, logger *zerolog.Logger) (Cache, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	log := logger.With().Str("component", "cache").Logger()
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		c   Cache
		err error
	)
	switch cfg.Mode {
	case ModeSingle:
		c, err = newRistrettoCache(cfg.Ristretto, log)
	case ModeDisabled:
		c = newNoopCache(log)
	default:
		return nil, fmt.Errorf("cache: unknown mode %q", cfg.Mode)
	}
	if err != nil {
		log.Error().Err(err).Str("mode", string(cfg.Mode)).Msg("cache backend initialization failed")
		return nil, err
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Dur("init_time", time.Since(start)).
		Msg("cache backend initialized")
	return c, nil
}
