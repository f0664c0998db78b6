package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/config"
)

// ConfigService holds the live configuration and its file watcher.
type ConfigService struct {
	runtime *config.Runtime
	watcher *config.Watcher
	path    string
}

var _ config.RuntimeConfig = (*ConfigService)(nil)

// NewConfig loads and validates the config file and prepares a watcher.
// The watcher starts with StartWatching once the logger exists.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)

	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	return &ConfigService{
		runtime: config.NewRuntime(cfg),
		path:    path,
	}, nil
}

// Get returns the current configuration.
func (c *ConfigService) Get() *config.Config {
	return c.runtime.Get()
}

// Path returns the config file path.
func (c *ConfigService) Path() string {
	return c.path
}

// StartWatching hot-reloads the file until ctx is canceled. Analysis
// settings and the API key apply immediately; provider and health changes
// are logged and take effect on restart. A watcher that cannot be created
// disables hot reload with a warning.
func (c *ConfigService) StartWatching(ctx context.Context, logger *zerolog.Logger) {
	if c.watcher != nil {
		return
	}
	watcher, err := config.NewWatcher(c.path, config.WithLogger(logger))
	if err != nil {
		logger.Warn().Err(err).Str("path", c.path).Msg("config watcher creation failed, hot-reload disabled")
		return
	}
	c.watcher = watcher

	watcher.OnReload(func(newCfg *config.Config) error {
		old := c.runtime.Get()
		c.runtime.Store(newCfg)
		if restartRequired(old, newCfg) {
			logger.Warn().Str("path", c.path).Msg("provider or health changes take effect after restart")
		}
		logger.Info().Str("path", c.path).Msg("config hot-reloaded")
		return nil
	})

	go func() {
		if err := watcher.Watch(ctx); err != nil {
			logger.Error().Err(err).Msg("config watcher stopped")
		}
	}()
	logger.Info().Str("path", c.path).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func restartRequired(old, next *config.Config) bool {
	if old.Health != next.Health || old.Cache != next.Cache {
		return true
	}
	if len(old.Providers) != len(next.Providers) {
		return true
	}
	for idx := range old.Providers {
		a, b := old.Providers[idx], next.Providers[idx]
		if a.IsEnabled() != b.IsEnabled() {
			return true
		}
		a.Enabled, b.Enabled = nil, nil
		if a != b {
			return true
		}
	}
	return false
}
