package di

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/aicleaner/internal/router"
)

// providerInitTimeout bounds SDK setup such as loading cloud credentials.
const providerInitTimeout = 30 * time.Second

// RegistryService holds the enabled providers in priority order.
type RegistryService struct {
	Registry *router.Registry
}

// NewRegistry builds every enabled provider. A provider that cannot be
// constructed is logged and left out; the service fails only if none remain.
func NewRegistry(i do.Injector) (*RegistryService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logger := do.MustInvoke[*LoggerService](i).Logger

	cfg := cfgSvc.Get()
	ctx, cancel := context.WithTimeout(context.Background(), providerInitTimeout)
	defer cancel()

	registry := router.NewRegistry()
	enabled := cfg.EnabledProviders()
	for idx := range enabled {
		pc := &enabled[idx]
		provider, err := createProvider(ctx, pc, cfg.Health.GetDegradedThreshold())
		if err != nil {
			logger.Error().Err(err).Str("provider", pc.Name).Msg("provider disabled: construction failed")
			continue
		}
		if err := registry.Register(provider); err != nil {
			return nil, err
		}
		logger.Debug().
			Str("provider", pc.Name).
			Str("type", pc.Type).
			Bool("local", provider.Local()).
			Msg("provider registered")
	}

	if registry.Len() == 0 {
		return nil, fmt.Errorf("di: none of %d enabled providers could be created", len(enabled))
	}
	return &RegistryService{Registry: registry}, nil
}
