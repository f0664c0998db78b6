package di

import (
	"context"
	"time"

	"github.com/omarluq/aicleaner/internal/config"
	"github.com/omarluq/aicleaner/internal/providers"
)

// CreateProvider exposes createProvider for testing.
func CreateProvider(ctx context.Context, p *config.ProviderConfig, degraded time.Duration) (providers.Provider, error) {
	return createProvider(ctx, p, degraded)
}

// RestartRequired exposes restartRequired for testing.
var RestartRequired = restartRequired
