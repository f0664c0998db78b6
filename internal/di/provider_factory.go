package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omarluq/aicleaner/internal/config"
	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/ratelimit"
)

// ErrUnknownProviderType is returned when the provider type is not recognized.
var ErrUnknownProviderType = errors.New("di: unknown provider type")

// createProvider builds the backend for one provider entry and wraps it in a
// rate limiter when rpm_limit is set. degraded is the health-wide threshold.
func createProvider(ctx context.Context, p *config.ProviderConfig, degraded time.Duration) (providers.Provider, error) {
	provider, err := newBackend(ctx, p, p.GetDegradedThreshold(degraded))
	if err != nil {
		return nil, fmt.Errorf("%s provider %s: %w", p.Type, p.Name, err)
	}
	if rpm, ok := p.GetRPMLimitOption().Get(); ok {
		return providers.WithRateLimit(provider, ratelimit.NewTokenBucketLimiter(rpm)), nil
	}
	return provider, nil
}

func newBackend(ctx context.Context, p *config.ProviderConfig, degraded time.Duration) (providers.Provider, error) {
	switch p.Type {
	case config.ProviderGemini, config.ProviderVertex:
		return providers.NewGeminiProvider(ctx, &providers.GeminiConfig{
			Name:              p.Name,
			APIKey:            p.APIKey,
			Model:             p.Model,
			BaseURL:           p.BaseURL,
			ProjectID:         p.GCPProjectID,
			Region:            p.GCPRegion,
			DegradedThreshold: degraded,
			Vertex:            p.Type == config.ProviderVertex,
		})
	case config.ProviderOpenAI:
		return providers.NewOpenAIProvider(&providers.OpenAIConfig{
			Name:              p.Name,
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			DegradedThreshold: degraded,
			Local:             p.Local,
		})
	case config.ProviderOllama:
		return providers.NewOllamaProvider(p.Name, p.BaseURL, p.Model, degraded)
	case config.ProviderAnthropic:
		return providers.NewAnthropicProvider(&providers.AnthropicConfig{
			Name:              p.Name,
			APIKey:            p.APIKey,
			BaseURL:           p.BaseURL,
			Model:             p.Model,
			DegradedThreshold: degraded,
		})
	case config.ProviderBedrock:
		return providers.NewBedrockProvider(ctx, &providers.BedrockConfig{
			Name:              p.Name,
			Region:            p.AWSRegion,
			Model:             p.Model,
			RuntimeURL:        p.BaseURL,
			DegradedThreshold: degraded,
		})
	case config.ProviderVertexClaude:
		return providers.NewVertexClaudeProvider(ctx, &providers.VertexClaudeConfig{
			Name:              p.Name,
			ProjectID:         p.GCPProjectID,
			Region:            p.GCPRegion,
			Model:             p.Model,
			BaseURL:           p.BaseURL,
			DegradedThreshold: degraded,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProviderType, p.Type)
	}
}
