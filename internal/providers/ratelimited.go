package providers

import (
	"context"
	"fmt"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/ratelimit"
)

// RateLimitedProvider gates Analyze behind a requests-per-minute budget.
// Health checks bypass the limiter.
type RateLimitedProvider struct {
	Provider
	limiter ratelimit.RateLimiter
}

// WithRateLimit wraps p so Analyze fails fast with ratelimit.ErrRateLimitExceeded
// once the budget is spent. A nil limiter returns p unchanged.
func WithRateLimit(p Provider, limiter ratelimit.RateLimiter) Provider {
	if limiter == nil {
		return p
	}
	return &RateLimitedProvider{Provider: p, limiter: limiter}
}

// Analyze consumes one unit of budget before delegating.
func (p *RateLimitedProvider) Analyze(
	ctx context.Context,
	image Image,
	prompt string,
	privacy PrivacyLevel,
) (AnalysisResult, error) {
	if !p.limiter.Allow(ctx) {
		return AnalysisResult{}, fmt.Errorf("%s: %w", p.Name(), ratelimit.ErrRateLimitExceeded)
	}
	return p.Provider.Analyze(ctx, image, prompt, privacy)
}

// HealthCheck delegates without consuming budget.
func (p *RateLimitedProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	return p.Provider.HealthCheck(ctx)
}

// Usage reports the limiter's current budget.
func (p *RateLimitedProvider) Usage() ratelimit.Usage {
	return p.limiter.GetUsage()
}
