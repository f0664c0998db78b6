package router

import (
	"context"
	"sync/atomic"

	"github.com/omarluq/aicleaner/internal/health"
	"github.com/omarluq/aicleaner/internal/providers"
)

// StubProvider is a scripted providers.Provider for tests.
type StubProvider struct {
	AnalyzeFn func(ctx context.Context) (providers.AnalysisResult, error)
	HealthFn  func(ctx context.Context) (health.ProviderHealth, error)
	ID        string
	IsLocal   bool
	calls     atomic.Int32
}

func (s *StubProvider) Name() string { return s.ID }

func (s *StubProvider) Local() bool { return s.IsLocal }

func (s *StubProvider) SupportsPrivacy(level providers.PrivacyLevel) bool {
	return s.IsLocal || level != providers.PrivacyLocalOnly
}

func (s *StubProvider) Analyze(
	ctx context.Context, _ providers.Image, _ string, _ providers.PrivacyLevel,
) (providers.AnalysisResult, error) {
	s.calls.Add(1)
	return s.AnalyzeFn(ctx)
}

func (s *StubProvider) HealthCheck(ctx context.Context) (health.ProviderHealth, error) {
	if s.HealthFn == nil {
		return health.ProviderHealth{Status: health.StatusHealthy}, nil
	}
	return s.HealthFn(ctx)
}

// Calls returns how many times Analyze ran.
func (s *StubProvider) Calls() int {
	return int(s.calls.Load())
}

// CacheKey exposes cacheKey for testing.
var CacheKey = cacheKey

// ErrProviderPanic exposes errProviderPanic for testing.
var ErrProviderPanic = errProviderPanic
