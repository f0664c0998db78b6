package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/omarluq/aicleaner/internal/health"
)

// DefaultMaxTokens caps the length of a verdict.
const DefaultMaxTokens = 512

// BaseProvider provides the shared bookkeeping of all backends.
type BaseProvider struct {
	name          string
	model         string
	maxTokens     int
	degradedAfter time.Duration
	local         bool
}

// NewBaseProvider creates a base provider. A degradedAfter of zero uses the
// health package default.
func NewBaseProvider(name, model string, local bool, degradedAfter time.Duration) BaseProvider {
	if degradedAfter <= 0 {
		degradedAfter = time.Duration(health.DefaultDegradedThresholdMS) * time.Millisecond
	}
	return BaseProvider{
		name:          name,
		model:         model,
		local:         local,
		degradedAfter: degradedAfter,
		maxTokens:     DefaultMaxTokens,
	}
}

// Name returns the provider identifier.
func (p *BaseProvider) Name() string {
	return p.name
}

// Model returns the configured model.
func (p *BaseProvider) Model() string {
	return p.model
}

// Local reports whether the provider runs on the local network.
func (p *BaseProvider) Local() bool {
	return p.local
}

// SupportsPrivacy allows local providers at every level and cloud providers
// everywhere except local_only.
func (p *BaseProvider) SupportsPrivacy(level PrivacyLevel) bool {
	if p.local {
		return true
	}
	return level != PrivacyLocalOnly
}

// checkPrivacy returns ErrPrivacyNotSupported when level excludes this provider.
func (p *BaseProvider) checkPrivacy(level PrivacyLevel) error {
	if !p.SupportsPrivacy(level) {
		return fmt.Errorf("%w: %s does not accept %s", ErrPrivacyNotSupported, p.name, level)
	}
	return nil
}

// probe times check and turns its outcome into a ProviderHealth.
func (p *BaseProvider) probe(ctx context.Context, check func(context.Context) error) (health.ProviderHealth, error) {
	start := time.Now()
	if err := check(ctx); err != nil {
		log.Ctx(ctx).Debug().Str("provider", p.name).Err(err).Msg("health probe failed")
		return health.ProviderHealth{}, fmt.Errorf("%s: %w", p.name, err)
	}
	return health.Evaluate(time.Since(start), nil, p.degradedAfter), nil
}

// finish parses model output into a validated result stamped with timing
// and provenance metadata.
func (p *BaseProvider) finish(text string, start time.Time) (AnalysisResult, error) {
	result, err := ParseVerdict(text)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("%s: %w", p.name, err)
	}
	result.ProcessingTimeMS = float64(time.Since(start)) / float64(time.Millisecond)
	result.Metadata[MetaProvider] = p.name
	result.Metadata[MetaModel] = p.model
	return result, nil
}
