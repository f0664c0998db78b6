package router

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/aicleaner/internal/cache"
	"github.com/omarluq/aicleaner/internal/providers"
)

var errProviderPanic = errors.New("router: provider panicked")

// Orchestrator routes an image to the first healthy provider that returns a
// valid verdict.
type Orchestrator struct {
	registry    *Registry
	health      HealthView
	settings    func() Settings
	cache       cache.Cache
	logger      *zerolog.Logger
	classifiers []FailureClassifier
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCache enables verdict caching by image digest.
func WithCache(c cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithClassifiers replaces the failure classifiers used for logging.
func WithClassifiers(classifiers ...FailureClassifier) Option {
	return func(o *Orchestrator) { o.classifiers = classifiers }
}

// NewOrchestrator creates an orchestrator. settings is called once per
// request; a nil settings func uses hybrid privacy and the default prompt.
func NewOrchestrator(
	registry *Registry,
	health HealthView,
	settings func() Settings,
	logger *zerolog.Logger,
	opts ...Option,
) *Orchestrator {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if settings == nil {
		settings = func() Settings { return Settings{} }
	}
	o := &Orchestrator{
		registry:    registry,
		health:      health,
		settings:    settings,
		logger:      logger,
		classifiers: DefaultClassifiers(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AnalyzeWithFailover returns the first valid verdict from the healthy
// providers in priority order. It never returns an error: when no provider
// answers, the result is providers.ConservativeDefault with the reason in
// its error metadata.
//
// With a cache configured (and neither task.SkipCache nor a zero TTL), a
// cached verdict for the same image, privacy level and prompt is returned
// before the healthy list is consulted. A cache hit therefore wins even when
// every circuit breaker is open; the no_providers default only applies to
// cache misses.
func (o *Orchestrator) AnalyzeWithFailover(
	ctx context.Context,
	image providers.Image,
	task Task,
) providers.AnalysisResult {
	privacy, prompt, ttl := o.resolve(task)
	log := o.logger.With().
		Str("image", image.Name).
		Str("privacy", string(privacy)).
		Logger()

	useCache := o.cache != nil && !task.SkipCache && ttl > 0
	key := cacheKey(image, privacy, prompt)
	if useCache {
		if cached, ok := o.lookup(ctx, key); ok {
			log.Debug().Msg("verdict served from cache")
			return cached
		}
	}

	names := o.health.HealthyProviders()
	if len(names) == 0 {
		log.Warn().Msg("no healthy providers; keeping image")
		return providers.ConservativeDefault(ReasonNoProviders)
	}

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("analysis canceled; keeping image")
			return providers.ConservativeDefault(ReasonCanceled)
		}

		p, ok := o.registry.Get(name)
		if !ok {
			log.Warn().Str("provider", name).Msg("healthy provider missing from registry")
			continue
		}
		if !p.SupportsPrivacy(privacy) {
			log.Debug().Str("provider", name).Msg("provider skipped by privacy level")
			continue
		}

		start := time.Now()
		result, err := o.attempt(ctx, p, image, prompt, privacy)
		if err == nil {
			err = result.Validate()
		}
		if err != nil {
			log.Warn().
				Str("provider", name).
				Str("failure", Classify(o.classifiers, err)).
				Dur("elapsed", time.Since(start)).
				Err(err).
				Msg("provider failed; trying next")
			continue
		}

		log.Info().
			Str("provider", name).
			Str("action", string(result.Action)).
			Float64("confidence", result.Confidence).
			Dur("elapsed", time.Since(start)).
			Msg("image analyzed")
		if useCache {
			o.store(ctx, key, result, ttl)
		}
		return result
	}

	log.Error().Strs("providers", names).Msg("all providers failed; keeping image")
	return providers.ConservativeDefault(ReasonAllProvidersFailed)
}

func (o *Orchestrator) resolve(task Task) (providers.PrivacyLevel, string, time.Duration) {
	s := o.settings()
	privacy := task.Privacy
	if privacy == "" {
		privacy = s.Privacy
	}
	if privacy == "" {
		privacy = providers.PrivacyHybrid
	}
	prompt := task.Prompt
	if prompt == "" {
		prompt = s.Prompt
	}
	if prompt == "" {
		prompt = providers.DefaultPrompt
	}
	return privacy, prompt, s.CacheTTL
}

// attempt calls Analyze, converting a panic into an error.
func (o *Orchestrator) attempt(
	ctx context.Context,
	p providers.Provider,
	image providers.Image,
	prompt string,
	privacy providers.PrivacyLevel,
) (result providers.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errProviderPanic, r)
		}
	}()
	return p.Analyze(ctx, image, prompt, privacy)
}

func (o *Orchestrator) lookup(ctx context.Context, key string) (providers.AnalysisResult, bool) {
	data, err := o.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			o.logger.Debug().Err(err).Msg("verdict cache read failed")
		}
		return providers.AnalysisResult{}, false
	}
	var result providers.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil || result.Validate() != nil {
		_ = o.cache.Delete(ctx, key)
		return providers.AnalysisResult{}, false
	}
	return result.WithMetadata(providers.MetaCached, true), true
}

func (o *Orchestrator) store(ctx context.Context, key string, result providers.AnalysisResult, ttl time.Duration) {
	data, err := json.Marshal(result)
	if err != nil {
		o.logger.Debug().Err(err).Msg("verdict not cacheable")
		return
	}
	if err := o.cache.SetWithTTL(ctx, key, data, ttl); err != nil {
		o.logger.Debug().Err(err).Msg("verdict cache write failed")
	}
}

// cacheKey scopes a verdict to the image bytes, privacy level and prompt.
func cacheKey(image providers.Image, privacy providers.PrivacyLevel, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return "verdict:" + image.Digest() + ":" + string(privacy) + ":" + hex.EncodeToString(sum[:8])
}
