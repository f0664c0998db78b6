// Package router holds the provider registry and the failover orchestrator.
//
// The orchestrator asks the health monitor for the providers that are
// currently usable, in priority order, and tries each until one returns a
// valid verdict:
//
//	AnalyzeWithFailover -> HealthyProviders -> Provider.Analyze -> Validate
//
// Analyze failures never reach the caller. When nothing answers, the caller
// gets a conservative "keep" verdict tagged with the reason.
package router

import (
	"errors"
	"time"

	"github.com/omarluq/aicleaner/internal/providers"
)

// Reasons recorded in the error metadata of a conservative default.
const (
	ReasonNoProviders        = "no_providers"
	ReasonAllProvidersFailed = "all_providers_failed"
	ReasonCanceled           = "canceled"
)

// Common errors returned by the registry.
var (
	// ErrDuplicateProvider is returned when a name is registered twice.
	ErrDuplicateProvider = errors.New("router: provider already registered")

	// ErrNilProvider is returned when registering a nil provider.
	ErrNilProvider = errors.New("router: nil provider")
)

// HealthView is the part of the health monitor the orchestrator reads.
type HealthView interface {
	// HealthyProviders returns usable provider names in priority order.
	HealthyProviders() []string
}

// Settings are the analysis options read on every call, so config reloads
// take effect without rebuilding the orchestrator.
type Settings struct {
	Privacy  providers.PrivacyLevel
	Prompt   string
	CacheTTL time.Duration
}

// Task carries per-request overrides. Zero fields fall back to Settings.
type Task struct {
	Privacy providers.PrivacyLevel
	Prompt  string
	// SkipCache forces a fresh analysis and does not store the answer.
	SkipCache bool
}
