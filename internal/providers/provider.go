// Package providers defines the AI image-analysis backends aicleaner can route to.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/omarluq/aicleaner/internal/health"
)

// Sentinel errors for provider calls.
var (
	// ErrInvalidResult is returned when a provider answer fails validation.
	ErrInvalidResult = errors.New("providers: invalid analysis result")

	// ErrEmptyResponse is returned when a provider returns no text.
	ErrEmptyResponse = errors.New("providers: empty response")

	// ErrPrivacyNotSupported is returned when a provider is asked to handle a
	// privacy level it cannot honor.
	ErrPrivacyNotSupported = errors.New("providers: privacy level not supported")

	// ErrUpstreamStatus is returned for non-2xx responses from raw HTTP backends.
	ErrUpstreamStatus = errors.New("providers: upstream returned error status")
)

// PrivacyLevel restricts which providers may see an image.
type PrivacyLevel string

// Privacy levels.
const (
	// PrivacyLocalOnly sends images only to providers running on the local network.
	PrivacyLocalOnly PrivacyLevel = "local_only"
	// PrivacyHybrid allows local and cloud providers.
	PrivacyHybrid PrivacyLevel = "hybrid"
	// PrivacyCloud allows cloud providers (local providers still qualify).
	PrivacyCloud PrivacyLevel = "cloud"
)

// ParsePrivacyLevel parses a configured privacy level. Empty means hybrid.
func ParsePrivacyLevel(s string) (PrivacyLevel, error) {
	switch PrivacyLevel(strings.ToLower(strings.TrimSpace(s))) {
	case "", PrivacyHybrid:
		return PrivacyHybrid, nil
	case PrivacyLocalOnly:
		return PrivacyLocalOnly, nil
	case PrivacyCloud:
		return PrivacyCloud, nil
	default:
		return "", fmt.Errorf("providers: unknown privacy level %q", s)
	}
}

// Provider is the capability every analysis backend implements.
type Provider interface {
	// Name returns the configured provider name.
	Name() string

	// Local reports whether the provider runs on the local network.
	Local() bool

	// SupportsPrivacy reports whether images may be sent under level.
	SupportsPrivacy(level PrivacyLevel) bool

	// Analyze asks the model whether the image should be kept or deleted.
	Analyze(ctx context.Context, image Image, prompt string, privacy PrivacyLevel) (AnalysisResult, error)

	// HealthCheck performs a lightweight liveness check (no inference).
	HealthCheck(ctx context.Context) (health.ProviderHealth, error)
}
