package router

import (
	"context"
	"errors"
	"net"

	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/ratelimit"
)

// Failure kinds recorded when a provider is skipped.
const (
	FailureRateLimited   = "rate_limited"
	FailureTimeout       = "timeout"
	FailureConnection    = "connection"
	FailureUpstream      = "upstream_status"
	FailureInvalidResult = "invalid_result"
	FailurePrivacy       = "privacy"
	FailurePanic         = "panic"
	FailureOther         = "error"
)

// FailureClassifier recognizes one kind of provider failure.
type FailureClassifier interface {
	// Matches reports whether err belongs to this kind.
	Matches(err error) bool

	// Name returns the failure kind for logging.
	Name() string
}

// sentinelClassifier matches errors wrapping any of its sentinels.
type sentinelClassifier struct {
	name      string
	sentinels []error
}

// NewSentinelClassifier creates a classifier matching errors.Is against sentinels.
func NewSentinelClassifier(name string, sentinels ...error) FailureClassifier {
	return &sentinelClassifier{name: name, sentinels: sentinels}
}

func (c *sentinelClassifier) Matches(err error) bool {
	for _, s := range c.sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func (c *sentinelClassifier) Name() string {
	return c.name
}

// connectionClassifier matches network errors (refused, DNS, unreachable).
type connectionClassifier struct{}

func (connectionClassifier) Matches(err error) bool {
	var netErr net.Error
	return err != nil && errors.As(err, &netErr)
}

func (connectionClassifier) Name() string {
	return FailureConnection
}

// DefaultClassifiers returns classifiers in match order. Timeouts come before
// connection errors because net timeouts satisfy both.
func DefaultClassifiers() []FailureClassifier {
	return []FailureClassifier{
		NewSentinelClassifier(FailureRateLimited, ratelimit.ErrRateLimitExceeded),
		NewSentinelClassifier(FailureTimeout, context.DeadlineExceeded),
		connectionClassifier{},
		NewSentinelClassifier(FailureUpstream, providers.ErrUpstreamStatus),
		NewSentinelClassifier(FailureInvalidResult, providers.ErrInvalidResult, providers.ErrEmptyResponse),
		NewSentinelClassifier(FailurePrivacy, providers.ErrPrivacyNotSupported),
		NewSentinelClassifier(FailurePanic, errProviderPanic),
	}
}

// Classify returns the name of the first matching classifier, or FailureOther.
func Classify(classifiers []FailureClassifier, err error) string {
	for _, c := range classifiers {
		if c.Matches(err) {
			return c.Name()
		}
	}
	return FailureOther
}
