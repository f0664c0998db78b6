package router

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/omarluq/aicleaner/internal/providers"
	"github.com/omarluq/aicleaner/internal/ratelimit"
)

// mockNetError implements net.Error for testing.
type mockNetError struct {
	timeout bool
}

func (e *mockNetError) Error() string   { return "mock network error" }
func (e *mockNetError) Timeout() bool   { return e.timeout }
func (e *mockNetError) Temporary() bool { return false }

var _ net.Error = (*mockNetError)(nil)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want string
	}{
		{name: "rate limited", err: fmt.Errorf("gemini: %w", ratelimit.ErrRateLimitExceeded), want: FailureRateLimited},
		{name: "deadline", err: fmt.Errorf("x: %w", context.DeadlineExceeded), want: FailureTimeout},
		{name: "network", err: fmt.Errorf("dial: %w", &mockNetError{}), want: FailureConnection},
		{name: "upstream", err: fmt.Errorf("b: %w: 503", providers.ErrUpstreamStatus), want: FailureUpstream},
		{name: "invalid", err: providers.ErrInvalidResult, want: FailureInvalidResult},
		{name: "empty", err: providers.ErrEmptyResponse, want: FailureInvalidResult},
		{name: "privacy", err: providers.ErrPrivacyNotSupported, want: FailurePrivacy},
		{name: "panic", err: fmt.Errorf("%w: boom", errProviderPanic), want: FailurePanic},
		{name: "other", err: errors.New("something else"), want: FailureOther},
		{name: "nil", err: nil, want: FailureOther},
	}

	classifiers := DefaultClassifiers()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Classify(classifiers, tt.err))
		})
	}
}

func TestClassifyCustom(t *testing.T) {
	t.Parallel()

	quota := errors.New("quota")
	classifiers := []FailureClassifier{NewSentinelClassifier("quota", quota)}
	assert.Equal(t, "quota", Classify(classifiers, fmt.Errorf("wrapped: %w", quota)))
	assert.Equal(t, FailureOther, Classify(classifiers, context.Canceled))
	assert.Equal(t, FailureOther, Classify(nil, quota))
}
