package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter implements RateLimiter using golang.org/x/time/rate.
//
// Burst is set equal to the limit so a full minute's budget can be spent at
// once and then refills gradually.
type TokenBucketLimiter struct {
	limiter   *rate.Limiter
	rpm       int
	unlimited bool
	mu        sync.RWMutex
}

// NewTokenBucketLimiter creates a limiter allowing rpm requests per minute.
// Zero or negative rpm means unlimited.
func NewTokenBucketLimiter(rpm int) *TokenBucketLimiter {
	l := &TokenBucketLimiter{}
	l.SetLimit(rpm)
	return l
}

func newRateLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

// Allow checks if a request is allowed under the current limit.
// This is a non-blocking operation.
func (l *TokenBucketLimiter) Allow(_ context.Context) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a request is allowed or the context is canceled.
// Returns ErrContextCancelled if the context is canceled while waiting.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()

	if err := limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return ErrContextCancelled
		}
		return err
	}
	return nil
}

// SetLimit replaces the limiter with a fresh bucket at the new rate.
func (l *TokenBucketLimiter) SetLimit(rpm int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = newRateLimiter(rpm)
	l.unlimited = rpm <= 0
	l.rpm = max(rpm, 0)
}

// GetUsage returns the current usage statistics.
func (l *TokenBucketLimiter) GetUsage() Usage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.unlimited {
		return Usage{Unlimited: true}
	}
	remaining := clampUsage(int(l.limiter.Tokens()), l.rpm)
	return Usage{
		RequestsUsed:      l.rpm - remaining,
		RequestsLimit:     l.rpm,
		RequestsRemaining: remaining,
	}
}

func clampUsage(remaining, limit int) int {
	if remaining < 0 {
		return 0
	}
	if remaining > limit {
		return limit
	}
	return remaining
}
