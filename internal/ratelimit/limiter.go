// Package ratelimit provides per-provider request rate limiting for aicleaner.
//
// Cloud vision APIs enforce requests-per-minute quotas. A provider whose local
// budget is exhausted is skipped by the orchestrator exactly like a failing
// one, so the next provider in priority order gets the image.
//
// Basic usage:
//
//	limiter := ratelimit.NewTokenBucketLimiter(15) // 15 RPM
//
//	if !limiter.Allow(ctx) {
//		return ratelimit.ErrRateLimitExceeded
//	}
package ratelimit

import (
	"context"
	"errors"
)

// Common errors returned by rate limiters.
var (
	// ErrRateLimitExceeded is returned when a rate limit is exceeded.
	ErrRateLimitExceeded = errors.New("ratelimit: rate limit exceeded")

	// ErrContextCancelled is returned when the context is canceled during a blocking operation.
	ErrContextCancelled = errors.New("ratelimit: context canceled")
)

// Usage represents the current usage and limit of a limiter.
type Usage struct {
	// RequestsUsed is the number of requests consumed from the current budget.
	RequestsUsed int `json:"requests_used"`

	// RequestsLimit is the maximum number of requests allowed per minute.
	RequestsLimit int `json:"requests_limit"`

	// RequestsRemaining is the number of requests left in the current budget.
	RequestsRemaining int `json:"requests_remaining"`

	// Unlimited is true when no limit is configured.
	Unlimited bool `json:"unlimited"`
}

// RateLimiter defines the interface for rate limiting operations.
// All implementations must be safe for concurrent use.
type RateLimiter interface {
	// Allow reports whether a request may proceed now and consumes one unit if so.
	Allow(ctx context.Context) bool

	// Wait blocks until a request is allowed or the context is canceled.
	Wait(ctx context.Context) error

	// SetLimit updates the requests-per-minute limit (0 = unlimited).
	SetLimit(rpm int)

	// GetUsage returns the current usage statistics.
	GetUsage() Usage
}
