package index

import (
	"context"
	"errors"
	"math"
	"time"
)

// ForeverPolicy retries index writes until they succeed, with capped
// exponential backoff. Stalling the whole pipeline on one struggling write
// is the intended backpressure for this batch job: losing a document is
// worse than a slow run. Only context cancellation breaks the loop.
type ForeverPolicy struct {
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewForeverPolicy builds the production retry policy.
func NewForeverPolicy(baseDelay, maxDelay time.Duration) *ForeverPolicy {
	if baseDelay <= 0 {
		baseDelay = 250 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &ForeverPolicy{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// ShouldRetry reports whether the failed attempt should be repeated.
// There is no attempt ceiling.
func (p *ForeverPolicy) ShouldRetry(err error, _ int) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Backoff returns the wait duration before the next attempt.
func (p *ForeverPolicy) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(p.maxDelay) {
		return p.maxDelay
	}
	return time.Duration(delay)
}
