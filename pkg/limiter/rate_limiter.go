// Package limiter wraps golang.org/x/time/rate for the two throttles
// the bot needs: the global outbound send budget towards the Bot API
// and the per-user inbound update budget.
package limiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucketLimiter is a token bucket over a single resource.
type TokenBucketLimiter struct {
	limiter *rate.Limiter
}

// NewTokenBucketLimiter creates a bucket refilling at r tokens per
// second with capacity b.
func NewTokenBucketLimiter(r rate.Limit, b int) *TokenBucketLimiter {
	return &TokenBucketLimiter{
		limiter: rate.NewLimiter(r, b),
	}
}

// Allow reports whether one token is available now and takes it.
func (l *TokenBucketLimiter) Allow() bool {
	return l.limiter.Allow()
}

// AllowN reports whether n tokens are available now and takes them.
func (l *TokenBucketLimiter) AllowN(n int) bool {
	return l.limiter.AllowN(time.Now(), n)
}

// Wait blocks until a token is available or the context ends.
func (l *TokenBucketLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}
