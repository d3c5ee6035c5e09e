// Package ratelimit provides a token-bucket limiter for outbound listing API calls.
// It supports both non-blocking (Allow) and blocking (Wait) operations.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Default bucket shape for the listing API. The upstream quota is
// account-global, so one process-wide bucket guards every request.
const (
	DefaultRPS   = 5.0
	DefaultBurst = 5
)

// Limiter is a shared token bucket. Tokens refill continuously from
// elapsed wall-clock time rather than in fixed windows, and acquisition
// is safe under concurrent use from multiple in-flight sync tasks.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing rps requests per second with the given
// burst capacity (tokens available immediately).
func New(rps float64, burst int) *Limiter {
	if rps <= 0 {
		rps = DefaultRPS
	}
	if burst <= 0 {
		burst = DefaultBurst
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wait blocks until a token is available or the context is canceled.
// Use for outbound requests where you want to respect rate limits.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed right now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
