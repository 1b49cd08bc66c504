// Package ratelimit caps how many writes a user may make in a sliding window.
// Counters live in Redis so every api instance shares one budget per user.
package ratelimit

import (
	"context"
	"time"
)

// Config sizes the sliding window.
type Config struct {
	RequestsPerWindow int
	WindowSize        time.Duration
}

// Result is the limiter's decision for one request.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt is when the oldest request in the window expires.
	ResetAt time.Time
	// RetryAfter is zero for admitted requests.
	RetryAfter time.Duration
}

// Limiter admits or rejects a request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (*Result, error)
}
