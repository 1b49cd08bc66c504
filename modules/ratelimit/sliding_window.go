package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// windowScript keeps one sorted set of request timestamps per key. It drops
// entries older than the window, admits the request when there is room and
// replies {admitted, count, oldest_ms}.
var windowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit  = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local admitted = 0
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	count = count + 1
	admitted = 1
end
redis.call('PEXPIRE', key, window)

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldest_ms = now
if #oldest == 2 then
	oldest_ms = tonumber(oldest[2])
end
return {admitted, count, oldest_ms}
`)

// SlidingWindowLimiter implements Limiter on Redis. Every admitted request is
// a member of the key's sorted set, scored by its arrival time.
type SlidingWindowLimiter struct {
	client redis.Scripter
	config Config
	prefix string
	now    func() time.Time
}

// NewSlidingWindowLimiter creates a limiter whose keys live under prefix.
func NewSlidingWindowLimiter(client redis.Scripter, config Config, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		client: client,
		config: config,
		prefix: prefix,
		now:    time.Now,
	}
}

// Allow records a request for key when it fits in the window.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := l.now()
	window := l.config.WindowSize

	reply, err := windowScript.Run(ctx, l.client, []string{l.prefix + key},
		now.UnixMilli(), window.Milliseconds(), l.config.RequestsPerWindow, uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(reply) != 3 {
		return nil, fmt.Errorf("unexpected rate limit reply: %v", reply)
	}

	oldest := time.UnixMilli(reply[2])
	res := &Result{
		Allowed:   reply[0] == 1,
		Remaining: max(l.config.RequestsPerWindow-int(reply[1]), 0),
		ResetAt:   oldest.Add(window),
	}
	if !res.Allowed {
		res.RetryAfter = max(res.ResetAt.Sub(now), time.Millisecond)
	}
	return res, nil
}

// Config returns the limiter's configuration.
func (l *SlidingWindowLimiter) Config() Config {
	return l.config
}
