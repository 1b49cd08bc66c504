package ratelimit

import (
	"context"
	"fmt"
	"log"

	"github.com/example/chat-server/config"
	"github.com/go-monolith/mono"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every limiter key in Redis.
const KeyPrefix = "chat:ratelimit:"

// Module provides rate limiting as a mono module.
type Module struct {
	cfg        config.RateLimitConfig
	client     *redis.Client
	middleware *Middleware
}

var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the module. The Redis client connects lazily, so the
// middleware is usable as soon as the module exists.
func NewModule(cfg config.RateLimitConfig) *Module {
	client := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	limiter := NewSlidingWindowLimiter(client, Config{
		RequestsPerWindow: cfg.RequestsPerWindow,
		WindowSize:        cfg.WindowSize,
	}, KeyPrefix)

	return &Module{
		cfg:        cfg,
		client:     client,
		middleware: NewMiddleware(limiter, cfg.RequestsPerWindow),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "rate-limiter"
}

// Start checks the Redis connection. An unreachable Redis is logged and
// requests are let through until it recovers.
func (m *Module) Start(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		log.Printf("[rate-limiter] Redis at %s unreachable, limiter will fail open: %v", m.cfg.RedisAddr, err)
	} else {
		log.Printf("[rate-limiter] Connected to Redis at %s", m.cfg.RedisAddr)
	}
	log.Printf("[rate-limiter] Module started (%d requests per %s)", m.cfg.RequestsPerWindow, m.cfg.WindowSize)
	return nil
}

// Stop closes the Redis connection.
func (m *Module) Stop(_ context.Context) error {
	if err := m.client.Close(); err != nil {
		log.Printf("[rate-limiter] Error closing Redis connection: %v", err)
	}
	log.Println("[rate-limiter] Module stopped")
	return nil
}

// Middleware returns the rate limiting middleware.
func (m *Module) Middleware() *Middleware {
	return m.middleware
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("redis ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"redis": m.cfg.RedisAddr},
	}
}
