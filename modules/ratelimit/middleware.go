package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// UserIDLocal is the fiber local holding the authenticated user ID.
const UserIDLocal = "user_id"

// Middleware provides rate limiting middleware for Fiber.
type Middleware struct {
	limiter Limiter
	limit   int
}

// NewMiddleware creates middleware enforcing limit requests per window.
func NewMiddleware(limiter Limiter, limit int) *Middleware {
	return &Middleware{
		limiter: limiter,
		limit:   limit,
	}
}

// UserRateLimit limits requests by the user ID in c.Locals("user_id"), or by
// client IP when the request is anonymous.
func (m *Middleware) UserRateLimit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := "ip:" + c.IP()
		if userID, ok := c.Locals(UserIDLocal).(string); ok && userID != "" {
			key = "user:" + userID
		}

		result, err := m.limiter.Allow(c.Context(), key)
		if err != nil {
			log.Printf("[rate-limiter] Limiter error, allowing request: %v", err)
			c.Set("X-RateLimit-Error", "unavailable")
			return c.Next()
		}

		setRateLimitHeaders(c, result, m.limit)

		if !result.Allowed {
			return sendRateLimitExceeded(c, result)
		}
		return c.Next()
	}
}

// AllowUser checks an action outside HTTP, such as a websocket send, against
// the user's budget. Limiter errors allow the action.
func (m *Middleware) AllowUser(ctx context.Context, userID string) (bool, time.Duration) {
	result, err := m.limiter.Allow(ctx, "user:"+userID)
	if err != nil {
		log.Printf("[rate-limiter] Limiter error, allowing action: %v", err)
		return true, 0
	}
	return result.Allowed, result.RetryAfter
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(c *fiber.Ctx, result *Result, limit int) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	c.Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// sendRateLimitExceeded sends a 429 Too Many Requests response.
func sendRateLimitExceeded(c *fiber.Ctx, result *Result) error {
	retryAfter := retrySeconds(result.RetryAfter)
	c.Set("Retry-After", strconv.Itoa(retryAfter))

	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
		"error":       "Too Many Requests",
		"message":     fmt.Sprintf("Rate limit exceeded. Please retry after %d seconds.", retryAfter),
		"retry_after": retryAfter,
	})
}

// retrySeconds rounds up to whole seconds, never below one.
func retrySeconds(d time.Duration) int {
	s := int((d + time.Second - 1) / time.Second)
	if s < 1 {
		s = 1
	}
	return s
}
