package api

import (
	"strings"

	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/ratelimit"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

const (
	// UserContextKey is the key used to store user claims in the Fiber context.
	UserContextKey = "user"
)

// AuthMiddleware creates a middleware that validates bearer access tokens.
func AuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Authorization header is required",
			})
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Invalid authorization header format. Use: Bearer <token>",
			})
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "Token is required",
			})
		}

		return authenticate(c, authAdapter, token)
	}
}

// WebSocketAuthMiddleware rejects non-upgrade requests and validates the
// access token passed as the token query parameter.
func WebSocketAuthMiddleware(authAdapter auth.AuthPort) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Error:   "unauthorized",
				Message: "token query parameter is required",
			})
		}
		return authenticate(c, authAdapter, token)
	}
}

func authenticate(c *fiber.Ctx, authAdapter auth.AuthPort, token string) error {
	claims, err := authAdapter.ValidateToken(c.UserContext(), token)
	if err != nil {
		if strings.Contains(err.Error(), auth.ErrUserBanned.Error()) {
			return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
				Error:   "forbidden",
				Message: auth.ErrUserBanned.Error(),
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
			Error:   "unauthorized",
			Message: "Invalid or expired token",
		})
	}

	c.Locals(UserContextKey, claims)
	c.Locals(ratelimit.UserIDLocal, claims.UserID)
	return c.Next()
}

// claimsFrom returns the authenticated caller.
func claimsFrom(c *fiber.Ctx) domain.Claims {
	if claims, ok := c.Locals(UserContextKey).(*domain.Claims); ok && claims != nil {
		return *claims
	}
	return domain.Claims{}
}

// writeLimit applies the rate limiter to state-changing requests only.
func writeLimit(mw *ratelimit.Middleware) fiber.Handler {
	if mw == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	limit := mw.UserRateLimit()
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		return limit(c)
	}
}
