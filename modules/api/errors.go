package api

import (
	"log"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// errorRule maps error text to an HTTP status. Errors cross module
// boundaries as text over request-reply, so matching is by substring.
type errorRule struct {
	text   string
	status int
	code   string
}

var errorRules = sortedRules([]errorRule{
	{"invalid username or password", fiber.StatusUnauthorized, "unauthorized"},
	{"invalid token", fiber.StatusUnauthorized, "unauthorized"},
	{"token has expired", fiber.StatusUnauthorized, "unauthorized"},
	{"token has been revoked", fiber.StatusUnauthorized, "unauthorized"},

	{"account is banned", fiber.StatusForbidden, "forbidden"},
	{"admin privileges required", fiber.StatusForbidden, "forbidden"},
	{"cannot ban yourself", fiber.StatusForbidden, "forbidden"},
	{"you are banned from this room", fiber.StatusForbidden, "forbidden"},
	{"this room is invite-only", fiber.StatusForbidden, "forbidden"},
	{"wrong room password", fiber.StatusForbidden, "forbidden"},
	{"you are not a member of this room", fiber.StatusForbidden, "forbidden"},
	{"only the room owner or an admin can do that", fiber.StatusForbidden, "forbidden"},
	{"cannot kick or ban the room owner", fiber.StatusForbidden, "forbidden"},
	{"only the sender can edit a message", fiber.StatusForbidden, "forbidden"},
	{"only the sender, the room owner or an admin can delete a message", fiber.StatusForbidden, "forbidden"},
	{"you can only message friends", fiber.StatusForbidden, "forbidden"},
	{"only the recipient can respond to a friend request", fiber.StatusForbidden, "forbidden"},

	{"user not found", fiber.StatusNotFound, "not_found"},
	{"room not found", fiber.StatusNotFound, "not_found"},
	{"message not found", fiber.StatusNotFound, "not_found"},
	{"friend request not found", fiber.StatusNotFound, "not_found"},
	{"avatar not found", fiber.StatusNotFound, "not_found"},
	{"invalid invite code", fiber.StatusNotFound, "not_found"},
	{"user is not in this room", fiber.StatusNotFound, "not_found"},
	{"not friends", fiber.StatusNotFound, "not_found"},

	{"username is already taken", fiber.StatusConflict, "conflict"},
	{"room name is already taken", fiber.StatusConflict, "conflict"},
	{"friend request already sent", fiber.StatusConflict, "conflict"},
	{"already friends", fiber.StatusConflict, "conflict"},
	{"user is not banned from this room", fiber.StatusConflict, "conflict"},
	{"room owner cannot leave", fiber.StatusConflict, "conflict"},

	{"username must be", fiber.StatusBadRequest, "bad_request"},
	{"password must be", fiber.StatusBadRequest, "bad_request"},
	{"room password must be", fiber.StatusBadRequest, "bad_request"},
	{"bio must be", fiber.StatusBadRequest, "bad_request"},
	{"room name must be", fiber.StatusBadRequest, "bad_request"},
	{"message cannot be empty", fiber.StatusBadRequest, "bad_request"},
	{"message must be at most", fiber.StatusBadRequest, "bad_request"},
	{"cannot message yourself", fiber.StatusBadRequest, "bad_request"},
	{"cannot send a friend request to yourself", fiber.StatusBadRequest, "bad_request"},
	{"invalid history cursor", fiber.StatusBadRequest, "bad_request"},
	{"invalid avatar key", fiber.StatusBadRequest, "bad_request"},
	{"invalid image", fiber.StatusBadRequest, "bad_request"},
	{"file too large", fiber.StatusRequestEntityTooLarge, "payload_too_large"},
	{"file type not supported", fiber.StatusUnsupportedMediaType, "unsupported_media_type"},
})

// sortedRules orders rules longest text first so the most specific wins.
func sortedRules(rules []errorRule) []errorRule {
	sort.SliceStable(rules, func(i, j int) bool {
		return len(rules[i].text) > len(rules[j].text)
	})
	return rules
}

// classify returns the status, code and client-facing message for err.
func classify(err error) (int, string, string) {
	text := err.Error()
	for _, rule := range errorRules {
		if idx := strings.Index(text, rule.text); idx >= 0 {
			return rule.status, rule.code, text[idx:]
		}
	}
	return fiber.StatusInternalServerError, "internal_error", "Internal server error"
}

// writeError maps a service error to a JSON error response.
func writeError(c *fiber.Ctx, err error) error {
	status, code, message := classify(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("[api] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// badRequest writes a 400 with the given message.
func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "bad_request",
		Message: message,
	})
}

// customErrorHandler handles errors returned from fiber handlers.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	} else {
		log.Printf("[api] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
