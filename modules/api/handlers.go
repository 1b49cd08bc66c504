package api

import (
	"context"
	"io"
	"strings"

	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/avatar"
	"github.com/example/chat-server/modules/chat"
	"github.com/example/chat-server/modules/friends"
	"github.com/gofiber/fiber/v2"
)

// AvatarStore uploads and serves avatars.
type AvatarStore interface {
	Upload(ctx context.Context, userID string, data []byte, contentType string) (*avatar.UploadResult, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	auth    auth.AuthPort
	friends friends.FriendsPort
	chat    chat.ChatPort
	avatars func() AvatarStore
}

// NewHandlers creates a new Handlers instance. avatars may return nil while
// the avatar module is not running.
func NewHandlers(authPort auth.AuthPort, friendsPort friends.FriendsPort, chatPort chat.ChatPort, avatars func() AvatarStore) *Handlers {
	if avatars == nil {
		avatars = func() AvatarStore { return nil }
	}
	return &Handlers{
		auth:    authPort,
		friends: friendsPort,
		chat:    chatPort,
		avatars: avatars,
	}
}

// Auth

// Signup handles account creation.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	resp, err := h.auth.Signup(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login handles user login.
func (h *Handlers) Login(c *fiber.Ctx) error {
	var req CredentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "Username and password are required")
	}

	resp, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// Refresh exchanges a refresh token for a new token pair.
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	tokens, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"tokens": tokens})
}

// Logout revokes a refresh token.
func (h *Handlers) Logout(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	if err := h.auth.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Profile

// Me returns the caller's profile and friend count.
func (h *Handlers) Me(c *fiber.Ctx) error {
	caller := claimsFrom(c)
	profile, err := h.auth.GetUser(c.UserContext(), caller.UserID)
	if err != nil {
		return writeError(c, err)
	}
	count, err := h.friends.CountFriends(c.UserContext(), caller.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(MeResponse{User: *profile, FriendCount: count})
}

// UpdateMe sets the caller's bio.
func (h *Handlers) UpdateMe(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	profile, err := h.auth.UpdateProfile(c.UserContext(), claimsFrom(c).UserID, req.Bio)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}

// UploadAvatar accepts a multipart "avatar" file and makes it the caller's avatar.
func (h *Handlers) UploadAvatar(c *fiber.Ctx) error {
	store := h.avatars()
	if store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Avatar storage is not available",
		})
	}

	file, err := c.FormFile("avatar")
	if err != nil {
		return badRequest(c, "avatar file is required")
	}
	if file.Size > avatar.MaxUploadSize {
		return writeError(c, avatar.ErrTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, avatar.MaxUploadSize+1))
	if err != nil {
		return badRequest(c, "Failed to read uploaded file")
	}

	result, err := store.Upload(c.UserContext(), claimsFrom(c).UserID, data, file.Header.Get("Content-Type"))
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// GetAvatar serves a stored avatar.
func (h *Handlers) GetAvatar(c *fiber.Ctx) error {
	store := h.avatars()
	if store == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{
			Error:   "unavailable",
			Message: "Avatar storage is not available",
		})
	}

	key := c.Params("user") + "/" + c.Params("file")
	data, err := store.Get(c.UserContext(), key)
	if err != nil {
		return writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, avatar.ContentType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	return c.Send(data)
}

// Users

// SearchUsers finds users by username substring.
func (h *Handlers) SearchUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		return badRequest(c, "q is required")
	}

	users, err := h.auth.SearchUsers(c.UserContext(), query, claimsFrom(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetUser returns a public profile by username.
func (h *Handlers) GetUser(c *fiber.Ctx) error {
	profile, err := h.auth.FindUser(c.UserContext(), c.Params("username"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}

// Friends

// ListFriends returns the caller's friends.
func (h *Handlers) ListFriends(c *fiber.Ctx) error {
	list, err := h.friends.ListFriends(c.UserContext(), claimsFrom(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"friends": list})
}

// RemoveFriend ends a friendship.
func (h *Handlers) RemoveFriend(c *fiber.Ctx) error {
	caller := claimsFrom(c)
	if _, err := h.friends.RemoveFriend(c.UserContext(), caller.UserID, caller.Username, c.Params("username")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListFriendRequests returns pending incoming and outgoing requests.
func (h *Handlers) ListFriendRequests(c *fiber.Ctx) error {
	list, err := h.friends.ListRequests(c.UserContext(), claimsFrom(c).UserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(list)
}

// SendFriendRequest sends a request, or accepts the target's pending one.
func (h *Handlers) SendFriendRequest(c *fiber.Ctx) error {
	var req UsernameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return badRequest(c, "username is required")
	}

	caller := claimsFrom(c)
	resp, err := h.friends.SendRequest(c.UserContext(), caller.UserID, caller.Username, req.Username)
	if err != nil {
		return writeError(c, err)
	}

	status := fiber.StatusCreated
	if resp.Accepted {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(resp)
}

// AcceptFriendRequest accepts a request addressed to the caller.
func (h *Handlers) AcceptFriendRequest(c *fiber.Ctx) error {
	return h.respond(c, true)
}

// DeclineFriendRequest declines a request addressed to the caller.
func (h *Handlers) DeclineFriendRequest(c *fiber.Ctx) error {
	return h.respond(c, false)
}

func (h *Handlers) respond(c *fiber.Ctx, accept bool) error {
	req, err := h.friends.Respond(c.UserContext(), claimsFrom(c).UserID, c.Params("id"), accept)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"request": req, "accepted": accept})
}

// Admin

// BanUser bans an account site-wide.
func (h *Handlers) BanUser(c *fiber.Ctx) error {
	return h.setBanned(c, true)
}

// UnbanUser lifts a site-wide ban.
func (h *Handlers) UnbanUser(c *fiber.Ctx) error {
	return h.setBanned(c, false)
}

func (h *Handlers) setBanned(c *fiber.Ctx, banned bool) error {
	caller := claimsFrom(c)
	if !caller.Admin {
		return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{
			Error:   "forbidden",
			Message: auth.ErrNotAdmin.Error(),
		})
	}

	profile, err := h.auth.SetBanned(c.UserContext(), caller.UserID, c.Params("username"), banned)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"user": profile})
}
