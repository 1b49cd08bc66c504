package api

import (
	"strings"

	"github.com/example/chat-server/modules/chat"
	"github.com/gofiber/fiber/v2"
)

// Rooms

// ListRooms returns the public room list.
func (h *Handlers) ListRooms(c *fiber.Ctx) error {
	rooms, err := h.chat.ListRooms(c.UserContext(), claimsFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// CreateRoom creates a room owned by the caller.
func (h *Handlers) CreateRoom(c *fiber.Ctx) error {
	var req CreateRoomRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	room, err := h.chat.CreateRoom(c.UserContext(), chat.CreateRoomRequest{
		User:       claimsFrom(c),
		Name:       req.Name,
		Password:   req.Password,
		InviteOnly: req.InviteOnly,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"room": room})
}

// GetRoom returns one room as seen by the caller.
func (h *Handlers) GetRoom(c *fiber.Ctx) error {
	room, err := h.chat.GetRoom(c.UserContext(), claimsFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"room": room})
}

// DeleteRoom removes a room with its members and history.
func (h *Handlers) DeleteRoom(c *fiber.Ctx) error {
	if err := h.chat.DeleteRoom(c.UserContext(), claimsFrom(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// JoinRoom joins a room, checking its password when it has one.
func (h *Handlers) JoinRoom(c *fiber.Ctx) error {
	var req JoinRoomRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	resp, err := h.chat.JoinRoom(c.UserContext(), claimsFrom(c), c.Params("id"), req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// JoinByInvite joins the room an invite code belongs to.
func (h *Handlers) JoinByInvite(c *fiber.Ctx) error {
	resp, err := h.chat.JoinByInvite(c.UserContext(), claimsFrom(c), c.Params("code"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(resp)
}

// LeaveRoom leaves a room.
func (h *Handlers) LeaveRoom(c *fiber.Ctx) error {
	if err := h.chat.LeaveRoom(c.UserContext(), claimsFrom(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// KickMember removes a member from a room.
func (h *Handlers) KickMember(c *fiber.Ctx) error {
	return h.moderate(c, h.chat.KickMember)
}

// BanMember removes a member and blocks them from rejoining.
func (h *Handlers) BanMember(c *fiber.Ctx) error {
	return h.moderate(c, h.chat.BanMember)
}

// UnbanMember lifts a room ban.
func (h *Handlers) UnbanMember(c *fiber.Ctx) error {
	return h.moderate(c, h.chat.UnbanMember)
}

func (h *Handlers) moderate(c *fiber.Ctx, action moderation) error {
	var req UsernameRequest
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Username) == "" {
		return badRequest(c, "username is required")
	}

	roomID := c.Params("id")
	target, err := action(c.UserContext(), claimsFrom(c), roomID, req.Username)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"room_id": roomID, "user": target})
}

// ListMembers lists a room's members.
func (h *Handlers) ListMembers(c *fiber.Ctx) error {
	members, err := h.chat.ListMembers(c.UserContext(), claimsFrom(c), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"members": members})
}

// Messages

// RoomHistory returns a page of room messages before the ?before cursor.
func (h *Handlers) RoomHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", chat.DefaultHistoryLimit)
	messages, err := h.chat.RoomHistory(c.UserContext(), claimsFrom(c), c.Params("id"), c.Query("before"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(newHistoryResponse(messages, limit))
}

// PostMessage sends a message to a room.
func (h *Handlers) PostMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.chat.SendMessage(c.UserContext(), claimsFrom(c), c.Params("id"), req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}

// EditMessage replaces the content of the caller's message.
func (h *Handlers) EditMessage(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.chat.EditMessage(c.UserContext(), claimsFrom(c), c.Params("id"), req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": msg})
}

// DeleteMessage removes a message.
func (h *Handlers) DeleteMessage(c *fiber.Ctx) error {
	if _, err := h.chat.DeleteMessage(c.UserContext(), claimsFrom(c), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Direct messages

// ListDMThreads lists the caller's conversations, most recent first.
func (h *Handlers) ListDMThreads(c *fiber.Ctx) error {
	threads, err := h.chat.ListDMThreads(c.UserContext(), claimsFrom(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"threads": threads})
}

// DMHistory returns a page of the conversation with :username.
func (h *Handlers) DMHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", chat.DefaultHistoryLimit)
	messages, err := h.chat.DMHistory(c.UserContext(), claimsFrom(c), c.Params("username"), c.Query("before"), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(newHistoryResponse(messages, limit))
}

// SendDM sends a direct message to :username.
func (h *Handlers) SendDM(c *fiber.Ctx) error {
	var req MessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	msg, err := h.chat.SendDM(c.UserContext(), claimsFrom(c), c.Params("username"), req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": msg})
}
