package api

import (
	"context"

	chatdomain "github.com/example/chat-server/domain/chat"
	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/modules/chat"
)

// CredentialsRequest is the body of signup and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest is the body of refresh and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest is the body of PATCH /me.
type UpdateProfileRequest struct {
	Bio string `json:"bio"`
}

// UsernameRequest names a target user.
type UsernameRequest struct {
	Username string `json:"username"`
}

// CreateRoomRequest is the body of POST /rooms.
type CreateRoomRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	InviteOnly bool   `json:"invite_only"`
}

// JoinRoomRequest is the body of POST /rooms/:id/join.
type JoinRoomRequest struct {
	Password string `json:"password"`
}

// MessageRequest carries message content.
type MessageRequest struct {
	Content string `json:"content"`
}

// MeResponse is the caller's own profile.
type MeResponse struct {
	User        domain.Profile `json:"user"`
	FriendCount int64          `json:"friend_count"`
}

// HistoryResponse is a page of messages, oldest first. NextBefore is the
// cursor for the previous page and is empty on the last page.
type HistoryResponse struct {
	Messages   []chatdomain.Message `json:"messages"`
	NextBefore string               `json:"next_before,omitempty"`
}

// newHistoryResponse wraps a history page. A full page means older messages
// may exist, so its oldest message becomes the next cursor.
func newHistoryResponse(messages []chatdomain.Message, limit int) HistoryResponse {
	if messages == nil {
		messages = []chatdomain.Message{}
	}
	switch {
	case limit <= 0:
		limit = chat.DefaultHistoryLimit
	case limit > chat.MaxHistoryLimit:
		limit = chat.MaxHistoryLimit
	}

	resp := HistoryResponse{Messages: messages}
	if len(messages) > 0 && len(messages) >= limit {
		resp.NextBefore = messages[0].ID
	}
	return resp
}

// moderation is a room moderation call on the chat port.
type moderation func(ctx context.Context, actor domain.Claims, roomID, username string) (*domain.Profile, error)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
