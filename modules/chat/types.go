package chat

import (
	domain "github.com/example/chat-server/domain/chat"
	"github.com/example/chat-server/domain/user"
)

// CreateRoomRequest creates a room.
type CreateRoomRequest struct {
	User       user.Claims `json:"user"`
	Name       string      `json:"name"`
	Password   string      `json:"password,omitempty"`
	InviteOnly bool        `json:"invite_only"`
}

// RoomRequest addresses a room on behalf of a user.
type RoomRequest struct {
	User   user.Claims `json:"user"`
	RoomID string      `json:"room_id"`
}

// JoinRoomRequest joins a room, with its password if it has one.
type JoinRoomRequest struct {
	User     user.Claims `json:"user"`
	RoomID   string      `json:"room_id"`
	Password string      `json:"password,omitempty"`
}

// JoinInviteRequest joins a room through its invite code.
type JoinInviteRequest struct {
	User user.Claims `json:"user"`
	Code string      `json:"code"`
}

// JoinResponse reports the room joined. Joined is false when the user was already a member.
type JoinResponse struct {
	Room   domain.RoomSummary `json:"room"`
	Joined bool               `json:"joined"`
}

// ModerateRequest targets a user in a room.
type ModerateRequest struct {
	User     user.Claims `json:"user"`
	RoomID   string      `json:"room_id"`
	Username string      `json:"username"`
}

// ModerateResponse reports the affected user.
type ModerateResponse struct {
	RoomID string       `json:"room_id"`
	Target user.Profile `json:"target"`
}

// RoomResponse wraps a single room summary.
type RoomResponse struct {
	Room domain.RoomSummary `json:"room"`
}

// RoomDetailsResponse wraps a room as seen by the caller.
type RoomDetailsResponse struct {
	Room domain.RoomDetails `json:"room"`
}

// ListRoomsRequest lists the public rooms.
type ListRoomsRequest struct {
	User user.Claims `json:"user"`
}

// ListRoomsResponse lists rooms.
type ListRoomsResponse struct {
	Rooms []domain.RoomSummary `json:"rooms"`
}

// ListMembersResponse lists a room's members.
type ListMembersResponse struct {
	Members []domain.RoomMember `json:"members"`
}

// MembershipsRequest asks for the rooms a user belongs to.
type MembershipsRequest struct {
	UserID string `json:"user_id"`
}

// MembershipsResponse lists room IDs.
type MembershipsResponse struct {
	RoomIDs []string `json:"room_ids"`
}

// SendMessageRequest posts to a room.
type SendMessageRequest struct {
	User    user.Claims `json:"user"`
	RoomID  string      `json:"room_id"`
	Content string      `json:"content"`
}

// EditMessageRequest edits a message.
type EditMessageRequest struct {
	User      user.Claims `json:"user"`
	MessageID string      `json:"message_id"`
	Content   string      `json:"content"`
}

// MessageRequest addresses a single message.
type MessageRequest struct {
	User      user.Claims `json:"user"`
	MessageID string      `json:"message_id"`
}

// MessageResponse wraps a single message.
type MessageResponse struct {
	Message domain.Message `json:"message"`
}

// HistoryRequest pages through a room's history.
type HistoryRequest struct {
	User   user.Claims `json:"user"`
	RoomID string      `json:"room_id"`
	Before string      `json:"before,omitempty"`
	Limit  int         `json:"limit,omitempty"`
}

// HistoryResponse is a page of messages, oldest first.
type HistoryResponse struct {
	Messages []domain.Message `json:"messages"`
}

// SendDMRequest sends a direct message.
type SendDMRequest struct {
	User       user.Claims `json:"user"`
	ToUsername string      `json:"to_username"`
	Content    string      `json:"content"`
}

// DMHistoryRequest pages through a DM thread.
type DMHistoryRequest struct {
	User         user.Claims `json:"user"`
	PeerUsername string      `json:"peer_username"`
	Before       string      `json:"before,omitempty"`
	Limit        int         `json:"limit,omitempty"`
}

// ListDMThreadsRequest lists the caller's conversations.
type ListDMThreadsRequest struct {
	User user.Claims `json:"user"`
}

// ListDMThreadsResponse lists conversations, most recent first.
type ListDMThreadsResponse struct {
	Threads []domain.DMThread `json:"threads"`
}
