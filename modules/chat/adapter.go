package chat

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/chat-server/domain/chat"
	"github.com/example/chat-server/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ChatPort is how other modules reach the chat module.
type ChatPort interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.RoomSummary, error)
	ListRooms(ctx context.Context, actor user.Claims) ([]domain.RoomSummary, error)
	GetRoom(ctx context.Context, actor user.Claims, roomID string) (*domain.RoomDetails, error)
	JoinRoom(ctx context.Context, actor user.Claims, roomID, password string) (*JoinResponse, error)
	JoinByInvite(ctx context.Context, actor user.Claims, code string) (*JoinResponse, error)
	LeaveRoom(ctx context.Context, actor user.Claims, roomID string) error
	KickMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error)
	BanMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error)
	UnbanMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error)
	DeleteRoom(ctx context.Context, actor user.Claims, roomID string) error
	ListMembers(ctx context.Context, actor user.Claims, roomID string) ([]domain.RoomMember, error)
	ListMemberships(ctx context.Context, userID string) ([]string, error)
	SendMessage(ctx context.Context, actor user.Claims, roomID, content string) (*domain.Message, error)
	EditMessage(ctx context.Context, actor user.Claims, messageID, content string) (*domain.Message, error)
	DeleteMessage(ctx context.Context, actor user.Claims, messageID string) (*domain.Message, error)
	RoomHistory(ctx context.Context, actor user.Claims, roomID, before string, limit int) ([]domain.Message, error)
	SendDM(ctx context.Context, actor user.Claims, toUsername, content string) (*domain.Message, error)
	DMHistory(ctx context.Context, actor user.Claims, peerUsername, before string, limit int) ([]domain.Message, error)
	ListDMThreads(ctx context.Context, actor user.Claims) ([]domain.DMThread, error)
}

// ChatAdapter implements ChatPort using the service container.
type ChatAdapter struct {
	container mono.ServiceContainer
}

var _ ChatPort = (*ChatAdapter)(nil)

// NewChatAdapter creates a new ChatAdapter.
func NewChatAdapter(container mono.ServiceContainer) *ChatAdapter {
	return &ChatAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// CreateRoom creates a room.
func (a *ChatAdapter) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.RoomSummary, error) {
	var resp RoomResponse
	if err := callService(ctx, a.container, "create-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Room, nil
}

// ListRooms lists public rooms.
func (a *ChatAdapter) ListRooms(ctx context.Context, actor user.Claims) ([]domain.RoomSummary, error) {
	req := ListRoomsRequest{User: actor}
	var resp ListRoomsResponse
	if err := callService(ctx, a.container, "list-rooms", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

// GetRoom returns a room's details.
func (a *ChatAdapter) GetRoom(ctx context.Context, actor user.Claims, roomID string) (*domain.RoomDetails, error) {
	req := RoomRequest{User: actor, RoomID: roomID}
	var resp RoomDetailsResponse
	if err := callService(ctx, a.container, "get-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Room, nil
}

// JoinRoom joins a room.
func (a *ChatAdapter) JoinRoom(ctx context.Context, actor user.Claims, roomID, password string) (*JoinResponse, error) {
	req := JoinRoomRequest{User: actor, RoomID: roomID, Password: password}
	var resp JoinResponse
	if err := callService(ctx, a.container, "join-room", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// JoinByInvite joins a room by invite code.
func (a *ChatAdapter) JoinByInvite(ctx context.Context, actor user.Claims, code string) (*JoinResponse, error) {
	req := JoinInviteRequest{User: actor, Code: code}
	var resp JoinResponse
	if err := callService(ctx, a.container, "join-invite", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LeaveRoom leaves a room.
func (a *ChatAdapter) LeaveRoom(ctx context.Context, actor user.Claims, roomID string) error {
	req := RoomRequest{User: actor, RoomID: roomID}
	var resp RoomResponse
	return callService(ctx, a.container, "leave-room", &req, &resp)
}

// KickMember kicks a member.
func (a *ChatAdapter) KickMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error) {
	return a.moderate(ctx, "kick-member", actor, roomID, username)
}

// BanMember bans a user from a room.
func (a *ChatAdapter) BanMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error) {
	return a.moderate(ctx, "ban-member", actor, roomID, username)
}

// UnbanMember lifts a room ban.
func (a *ChatAdapter) UnbanMember(ctx context.Context, actor user.Claims, roomID, username string) (*user.Profile, error) {
	return a.moderate(ctx, "unban-member", actor, roomID, username)
}

func (a *ChatAdapter) moderate(ctx context.Context, service string, actor user.Claims, roomID, username string) (*user.Profile, error) {
	req := ModerateRequest{User: actor, RoomID: roomID, Username: username}
	var resp ModerateResponse
	if err := callService(ctx, a.container, service, &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Target, nil
}

// DeleteRoom deletes a room.
func (a *ChatAdapter) DeleteRoom(ctx context.Context, actor user.Claims, roomID string) error {
	req := RoomRequest{User: actor, RoomID: roomID}
	var resp RoomResponse
	return callService(ctx, a.container, "delete-room", &req, &resp)
}

// ListMembers lists a room's members.
func (a *ChatAdapter) ListMembers(ctx context.Context, actor user.Claims, roomID string) ([]domain.RoomMember, error) {
	req := RoomRequest{User: actor, RoomID: roomID}
	var resp ListMembersResponse
	if err := callService(ctx, a.container, "list-members", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Members, nil
}

// ListMemberships lists the rooms a user belongs to.
func (a *ChatAdapter) ListMemberships(ctx context.Context, userID string) ([]string, error) {
	req := MembershipsRequest{UserID: userID}
	var resp MembershipsResponse
	if err := callService(ctx, a.container, "list-memberships", &req, &resp); err != nil {
		return nil, err
	}
	return resp.RoomIDs, nil
}

// SendMessage posts to a room.
func (a *ChatAdapter) SendMessage(ctx context.Context, actor user.Claims, roomID, content string) (*domain.Message, error) {
	req := SendMessageRequest{User: actor, RoomID: roomID, Content: content}
	var resp MessageResponse
	if err := callService(ctx, a.container, "send-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// EditMessage edits a message.
func (a *ChatAdapter) EditMessage(ctx context.Context, actor user.Claims, messageID, content string) (*domain.Message, error) {
	req := EditMessageRequest{User: actor, MessageID: messageID, Content: content}
	var resp MessageResponse
	if err := callService(ctx, a.container, "edit-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// DeleteMessage deletes a message.
func (a *ChatAdapter) DeleteMessage(ctx context.Context, actor user.Claims, messageID string) (*domain.Message, error) {
	req := MessageRequest{User: actor, MessageID: messageID}
	var resp MessageResponse
	if err := callService(ctx, a.container, "delete-message", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// RoomHistory pages through a room's messages.
func (a *ChatAdapter) RoomHistory(ctx context.Context, actor user.Claims, roomID, before string, limit int) ([]domain.Message, error) {
	req := HistoryRequest{User: actor, RoomID: roomID, Before: before, Limit: limit}
	var resp HistoryResponse
	if err := callService(ctx, a.container, "room-history", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// SendDM sends a direct message.
func (a *ChatAdapter) SendDM(ctx context.Context, actor user.Claims, toUsername, content string) (*domain.Message, error) {
	req := SendDMRequest{User: actor, ToUsername: toUsername, Content: content}
	var resp MessageResponse
	if err := callService(ctx, a.container, "send-dm", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Message, nil
}

// DMHistory pages through a DM thread.
func (a *ChatAdapter) DMHistory(ctx context.Context, actor user.Claims, peerUsername, before string, limit int) ([]domain.Message, error) {
	req := DMHistoryRequest{User: actor, PeerUsername: peerUsername, Before: before, Limit: limit}
	var resp HistoryResponse
	if err := callService(ctx, a.container, "dm-history", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// ListDMThreads lists conversations.
func (a *ChatAdapter) ListDMThreads(ctx context.Context, actor user.Claims) ([]domain.DMThread, error) {
	req := ListDMThreadsRequest{User: actor}
	var resp ListDMThreadsResponse
	if err := callService(ctx, a.container, "list-dm-threads", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Threads, nil
}
