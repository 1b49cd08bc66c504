package broadcast

import (
	"context"
	"fmt"
	"log"

	"github.com/example/chat-server/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Frame types pushed to websocket clients.
const (
	TypeMessage        = "message"
	TypeMessageEdited  = "message_edited"
	TypeMessageDeleted = "message_deleted"
	TypeDM             = "dm"
	TypeMemberJoined   = "member_joined"
	TypeMemberLeft     = "member_left"
	TypeMemberKicked   = "member_kicked"
	TypeMemberBanned   = "member_banned"
	TypeRoomCreated    = "room_created"
	TypeRoomDeleted    = "room_deleted"
	TypeFriendRequest  = "friend_request"
	TypeFriendAccepted = "friend_accepted"
	TypeFriendRemoved  = "friend_removed"
	TypeProfileUpdated = "profile_updated"
	TypeUserBanned     = "user_banned"
)

// BroadcastModule is an EventConsumerModule that pushes domain events to
// websocket clients.
type BroadcastModule struct {
	hub       *Hub
	cancelHub context.CancelFunc
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.EventConsumerModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule() *BroadcastModule {
	return &BroadcastModule{
		hub: NewHub(),
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the hub loop.
func (m *BroadcastModule) Start(_ context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelHub = cancel
	go m.hub.Run(ctx)
	log.Println("[broadcast] Module started - WebSocket hub running")
	return nil
}

// Stop closes every client and waits for the hub loop to exit.
func (m *BroadcastModule) Stop(_ context.Context) error {
	clientCount := m.hub.ClientCount()
	if m.cancelHub != nil {
		m.cancelHub()
		m.hub.Wait()
	}
	log.Printf("[broadcast] Module stopped - %d clients were connected", clientCount)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connected_clients": m.hub.ClientCount(),
			"online_users":      m.hub.UserCount(),
		},
	}
}

// GetHub returns the hub for the api module.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// RegisterEventConsumers registers event handlers.
func (m *BroadcastModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageSentV1, m.handleMessageSent, m); err != nil {
		return fmt.Errorf("failed to register MessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageEditedV1, m.handleMessageEdited, m); err != nil {
		return fmt.Errorf("failed to register MessageEdited consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MessageDeletedV1, m.handleMessageDeleted, m); err != nil {
		return fmt.Errorf("failed to register MessageDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.DirectMessageSentV1, m.handleDirectMessage, m); err != nil {
		return fmt.Errorf("failed to register DirectMessageSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomCreatedV1, m.handleRoomCreated, m); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.RoomDeletedV1, m.handleRoomDeleted, m); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberJoinedV1, m.handleMemberJoined, m); err != nil {
		return fmt.Errorf("failed to register MemberJoined consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberLeftV1, m.handleMemberLeft, m); err != nil {
		return fmt.Errorf("failed to register MemberLeft consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberKickedV1, m.handleMemberKicked, m); err != nil {
		return fmt.Errorf("failed to register MemberKicked consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.MemberBannedV1, m.handleMemberBanned, m); err != nil {
		return fmt.Errorf("failed to register MemberBanned consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FriendRequestSentV1, m.handleFriendRequestSent, m); err != nil {
		return fmt.Errorf("failed to register FriendRequestSent consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FriendRequestAcceptedV1, m.handleFriendRequestAccepted, m); err != nil {
		return fmt.Errorf("failed to register FriendRequestAccepted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.FriendRemovedV1, m.handleFriendRemoved, m); err != nil {
		return fmt.Errorf("failed to register FriendRemoved consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.ProfileUpdatedV1, m.handleProfileUpdated, m); err != nil {
		return fmt.Errorf("failed to register ProfileUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserBannedV1, m.handleUserBanned, m); err != nil {
		return fmt.Errorf("failed to register UserBanned consumer: %w", err)
	}

	log.Println("[broadcast] Registered event consumers for chat, friends and auth events")
	return nil
}

// Event handlers

func (m *BroadcastModule) handleMessageSent(_ context.Context, event events.MessageEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.RoomID, TypeMessage, event)
	return nil
}

func (m *BroadcastModule) handleMessageEdited(_ context.Context, event events.MessageEvent, _ *mono.Msg) error {
	if event.RoomID != "" {
		m.hub.BroadcastRoom(event.RoomID, TypeMessageEdited, event)
		return nil
	}
	m.hub.SendToUsers(TypeMessageEdited, event, event.SenderID, event.RecipientID)
	return nil
}

func (m *BroadcastModule) handleMessageDeleted(_ context.Context, event events.MessageDeletedEvent, _ *mono.Msg) error {
	if event.RoomID != "" {
		m.hub.BroadcastRoom(event.RoomID, TypeMessageDeleted, event)
		return nil
	}
	m.hub.SendToUsers(TypeMessageDeleted, event, event.SenderID, event.RecipientID)
	return nil
}

func (m *BroadcastModule) handleDirectMessage(_ context.Context, event events.MessageEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(TypeDM, event, event.SenderID, event.RecipientID)
	return nil
}

func (m *BroadcastModule) handleRoomCreated(_ context.Context, event events.RoomCreatedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Room created: %s", event.RoomName)
	m.hub.SubscribeUser(event.OwnerID, event.RoomID)
	if event.InviteOnly {
		m.hub.SendToUsers(TypeRoomCreated, event, event.OwnerID)
		return nil
	}
	m.hub.BroadcastAll(TypeRoomCreated, event)
	return nil
}

func (m *BroadcastModule) handleRoomDeleted(_ context.Context, event events.RoomDeletedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] Room deleted: %s", event.RoomName)
	m.hub.BroadcastRoom(event.RoomID, TypeRoomDeleted, event)
	m.hub.DropRoom(event.RoomID)
	return nil
}

func (m *BroadcastModule) handleMemberJoined(_ context.Context, event events.MemberEvent, _ *mono.Msg) error {
	m.hub.SubscribeUser(event.UserID, event.RoomID)
	m.hub.BroadcastRoom(event.RoomID, TypeMemberJoined, event)
	return nil
}

func (m *BroadcastModule) handleMemberLeft(_ context.Context, event events.MemberEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.RoomID, TypeMemberLeft, event, event.UserID)
	m.hub.UnsubscribeUser(event.UserID, event.RoomID)
	return nil
}

func (m *BroadcastModule) handleMemberKicked(_ context.Context, event events.MemberEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.RoomID, TypeMemberKicked, event, event.UserID)
	m.hub.UnsubscribeUser(event.UserID, event.RoomID)
	return nil
}

func (m *BroadcastModule) handleMemberBanned(_ context.Context, event events.MemberEvent, _ *mono.Msg) error {
	m.hub.BroadcastRoom(event.RoomID, TypeMemberBanned, event, event.UserID)
	m.hub.UnsubscribeUser(event.UserID, event.RoomID)
	return nil
}

func (m *BroadcastModule) handleFriendRequestSent(_ context.Context, event events.FriendEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(TypeFriendRequest, event, event.FromID, event.ToID)
	return nil
}

func (m *BroadcastModule) handleFriendRequestAccepted(_ context.Context, event events.FriendEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(TypeFriendAccepted, event, event.FromID, event.ToID)
	return nil
}

func (m *BroadcastModule) handleFriendRemoved(_ context.Context, event events.FriendEvent, _ *mono.Msg) error {
	m.hub.SendToUsers(TypeFriendRemoved, event, event.FromID, event.ToID)
	return nil
}

func (m *BroadcastModule) handleProfileUpdated(_ context.Context, event events.ProfileUpdatedEvent, _ *mono.Msg) error {
	m.hub.BroadcastAll(TypeProfileUpdated, event)
	return nil
}

func (m *BroadcastModule) handleUserBanned(_ context.Context, event events.UserBannedEvent, _ *mono.Msg) error {
	log.Printf("[broadcast] User %s banned=%t", event.Username, event.Banned)
	m.hub.BroadcastAll(TypeUserBanned, event)
	if event.Banned {
		m.hub.DisconnectUser(event.UserID)
	}
	return nil
}
