package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/chat-server/config"
	domain "github.com/example/chat-server/domain/chat"
	"github.com/example/chat-server/events"
	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/friends"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ChatModule provides rooms, membership and messaging services.
type ChatModule struct {
	cfg      config.StoreConfig
	logger   types.Logger
	db       *gorm.DB
	service  *ChatService
	users    UserDirectory
	friends  FriendChecker
	eventBus mono.EventBus
}

var (
	_ mono.Module                = (*ChatModule)(nil)
	_ mono.ServiceProviderModule = (*ChatModule)(nil)
	_ mono.DependentModule       = (*ChatModule)(nil)
	_ mono.EventEmitterModule    = (*ChatModule)(nil)
	_ mono.HealthCheckableModule = (*ChatModule)(nil)
)

// NewModule creates a new ChatModule.
func NewModule(cfg config.StoreConfig, logger types.Logger) *ChatModule {
	return &ChatModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Dependencies returns the modules this module depends on.
func (m *ChatModule) Dependencies() []string {
	return []string{"auth", "friends"}
}

// SetDependencyServiceContainer receives the service containers of auth and friends.
func (m *ChatModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.users = auth.NewAuthAdapter(container)
	case "friends":
		m.friends = friends.NewFriendsAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *ChatModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *ChatModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
		events.MemberJoinedV1.ToBase(),
		events.MemberLeftV1.ToBase(),
		events.MemberKickedV1.ToBase(),
		events.MemberBannedV1.ToBase(),
		events.MessageSentV1.ToBase(),
		events.MessageEditedV1.ToBase(),
		events.MessageDeletedV1.ToBase(),
		events.DirectMessageSentV1.ToBase(),
	}
}

// Start opens the chat database and makes sure the default room exists.
func (m *ChatModule) Start(ctx context.Context) error {
	if m.users == nil || m.friends == nil {
		return fmt.Errorf("auth and friends dependencies not set")
	}

	logLevel := gormlogger.Silent
	if m.cfg.DBDebug {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.Room{}, &domain.RoomMember{}, &domain.RoomBan{}, &domain.Message{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	service, err := NewChatService(NewChatRepository(db), m.users, m.friends)
	if err != nil {
		return err
	}
	m.service = service

	room, created, err := m.service.EnsureDefaultRoom(ctx)
	if err != nil {
		return fmt.Errorf("failed to create default room: %w", err)
	}
	if created {
		m.logger.Info("Created default room", "room_id", room.ID, "name", room.Name)
	}

	m.logger.Info("Chat module started", "database", m.cfg.DBPath)
	return nil
}

// Stop closes the database.
func (m *ChatModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Chat module stopped")
	return nil
}

// Health pings the chat database.
func (m *ChatModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"database": m.cfg.DBPath},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *ChatModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-room", json.Unmarshal, json.Marshal, m.handleCreateRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-rooms", json.Unmarshal, json.Marshal, m.handleListRooms,
	); err != nil {
		return fmt.Errorf("failed to register list-rooms service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room", json.Unmarshal, json.Marshal, m.handleGetRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "join-room", json.Unmarshal, json.Marshal, m.handleJoinRoom,
	); err != nil {
		return fmt.Errorf("failed to register join-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "join-invite", json.Unmarshal, json.Marshal, m.handleJoinInvite,
	); err != nil {
		return fmt.Errorf("failed to register join-invite service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "leave-room", json.Unmarshal, json.Marshal, m.handleLeaveRoom,
	); err != nil {
		return fmt.Errorf("failed to register leave-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "kick-member", json.Unmarshal, json.Marshal, m.handleKickMember,
	); err != nil {
		return fmt.Errorf("failed to register kick-member service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "ban-member", json.Unmarshal, json.Marshal, m.handleBanMember,
	); err != nil {
		return fmt.Errorf("failed to register ban-member service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "unban-member", json.Unmarshal, json.Marshal, m.handleUnbanMember,
	); err != nil {
		return fmt.Errorf("failed to register unban-member service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-room", json.Unmarshal, json.Marshal, m.handleDeleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register delete-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-members", json.Unmarshal, json.Marshal, m.handleListMembers,
	); err != nil {
		return fmt.Errorf("failed to register list-members service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-memberships", json.Unmarshal, json.Marshal, m.handleListMemberships,
	); err != nil {
		return fmt.Errorf("failed to register list-memberships service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "send-message", json.Unmarshal, json.Marshal, m.handleSendMessage,
	); err != nil {
		return fmt.Errorf("failed to register send-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "edit-message", json.Unmarshal, json.Marshal, m.handleEditMessage,
	); err != nil {
		return fmt.Errorf("failed to register edit-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-message", json.Unmarshal, json.Marshal, m.handleDeleteMessage,
	); err != nil {
		return fmt.Errorf("failed to register delete-message service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "room-history", json.Unmarshal, json.Marshal, m.handleRoomHistory,
	); err != nil {
		return fmt.Errorf("failed to register room-history service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "send-dm", json.Unmarshal, json.Marshal, m.handleSendDM,
	); err != nil {
		return fmt.Errorf("failed to register send-dm service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "dm-history", json.Unmarshal, json.Marshal, m.handleDMHistory,
	); err != nil {
		return fmt.Errorf("failed to register dm-history service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-dm-threads", json.Unmarshal, json.Marshal, m.handleListDMThreads,
	); err != nil {
		return fmt.Errorf("failed to register list-dm-threads service: %w", err)
	}

	m.logger.Info("Registered chat services", "count", 19)
	return nil
}

func (m *ChatModule) handleCreateRoom(ctx context.Context, req CreateRoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.CreateRoom(ctx, req.User, CreateRoomInput{
		Name:       req.Name,
		Password:   req.Password,
		InviteOnly: req.InviteOnly,
	})
	if err != nil {
		return RoomResponse{}, err
	}

	m.logger.Info("Room created", "room_id", room.ID, "name", room.Name, "owner", req.User.Username)
	if m.eventBus != nil {
		event := events.RoomCreatedEvent{
			RoomID:     room.ID,
			RoomName:   room.Name,
			OwnerID:    room.OwnerID,
			OwnerName:  room.OwnerName,
			Private:    room.HasPassword(),
			InviteOnly: room.InviteOnly,
			Timestamp:  time.Now(),
		}
		if err := events.RoomCreatedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish RoomCreated event", "room_id", room.ID, "error", err)
		}
	}
	return RoomResponse{Room: room.Summarize(1)}, nil
}

func (m *ChatModule) handleListRooms(ctx context.Context, _ ListRoomsRequest, _ *mono.Msg) (ListRoomsResponse, error) {
	rooms, err := m.service.ListRooms(ctx)
	if err != nil {
		return ListRoomsResponse{}, err
	}
	return ListRoomsResponse{Rooms: rooms}, nil
}

func (m *ChatModule) handleGetRoom(ctx context.Context, req RoomRequest, _ *mono.Msg) (RoomDetailsResponse, error) {
	details, err := m.service.GetRoom(ctx, req.User, req.RoomID)
	if err != nil {
		return RoomDetailsResponse{}, err
	}
	return RoomDetailsResponse{Room: *details}, nil
}

func (m *ChatModule) handleJoinRoom(ctx context.Context, req JoinRoomRequest, _ *mono.Msg) (JoinResponse, error) {
	room, joined, err := m.service.JoinRoom(ctx, req.User, req.RoomID, req.Password)
	if err != nil {
		return JoinResponse{}, err
	}
	if joined {
		m.publishMember(memberJoined, room, req.User.UserID, req.User.Username, "")
	}
	return JoinResponse{Room: room.Summarize(0), Joined: joined}, nil
}

func (m *ChatModule) handleJoinInvite(ctx context.Context, req JoinInviteRequest, _ *mono.Msg) (JoinResponse, error) {
	room, joined, err := m.service.JoinByInvite(ctx, req.User, req.Code)
	if err != nil {
		return JoinResponse{}, err
	}
	if joined {
		m.publishMember(memberJoined, room, req.User.UserID, req.User.Username, "")
	}
	return JoinResponse{Room: room.Summarize(0), Joined: joined}, nil
}

func (m *ChatModule) handleLeaveRoom(ctx context.Context, req RoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.LeaveRoom(ctx, req.User, req.RoomID)
	if err != nil {
		return RoomResponse{}, err
	}
	m.publishMember(memberLeft, room, req.User.UserID, req.User.Username, "")
	return RoomResponse{Room: room.Summarize(0)}, nil
}

func (m *ChatModule) handleKickMember(ctx context.Context, req ModerateRequest, _ *mono.Msg) (ModerateResponse, error) {
	room, target, err := m.service.KickMember(ctx, req.User, req.RoomID, req.Username)
	if err != nil {
		return ModerateResponse{}, err
	}
	m.logger.Info("Member kicked", "room_id", room.ID, "user", target.Username, "by", req.User.Username)
	m.publishMember(memberKicked, room, target.ID, target.Username, req.User.UserID)
	return ModerateResponse{RoomID: room.ID, Target: *target}, nil
}

func (m *ChatModule) handleBanMember(ctx context.Context, req ModerateRequest, _ *mono.Msg) (ModerateResponse, error) {
	room, target, err := m.service.BanMember(ctx, req.User, req.RoomID, req.Username)
	if err != nil {
		return ModerateResponse{}, err
	}
	m.logger.Info("Member banned", "room_id", room.ID, "user", target.Username, "by", req.User.Username)
	m.publishMember(memberBanned, room, target.ID, target.Username, req.User.UserID)
	return ModerateResponse{RoomID: room.ID, Target: *target}, nil
}

func (m *ChatModule) handleUnbanMember(ctx context.Context, req ModerateRequest, _ *mono.Msg) (ModerateResponse, error) {
	room, target, err := m.service.UnbanMember(ctx, req.User, req.RoomID, req.Username)
	if err != nil {
		return ModerateResponse{}, err
	}
	m.logger.Info("Member unbanned", "room_id", room.ID, "user", target.Username, "by", req.User.Username)
	return ModerateResponse{RoomID: room.ID, Target: *target}, nil
}

func (m *ChatModule) handleDeleteRoom(ctx context.Context, req RoomRequest, _ *mono.Msg) (RoomResponse, error) {
	room, err := m.service.DeleteRoom(ctx, req.User, req.RoomID)
	if err != nil {
		return RoomResponse{}, err
	}

	m.logger.Info("Room deleted", "room_id", room.ID, "name", room.Name, "by", req.User.Username)
	if m.eventBus != nil {
		event := events.RoomDeletedEvent{
			RoomID:    room.ID,
			RoomName:  room.Name,
			DeletedBy: req.User.UserID,
			Timestamp: time.Now(),
		}
		if err := events.RoomDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish RoomDeleted event", "room_id", room.ID, "error", err)
		}
	}
	return RoomResponse{Room: room.Summarize(0)}, nil
}

func (m *ChatModule) handleListMembers(ctx context.Context, req RoomRequest, _ *mono.Msg) (ListMembersResponse, error) {
	members, err := m.service.ListMembers(ctx, req.User, req.RoomID)
	if err != nil {
		return ListMembersResponse{}, err
	}
	return ListMembersResponse{Members: members}, nil
}

func (m *ChatModule) handleListMemberships(ctx context.Context, req MembershipsRequest, _ *mono.Msg) (MembershipsResponse, error) {
	ids, err := m.service.ListMemberships(ctx, req.UserID)
	if err != nil {
		return MembershipsResponse{}, err
	}
	return MembershipsResponse{RoomIDs: ids}, nil
}

func (m *ChatModule) handleSendMessage(ctx context.Context, req SendMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, room, err := m.service.SendMessage(ctx, req.User, req.RoomID, req.Content)
	if err != nil {
		return MessageResponse{}, err
	}
	if m.eventBus != nil {
		event := messageEvent(msg)
		event.RoomName = room.Name
		if err := events.MessageSentV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish MessageSent event", "message_id", msg.ID, "error", err)
		}
	}
	return MessageResponse{Message: *msg}, nil
}

func (m *ChatModule) handleEditMessage(ctx context.Context, req EditMessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.EditMessage(ctx, req.User, req.MessageID, req.Content)
	if err != nil {
		return MessageResponse{}, err
	}
	if m.eventBus != nil {
		if err := events.MessageEditedV1.Publish(m.eventBus, messageEvent(msg), nil); err != nil {
			m.logger.Warn("Failed to publish MessageEdited event", "message_id", msg.ID, "error", err)
		}
	}
	return MessageResponse{Message: *msg}, nil
}

func (m *ChatModule) handleDeleteMessage(ctx context.Context, req MessageRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.DeleteMessage(ctx, req.User, req.MessageID)
	if err != nil {
		return MessageResponse{}, err
	}
	if m.eventBus != nil {
		event := events.MessageDeletedEvent{
			MessageID:   msg.ID,
			RoomID:      msg.RoomID,
			ThreadKey:   msg.ThreadKey,
			SenderID:    msg.SenderID,
			RecipientID: msg.RecipientID,
			DeletedBy:   req.User.UserID,
			Timestamp:   time.Now(),
		}
		if err := events.MessageDeletedV1.Publish(m.eventBus, event, nil); err != nil {
			m.logger.Warn("Failed to publish MessageDeleted event", "message_id", msg.ID, "error", err)
		}
	}
	return MessageResponse{Message: *msg}, nil
}

func (m *ChatModule) handleRoomHistory(ctx context.Context, req HistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	msgs, err := m.service.RoomHistory(ctx, req.User, req.RoomID, req.Before, req.Limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{Messages: msgs}, nil
}

func (m *ChatModule) handleSendDM(ctx context.Context, req SendDMRequest, _ *mono.Msg) (MessageResponse, error) {
	msg, err := m.service.SendDM(ctx, req.User, req.ToUsername, req.Content)
	if err != nil {
		return MessageResponse{}, err
	}
	if m.eventBus != nil {
		if err := events.DirectMessageSentV1.Publish(m.eventBus, messageEvent(msg), nil); err != nil {
			m.logger.Warn("Failed to publish DirectMessageSent event", "message_id", msg.ID, "error", err)
		}
	}
	return MessageResponse{Message: *msg}, nil
}

func (m *ChatModule) handleDMHistory(ctx context.Context, req DMHistoryRequest, _ *mono.Msg) (HistoryResponse, error) {
	msgs, err := m.service.DMHistory(ctx, req.User, req.PeerUsername, req.Before, req.Limit)
	if err != nil {
		return HistoryResponse{}, err
	}
	return HistoryResponse{Messages: msgs}, nil
}

func (m *ChatModule) handleListDMThreads(ctx context.Context, req ListDMThreadsRequest, _ *mono.Msg) (ListDMThreadsResponse, error) {
	threads, err := m.service.ListDMThreads(ctx, req.User)
	if err != nil {
		return ListDMThreadsResponse{}, err
	}
	return ListDMThreadsResponse{Threads: threads}, nil
}

const (
	memberJoined = "MemberJoined"
	memberLeft   = "MemberLeft"
	memberKicked = "MemberKicked"
	memberBanned = "MemberBanned"
)

func (m *ChatModule) publishMember(kind string, room *domain.Room, userID, username, actorID string) {
	if m.eventBus == nil {
		return
	}
	event := events.MemberEvent{
		RoomID:    room.ID,
		RoomName:  room.Name,
		UserID:    userID,
		Username:  username,
		ActorID:   actorID,
		Timestamp: time.Now(),
	}

	var err error
	switch kind {
	case memberJoined:
		err = events.MemberJoinedV1.Publish(m.eventBus, event, nil)
	case memberLeft:
		err = events.MemberLeftV1.Publish(m.eventBus, event, nil)
	case memberKicked:
		err = events.MemberKickedV1.Publish(m.eventBus, event, nil)
	case memberBanned:
		err = events.MemberBannedV1.Publish(m.eventBus, event, nil)
	}
	if err != nil {
		m.logger.Warn("Failed to publish member event", "event", kind, "room_id", room.ID, "user_id", userID, "error", err)
	}
}

func messageEvent(msg *domain.Message) events.MessageEvent {
	return events.MessageEvent{
		MessageID:   msg.ID,
		RoomID:      msg.RoomID,
		ThreadKey:   msg.ThreadKey,
		SenderID:    msg.SenderID,
		SenderName:  msg.SenderName,
		RecipientID: msg.RecipientID,
		Content:     msg.Content,
		Edited:      msg.Edited,
		EditedAt:    msg.EditedAt,
		Timestamp:   msg.CreatedAt,
	}
}
