package friends

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/chat-server/config"
	domain "github.com/example/chat-server/domain/friend"
	"github.com/example/chat-server/events"
	"github.com/example/chat-server/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// FriendsModule provides friend request and friendship services.
type FriendsModule struct {
	cfg      config.StoreConfig
	logger   types.Logger
	db       *gorm.DB
	service  *FriendService
	users    UserDirectory
	eventBus mono.EventBus
}

var (
	_ mono.Module                = (*FriendsModule)(nil)
	_ mono.ServiceProviderModule = (*FriendsModule)(nil)
	_ mono.DependentModule       = (*FriendsModule)(nil)
	_ mono.EventEmitterModule    = (*FriendsModule)(nil)
)

// NewModule creates a new FriendsModule.
func NewModule(cfg config.StoreConfig, logger types.Logger) *FriendsModule {
	return &FriendsModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *FriendsModule) Name() string {
	return "friends"
}

// Dependencies returns the modules this module depends on.
func (m *FriendsModule) Dependencies() []string {
	return []string{"auth"}
}

// SetDependencyServiceContainer receives the auth service container.
func (m *FriendsModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.users = auth.NewAuthAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *FriendsModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *FriendsModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.FriendRequestSentV1.ToBase(),
		events.FriendRequestAcceptedV1.ToBase(),
		events.FriendRemovedV1.ToBase(),
	}
}

// Start opens the friends database.
func (m *FriendsModule) Start(_ context.Context) error {
	if m.users == nil {
		return fmt.Errorf("auth dependency not set")
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

	if err := db.AutoMigrate(&domain.FriendRequest{}, &domain.Friendship{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	m.service = NewFriendService(NewFriendRepository(db), m.users)
	m.logger.Info("Friends module started", "database", m.cfg.DBPath)
	return nil
}

// Stop closes the database.
func (m *FriendsModule) Stop(_ context.Context) error {
	if m.db != nil {
		if sqlDB, err := m.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	m.logger.Info("Friends module stopped")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *FriendsModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "send-request", json.Unmarshal, json.Marshal, m.handleSendRequest,
	); err != nil {
		return fmt.Errorf("failed to register send-request service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-requests", json.Unmarshal, json.Marshal, m.handleListRequests,
	); err != nil {
		return fmt.Errorf("failed to register list-requests service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "respond", json.Unmarshal, json.Marshal, m.handleRespond,
	); err != nil {
		return fmt.Errorf("failed to register respond service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-friends", json.Unmarshal, json.Marshal, m.handleListFriends,
	); err != nil {
		return fmt.Errorf("failed to register list-friends service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "remove-friend", json.Unmarshal, json.Marshal, m.handleRemoveFriend,
	); err != nil {
		return fmt.Errorf("failed to register remove-friend service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "are-friends", json.Unmarshal, json.Marshal, m.handleAreFriends,
	); err != nil {
		return fmt.Errorf("failed to register are-friends service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "count-friends", json.Unmarshal, json.Marshal, m.handleCountFriends,
	); err != nil {
		return fmt.Errorf("failed to register count-friends service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "send-request, list-requests, respond, list-friends, remove-friend, are-friends, count-friends")
	return nil
}

func (m *FriendsModule) handleSendRequest(ctx context.Context, req SendRequestRequest, _ *mono.Msg) (SendRequestResponse, error) {
	fr, accepted, err := m.service.SendRequest(ctx, req.FromID, req.FromName, req.ToUsername)
	if err != nil {
		return SendRequestResponse{}, err
	}

	if accepted {
		m.publish(friendRequestAccepted, fr)
	} else {
		m.publish(friendRequestSent, fr)
	}
	return SendRequestResponse{Request: *fr, Accepted: accepted}, nil
}

func (m *FriendsModule) handleListRequests(ctx context.Context, req UserRequest, _ *mono.Msg) (domain.RequestList, error) {
	list, err := m.service.ListRequests(ctx, req.UserID)
	if err != nil {
		return domain.RequestList{}, err
	}
	return *list, nil
}

func (m *FriendsModule) handleRespond(ctx context.Context, req RespondRequest, _ *mono.Msg) (RespondResponse, error) {
	fr, err := m.service.Respond(ctx, req.UserID, req.RequestID, req.Accept)
	if err != nil {
		return RespondResponse{}, err
	}
	if req.Accept {
		m.publish(friendRequestAccepted, fr)
	}
	return RespondResponse{Request: *fr, Accepted: req.Accept}, nil
}

func (m *FriendsModule) handleListFriends(ctx context.Context, req UserRequest, _ *mono.Msg) (ListFriendsResponse, error) {
	friends, err := m.service.ListFriends(ctx, req.UserID)
	if err != nil {
		return ListFriendsResponse{}, err
	}
	return ListFriendsResponse{Friends: friends}, nil
}

func (m *FriendsModule) handleRemoveFriend(ctx context.Context, req RemoveFriendRequest, _ *mono.Msg) (RemoveFriendResponse, error) {
	friend, err := m.service.RemoveFriend(ctx, req.UserID, req.FriendUsername)
	if err != nil {
		return RemoveFriendResponse{}, err
	}
	m.publish(friendRemoved, &domain.FriendRequest{
		FromID:   req.UserID,
		FromName: req.Username,
		ToID:     friend.ID,
		ToName:   friend.Username,
	})
	return RemoveFriendResponse{Friend: *friend}, nil
}

func (m *FriendsModule) handleAreFriends(ctx context.Context, req AreFriendsRequest, _ *mono.Msg) (AreFriendsResponse, error) {
	ok, err := m.service.AreFriends(ctx, req.UserID, req.OtherID)
	if err != nil {
		return AreFriendsResponse{}, err
	}
	return AreFriendsResponse{Friends: ok}, nil
}

func (m *FriendsModule) handleCountFriends(ctx context.Context, req UserRequest, _ *mono.Msg) (CountFriendsResponse, error) {
	n, err := m.service.CountFriends(ctx, req.UserID)
	if err != nil {
		return CountFriendsResponse{}, err
	}
	return CountFriendsResponse{Count: n}, nil
}

const (
	friendRequestSent     = "FriendRequestSent"
	friendRequestAccepted = "FriendRequestAccepted"
	friendRemoved         = "FriendRemoved"
)

func (m *FriendsModule) publish(kind string, fr *domain.FriendRequest) {
	if m.eventBus == nil {
		return
	}
	event := events.FriendEvent{
		RequestID: fr.ID,
		FromID:    fr.FromID,
		FromName:  fr.FromName,
		ToID:      fr.ToID,
		ToName:    fr.ToName,
		Timestamp: time.Now(),
	}

	var err error
	switch kind {
	case friendRequestSent:
		err = events.FriendRequestSentV1.Publish(m.eventBus, event, nil)
	case friendRequestAccepted:
		err = events.FriendRequestAcceptedV1.Publish(m.eventBus, event, nil)
	case friendRemoved:
		err = events.FriendRemovedV1.Publish(m.eventBus, event, nil)
	}
	if err != nil {
		m.logger.Warn("Failed to publish friend event", "event", kind, "from", fr.FromID, "to", fr.ToID, "error", err)
	}
}
