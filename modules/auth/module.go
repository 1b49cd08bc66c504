package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/example/chat-server/config"
	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// AuthModule provides account, token and profile services.
type AuthModule struct {
	cfg      config.AuthConfig
	db       *gorm.DB
	service  *AuthService
	janitor  *Janitor
	eventBus mono.EventBus
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.ServiceProviderModule = (*AuthModule)(nil)
var _ mono.EventEmitterModule = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule(cfg config.AuthConfig) *AuthModule {
	return &AuthModule{
		cfg: cfg,
	}
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// SetEventBus receives the EventBus from the framework.
func (m *AuthModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *AuthModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ProfileUpdatedV1.ToBase(),
		events.UserBannedV1.ToBase(),
	}
}

// Start opens the database and starts the revocation janitor.
func (m *AuthModule) Start(_ context.Context) error {
	logLevel := logger.Silent
	if m.cfg.DBDebug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.cfg.DBPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := db.AutoMigrate(&domain.User{}, &domain.RevokedToken{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	tokenConfig := DefaultTokenConfig()
	if m.cfg.SecretKey != "" {
		tokenConfig.Secret = m.cfg.SecretKey
	}
	if m.cfg.Issuer != "" {
		tokenConfig.Issuer = m.cfg.Issuer
	}

	m.service = NewAuthService(NewUserRepository(db), NewPasswordHasher(), NewTokenIssuer(tokenConfig), m.cfg.AdminUsers)

	m.janitor = NewJanitor(m.service, DefaultJanitorSchedule)
	if err := m.janitor.Start(); err != nil {
		return fmt.Errorf("failed to start janitor: %w", err)
	}

	log.Printf("[auth] Module started (database: %s, admins: %d)", m.cfg.DBPath, len(m.cfg.AdminUsers))
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(ctx context.Context) error {
	if m.janitor != nil {
		m.janitor.Stop(ctx)
	}
	if m.db != nil {
		sqlDB, err := m.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get database connection: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"database": m.cfg.DBPath,
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *AuthModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "signup", json.Unmarshal, json.Marshal, m.handleSignup,
	); err != nil {
		return fmt.Errorf("failed to register signup service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.handleLogin,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "refresh-token", json.Unmarshal, json.Marshal, m.handleRefresh,
	); err != nil {
		return fmt.Errorf("failed to register refresh-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "logout", json.Unmarshal, json.Marshal, m.handleLogout,
	); err != nil {
		return fmt.Errorf("failed to register logout service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.handleValidateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.handleGetUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "find-user", json.Unmarshal, json.Marshal, m.handleFindUser,
	); err != nil {
		return fmt.Errorf("failed to register find-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-users", json.Unmarshal, json.Marshal, m.handleGetUsers,
	); err != nil {
		return fmt.Errorf("failed to register get-users service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "search-users", json.Unmarshal, json.Marshal, m.handleSearchUsers,
	); err != nil {
		return fmt.Errorf("failed to register search-users service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-profile", json.Unmarshal, json.Marshal, m.handleUpdateProfile,
	); err != nil {
		return fmt.Errorf("failed to register update-profile service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-avatar", json.Unmarshal, json.Marshal, m.handleSetAvatar,
	); err != nil {
		return fmt.Errorf("failed to register set-avatar service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "set-banned", json.Unmarshal, json.Marshal, m.handleSetBanned,
	); err != nil {
		return fmt.Errorf("failed to register set-banned service: %w", err)
	}

	log.Printf("[auth] Registered services: signup, login, refresh-token, logout, validate-token, " +
		"get-user, find-user, get-users, search-users, update-profile, set-avatar, set-banned")
	return nil
}

func (m *AuthModule) handleSignup(ctx context.Context, req CredentialsRequest, _ *mono.Msg) (SessionResponse, error) {
	user, tokens, err := m.service.Signup(ctx, req.Username, req.Password)
	if err != nil {
		return SessionResponse{}, err
	}
	log.Printf("[auth] New account %s (%s)", user.Username, user.ID)
	return SessionResponse{User: user.ToProfile(), Tokens: *tokens}, nil
}

func (m *AuthModule) handleLogin(ctx context.Context, req CredentialsRequest, _ *mono.Msg) (SessionResponse, error) {
	user, tokens, err := m.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		return SessionResponse{}, err
	}
	return SessionResponse{User: user.ToProfile(), Tokens: *tokens}, nil
}

func (m *AuthModule) handleRefresh(ctx context.Context, req RefreshRequest, _ *mono.Msg) (RefreshResponse, error) {
	tokens, err := m.service.RefreshTokens(ctx, req.RefreshToken)
	if err != nil {
		return RefreshResponse{}, err
	}
	return RefreshResponse{Tokens: *tokens}, nil
}

func (m *AuthModule) handleLogout(ctx context.Context, req RefreshRequest, _ *mono.Msg) (LogoutResponse, error) {
	if err := m.service.Logout(ctx, req.RefreshToken); err != nil {
		return LogoutResponse{}, err
	}
	return LogoutResponse{LoggedOut: true}, nil
}

func (m *AuthModule) handleValidateToken(ctx context.Context, req ValidateTokenRequest, _ *mono.Msg) (ValidateTokenResponse, error) {
	claims, err := m.service.ValidateToken(ctx, req.Token)
	if err != nil {
		errMsg := "invalid token"
		switch {
		case errors.Is(err, ErrExpiredToken):
			errMsg = "token expired"
		case errors.Is(err, ErrUserBanned):
			errMsg = ErrUserBanned.Error()
		}
		// Validation failures are a normal reply, not a transport error.
		return ValidateTokenResponse{
			Valid: false,
			Error: errMsg,
		}, nil
	}

	return ValidateTokenResponse{
		Valid:    true,
		UserID:   claims.UserID,
		Username: claims.Username,
		Admin:    claims.Admin,
	}, nil
}

func (m *AuthModule) handleGetUser(ctx context.Context, req GetUserRequest, _ *mono.Msg) (ProfileResponse, error) {
	user, err := m.service.GetUser(ctx, req.UserID)
	if err != nil {
		return ProfileResponse{}, err
	}
	return ProfileResponse{User: user.ToProfile()}, nil
}

func (m *AuthModule) handleFindUser(ctx context.Context, req FindUserRequest, _ *mono.Msg) (ProfileResponse, error) {
	user, err := m.service.FindUser(ctx, req.Username)
	if err != nil {
		return ProfileResponse{}, err
	}
	return ProfileResponse{User: user.ToProfile()}, nil
}

func (m *AuthModule) handleGetUsers(ctx context.Context, req GetUsersRequest, _ *mono.Msg) (ProfileListResponse, error) {
	users, err := m.service.GetUsers(ctx, req.UserIDs)
	if err != nil {
		return ProfileListResponse{}, err
	}
	return ProfileListResponse{Users: toProfiles(users)}, nil
}

func (m *AuthModule) handleSearchUsers(ctx context.Context, req SearchUsersRequest, _ *mono.Msg) (ProfileListResponse, error) {
	users, err := m.service.SearchUsers(ctx, req.Query, req.CallerID)
	if err != nil {
		return ProfileListResponse{}, err
	}
	return ProfileListResponse{Users: toProfiles(users)}, nil
}

func (m *AuthModule) handleUpdateProfile(ctx context.Context, req UpdateProfileRequest, _ *mono.Msg) (ProfileResponse, error) {
	user, err := m.service.UpdateProfile(ctx, req.UserID, req.Bio)
	if err != nil {
		return ProfileResponse{}, err
	}
	m.publishProfileUpdated(user)
	return ProfileResponse{User: user.ToProfile()}, nil
}

func (m *AuthModule) handleSetAvatar(ctx context.Context, req SetAvatarRequest, _ *mono.Msg) (SetAvatarResponse, error) {
	previous, user, err := m.service.SetAvatar(ctx, req.UserID, req.AvatarURL)
	if err != nil {
		return SetAvatarResponse{}, err
	}
	m.publishProfileUpdated(user)
	return SetAvatarResponse{PreviousURL: previous, User: user.ToProfile()}, nil
}

func (m *AuthModule) handleSetBanned(ctx context.Context, req SetBannedRequest, _ *mono.Msg) (ProfileResponse, error) {
	user, err := m.service.SetBanned(ctx, req.ActorID, req.Username, req.Banned)
	if err != nil {
		return ProfileResponse{}, err
	}

	if m.eventBus != nil {
		event := events.UserBannedEvent{
			UserID:    user.ID,
			Username:  user.Username,
			Banned:    user.Banned,
			ActorID:   req.ActorID,
			Timestamp: time.Now(),
		}
		if err := events.UserBannedV1.Publish(m.eventBus, event, nil); err != nil {
			log.Printf("[auth] Warning: failed to publish UserBanned event for %s: %v", user.ID, err)
		}
	}

	log.Printf("[auth] User %s banned=%t by %s", user.Username, user.Banned, req.ActorID)
	return ProfileResponse{User: user.ToProfile()}, nil
}

func (m *AuthModule) publishProfileUpdated(user *domain.User) {
	if m.eventBus == nil {
		return
	}
	event := events.ProfileUpdatedEvent{
		UserID:    user.ID,
		Username:  user.Username,
		AvatarURL: user.AvatarURL,
		Bio:       user.Bio,
		Timestamp: time.Now(),
	}
	if err := events.ProfileUpdatedV1.Publish(m.eventBus, event, nil); err != nil {
		log.Printf("[auth] Warning: failed to publish ProfileUpdated event for %s: %v", user.ID, err)
	}
}
