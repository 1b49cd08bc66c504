package auth

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/chat-server/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// AuthPort defines the interface for authentication operations.
// This is the port that other modules use to access auth functionality.
type AuthPort interface {
	Signup(ctx context.Context, username, password string) (*SessionResponse, error)
	Login(ctx context.Context, username, password string) (*SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	ValidateToken(ctx context.Context, token string) (*domain.Claims, error)
	GetUser(ctx context.Context, userID string) (*domain.Profile, error)
	FindUser(ctx context.Context, username string) (*domain.Profile, error)
	GetUsers(ctx context.Context, userIDs []string) ([]domain.Profile, error)
	SearchUsers(ctx context.Context, query, callerID string) ([]domain.Profile, error)
	UpdateProfile(ctx context.Context, userID, bio string) (*domain.Profile, error)
	SetAvatar(ctx context.Context, userID, avatarURL string) (string, error)
	SetBanned(ctx context.Context, actorID, username string, banned bool) (*domain.Profile, error)
}

// AuthAdapter implements AuthPort using the service container.
type AuthAdapter struct {
	container mono.ServiceContainer
}

var _ AuthPort = (*AuthAdapter)(nil)

// NewAuthAdapter creates a new AuthAdapter.
func NewAuthAdapter(container mono.ServiceContainer) *AuthAdapter {
	return &AuthAdapter{
		container: container,
	}
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

// Signup registers a new account.
func (a *AuthAdapter) Signup(ctx context.Context, username, password string) (*SessionResponse, error) {
	req := CredentialsRequest{Username: username, Password: password}
	var resp SessionResponse
	if err := callService(ctx, a.container, "signup", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates an account.
func (a *AuthAdapter) Login(ctx context.Context, username, password string) (*SessionResponse, error) {
	req := CredentialsRequest{Username: username, Password: password}
	var resp SessionResponse
	if err := callService(ctx, a.container, "login", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh rotates a refresh token.
func (a *AuthAdapter) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp RefreshResponse
	if err := callService(ctx, a.container, "refresh-token", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Tokens, nil
}

// Logout revokes a refresh token.
func (a *AuthAdapter) Logout(ctx context.Context, refreshToken string) error {
	req := RefreshRequest{RefreshToken: refreshToken}
	var resp LogoutResponse
	return callService(ctx, a.container, "logout", &req, &resp)
}

// ValidateToken validates an access token and returns claims.
func (a *AuthAdapter) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	req := ValidateTokenRequest{Token: token}
	var resp ValidateTokenResponse
	if err := callService(ctx, a.container, "validate-token", &req, &resp); err != nil {
		return nil, err
	}

	if !resp.Valid {
		return nil, fmt.Errorf("token validation failed: %s", resp.Error)
	}

	return &domain.Claims{
		UserID:   resp.UserID,
		Username: resp.Username,
		Admin:    resp.Admin,
	}, nil
}

// GetUser retrieves a user by ID.
func (a *AuthAdapter) GetUser(ctx context.Context, userID string) (*domain.Profile, error) {
	req := GetUserRequest{UserID: userID}
	var resp ProfileResponse
	if err := callService(ctx, a.container, "get-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// FindUser retrieves a user by username.
func (a *AuthAdapter) FindUser(ctx context.Context, username string) (*domain.Profile, error) {
	req := FindUserRequest{Username: username}
	var resp ProfileResponse
	if err := callService(ctx, a.container, "find-user", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// GetUsers retrieves a batch of users by ID.
func (a *AuthAdapter) GetUsers(ctx context.Context, userIDs []string) ([]domain.Profile, error) {
	req := GetUsersRequest{UserIDs: userIDs}
	var resp ProfileListResponse
	if err := callService(ctx, a.container, "get-users", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// SearchUsers finds users by username substring.
func (a *AuthAdapter) SearchUsers(ctx context.Context, query, callerID string) ([]domain.Profile, error) {
	req := SearchUsersRequest{Query: query, CallerID: callerID}
	var resp ProfileListResponse
	if err := callService(ctx, a.container, "search-users", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// UpdateProfile sets the user's bio.
func (a *AuthAdapter) UpdateProfile(ctx context.Context, userID, bio string) (*domain.Profile, error) {
	req := UpdateProfileRequest{UserID: userID, Bio: bio}
	var resp ProfileResponse
	if err := callService(ctx, a.container, "update-profile", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// SetAvatar records a new avatar URL and returns the previous one.
func (a *AuthAdapter) SetAvatar(ctx context.Context, userID, avatarURL string) (string, error) {
	req := SetAvatarRequest{UserID: userID, AvatarURL: avatarURL}
	var resp SetAvatarResponse
	if err := callService(ctx, a.container, "set-avatar", &req, &resp); err != nil {
		return "", err
	}
	return resp.PreviousURL, nil
}

// SetBanned bans or unbans an account.
func (a *AuthAdapter) SetBanned(ctx context.Context, actorID, username string, banned bool) (*domain.Profile, error) {
	req := SetBannedRequest{ActorID: actorID, Username: username, Banned: banned}
	var resp ProfileResponse
	if err := callService(ctx, a.container, "set-banned", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}
