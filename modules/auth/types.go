package auth

import (
	domain "github.com/example/chat-server/domain/user"
)

// CredentialsRequest is used by signup and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse is returned by signup and login.
type SessionResponse struct {
	User   domain.Profile   `json:"user"`
	Tokens domain.TokenPair `json:"tokens"`
}

// RefreshRequest carries a refresh token for refresh-token and logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents a token refresh response.
type RefreshResponse struct {
	Tokens domain.TokenPair `json:"tokens"`
}

// LogoutResponse acknowledges a logout.
type LogoutResponse struct {
	LoggedOut bool `json:"logged_out"`
}

// ValidateTokenRequest represents a token validation request.
type ValidateTokenRequest struct {
	Token string `json:"token"`
}

// ValidateTokenResponse represents a token validation response.
type ValidateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	Error    string `json:"error,omitempty"`
}

// GetUserRequest looks a user up by ID.
type GetUserRequest struct {
	UserID string `json:"user_id"`
}

// FindUserRequest looks a user up by username.
type FindUserRequest struct {
	Username string `json:"username"`
}

// GetUsersRequest looks up a batch of users by ID.
type GetUsersRequest struct {
	UserIDs []string `json:"user_ids"`
}

// SearchUsersRequest searches usernames by substring.
type SearchUsersRequest struct {
	Query    string `json:"query"`
	CallerID string `json:"caller_id"`
}

// ProfileResponse wraps a single public profile.
type ProfileResponse struct {
	User domain.Profile `json:"user"`
}

// ProfileListResponse wraps a list of public profiles.
type ProfileListResponse struct {
	Users []domain.Profile `json:"users"`
}

// UpdateProfileRequest sets the caller's bio.
type UpdateProfileRequest struct {
	UserID string `json:"user_id"`
	Bio    string `json:"bio"`
}

// SetAvatarRequest records a new avatar URL.
type SetAvatarRequest struct {
	UserID    string `json:"user_id"`
	AvatarURL string `json:"avatar_url"`
}

// SetAvatarResponse returns the URL that was replaced.
type SetAvatarResponse struct {
	PreviousURL string         `json:"previous_url"`
	User        domain.Profile `json:"user"`
}

// SetBannedRequest bans or unbans an account.
type SetBannedRequest struct {
	ActorID  string `json:"actor_id"`
	Username string `json:"username"`
	Banned   bool   `json:"banned"`
}

func toProfiles(users []domain.User) []domain.Profile {
	profiles := make([]domain.Profile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].ToProfile())
	}
	return profiles
}
