package user

import (
	"strings"
	"time"
)

// User represents an account.
type User struct {
	ID           string `gorm:"primaryKey;type:text"`
	Username     string `gorm:"not null;type:text"`
	UsernameKey  string `gorm:"uniqueIndex;not null;type:text"`
	PasswordHash string `gorm:"not null;type:text"`
	AvatarURL    string `gorm:"type:text"`
	Bio          string `gorm:"type:text"`
	Admin        bool   `gorm:"not null;default:false"`
	Banned       bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// RevokedToken records a refresh token that may no longer be used.
type RevokedToken struct {
	JTI       string    `gorm:"primaryKey;type:text"`
	UserID    string    `gorm:"index;not null;type:text"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
}

// TableName returns the table name for the RevokedToken entity.
func (RevokedToken) TableName() string {
	return "revoked_tokens"
}

// Profile is the public view of a user.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	Admin     bool      `json:"admin"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"created_at"`
}

// ToProfile strips private fields from the user.
func (u *User) ToProfile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
		Bio:       u.Bio,
		Admin:     u.Admin,
		Banned:    u.Banned,
		CreatedAt: u.CreatedAt,
	}
}

// TokenPair represents access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// Claims is the authenticated identity attached to a request.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Admin    bool   `json:"admin"`
}

// NormalizeUsername returns the case-insensitive lookup key for a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
