package friend

import "time"

// FriendRequest is a pending request from one user to another.
type FriendRequest struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id"`
	FromID    string    `gorm:"uniqueIndex:idx_request_pair;not null;type:text" json:"from_id"`
	FromName  string    `gorm:"not null;type:text" json:"from_name"`
	ToID      string    `gorm:"uniqueIndex:idx_request_pair;index;not null;type:text" json:"to_id"`
	ToName    string    `gorm:"not null;type:text" json:"to_name"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the table name for the FriendRequest entity.
func (FriendRequest) TableName() string {
	return "friend_requests"
}

// Friendship is one direction of a mutual friendship. Both directions are always stored together.
type Friendship struct {
	UserID    string `gorm:"primaryKey;type:text"`
	FriendID  string `gorm:"primaryKey;type:text"`
	CreatedAt time.Time
}

// TableName returns the table name for the Friendship entity.
func (Friendship) TableName() string {
	return "friendships"
}

// Friend is a friend's public profile as listed to the user.
type Friend struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	Since     time.Time `json:"since"`
}

// RequestList holds a user's pending requests in both directions.
type RequestList struct {
	Incoming []FriendRequest `json:"incoming"`
	Outgoing []FriendRequest `json:"outgoing"`
}
