package friends

import (
	domain "github.com/example/chat-server/domain/friend"
	"github.com/example/chat-server/domain/user"
)

// SendRequestRequest sends a friend request to a username.
type SendRequestRequest struct {
	FromID     string `json:"from_id"`
	FromName   string `json:"from_name"`
	ToUsername string `json:"to_username"`
}

// SendRequestResponse reports the stored request. Accepted is true when a
// reverse request existed and the two users are now friends.
type SendRequestResponse struct {
	Request  domain.FriendRequest `json:"request"`
	Accepted bool                 `json:"accepted"`
}

// UserRequest carries just the calling user.
type UserRequest struct {
	UserID string `json:"user_id"`
}

// RespondRequest accepts or declines a pending request.
type RespondRequest struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
	Accept    bool   `json:"accept"`
}

// RespondResponse returns the request that was handled.
type RespondResponse struct {
	Request  domain.FriendRequest `json:"request"`
	Accepted bool                 `json:"accepted"`
}

// ListFriendsResponse lists the user's friends.
type ListFriendsResponse struct {
	Friends []domain.Friend `json:"friends"`
}

// RemoveFriendRequest ends a friendship.
type RemoveFriendRequest struct {
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	FriendUsername string `json:"friend_username"`
}

// RemoveFriendResponse returns the former friend.
type RemoveFriendResponse struct {
	Friend user.Profile `json:"friend"`
}

// AreFriendsRequest checks a pair of users.
type AreFriendsRequest struct {
	UserID  string `json:"user_id"`
	OtherID string `json:"other_id"`
}

// AreFriendsResponse is the result of are-friends.
type AreFriendsResponse struct {
	Friends bool `json:"friends"`
}

// CountFriendsResponse is the result of count-friends.
type CountFriendsResponse struct {
	Count int64 `json:"count"`
}
