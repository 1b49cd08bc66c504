package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// FriendEvent is emitted for friend request lifecycle changes.
type FriendEvent struct {
	RequestID string    `json:"request_id,omitempty"`
	FromID    string    `json:"from_id"`
	FromName  string    `json:"from_name"`
	ToID      string    `json:"to_id"`
	ToName    string    `json:"to_name"`
	Timestamp time.Time `json:"timestamp"`
}

// ProfileUpdatedEvent is emitted when a user's public profile changes.
type ProfileUpdatedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Bio       string    `json:"bio"`
	Timestamp time.Time `json:"timestamp"`
}

// UserBannedEvent is emitted when an admin bans or unbans an account.
type UserBannedEvent struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Banned    bool      `json:"banned"`
	ActorID   string    `json:"actor_id"`
	Timestamp time.Time `json:"timestamp"`
}

// Event definitions for the friends and auth domains.
var (
	FriendRequestSentV1 = helper.EventDefinition[FriendEvent](
		"friends",
		"FriendRequestSent",
		"v1",
	)

	FriendRequestAcceptedV1 = helper.EventDefinition[FriendEvent](
		"friends",
		"FriendRequestAccepted",
		"v1",
	)

	FriendRemovedV1 = helper.EventDefinition[FriendEvent](
		"friends",
		"FriendRemoved",
		"v1",
	)

	ProfileUpdatedV1 = helper.EventDefinition[ProfileUpdatedEvent](
		"auth",
		"ProfileUpdated",
		"v1",
	)

	UserBannedV1 = helper.EventDefinition[UserBannedEvent](
		"auth",
		"UserBanned",
		"v1",
	)
)
