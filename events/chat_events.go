package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RoomCreatedEvent is emitted when a room is created.
type RoomCreatedEvent struct {
	RoomID     string    `json:"room_id"`
	RoomName   string    `json:"room_name"`
	OwnerID    string    `json:"owner_id"`
	OwnerName  string    `json:"owner_name"`
	Private    bool      `json:"private"`
	InviteOnly bool      `json:"invite_only"`
	Timestamp  time.Time `json:"timestamp"`
}

// RoomDeletedEvent is emitted when a room and its history are removed.
type RoomDeletedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	DeletedBy string    `json:"deleted_by"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberEvent is emitted when room membership changes.
type MemberEvent struct {
	RoomID    string    `json:"room_id"`
	RoomName  string    `json:"room_name"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageEvent carries a room message or a direct message.
type MessageEvent struct {
	MessageID   string     `json:"message_id"`
	RoomID      string     `json:"room_id,omitempty"`
	RoomName    string     `json:"room_name,omitempty"`
	ThreadKey   string     `json:"thread_key,omitempty"`
	SenderID    string     `json:"sender_id"`
	SenderName  string     `json:"sender_name"`
	RecipientID string     `json:"recipient_id,omitempty"`
	Content     string     `json:"content,omitempty"`
	Edited      bool       `json:"edited,omitempty"`
	EditedAt    *time.Time `json:"edited_at,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// MessageDeletedEvent is emitted when a message is removed.
type MessageDeletedEvent struct {
	MessageID   string    `json:"message_id"`
	RoomID      string    `json:"room_id,omitempty"`
	ThreadKey   string    `json:"thread_key,omitempty"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id,omitempty"`
	DeletedBy   string    `json:"deleted_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// Event definitions for the chat domain.
var (
	RoomCreatedV1 = helper.EventDefinition[RoomCreatedEvent](
		"chat",
		"RoomCreated",
		"v1",
	)

	RoomDeletedV1 = helper.EventDefinition[RoomDeletedEvent](
		"chat",
		"RoomDeleted",
		"v1",
	)

	MemberJoinedV1 = helper.EventDefinition[MemberEvent](
		"chat",
		"MemberJoined",
		"v1",
	)

	MemberLeftV1 = helper.EventDefinition[MemberEvent](
		"chat",
		"MemberLeft",
		"v1",
	)

	MemberKickedV1 = helper.EventDefinition[MemberEvent](
		"chat",
		"MemberKicked",
		"v1",
	)

	MemberBannedV1 = helper.EventDefinition[MemberEvent](
		"chat",
		"MemberBanned",
		"v1",
	)

	MessageSentV1 = helper.EventDefinition[MessageEvent](
		"chat",
		"MessageSent",
		"v1",
	)

	MessageEditedV1 = helper.EventDefinition[MessageEvent](
		"chat",
		"MessageEdited",
		"v1",
	)

	MessageDeletedV1 = helper.EventDefinition[MessageDeletedEvent](
		"chat",
		"MessageDeleted",
		"v1",
	)

	DirectMessageSentV1 = helper.EventDefinition[MessageEvent](
		"chat",
		"DirectMessageSent",
		"v1",
	)
)
