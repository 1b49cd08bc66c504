package chat

import (
	"sort"
	"strings"
	"time"
)

// Room is a named channel with optional password or invite gating.
type Room struct {
	ID           string `gorm:"primaryKey;type:text"`
	Name         string `gorm:"not null;type:text"`
	NameKey      string `gorm:"uniqueIndex;not null;type:text"`
	OwnerID      string `gorm:"index;not null;type:text"`
	OwnerName    string `gorm:"not null;type:text"`
	PasswordHash string `gorm:"type:text"`
	InviteOnly   bool   `gorm:"not null;default:false"`
	InviteCode   string `gorm:"uniqueIndex;not null;type:text"`
	CreatedAt    time.Time
}

// TableName returns the table name for the Room entity.
func (Room) TableName() string {
	return "rooms"
}

// HasPassword reports whether joining requires a password.
func (r *Room) HasPassword() bool {
	return r.PasswordHash != ""
}

// RoomMember is a user's membership in a room.
type RoomMember struct {
	RoomID   string    `gorm:"primaryKey;type:text" json:"room_id"`
	UserID   string    `gorm:"primaryKey;index;type:text" json:"user_id"`
	Username string    `gorm:"not null;type:text" json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

// TableName returns the table name for the RoomMember entity.
func (RoomMember) TableName() string {
	return "room_members"
}

// RoomBan blocks a user from rejoining a room.
type RoomBan struct {
	RoomID    string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"primaryKey;type:text"`
	BannedBy  string `gorm:"not null;type:text"`
	CreatedAt time.Time
}

// TableName returns the table name for the RoomBan entity.
func (RoomBan) TableName() string {
	return "room_bans"
}

// Message is either a room message (RoomID set) or a direct message (ThreadKey set).
type Message struct {
	ID            string     `gorm:"primaryKey;type:text" json:"id"`
	RoomID        string     `gorm:"index:idx_room_created;type:text" json:"room_id,omitempty"`
	ThreadKey     string     `gorm:"index:idx_thread_created;type:text" json:"thread_key,omitempty"`
	SenderID      string     `gorm:"not null;type:text" json:"sender_id"`
	SenderName    string     `gorm:"not null;type:text" json:"sender_name"`
	RecipientID   string     `gorm:"type:text" json:"recipient_id,omitempty"`
	RecipientName string     `gorm:"type:text" json:"recipient_name,omitempty"`
	Content       string     `gorm:"not null;type:text" json:"content"`
	Edited        bool       `gorm:"not null;default:false" json:"edited"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	CreatedAt     time.Time  `gorm:"index:idx_room_created;index:idx_thread_created" json:"created_at"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// IsDirect reports whether the message belongs to a DM thread.
func (m *Message) IsDirect() bool {
	return m.ThreadKey != ""
}

// DMThread summarizes a conversation with one peer.
type DMThread struct {
	ThreadKey   string    `json:"thread_key"`
	PeerID      string    `json:"peer_id"`
	PeerName    string    `json:"peer_name"`
	LastMessage Message   `json:"last_message"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ThreadKey returns the DM key for two users. The order of arguments does not matter.
func ThreadKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return strings.Join(pair, "|")
}

// ThreadPeer returns the other participant of a thread key.
func ThreadPeer(key, self string) string {
	a, b, ok := strings.Cut(key, "|")
	if !ok {
		return ""
	}
	if a == self {
		return b
	}
	return a
}

// RoomSummary is a room as shown in the public room list.
type RoomSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Private    bool      `json:"private"`
	InviteOnly bool      `json:"invite_only"`
	OwnerID    string    `json:"owner_id"`
	Owner      string    `json:"owner"`
	Members    int64     `json:"members"`
	CreatedAt  time.Time `json:"created_at"`
}

// RoomDetails is a single room as seen by one user.
type RoomDetails struct {
	RoomSummary
	Member     bool   `json:"member"`
	InviteCode string `json:"invite_code,omitempty"`
}

// Summarize builds the list view of a room.
func (r *Room) Summarize(members int64) RoomSummary {
	return RoomSummary{
		ID:         r.ID,
		Name:       r.Name,
		Private:    r.HasPassword(),
		InviteOnly: r.InviteOnly,
		OwnerID:    r.OwnerID,
		Owner:      r.OwnerName,
		Members:    members,
		CreatedAt:  r.CreatedAt,
	}
}
