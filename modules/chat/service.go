package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/example/chat-server/domain/chat"
	"github.com/example/chat-server/domain/user"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidRoomName is returned when a room name is empty or too long.
	ErrInvalidRoomName = errors.New("room name must be 1-100 characters")
	// ErrRoomPasswordTooLong is returned when a room password exceeds bcrypt's limit.
	ErrRoomPasswordTooLong = errors.New("room password must be at most 72 characters")
	// ErrBanned is returned when a banned user tries to join.
	ErrBanned = errors.New("you are banned from this room")
	// ErrInviteRequired is returned when joining an invite-only room without an invite.
	ErrInviteRequired = errors.New("this room is invite-only")
	// ErrWrongPassword is returned when the room password does not match.
	ErrWrongPassword = errors.New("wrong room password")
	// ErrInvalidInvite is returned for unknown invite codes.
	ErrInvalidInvite = errors.New("invalid invite code")
	// ErrNotMember is returned when the caller is not a member of the room.
	ErrNotMember = errors.New("you are not a member of this room")
	// ErrTargetNotMember is returned when kicking a user who is not in the room.
	ErrTargetNotMember = errors.New("user is not in this room")
	// ErrOwnerCannotLeave is returned when the owner tries to leave their own room.
	ErrOwnerCannotLeave = errors.New("room owner cannot leave, delete the room instead")
	// ErrForbidden is returned when a moderation action is attempted by a non-owner.
	ErrForbidden = errors.New("only the room owner or an admin can do that")
	// ErrCannotTargetOwner is returned when kicking or banning the room owner.
	ErrCannotTargetOwner = errors.New("cannot kick or ban the room owner")
	// ErrNotBanned is returned when unbanning a user who is not banned.
	ErrNotBanned = errors.New("user is not banned from this room")
	// ErrNotSender is returned when someone other than the sender edits a message.
	ErrNotSender = errors.New("only the sender can edit a message")
	// ErrCannotDelete is returned when the caller may not delete a message.
	ErrCannotDelete = errors.New("only the sender, the room owner or an admin can delete a message")
	// ErrEmptyMessage is returned for blank messages.
	ErrEmptyMessage = errors.New("message cannot be empty")
	// ErrMessageTooLong is returned when a message exceeds MaxMessageLength.
	ErrMessageTooLong = errors.New("message must be at most 5000 characters")
	// ErrNotFriends is returned when direct messaging a non-friend.
	ErrNotFriends = errors.New("you can only message friends")
	// ErrSelfMessage is returned when direct messaging yourself.
	ErrSelfMessage = errors.New("cannot message yourself")
	// ErrUserNotFound is returned when a username does not resolve.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCursor is returned when a history cursor does not belong to the conversation.
	ErrInvalidCursor = errors.New("invalid history cursor")
)

const (
	// MaxRoomNameLength is the maximum room name length in characters.
	MaxRoomNameLength = 100
	// MaxMessageLength is the maximum message length in characters.
	MaxMessageLength = 5000
	// DefaultHistoryLimit is the page size when none is given.
	DefaultHistoryLimit = 50
	// MaxHistoryLimit caps the page size.
	MaxHistoryLimit = 200
	// MaxDMThreads caps ListDMThreads.
	MaxDMThreads = 50

	// SystemUserID owns rooms created by the server itself.
	SystemUserID = "system"
	// DefaultRoomName is the public room created at startup.
	DefaultRoomName = "general"
)

// UserDirectory resolves users owned by the auth module.
type UserDirectory interface {
	FindUser(ctx context.Context, username string) (*user.Profile, error)
}

// FriendChecker answers friendship questions for the DM gate.
type FriendChecker interface {
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
}

// CreateRoomInput describes a room to create.
type CreateRoomInput struct {
	Name       string
	Password   string
	InviteOnly bool
}

// ChatService implements rooms, membership and messaging.
type ChatService struct {
	repo         *ChatRepository
	users        UserDirectory
	friends      FriendChecker
	inviteCode   func() string
	passwordCost int
	now          func() time.Time
}

// NewChatService creates a new ChatService.
func NewChatService(repo *ChatRepository, users UserDirectory, friends FriendChecker) (*ChatService, error) {
	gen, err := NewInviteCodeGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create invite code generator: %w", err)
	}
	return &ChatService{
		repo:         repo,
		users:        users,
		friends:      friends,
		inviteCode:   gen,
		passwordCost: bcrypt.DefaultCost,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// EnsureDefaultRoom creates the public default room if it does not exist yet.
func (s *ChatService) EnsureDefaultRoom(ctx context.Context) (*domain.Room, bool, error) {
	room, err := s.repo.FindRoomByName(ctx, normalizeRoomName(DefaultRoomName))
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, ErrRoomNotFound) {
		return nil, false, err
	}

	room = &domain.Room{
		ID:         uuid.New().String(),
		Name:       DefaultRoomName,
		NameKey:    normalizeRoomName(DefaultRoomName),
		OwnerID:    SystemUserID,
		OwnerName:  SystemUserID,
		InviteCode: s.inviteCode(),
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateRoom(ctx, room, nil); err != nil {
		if errors.Is(err, ErrRoomExists) {
			existing, findErr := s.repo.FindRoomByName(ctx, room.NameKey)
			return existing, false, findErr
		}
		return nil, false, err
	}
	return room, true, nil
}

// CreateRoom creates a room owned by the actor, who becomes its first member.
func (s *ChatService) CreateRoom(ctx context.Context, actor user.Claims, in CreateRoomInput) (*domain.Room, error) {
	name := strings.TrimSpace(in.Name)
	if n := len([]rune(name)); n == 0 || n > MaxRoomNameLength {
		return nil, ErrInvalidRoomName
	}

	var passwordHash string
	if in.Password != "" {
		if len(in.Password) > 72 {
			return nil, ErrRoomPasswordTooLong
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.passwordCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash room password: %w", err)
		}
		passwordHash = string(hash)
	}

	now := s.now()
	room := &domain.Room{
		ID:           uuid.New().String(),
		Name:         name,
		NameKey:      normalizeRoomName(name),
		OwnerID:      actor.UserID,
		OwnerName:    actor.Username,
		PasswordHash: passwordHash,
		InviteOnly:   in.InviteOnly,
		InviteCode:   s.inviteCode(),
		CreatedAt:    now,
	}
	owner := &domain.RoomMember{
		RoomID:   room.ID,
		UserID:   actor.UserID,
		Username: actor.Username,
		JoinedAt: now,
	}

	if err := s.repo.CreateRoom(ctx, room, owner); err != nil {
		if errors.Is(err, ErrRoomExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

// ListRooms returns every room that is not invite-only.
func (s *ChatService) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	rooms, err := s.repo.ListListedRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	ids := make([]string, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	counts, err := s.repo.CountMembers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	summaries := make([]domain.RoomSummary, 0, len(rooms))
	for i := range rooms {
		summaries = append(summaries, rooms[i].Summarize(counts[rooms[i].ID]))
	}
	return summaries, nil
}

// GetRoom returns a room as seen by the actor. Invite-only rooms are hidden
// from non-members, and only the owner sees the invite code.
func (s *ChatService) GetRoom(ctx context.Context, actor user.Claims, roomID string) (*domain.RoomDetails, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.IsMember(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if room.InviteOnly && !member && !actor.Admin {
		return nil, ErrRoomNotFound
	}

	counts, err := s.repo.CountMembers(ctx, []string{room.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count members: %w", err)
	}

	details := &domain.RoomDetails{
		RoomSummary: room.Summarize(counts[room.ID]),
		Member:      member,
	}
	if room.OwnerID == actor.UserID {
		details.InviteCode = room.InviteCode
	}
	return details, nil
}

// JoinRoom adds the actor to a room. Joining a room twice is not an error;
// joined reports whether a new membership was created.
func (s *ChatService) JoinRoom(ctx context.Context, actor user.Claims, roomID, password string) (room *domain.Room, joined bool, err error) {
	room, err = s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, false, err
	}

	banned, err := s.repo.IsBanned(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check ban: %w", err)
	}
	if banned {
		return nil, false, ErrBanned
	}

	member, err := s.repo.IsMember(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check membership: %w", err)
	}
	if member {
		return room, false, nil
	}

	if room.InviteOnly {
		return nil, false, ErrInviteRequired
	}
	if room.HasPassword() && bcrypt.CompareHashAndPassword([]byte(room.PasswordHash), []byte(password)) != nil {
		return nil, false, ErrWrongPassword
	}

	joined, err = s.addMember(ctx, room, actor)
	if err != nil {
		return nil, false, err
	}
	return room, joined, nil
}

// JoinByInvite adds the actor to the room an invite code belongs to. The
// invite replaces the password and invite-only checks but not bans.
func (s *ChatService) JoinByInvite(ctx context.Context, actor user.Claims, code string) (*domain.Room, bool, error) {
	if !IsValidInviteCode(code) {
		return nil, false, ErrInvalidInvite
	}
	room, err := s.repo.FindRoomByInvite(ctx, code)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, false, ErrInvalidInvite
		}
		return nil, false, err
	}

	joined, err := s.addMember(ctx, room, actor)
	if err != nil {
		return nil, false, err
	}
	return room, joined, nil
}

func (s *ChatService) addMember(ctx context.Context, room *domain.Room, actor user.Claims) (bool, error) {
	joined, err := s.repo.AddMember(ctx, &domain.RoomMember{
		RoomID:   room.ID,
		UserID:   actor.UserID,
		Username: actor.Username,
		JoinedAt: s.now(),
	})
	if err != nil {
		if errors.Is(err, ErrBanned) {
			return false, err
		}
		return false, fmt.Errorf("failed to join room: %w", err)
	}
	return joined, nil
}

// LeaveRoom removes the actor from a room. The owner cannot leave.
func (s *ChatService) LeaveRoom(ctx context.Context, actor user.Claims, roomID string) (*domain.Room, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.OwnerID == actor.UserID {
		return nil, ErrOwnerCannotLeave
	}

	removed, err := s.repo.RemoveMember(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to leave room: %w", err)
	}
	if !removed {
		return nil, ErrNotMember
	}
	return room, nil
}

// KickMember removes a member from a room. They may rejoin.
func (s *ChatService) KickMember(ctx context.Context, actor user.Claims, roomID, username string) (*domain.Room, *user.Profile, error) {
	room, target, err := s.moderationTarget(ctx, actor, roomID, username)
	if err != nil {
		return nil, nil, err
	}

	removed, err := s.repo.RemoveMember(ctx, room.ID, target.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to kick member: %w", err)
	}
	if !removed {
		return nil, nil, ErrTargetNotMember
	}
	return room, target, nil
}

// BanMember removes a user from a room and blocks them from rejoining.
func (s *ChatService) BanMember(ctx context.Context, actor user.Claims, roomID, username string) (*domain.Room, *user.Profile, error) {
	room, target, err := s.moderationTarget(ctx, actor, roomID, username)
	if err != nil {
		return nil, nil, err
	}

	ban := &domain.RoomBan{
		RoomID:    room.ID,
		UserID:    target.ID,
		BannedBy:  actor.UserID,
		CreatedAt: s.now(),
	}
	if _, err := s.repo.BanMember(ctx, ban); err != nil {
		return nil, nil, fmt.Errorf("failed to ban member: %w", err)
	}
	return room, target, nil
}

// UnbanMember lifts a room ban.
func (s *ChatService) UnbanMember(ctx context.Context, actor user.Claims, roomID, username string) (*domain.Room, *user.Profile, error) {
	room, target, err := s.moderationTarget(ctx, actor, roomID, username)
	if err != nil {
		return nil, nil, err
	}

	lifted, err := s.repo.Unban(ctx, room.ID, target.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to unban member: %w", err)
	}
	if !lifted {
		return nil, nil, ErrNotBanned
	}
	return room, target, nil
}

func (s *ChatService) moderationTarget(ctx context.Context, actor user.Claims, roomID, username string) (*domain.Room, *user.Profile, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if !canModerate(actor, room) {
		return nil, nil, ErrForbidden
	}

	target, err := s.resolve(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if target.ID == room.OwnerID {
		return nil, nil, ErrCannotTargetOwner
	}
	return room, target, nil
}

// DeleteRoom removes a room with all of its members, bans and messages.
func (s *ChatService) DeleteRoom(ctx context.Context, actor user.Claims, roomID string) (*domain.Room, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !canModerate(actor, room) {
		return nil, ErrForbidden
	}
	if err := s.repo.DeleteRoom(ctx, room.ID); err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete room: %w", err)
	}
	return room, nil
}

// ListMembers returns a room's members. Only members and admins may list them.
func (s *ChatService) ListMembers(ctx context.Context, actor user.Claims, roomID string) ([]domain.RoomMember, error) {
	room, err := s.requireMember(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}
	members, err := s.repo.ListMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// ListMemberships returns the IDs of the rooms the user belongs to.
func (s *ChatService) ListMemberships(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.ListMemberships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	return ids, nil
}

// SendMessage posts a message to a room the actor belongs to.
func (s *ChatService) SendMessage(ctx context.Context, actor user.Claims, roomID, content string) (*domain.Message, *domain.Room, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, nil, err
	}

	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.repo.IsMember(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		return nil, nil, ErrNotMember
	}

	msg := &domain.Message{
		ID:         uuid.New().String(),
		RoomID:     room.ID,
		SenderID:   actor.UserID,
		SenderName: actor.Username,
		Content:    content,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, room, nil
}

// EditMessage replaces the text of the actor's own message.
func (s *ChatService) EditMessage(ctx context.Context, actor user.Claims, messageID, content string) (*domain.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	msg, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actor.UserID {
		return nil, ErrNotSender
	}

	editedAt := s.now()
	if err := s.repo.UpdateMessageContent(ctx, msg.ID, content, editedAt); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}

	msg.Content = content
	msg.Edited = true
	msg.EditedAt = &editedAt
	return msg, nil
}

// DeleteMessage removes a message. The sender may always delete it; room
// messages may also be deleted by the room owner, and any message by an admin.
func (s *ChatService) DeleteMessage(ctx context.Context, actor user.Claims, messageID string) (*domain.Message, error) {
	msg, err := s.repo.FindMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	allowed := msg.SenderID == actor.UserID || actor.Admin
	if !allowed && !msg.IsDirect() {
		room, err := s.repo.FindRoom(ctx, msg.RoomID)
		if err != nil && !errors.Is(err, ErrRoomNotFound) {
			return nil, err
		}
		allowed = room != nil && room.OwnerID == actor.UserID
	}
	if !allowed {
		return nil, ErrCannotDelete
	}

	if err := s.repo.DeleteMessage(ctx, msg.ID); err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	return msg, nil
}

// RoomHistory returns a page of room messages older than the before cursor,
// oldest first. An empty cursor returns the newest page.
func (s *ChatService) RoomHistory(ctx context.Context, actor user.Claims, roomID, before string, limit int) ([]domain.Message, error) {
	room, err := s.requireMember(ctx, actor, roomID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.cursor(ctx, before, func(m *domain.Message) bool { return m.RoomID == room.ID })
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.RoomHistory(ctx, room.ID, cursor, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return msgs, nil
}

// SendDM sends a direct message to a friend. Admins may message anyone.
func (s *ChatService) SendDM(ctx context.Context, actor user.Claims, toUsername, content string) (*domain.Message, error) {
	content, err := validateContent(content)
	if err != nil {
		return nil, err
	}

	peer, err := s.resolve(ctx, toUsername)
	if err != nil {
		return nil, err
	}
	if peer.ID == actor.UserID {
		return nil, ErrSelfMessage
	}
	if peer.Banned {
		return nil, ErrUserNotFound
	}

	if !actor.Admin {
		ok, err := s.friends.AreFriends(ctx, actor.UserID, peer.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check friendship: %w", err)
		}
		if !ok {
			return nil, ErrNotFriends
		}
	}

	msg := &domain.Message{
		ID:            uuid.New().String(),
		ThreadKey:     domain.ThreadKey(actor.UserID, peer.ID),
		SenderID:      actor.UserID,
		SenderName:    actor.Username,
		RecipientID:   peer.ID,
		RecipientName: peer.Username,
		Content:       content,
		CreatedAt:     s.now(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	return msg, nil
}

// DMHistory returns a page of the conversation between the actor and a peer.
func (s *ChatService) DMHistory(ctx context.Context, actor user.Claims, peerUsername, before string, limit int) ([]domain.Message, error) {
	peer, err := s.resolve(ctx, peerUsername)
	if err != nil {
		return nil, err
	}
	key := domain.ThreadKey(actor.UserID, peer.ID)

	cursor, err := s.cursor(ctx, before, func(m *domain.Message) bool { return m.ThreadKey == key })
	if err != nil {
		return nil, err
	}

	msgs, err := s.repo.ThreadHistory(ctx, key, cursor, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return msgs, nil
}

// ListDMThreads returns the actor's conversations, most recent first.
func (s *ChatService) ListDMThreads(ctx context.Context, actor user.Claims) ([]domain.DMThread, error) {
	latest, err := s.repo.LatestPerThread(ctx, actor.UserID, MaxDMThreads)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	seen := make(map[string]bool, len(latest))
	threads := make([]domain.DMThread, 0, len(latest))
	for _, msg := range latest {
		if seen[msg.ThreadKey] {
			continue
		}
		seen[msg.ThreadKey] = true

		thread := domain.DMThread{
			ThreadKey:   msg.ThreadKey,
			PeerID:      msg.SenderID,
			PeerName:    msg.SenderName,
			LastMessage: msg,
			UpdatedAt:   msg.CreatedAt,
		}
		if msg.SenderID == actor.UserID {
			thread.PeerID = msg.RecipientID
			thread.PeerName = msg.RecipientName
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func (s *ChatService) requireMember(ctx context.Context, actor user.Claims, roomID string) (*domain.Room, error) {
	room, err := s.repo.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if actor.Admin {
		return room, nil
	}
	member, err := s.repo.IsMember(ctx, room.ID, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if !member {
		if room.InviteOnly {
			return nil, ErrRoomNotFound
		}
		return nil, ErrNotMember
	}
	return room, nil
}

func (s *ChatService) cursor(ctx context.Context, before string, belongs func(*domain.Message) bool) (*domain.Message, error) {
	if before == "" {
		return nil, nil
	}
	msg, err := s.repo.FindMessage(ctx, before)
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}
	if !belongs(msg) {
		return nil, ErrInvalidCursor
	}
	return msg, nil
}

// resolve maps a username to a profile. Errors from the directory arrive as
// text over request-reply, so not-found is recognised by message.
func (s *ChatService) resolve(ctx context.Context, username string) (*user.Profile, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrUserNotFound
	}
	profile, err := s.users.FindUser(ctx, username)
	if err != nil {
		if strings.Contains(err.Error(), ErrUserNotFound.Error()) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return profile, nil
}

func canModerate(actor user.Claims, room *domain.Room) bool {
	return actor.Admin || room.OwnerID == actor.UserID
}

func normalizeRoomName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", ErrEmptyMessage
	}
	if len([]rune(content)) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return content, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}
