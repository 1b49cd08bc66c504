package api

import (
	"context"
	"errors"

	chatdomain "github.com/example/chat-server/domain/chat"
	frienddomain "github.com/example/chat-server/domain/friend"
	domain "github.com/example/chat-server/domain/user"
	"github.com/example/chat-server/modules/auth"
	"github.com/example/chat-server/modules/avatar"
	"github.com/example/chat-server/modules/chat"
	"github.com/example/chat-server/modules/friends"
)

var errNotImplemented = errors.New("not implemented")

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	signupFunc        func(ctx context.Context, username, password string) (*auth.SessionResponse, error)
	loginFunc         func(ctx context.Context, username, password string) (*auth.SessionResponse, error)
	validateTokenFunc func(ctx context.Context, token string) (*domain.Claims, error)
	getUserFunc       func(ctx context.Context, userID string) (*domain.Profile, error)
	setBannedFunc     func(ctx context.Context, actorID, username string, banned bool) (*domain.Profile, error)
}

var _ auth.AuthPort = (*mockAuthPort)(nil)

func (m *mockAuthPort) Signup(ctx context.Context, username, password string) (*auth.SessionResponse, error) {
	if m.signupFunc != nil {
		return m.signupFunc(ctx, username, password)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Login(ctx context.Context, username, password string) (*auth.SessionResponse, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, username, password)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) Refresh(context.Context, string) (*domain.TokenPair, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) Logout(context.Context, string) error {
	return errNotImplemented
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*domain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) GetUser(ctx context.Context, userID string) (*domain.Profile, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) FindUser(context.Context, string) (*domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) GetUsers(context.Context, []string) ([]domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) SearchUsers(context.Context, string, string) ([]domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) UpdateProfile(context.Context, string, string) (*domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockAuthPort) SetAvatar(context.Context, string, string) (string, error) {
	return "", errNotImplemented
}

func (m *mockAuthPort) SetBanned(ctx context.Context, actorID, username string, banned bool) (*domain.Profile, error) {
	if m.setBannedFunc != nil {
		return m.setBannedFunc(ctx, actorID, username, banned)
	}
	return nil, errNotImplemented
}

// mockFriendsPort implements friends.FriendsPort for testing
type mockFriendsPort struct {
	sendRequestFunc  func(ctx context.Context, fromID, fromName, toUsername string) (*friends.SendRequestResponse, error)
	countFriendsFunc func(ctx context.Context, userID string) (int64, error)
}

var _ friends.FriendsPort = (*mockFriendsPort)(nil)

func (m *mockFriendsPort) SendRequest(ctx context.Context, fromID, fromName, toUsername string) (*friends.SendRequestResponse, error) {
	if m.sendRequestFunc != nil {
		return m.sendRequestFunc(ctx, fromID, fromName, toUsername)
	}
	return nil, errNotImplemented
}

func (m *mockFriendsPort) ListRequests(context.Context, string) (*frienddomain.RequestList, error) {
	return nil, errNotImplemented
}

func (m *mockFriendsPort) Respond(context.Context, string, string, bool) (*frienddomain.FriendRequest, error) {
	return nil, errNotImplemented
}

func (m *mockFriendsPort) ListFriends(context.Context, string) ([]frienddomain.Friend, error) {
	return nil, errNotImplemented
}

func (m *mockFriendsPort) RemoveFriend(context.Context, string, string, string) (*domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockFriendsPort) AreFriends(context.Context, string, string) (bool, error) {
	return false, errNotImplemented
}

func (m *mockFriendsPort) CountFriends(ctx context.Context, userID string) (int64, error) {
	if m.countFriendsFunc != nil {
		return m.countFriendsFunc(ctx, userID)
	}
	return 0, errNotImplemented
}

// mockChatPort implements chat.ChatPort for testing
type mockChatPort struct {
	joinRoomFunc        func(ctx context.Context, actor domain.Claims, roomID, password string) (*chat.JoinResponse, error)
	kickMemberFunc      func(ctx context.Context, actor domain.Claims, roomID, username string) (*domain.Profile, error)
	roomHistoryFunc     func(ctx context.Context, actor domain.Claims, roomID, before string, limit int) ([]chatdomain.Message, error)
	sendMessageFunc     func(ctx context.Context, actor domain.Claims, roomID, content string) (*chatdomain.Message, error)
	sendDMFunc          func(ctx context.Context, actor domain.Claims, toUsername, content string) (*chatdomain.Message, error)
	listMembershipsFunc func(ctx context.Context, userID string) ([]string, error)
}

var _ chat.ChatPort = (*mockChatPort)(nil)

func (m *mockChatPort) CreateRoom(context.Context, chat.CreateRoomRequest) (*chatdomain.RoomSummary, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) ListRooms(context.Context, domain.Claims) ([]chatdomain.RoomSummary, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) GetRoom(context.Context, domain.Claims, string) (*chatdomain.RoomDetails, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) JoinRoom(ctx context.Context, actor domain.Claims, roomID, password string) (*chat.JoinResponse, error) {
	if m.joinRoomFunc != nil {
		return m.joinRoomFunc(ctx, actor, roomID, password)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) JoinByInvite(context.Context, domain.Claims, string) (*chat.JoinResponse, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) LeaveRoom(context.Context, domain.Claims, string) error {
	return errNotImplemented
}

func (m *mockChatPort) KickMember(ctx context.Context, actor domain.Claims, roomID, username string) (*domain.Profile, error) {
	if m.kickMemberFunc != nil {
		return m.kickMemberFunc(ctx, actor, roomID, username)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) BanMember(context.Context, domain.Claims, string, string) (*domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) UnbanMember(context.Context, domain.Claims, string, string) (*domain.Profile, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) DeleteRoom(context.Context, domain.Claims, string) error {
	return errNotImplemented
}

func (m *mockChatPort) ListMembers(context.Context, domain.Claims, string) ([]chatdomain.RoomMember, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) ListMemberships(ctx context.Context, userID string) ([]string, error) {
	if m.listMembershipsFunc != nil {
		return m.listMembershipsFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) SendMessage(ctx context.Context, actor domain.Claims, roomID, content string) (*chatdomain.Message, error) {
	if m.sendMessageFunc != nil {
		return m.sendMessageFunc(ctx, actor, roomID, content)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) EditMessage(context.Context, domain.Claims, string, string) (*chatdomain.Message, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) DeleteMessage(context.Context, domain.Claims, string) (*chatdomain.Message, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) RoomHistory(ctx context.Context, actor domain.Claims, roomID, before string, limit int) ([]chatdomain.Message, error) {
	if m.roomHistoryFunc != nil {
		return m.roomHistoryFunc(ctx, actor, roomID, before, limit)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) SendDM(ctx context.Context, actor domain.Claims, toUsername, content string) (*chatdomain.Message, error) {
	if m.sendDMFunc != nil {
		return m.sendDMFunc(ctx, actor, toUsername, content)
	}
	return nil, errNotImplemented
}

func (m *mockChatPort) DMHistory(context.Context, domain.Claims, string, string, int) ([]chatdomain.Message, error) {
	return nil, errNotImplemented
}

func (m *mockChatPort) ListDMThreads(context.Context, domain.Claims) ([]chatdomain.DMThread, error) {
	return nil, errNotImplemented
}

// mockAvatarStore implements AvatarStore for testing
type mockAvatarStore struct {
	uploadFunc func(ctx context.Context, userID string, data []byte, contentType string) (*avatar.UploadResult, error)
	getFunc    func(ctx context.Context, key string) ([]byte, error)
}

func (m *mockAvatarStore) Upload(ctx context.Context, userID string, data []byte, contentType string) (*avatar.UploadResult, error) {
	if m.uploadFunc != nil {
		return m.uploadFunc(ctx, userID, data, contentType)
	}
	return nil, errNotImplemented
}

func (m *mockAvatarStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, key)
	}
	return nil, errNotImplemented
}
