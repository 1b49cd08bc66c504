package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	domain "github.com/example/chat-server/domain/chat"
	"github.com/example/chat-server/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeDirectory map[string]user.Profile

func (d fakeDirectory) FindUser(_ context.Context, username string) (*user.Profile, error) {
	p, ok := d[strings.ToLower(username)]
	if !ok {
		return nil, fmt.Errorf("find-user request failed: %w", errors.New("user not found"))
	}
	return &p, nil
}

type fakeFriends map[string]bool

func (f fakeFriends) AreFriends(_ context.Context, a, b string) (bool, error) {
	return f[a+"|"+b] || f[b+"|"+a], nil
}

type testEnv struct {
	svc     *ChatService
	repo    *ChatRepository
	friends fakeFriends
	clock   time.Time
}

func claims(name string) user.Claims {
	return user.Claims{UserID: "id-" + name, Username: name}
}

func setupTestService(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&domain.Room{}, &domain.RoomMember{}, &domain.RoomBan{}, &domain.Message{}))

	dir := fakeDirectory{}
	for _, name := range []string{"alice", "bob", "carol", "root"} {
		dir[name] = user.Profile{ID: "id-" + name, Username: name}
	}
	dir["mallory"] = user.Profile{ID: "id-mallory", Username: "mallory", Banned: true}

	env := &testEnv{
		repo:    NewChatRepository(db),
		friends: fakeFriends{},
		clock:   time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	env.svc, err = NewChatService(env.repo, dir, env.friends)
	require.NoError(t, err)
	env.svc.passwordCost = bcrypt.MinCost
	env.svc.now = func() time.Time {
		env.clock = env.clock.Add(time.Second)
		return env.clock
	}
	return env
}

func (e *testEnv) createRoom(t *testing.T, owner string, in CreateRoomInput) *domain.Room {
	t.Helper()
	room, err := e.svc.CreateRoom(context.Background(), claims(owner), in)
	require.NoError(t, err)
	return room
}

func TestCreateRoom(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	room := env.createRoom(t, "alice", CreateRoomInput{Name: "  Lobby  "})
	assert.Equal(t, "Lobby", room.Name)
	assert.Equal(t, "id-alice", room.OwnerID)
	assert.True(t, IsValidInviteCode(room.InviteCode))
	assert.False(t, room.HasPassword())

	member, err := env.repo.IsMember(ctx, room.ID, "id-alice")
	require.NoError(t, err)
	assert.True(t, member, "owner should be a member")

	_, err = env.svc.CreateRoom(ctx, claims("bob"), CreateRoomInput{Name: "lobby"})
	assert.ErrorIs(t, err, ErrRoomExists)

	_, err = env.svc.CreateRoom(ctx, claims("bob"), CreateRoomInput{Name: "   "})
	assert.ErrorIs(t, err, ErrInvalidRoomName)

	_, err = env.svc.CreateRoom(ctx, claims("bob"), CreateRoomInput{Name: strings.Repeat("x", MaxRoomNameLength+1)})
	assert.ErrorIs(t, err, ErrInvalidRoomName)

	secret := env.createRoom(t, "bob", CreateRoomInput{Name: "secret", Password: "hunter22"})
	assert.True(t, secret.HasPassword())
	assert.NotEqual(t, "hunter22", secret.PasswordHash)
}

func TestEnsureDefaultRoom(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	room, created, err := env.svc.EnsureDefaultRoom(ctx)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, DefaultRoomName, room.Name)
	assert.Equal(t, SystemUserID, room.OwnerID)

	again, created, err := env.svc.EnsureDefaultRoom(ctx)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)

	_, err = env.svc.LeaveRoom(ctx, claims("alice"), room.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestListRooms_HidesInviteOnly(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	open := env.createRoom(t, "alice", CreateRoomInput{Name: "open"})
	env.createRoom(t, "alice", CreateRoomInput{Name: "locked", Password: "pw123456"})
	env.createRoom(t, "alice", CreateRoomInput{Name: "hidden", InviteOnly: true})

	_, _, err := env.svc.JoinRoom(ctx, claims("bob"), open.ID, "")
	require.NoError(t, err)

	rooms, err := env.svc.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	byName := map[string]domain.RoomSummary{}
	for _, r := range rooms {
		byName[r.Name] = r
	}
	assert.Equal(t, int64(2), byName["open"].Members)
	assert.False(t, byName["open"].Private)
	assert.True(t, byName["locked"].Private)
	assert.Equal(t, "alice", byName["locked"].Owner)
}

func TestGetRoom_Visibility(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	hidden := env.createRoom(t, "alice", CreateRoomInput{Name: "hidden", InviteOnly: true})

	details, err := env.svc.GetRoom(ctx, claims("alice"), hidden.ID)
	require.NoError(t, err)
	assert.Equal(t, hidden.InviteCode, details.InviteCode)
	assert.True(t, details.Member)

	_, err = env.svc.GetRoom(ctx, claims("bob"), hidden.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = env.svc.JoinByInvite(ctx, claims("bob"), hidden.InviteCode)
	require.NoError(t, err)
	details, err = env.svc.GetRoom(ctx, claims("bob"), hidden.ID)
	require.NoError(t, err)
	assert.Empty(t, details.InviteCode, "only the owner sees the invite code")
	assert.Equal(t, int64(2), details.Members)
}

func TestJoinRoom(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	locked := env.createRoom(t, "alice", CreateRoomInput{Name: "locked", Password: "pw123456"})
	hidden := env.createRoom(t, "alice", CreateRoomInput{Name: "hidden", InviteOnly: true})

	_, _, err := env.svc.JoinRoom(ctx, claims("bob"), locked.ID, "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)

	_, joined, err := env.svc.JoinRoom(ctx, claims("bob"), locked.ID, "pw123456")
	require.NoError(t, err)
	assert.True(t, joined)

	_, joined, err = env.svc.JoinRoom(ctx, claims("bob"), locked.ID, "")
	require.NoError(t, err)
	assert.False(t, joined, "rejoining is a no-op")

	_, _, err = env.svc.JoinRoom(ctx, claims("bob"), hidden.ID, "")
	assert.ErrorIs(t, err, ErrInviteRequired)

	_, _, err = env.svc.JoinRoom(ctx, claims("bob"), "missing", "")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, _, err = env.svc.JoinByInvite(ctx, claims("bob"), "nope")
	assert.ErrorIs(t, err, ErrInvalidInvite)
	_, _, err = env.svc.JoinByInvite(ctx, claims("bob"), "ZZZZZZZZ")
	assert.ErrorIs(t, err, ErrInvalidInvite)

	_, joined, err = env.svc.JoinByInvite(ctx, claims("carol"), locked.InviteCode)
	require.NoError(t, err)
	assert.True(t, joined, "invite bypasses the password")
}

func TestLeaveRoom(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})

	_, err := env.svc.LeaveRoom(ctx, claims("alice"), room.ID)
	assert.ErrorIs(t, err, ErrOwnerCannotLeave)

	_, _, err = env.svc.JoinRoom(ctx, claims("bob"), room.ID, "")
	require.NoError(t, err)
	_, err = env.svc.LeaveRoom(ctx, claims("bob"), room.ID)
	require.NoError(t, err)
	_, err = env.svc.LeaveRoom(ctx, claims("bob"), room.ID)
	assert.ErrorIs(t, err, ErrNotMember)
}

func TestKickAndBan(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})

	for _, name := range []string{"bob", "carol"} {
		_, _, err := env.svc.JoinRoom(ctx, claims(name), room.ID, "")
		require.NoError(t, err)
	}

	_, _, err := env.svc.KickMember(ctx, claims("bob"), room.ID, "carol")
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = env.svc.KickMember(ctx, claims("alice"), room.ID, "alice")
	assert.ErrorIs(t, err, ErrCannotTargetOwner)

	_, target, err := env.svc.KickMember(ctx, claims("alice"), room.ID, "carol")
	require.NoError(t, err)
	assert.Equal(t, "id-carol", target.ID)

	_, _, err = env.svc.KickMember(ctx, claims("alice"), room.ID, "carol")
	assert.ErrorIs(t, err, ErrTargetNotMember)

	_, joined, err := env.svc.JoinRoom(ctx, claims("carol"), room.ID, "")
	require.NoError(t, err)
	assert.True(t, joined, "kicked users may rejoin")

	_, _, err = env.svc.BanMember(ctx, claims("alice"), room.ID, "bob")
	require.NoError(t, err)

	member, err := env.repo.IsMember(ctx, room.ID, "id-bob")
	require.NoError(t, err)
	assert.False(t, member, "ban removes membership")

	_, _, err = env.svc.JoinRoom(ctx, claims("bob"), room.ID, "")
	assert.ErrorIs(t, err, ErrBanned)
	_, _, err = env.svc.JoinByInvite(ctx, claims("bob"), room.InviteCode)
	assert.ErrorIs(t, err, ErrBanned, "invites do not bypass bans")

	_, _, err = env.svc.UnbanMember(ctx, claims("alice"), room.ID, "bob")
	require.NoError(t, err)
	_, _, err = env.svc.UnbanMember(ctx, claims("alice"), room.ID, "bob")
	assert.ErrorIs(t, err, ErrNotBanned)

	_, joined, err = env.svc.JoinRoom(ctx, claims("bob"), room.ID, "")
	require.NoError(t, err)
	assert.True(t, joined)

	_, _, err = env.svc.BanMember(ctx, claims("alice"), room.ID, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAdminCanModerate(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})
	_, _, err := env.svc.JoinRoom(ctx, claims("bob"), room.ID, "")
	require.NoError(t, err)

	admin := claims("root")
	admin.Admin = true

	_, _, err = env.svc.KickMember(ctx, admin, room.ID, "bob")
	require.NoError(t, err)

	_, err = env.svc.DeleteRoom(ctx, claims("bob"), room.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.DeleteRoom(ctx, admin, room.ID)
	require.NoError(t, err)
	_, err = env.repo.FindRoom(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestDeleteRoom_RemovesEverything(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})

	msg, _, err := env.svc.SendMessage(ctx, claims("alice"), room.ID, "hello")
	require.NoError(t, err)
	_, _, err = env.svc.BanMember(ctx, claims("alice"), room.ID, "bob")
	require.NoError(t, err)

	_, err = env.svc.DeleteRoom(ctx, claims("alice"), room.ID)
	require.NoError(t, err)

	_, err = env.repo.FindMessage(ctx, msg.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
	banned, err := env.repo.IsBanned(ctx, room.ID, "id-bob")
	require.NoError(t, err)
	assert.False(t, banned)

	// The name is free again.
	env.createRoom(t, "bob", CreateRoomInput{Name: "room"})
}

func TestMessages(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})
	_, _, err := env.svc.JoinRoom(ctx, claims("bob"), room.ID, "")
	require.NoError(t, err)

	_, _, err = env.svc.SendMessage(ctx, claims("carol"), room.ID, "hi")
	assert.ErrorIs(t, err, ErrNotMember)
	_, _, err = env.svc.SendMessage(ctx, claims("bob"), room.ID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	_, _, err = env.svc.SendMessage(ctx, claims("bob"), room.ID, strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	msg, _, err := env.svc.SendMessage(ctx, claims("bob"), room.ID, " hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "bob", msg.SenderName)

	_, err = env.svc.EditMessage(ctx, claims("alice"), msg.ID, "hijack")
	assert.ErrorIs(t, err, ErrNotSender)

	edited, err := env.svc.EditMessage(ctx, claims("bob"), msg.ID, "hello world")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)

	stored, err := env.repo.FindMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello world", stored.Content)
	assert.True(t, stored.Edited)

	_, err = env.svc.EditMessage(ctx, claims("bob"), "missing", "x")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestDeleteMessage_Permissions(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})
	for _, name := range []string{"bob", "carol"} {
		_, _, err := env.svc.JoinRoom(ctx, claims(name), room.ID, "")
		require.NoError(t, err)
	}

	first, _, err := env.svc.SendMessage(ctx, claims("bob"), room.ID, "one")
	require.NoError(t, err)
	second, _, err := env.svc.SendMessage(ctx, claims("bob"), room.ID, "two")
	require.NoError(t, err)
	third, _, err := env.svc.SendMessage(ctx, claims("bob"), room.ID, "three")
	require.NoError(t, err)

	_, err = env.svc.DeleteMessage(ctx, claims("carol"), first.ID)
	assert.ErrorIs(t, err, ErrCannotDelete)

	_, err = env.svc.DeleteMessage(ctx, claims("bob"), first.ID)
	require.NoError(t, err, "sender may delete")
	_, err = env.svc.DeleteMessage(ctx, claims("alice"), second.ID)
	require.NoError(t, err, "room owner may delete")

	admin := claims("root")
	admin.Admin = true
	_, err = env.svc.DeleteMessage(ctx, admin, third.ID)
	require.NoError(t, err, "admin may delete")

	_, err = env.svc.DeleteMessage(ctx, claims("bob"), first.ID)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestRoomHistory_Pagination(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	room := env.createRoom(t, "alice", CreateRoomInput{Name: "room"})

	var ids []string
	for i := 0; i < 7; i++ {
		msg, _, err := env.svc.SendMessage(ctx, claims("alice"), room.ID, fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	page, err := env.svc.RoomHistory(ctx, claims("alice"), room.ID, "", 3)
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"m4", "m5", "m6"}, contents(page))

	page, err = env.svc.RoomHistory(ctx, claims("alice"), room.ID, page[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2", "m3"}, contents(page))

	page, err = env.svc.RoomHistory(ctx, claims("alice"), room.ID, page[0].ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m0"}, contents(page))

	all, err := env.svc.RoomHistory(ctx, claims("alice"), room.ID, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 7)

	_, err = env.svc.RoomHistory(ctx, claims("bob"), room.ID, "", 10)
	assert.ErrorIs(t, err, ErrNotMember)

	_, err = env.svc.RoomHistory(ctx, claims("alice"), room.ID, "unknown", 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	other := env.createRoom(t, "alice", CreateRoomInput{Name: "other"})
	_, err = env.svc.RoomHistory(ctx, claims("alice"), other.ID, ids[0], 10)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}

func TestDirectMessages(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()

	_, err := env.svc.SendDM(ctx, claims("alice"), "bob", "hi")
	assert.ErrorIs(t, err, ErrNotFriends)
	_, err = env.svc.SendDM(ctx, claims("alice"), "alice", "hi")
	assert.ErrorIs(t, err, ErrSelfMessage)
	_, err = env.svc.SendDM(ctx, claims("alice"), "nobody", "hi")
	assert.ErrorIs(t, err, ErrUserNotFound)

	env.friends["id-alice|id-bob"] = true

	first, err := env.svc.SendDM(ctx, claims("alice"), "bob", "hi bob")
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadKey("id-alice", "id-bob"), first.ThreadKey)
	assert.Equal(t, "id-bob", first.RecipientID)
	assert.True(t, first.IsDirect())

	_, err = env.svc.SendDM(ctx, claims("bob"), "ALICE", "hi alice")
	require.NoError(t, err)

	admin := claims("root")
	admin.Admin = true
	_, err = env.svc.SendDM(ctx, admin, "alice", "admin notice")
	require.NoError(t, err, "admins may message anyone")

	history, err := env.svc.DMHistory(ctx, claims("bob"), "alice", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"hi bob", "hi alice"}, contents(history))

	threads, err := env.svc.ListDMThreads(ctx, claims("alice"))
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "root", threads[0].PeerName)
	assert.Equal(t, "admin notice", threads[0].LastMessage.Content)
	assert.Equal(t, "bob", threads[1].PeerName)
	assert.Equal(t, "hi alice", threads[1].LastMessage.Content)

	bobThreads, err := env.svc.ListDMThreads(ctx, claims("bob"))
	require.NoError(t, err)
	require.Len(t, bobThreads, 1)
	assert.Equal(t, "id-alice", bobThreads[0].PeerID)
	assert.Equal(t, "alice", bobThreads[0].PeerName)

	_, err = env.svc.EditMessage(ctx, claims("bob"), first.ID, "edit")
	assert.ErrorIs(t, err, ErrNotSender)
	_, err = env.svc.DeleteMessage(ctx, claims("bob"), first.ID)
	assert.ErrorIs(t, err, ErrCannotDelete)
}

func TestLatestPerThread_SameTimestamp(t *testing.T) {
	env := setupTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	dm := func(id, to string, createdAt time.Time) {
		require.NoError(t, env.repo.CreateMessage(ctx, &domain.Message{
			ID:            id,
			ThreadKey:     domain.ThreadKey("id-alice", "id-"+to),
			SenderID:      "id-alice",
			SenderName:    "alice",
			RecipientID:   "id-" + to,
			RecipientName: to,
			Content:       id,
			CreatedAt:     createdAt,
		}))
	}
	dm("bob-1", "bob", at)
	dm("bob-2", "bob", at)
	dm("carol-1", "carol", at.Add(-time.Minute))

	latest, err := env.repo.LatestPerThread(ctx, "id-alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob-2", "carol-1"}, contents(latest))

	threads, err := env.svc.ListDMThreads(ctx, claims("alice"))
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, "bob", threads[0].PeerName)
	assert.Equal(t, "carol", threads[1].PeerName)
}

func TestSendDM_BannedRecipient(t *testing.T) {
	env := setupTestService(t)
	env.friends["id-alice|id-mallory"] = true

	_, err := env.svc.SendDM(context.Background(), claims("alice"), "mallory", "hi")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultHistoryLimit},
		{in: -5, want: DefaultHistoryLimit},
		{in: 10, want: 10},
		{in: MaxHistoryLimit + 1, want: MaxHistoryLimit},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func contents(msgs []domain.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
