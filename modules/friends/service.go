package friends

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	domain "github.com/example/chat-server/domain/friend"
	"github.com/example/chat-server/domain/user"
	"github.com/google/uuid"
)

var (
	// ErrSelfRequest is returned when a user sends a request to themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrUserNotFound is returned when the target username does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAlreadyFriends is returned when the users are already friends.
	ErrAlreadyFriends = errors.New("already friends")
	// ErrNotRecipient is returned when someone other than the recipient responds to a request.
	ErrNotRecipient = errors.New("only the recipient can respond to a friend request")
	// ErrNotFriends is returned when removing someone who is not a friend.
	ErrNotFriends = errors.New("not friends")
)

// UserDirectory resolves users owned by the auth module.
type UserDirectory interface {
	FindUser(ctx context.Context, username string) (*user.Profile, error)
	GetUsers(ctx context.Context, userIDs []string) ([]user.Profile, error)
}

// FriendService implements the friend request workflow.
type FriendService struct {
	repo  *FriendRepository
	users UserDirectory
	now   func() time.Time
}

// NewFriendService creates a new FriendService.
func NewFriendService(repo *FriendRepository, users UserDirectory) *FriendService {
	return &FriendService{
		repo:  repo,
		users: users,
		now:   time.Now,
	}
}

// SendRequest sends a friend request. When the target already has a pending
// request to the sender, that request is accepted instead and accepted is true.
func (s *FriendService) SendRequest(ctx context.Context, fromID, fromName, toUsername string) (req *domain.FriendRequest, accepted bool, err error) {
	target, err := s.resolve(ctx, toUsername)
	if err != nil {
		return nil, false, err
	}
	if target.ID == fromID {
		return nil, false, ErrSelfRequest
	}

	friends, err := s.repo.AreFriends(ctx, fromID, target.ID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return nil, false, ErrAlreadyFriends
	}

	reverse, err := s.repo.FindPending(ctx, target.ID, fromID)
	switch {
	case err == nil:
		if err := s.repo.AcceptRequest(ctx, reverse, s.now()); err != nil {
			return nil, false, fmt.Errorf("failed to accept friend request: %w", err)
		}
		return reverse, true, nil
	case !errors.Is(err, ErrRequestNotFound):
		return nil, false, fmt.Errorf("failed to check pending requests: %w", err)
	}

	if _, err := s.repo.FindPending(ctx, fromID, target.ID); err == nil {
		return nil, false, ErrRequestExists
	} else if !errors.Is(err, ErrRequestNotFound) {
		return nil, false, fmt.Errorf("failed to check pending requests: %w", err)
	}

	req = &domain.FriendRequest{
		ID:        uuid.New().String(),
		FromID:    fromID,
		FromName:  fromName,
		ToID:      target.ID,
		ToName:    target.Username,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, ErrRequestExists) {
			return nil, false, err
		}
		return nil, false, fmt.Errorf("failed to create friend request: %w", err)
	}
	return req, false, nil
}

// ListRequests returns the user's pending requests.
func (s *FriendService) ListRequests(ctx context.Context, userID string) (*domain.RequestList, error) {
	incoming, err := s.repo.ListIncoming(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	outgoing, err := s.repo.ListOutgoing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", err)
	}
	return &domain.RequestList{Incoming: incoming, Outgoing: outgoing}, nil
}

// Respond accepts or declines a request addressed to userID.
func (s *FriendService) Respond(ctx context.Context, userID, requestID string, accept bool) (*domain.FriendRequest, error) {
	req, err := s.repo.FindRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ToID != userID {
		return nil, ErrNotRecipient
	}

	if !accept {
		if err := s.repo.DeleteRequest(ctx, req.ID); err != nil {
			return nil, err
		}
		return req, nil
	}

	if err := s.repo.AcceptRequest(ctx, req, s.now()); err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to accept friend request: %w", err)
	}
	return req, nil
}

// ListFriends returns the user's friends sorted by username.
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	rows, err := s.repo.ListFriendships(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	if len(rows) == 0 {
		return []domain.Friend{}, nil
	}

	since := make(map[string]time.Time, len(rows))
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		since[row.FriendID] = row.CreatedAt
		ids = append(ids, row.FriendID)
	}

	profiles, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load friend profiles: %w", err)
	}

	friends := make([]domain.Friend, 0, len(profiles))
	for _, p := range profiles {
		friends = append(friends, domain.Friend{
			ID:        p.ID,
			Username:  p.Username,
			AvatarURL: p.AvatarURL,
			Bio:       p.Bio,
			Since:     since[p.ID],
		})
	}
	sort.Slice(friends, func(i, j int) bool {
		return strings.ToLower(friends[i].Username) < strings.ToLower(friends[j].Username)
	})
	return friends, nil
}

// RemoveFriend ends a friendship in both directions and returns the former friend.
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendUsername string) (*user.Profile, error) {
	target, err := s.resolve(ctx, friendUsername)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.RemoveFriendship(ctx, userID, target.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to remove friend: %w", err)
	}
	if removed == 0 {
		return nil, ErrNotFriends
	}
	return target, nil
}

// AreFriends reports whether the two users are friends.
func (s *FriendService) AreFriends(ctx context.Context, a, b string) (bool, error) {
	return s.repo.AreFriends(ctx, a, b)
}

// CountFriends returns the number of friends the user has.
func (s *FriendService) CountFriends(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountFriends(ctx, userID)
}

// resolve maps a username to a profile. Errors from the directory arrive as
// text over request-reply, so not-found is recognised by message.
func (s *FriendService) resolve(ctx context.Context, username string) (*user.Profile, error) {
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
