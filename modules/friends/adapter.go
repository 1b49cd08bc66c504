package friends

import (
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/example/chat-server/domain/friend"
	"github.com/example/chat-server/domain/user"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// FriendsPort is how other modules reach the friends module.
type FriendsPort interface {
	SendRequest(ctx context.Context, fromID, fromName, toUsername string) (*SendRequestResponse, error)
	ListRequests(ctx context.Context, userID string) (*domain.RequestList, error)
	Respond(ctx context.Context, userID, requestID string, accept bool) (*domain.FriendRequest, error)
	ListFriends(ctx context.Context, userID string) ([]domain.Friend, error)
	RemoveFriend(ctx context.Context, userID, username, friendUsername string) (*user.Profile, error)
	AreFriends(ctx context.Context, userID, otherID string) (bool, error)
	CountFriends(ctx context.Context, userID string) (int64, error)
}

// FriendsAdapter implements FriendsPort using the service container.
type FriendsAdapter struct {
	container mono.ServiceContainer
}

var _ FriendsPort = (*FriendsAdapter)(nil)

// NewFriendsAdapter creates a new FriendsAdapter.
func NewFriendsAdapter(container mono.ServiceContainer) *FriendsAdapter {
	return &FriendsAdapter{container: container}
}

func callService[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

// SendRequest sends a friend request.
func (a *FriendsAdapter) SendRequest(ctx context.Context, fromID, fromName, toUsername string) (*SendRequestResponse, error) {
	req := SendRequestRequest{FromID: fromID, FromName: fromName, ToUsername: toUsername}
	var resp SendRequestResponse
	if err := callService(ctx, a.container, "send-request", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListRequests lists pending requests.
func (a *FriendsAdapter) ListRequests(ctx context.Context, userID string) (*domain.RequestList, error) {
	req := UserRequest{UserID: userID}
	var resp domain.RequestList
	if err := callService(ctx, a.container, "list-requests", &req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Respond accepts or declines a request.
func (a *FriendsAdapter) Respond(ctx context.Context, userID, requestID string, accept bool) (*domain.FriendRequest, error) {
	req := RespondRequest{UserID: userID, RequestID: requestID, Accept: accept}
	var resp RespondResponse
	if err := callService(ctx, a.container, "respond", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Request, nil
}

// ListFriends lists the user's friends.
func (a *FriendsAdapter) ListFriends(ctx context.Context, userID string) ([]domain.Friend, error) {
	req := UserRequest{UserID: userID}
	var resp ListFriendsResponse
	if err := callService(ctx, a.container, "list-friends", &req, &resp); err != nil {
		return nil, err
	}
	return resp.Friends, nil
}

// RemoveFriend ends a friendship.
func (a *FriendsAdapter) RemoveFriend(ctx context.Context, userID, username, friendUsername string) (*user.Profile, error) {
	req := RemoveFriendRequest{UserID: userID, Username: username, FriendUsername: friendUsername}
	var resp RemoveFriendResponse
	if err := callService(ctx, a.container, "remove-friend", &req, &resp); err != nil {
		return nil, err
	}
	return &resp.Friend, nil
}

// AreFriends checks whether two users are friends.
func (a *FriendsAdapter) AreFriends(ctx context.Context, userID, otherID string) (bool, error) {
	req := AreFriendsRequest{UserID: userID, OtherID: otherID}
	var resp AreFriendsResponse
	if err := callService(ctx, a.container, "are-friends", &req, &resp); err != nil {
		return false, err
	}
	return resp.Friends, nil
}

// CountFriends counts the user's friends.
func (a *FriendsAdapter) CountFriends(ctx context.Context, userID string) (int64, error) {
	req := UserRequest{UserID: userID}
	var resp CountFriendsResponse
	if err := callService(ctx, a.container, "count-friends", &req, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}
