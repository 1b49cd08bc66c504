package friends

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/chat-server/domain/friend"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrRequestNotFound is returned when a friend request does not exist.
var ErrRequestNotFound = errors.New("friend request not found")

// ErrRequestExists is returned when the same request is already pending.
var ErrRequestExists = errors.New("friend request already sent")

// FriendRepository handles friend request and friendship persistence.
type FriendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new FriendRepository.
func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// CreateRequest inserts a pending request.
func (r *FriendRepository) CreateRequest(ctx context.Context, req *domain.FriendRequest) error {
	result := r.db.WithContext(ctx).Create(req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrRequestExists
		}
		return result.Error
	}
	return nil
}

// FindRequest retrieves a request by ID.
func (r *FriendRepository) FindRequest(ctx context.Context, id string) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, result.Error
	}
	return &req, nil
}

// FindPending retrieves the pending request from one user to another, if any.
func (r *FriendRepository) FindPending(ctx context.Context, fromID, toID string) (*domain.FriendRequest, error) {
	var req domain.FriendRequest
	result := r.db.WithContext(ctx).Where("from_id = ? AND to_id = ?", fromID, toID).First(&req)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, result.Error
	}
	return &req, nil
}

// ListIncoming returns requests addressed to the user, oldest first.
func (r *FriendRepository) ListIncoming(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	var reqs []domain.FriendRequest
	if err := r.db.WithContext(ctx).Where("to_id = ?", userID).Order("created_at").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListOutgoing returns requests the user has sent, oldest first.
func (r *FriendRepository) ListOutgoing(ctx context.Context, userID string) ([]domain.FriendRequest, error) {
	var reqs []domain.FriendRequest
	if err := r.db.WithContext(ctx).Where("from_id = ?", userID).Order("created_at").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

// DeleteRequest removes a request.
func (r *FriendRepository) DeleteRequest(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.FriendRequest{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// AcceptRequest deletes the request and stores both friendship directions atomically.
func (r *FriendRepository) AcceptRequest(ctx context.Context, req *domain.FriendRequest, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", req.ID).Delete(&domain.FriendRequest{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotFound
		}

		// A request in the other direction is satisfied by the same friendship.
		if err := tx.Where("from_id = ? AND to_id = ?", req.ToID, req.FromID).
			Delete(&domain.FriendRequest{}).Error; err != nil {
			return err
		}

		rows := []domain.Friendship{
			{UserID: req.FromID, FriendID: req.ToID, CreatedAt: now},
			{UserID: req.ToID, FriendID: req.FromID, CreatedAt: now},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

// AreFriends reports whether a friendship row exists from a to b.
func (r *FriendRepository) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Friendship{}).
		Where("user_id = ? AND friend_id = ?", a, b).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListFriendships returns the user's friendship rows, oldest first.
func (r *FriendRepository) ListFriendships(ctx context.Context, userID string) ([]domain.Friendship, error) {
	var rows []domain.Friendship
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountFriends returns how many friends the user has.
func (r *FriendRepository) CountFriends(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Friendship{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// RemoveFriendship deletes both directions and reports how many rows were removed.
func (r *FriendRepository) RemoveFriendship(ctx context.Context, a, b string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
			Delete(&domain.Friendship{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected
		return nil
	})
	return removed, err
}
