package chat

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/chat-server/domain/chat"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRoomNotFound is returned when a room does not exist or is hidden from the caller.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomExists is returned when a room name is taken.
	ErrRoomExists = errors.New("room name is already taken")
	// ErrMessageNotFound is returned when a message does not exist.
	ErrMessageNotFound = errors.New("message not found")
)

// ChatRepository handles room, membership and message persistence.
type ChatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// CreateRoom inserts a room and, when owner is non-nil, the owner's membership.
func (r *ChatRepository) CreateRoom(ctx context.Context, room *domain.Room, owner *domain.RoomMember) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		if owner == nil {
			return nil
		}
		return tx.Create(owner).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrRoomExists
	}
	return err
}

// FindRoom retrieves a room by ID.
func (r *ChatRepository) FindRoom(ctx context.Context, id string) (*domain.Room, error) {
	return r.firstRoom(ctx, "id = ?", id)
}

// FindRoomByName retrieves a room by its case-insensitive name key.
func (r *ChatRepository) FindRoomByName(ctx context.Context, nameKey string) (*domain.Room, error) {
	return r.firstRoom(ctx, "name_key = ?", nameKey)
}

// FindRoomByInvite retrieves a room by invite code.
func (r *ChatRepository) FindRoomByInvite(ctx context.Context, code string) (*domain.Room, error) {
	return r.firstRoom(ctx, "invite_code = ?", code)
}

func (r *ChatRepository) firstRoom(ctx context.Context, query string, arg any) (*domain.Room, error) {
	var room domain.Room
	result := r.db.WithContext(ctx).Where(query, arg).First(&room)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, result.Error
	}
	return &room, nil
}

// ListListedRooms returns rooms that are not invite-only, ordered by name.
func (r *ChatRepository) ListListedRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := r.db.WithContext(ctx).Where("invite_only = ?", false).Order("name_key").Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

type memberCount struct {
	RoomID string
	Count  int64
}

// CountMembers returns the member count per room for the given rooms.
func (r *ChatRepository) CountMembers(ctx context.Context, roomIDs []string) (map[string]int64, error) {
	counts := make(map[string]int64, len(roomIDs))
	if len(roomIDs) == 0 {
		return counts, nil
	}

	var rows []memberCount
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Select("room_id, COUNT(*) AS count").
		Where("room_id IN ?", roomIDs).
		Group("room_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.RoomID] = row.Count
	}
	return counts, nil
}

// IsMember reports whether the user belongs to the room.
func (r *ChatRepository) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsBanned reports whether the user is banned from the room.
func (r *ChatRepository) IsBanned(ctx context.Context, roomID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.RoomBan{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// AddMember inserts a membership unless the user is banned. It reports
// whether a new row was written.
func (r *ChatRepository) AddMember(ctx context.Context, member *domain.RoomMember) (bool, error) {
	var added bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bans int64
		if err := tx.Model(&domain.RoomBan{}).
			Where("room_id = ? AND user_id = ?", member.RoomID, member.UserID).
			Count(&bans).Error; err != nil {
			return err
		}
		if bans > 0 {
			return ErrBanned
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(member)
		if result.Error != nil {
			return result.Error
		}
		added = result.RowsAffected > 0
		return nil
	})
	return added, err
}

// RemoveMember deletes a membership and reports whether it existed.
func (r *ChatRepository) RemoveMember(ctx context.Context, roomID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.RoomMember{})
	return result.RowsAffected > 0, result.Error
}

// BanMember removes any membership and records the ban in one transaction.
// It reports whether the user was a member.
func (r *ChatRepository) BanMember(ctx context.Context, ban *domain.RoomBan) (bool, error) {
	var wasMember bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("room_id = ? AND user_id = ?", ban.RoomID, ban.UserID).Delete(&domain.RoomMember{})
		if result.Error != nil {
			return result.Error
		}
		wasMember = result.RowsAffected > 0
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(ban).Error
	})
	return wasMember, err
}

// Unban lifts a ban and reports whether one existed.
func (r *ChatRepository) Unban(ctx context.Context, roomID, userID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.RoomBan{})
	return result.RowsAffected > 0, result.Error
}

// ListMembers returns the members of a room in join order.
func (r *ChatRepository) ListMembers(ctx context.Context, roomID string) ([]domain.RoomMember, error) {
	var members []domain.RoomMember
	if err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("joined_at").Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// ListMemberships returns the IDs of the rooms the user belongs to.
func (r *ChatRepository) ListMemberships(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.RoomMember{}).
		Where("user_id = ?", userID).
		Pluck("room_id", &ids).Error
	return ids, err
}

// DeleteRoom removes a room together with its members, bans and messages.
func (r *ChatRepository) DeleteRoom(ctx context.Context, roomID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RoomBan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RoomMember{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", roomID).Delete(&domain.Room{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRoomNotFound
		}
		return nil
	})
}

// CreateMessage stores a message.
func (r *ChatRepository) CreateMessage(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// FindMessage retrieves a message by ID.
func (r *ChatRepository) FindMessage(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&msg)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return &msg, nil
}

// UpdateMessageContent replaces a message's text and marks it edited.
func (r *ChatRepository) UpdateMessageContent(ctx context.Context, id, content string, editedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).Where("id = ?", id).Updates(map[string]any{
		"content":   content,
		"edited":    true,
		"edited_at": editedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// DeleteMessage removes a message.
func (r *ChatRepository) DeleteMessage(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// RoomHistory returns up to limit room messages created before the cursor, oldest first.
// A nil cursor starts from the newest message.
func (r *ChatRepository) RoomHistory(ctx context.Context, roomID string, before *domain.Message, limit int) ([]domain.Message, error) {
	return r.history(ctx, "room_id = ?", roomID, before, limit)
}

// ThreadHistory returns up to limit direct messages of a thread created before the cursor, oldest first.
func (r *ChatRepository) ThreadHistory(ctx context.Context, threadKey string, before *domain.Message, limit int) ([]domain.Message, error) {
	return r.history(ctx, "thread_key = ?", threadKey, before, limit)
}

func (r *ChatRepository) history(ctx context.Context, scope string, key string, before *domain.Message, limit int) ([]domain.Message, error) {
	query := r.db.WithContext(ctx).Where(scope, key)
	if before != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			before.CreatedAt, before.CreatedAt, before.ID)
	}

	var msgs []domain.Message
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// LatestPerThread returns the newest message of each DM thread the user takes part in,
// newest thread first. Messages sharing a timestamp are ordered by ID, so each
// thread contributes exactly one row.
func (r *ChatRepository) LatestPerThread(ctx context.Context, userID string, limit int) ([]domain.Message, error) {
	var msgs []domain.Message
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.* FROM messages m
		WHERE m.id IN (
			SELECT (
				SELECT x.id FROM messages x
				WHERE x.thread_key = t.thread_key
				ORDER BY x.created_at DESC, x.id DESC
				LIMIT 1
			)
			FROM (
				SELECT DISTINCT thread_key FROM messages
				WHERE thread_key <> '' AND (sender_id = ? OR recipient_id = ?)
			) t
		)
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, userID, userID, limit).Scan(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
