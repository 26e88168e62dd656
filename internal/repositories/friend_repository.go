package repositories

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type FriendRepository struct {
	db *gorm.DB
}

func NewFriendRepository(db *gorm.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

// SendFriendRequest creates a new pending friend request
func (r *FriendRepository) SendFriendRequest(ctx context.Context, fromID, toID uint) (*models.FriendRequest, error) {
	existing, err := r.PendingBetween(ctx, fromID, toID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New(errors.ErrCodeDuplicateRequest, "friend request already pending")
	}

	request := &models.FriendRequest{
		FromID: fromID,
		ToID:   toID,
		Status: models.FriendRequestStatusPending,
	}

	err = r.db.WithContext(ctx).Omit(clause.Associations).Create(request).Error
	if stderrors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, errors.New(errors.ErrCodeDuplicateRequest, "friend request already pending")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to create friend request")
	}

	return request, nil
}

// PendingBetween returns the pending request between two users in either
// direction, or nil.
func (r *FriendRepository) PendingBetween(ctx context.Context, a, b uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	result := r.db.WithContext(ctx).
		Where("pair_key = ? AND status = ?", models.PairKey(a, b), models.FriendRequestStatusPending).
		Limit(1).
		Find(&request)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to check pending requests")
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &request, nil
}

// GetRequestByID retrieves a friend request with both users loaded
func (r *FriendRepository) GetRequestByID(ctx context.Context, id uint) (*models.FriendRequest, error) {
	var request models.FriendRequest
	err := r.db.WithContext(ctx).Preload("From").Preload("To").First(&request, id).Error

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "friend request not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friend request")
	}
	return &request, nil
}

// AcceptFriendRequest marks the request accepted and links both users in
// one transaction. Linking is idempotent.
func (r *FriendRepository) AcceptFriendRequest(ctx context.Context, requestID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request models.FriendRequest
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&request, requestID).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrCodeNotFound, "friend request not found")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friend request")
		}

		if err := transition(tx, requestID, models.FriendRequestStatusAccepted); err != nil {
			return err
		}

		return addFriendPair(tx, request.FromID, request.ToID)
	})
}

// RejectFriendRequest rejects a friend request
func (r *FriendRepository) RejectFriendRequest(ctx context.Context, requestID uint) error {
	return transition(r.db.WithContext(ctx), requestID, models.FriendRequestStatusRejected)
}

func transition(tx *gorm.DB, requestID uint, status string) error {
	now := time.Now().UTC()
	// Hooks validate whole rows; this is a column update.
	result := tx.Session(&gorm.Session{SkipHooks: true}).Model(&models.FriendRequest{}).
		Where("id = ? AND status = ?", requestID, models.FriendRequestStatusPending).
		Updates(map[string]interface{}{"status": status, "responded_at": now})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update friend request")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeAlreadyProcessed, "friend request already processed")
	}
	return nil
}

func addFriendPair(tx *gorm.DB, a, b uint) error {
	rows := []models.UserFriend{
		{UserID: a, FriendID: b},
		{UserID: b, FriendID: a},
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to link friends")
	}
	return nil
}

// CancelFriendRequest deletes a request that is still pending
func (r *FriendRepository) CancelFriendRequest(ctx context.Context, requestID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", requestID, models.FriendRequestStatusPending).
		Delete(&models.FriendRequest{})

	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to cancel friend request")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeAlreadyProcessed, "friend request already processed")
	}
	return nil
}

// GetIncomingRequests retrieves pending requests addressed to a user
func (r *FriendRepository) GetIncomingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest

	err := r.db.WithContext(ctx).
		Where("to_id = ? AND status = ?", userID, models.FriendRequestStatusPending).
		Preload("From").
		Order("created_at DESC, id DESC").
		Find(&requests).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get incoming requests")
	}

	return requests, nil
}

// GetOutgoingRequests retrieves pending requests sent by a user
func (r *FriendRepository) GetOutgoingRequests(ctx context.Context, userID uint) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest

	err := r.db.WithContext(ctx).
		Where("from_id = ? AND status = ?", userID, models.FriendRequestStatusPending).
		Preload("To").
		Order("created_at DESC, id DESC").
		Find(&requests).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get outgoing requests")
	}

	return requests, nil
}

// GetFriends retrieves a user's friends in the order they were added
func (r *FriendRepository) GetFriends(ctx context.Context, userID uint) ([]models.User, error) {
	var friends []models.User

	err := r.db.WithContext(ctx).
		Joins("JOIN user_friends ON user_friends.friend_id = users.id").
		Where("user_friends.user_id = ?", userID).
		Order("user_friends.created_at ASC, users.id ASC").
		Find(&friends).Error

	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friends")
	}

	return friends, nil
}

// GetFriendIDs returns the ids in a user's friend list
func (r *FriendRepository) GetFriendIDs(ctx context.Context, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.UserFriend{}).
		Where("user_id = ?", userID).
		Pluck("friend_id", &ids).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get friends")
	}

	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// AreFriends checks if two users are friends
func (r *FriendRepository) AreFriends(ctx context.Context, user1ID, user2ID uint) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&models.UserFriend{}).
		Where("user_id = ? AND friend_id = ?", user1ID, user2ID).
		Count(&count)

	if result.Error != nil {
		return false, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to check friendship")
	}

	return count > 0, nil
}

// RemoveFriend unlinks both directions of a friendship and revokes the
// calendar and event shares the two users granted each other.
func (r *FriendRepository) RemoveFriend(ctx context.Context, user1ID, user2ID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where(
			"(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)",
			user1ID, user2ID, user2ID, user1ID,
		).Delete(&models.UserFriend{})

		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to remove friend")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotFound, "friendship not found")
		}

		for _, pair := range [][2]uint{{user1ID, user2ID}, {user2ID, user1ID}} {
			owned := tx.Model(&models.Calendar{}).Select("id").Where("owner_id = ?", pair[0])
			err := tx.Where("user_id = ? AND calendar_id IN (?)", pair[1], owned).
				Delete(&models.CalendarShare{}).Error
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to revoke calendar shares")
			}

			events := tx.Model(&models.Event{}).Select("id").Where("owner_id = ?", pair[0])
			err = tx.Where("user_id = ? AND event_id IN (?)", pair[1], events).
				Delete(&models.EventShare{}).Error
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternalError, "failed to revoke event shares")
			}
		}

		return nil
	})
}
