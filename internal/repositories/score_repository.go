package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// completionColumns are the event columns written by score changes.
var completionColumns = []string{"completed", "completed_at", "completed_by_id", "points_awarded"}

// ScoreChange is the ledger entry a score callback produces. A zero Amount
// writes no ledger row.
type ScoreChange struct {
	Amount          int64
	TransactionType string
	Description     string
}

// ScoreFunc mutates the locked event and user in place.
type ScoreFunc func(event *models.Event, user *models.User) (*ScoreChange, error)

type ScoreRepository struct {
	db *gorm.DB
}

func NewScoreRepository(db *gorm.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// CompleteEvent locks the event and the acting user, applies fn and saves
// both rows with the ledger entry in one transaction.
func (r *ScoreRepository) CompleteEvent(ctx context.Context, eventID, actorID uint, fn ScoreFunc) (*models.Event, *models.User, error) {
	return r.apply(ctx, eventID, func(*models.Event) (uint, error) {
		return actorID, nil
	}, fn)
}

// RevertEvent is CompleteEvent for the user who completed the event.
func (r *ScoreRepository) RevertEvent(ctx context.Context, eventID uint, fn ScoreFunc) (*models.Event, *models.User, error) {
	return r.apply(ctx, eventID, func(event *models.Event) (uint, error) {
		if !event.Completed || event.CompletedByID == nil {
			return 0, errors.New(errors.ErrCodeNotComplete, "event is not completed")
		}
		return *event.CompletedByID, nil
	}, fn)
}

func (r *ScoreRepository) apply(ctx context.Context, eventID uint, pick func(*models.Event) (uint, error), fn ScoreFunc) (*models.Event, *models.User, error) {
	var event models.Event
	var user models.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&event, eventID).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrCodeNotFound, "event not found")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get event")
		}

		userID, err := pick(&event)
		if err != nil {
			return err
		}

		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrCodeNotFound, "user not found")
			}
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to get user")
		}

		change, err := fn(&event, &user)
		if err != nil {
			return err
		}

		if err := tx.Model(&event).Select(completionColumns).Updates(&event).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update event")
		}
		if err := updateScore(tx, &user); err != nil {
			return err
		}

		if change == nil || change.Amount == 0 {
			return nil
		}
		entry := &models.PointTransaction{
			UserID:          user.ID,
			EventID:         &event.ID,
			Amount:          change.Amount,
			TransactionType: change.TransactionType,
			Description:     change.Description,
		}
		if err := tx.Omit(clause.Associations).Create(entry).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create transaction")
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &event, &user, nil
}

// GetTransactionHistory retrieves a user's ledger, newest first
func (r *ScoreRepository) GetTransactionHistory(ctx context.Context, userID uint, limit int) ([]models.PointTransaction, error) {
	var transactions []models.PointTransaction
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get transaction history")
	}
	return transactions, nil
}
