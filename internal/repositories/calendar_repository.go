package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CalendarRepository struct {
	db *gorm.DB
}

func NewCalendarRepository(db *gorm.DB) *CalendarRepository {
	return &CalendarRepository{db: db}
}

func (r *CalendarRepository) CreateCalendar(ctx context.Context, calendar *models.Calendar) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(calendar).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create calendar")
	}
	return nil
}

// GetCalendarByID loads a calendar with its share entries and their users
func (r *CalendarRepository) GetCalendarByID(ctx context.Context, id uint) (*models.Calendar, error) {
	var calendar models.Calendar
	err := r.db.WithContext(ctx).
		Preload("SharedWith", func(db *gorm.DB) *gorm.DB { return db.Order("calendar_shares.id ASC") }).
		Preload("SharedWith.User").
		First(&calendar, id).Error

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "calendar not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get calendar")
	}
	return &calendar, nil
}

func (r *CalendarRepository) UpdateCalendar(ctx context.Context, calendar *models.Calendar) error {
	result := r.db.WithContext(ctx).Model(calendar).
		Select("name", "color", "description").
		Updates(calendar)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update calendar")
	}
	return nil
}

// DeleteCalendar removes a calendar together with its events, their shares
// and the calendar's own shares.
func (r *CalendarRepository) DeleteCalendar(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		eventIDs := tx.Model(&models.Event{}).Select("id").Where("calendar_id = ?", id)

		if err := tx.Where("event_id IN (?)", eventIDs).Delete(&models.EventShare{}).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete event shares")
		}
		if err := tx.Where("calendar_id = ?", id).Delete(&models.Event{}).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete calendar events")
		}
		if err := tx.Where("calendar_id = ?", id).Delete(&models.CalendarShare{}).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete calendar shares")
		}

		result := tx.Delete(&models.Calendar{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to delete calendar")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotFound, "calendar not found")
		}
		return nil
	})
}

// GetOwnedCalendars lists the calendars a user owns
func (r *CalendarRepository) GetOwnedCalendars(ctx context.Context, userID uint) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", userID).
		Preload("SharedWith", func(db *gorm.DB) *gorm.DB { return db.Order("calendar_shares.id ASC") }).
		Preload("SharedWith.User").
		Order("id ASC").
		Find(&calendars).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get calendars")
	}
	return calendars, nil
}

// GetSharedCalendars lists the calendars shared with a user, owner loaded
func (r *CalendarRepository) GetSharedCalendars(ctx context.Context, userID uint) ([]models.Calendar, error) {
	var calendars []models.Calendar
	err := r.db.WithContext(ctx).
		Joins("JOIN calendar_shares ON calendar_shares.calendar_id = calendars.id").
		Where("calendar_shares.user_id = ? AND calendars.owner_id <> ?", userID, userID).
		Preload("Owner").
		Preload("SharedWith", func(db *gorm.DB) *gorm.DB { return db.Order("calendar_shares.id ASC") }).
		Preload("SharedWith.User").
		Order("calendars.id ASC").
		Find(&calendars).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get shared calendars")
	}
	return calendars, nil
}

// AddShares inserts share entries; entries that already exist are left as they are.
func (r *CalendarRepository) AddShares(ctx context.Context, shares []models.CalendarShare) error {
	if len(shares) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&shares).Error
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to share calendar")
	}
	return nil
}

// RemoveShare deletes one user's share entry
func (r *CalendarRepository) RemoveShare(ctx context.Context, calendarID, userID uint) error {
	result := r.db.WithContext(ctx).
		Where("calendar_id = ? AND user_id = ?", calendarID, userID).
		Delete(&models.CalendarShare{})
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to unshare calendar")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrCodeNotFound, "user is not in the calendar's share list")
	}
	return nil
}
