package repositories

import (
	"context"
	stderrors "errors"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// eventColumns are the columns an event update may write.
var eventColumns = []string{
	"title", "date", "time", "end_time", "all_day", "details", "location", "color",
	"recurrence_frequency", "recurrence_interval", "recurrence_until", "calendar_id",
}

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// CreateEvent stores an event and its share list in one transaction
func (r *EventRepository) CreateEvent(ctx context.Context, event *models.Event, sharedWith []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(event).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to create event")
		}
		return replaceShares(tx, event, sharedWith)
	})
}

// UpdateEvent writes the editable columns; a nil sharedWith keeps the
// current share list.
func (r *EventRepository) UpdateEvent(ctx context.Context, event *models.Event, sharedWith []uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(event).Select(eventColumns).Updates(event).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to update event")
		}
		if sharedWith == nil {
			return nil
		}
		return replaceShares(tx, event, sharedWith)
	})
}

func replaceShares(tx *gorm.DB, event *models.Event, userIDs []uint) error {
	if err := tx.Where("event_id = ?", event.ID).Delete(&models.EventShare{}).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to clear event shares")
	}

	event.SharedWith = make([]models.EventShare, 0, len(userIDs))
	for _, id := range userIDs {
		event.SharedWith = append(event.SharedWith, models.EventShare{EventID: event.ID, UserID: id})
	}
	if len(event.SharedWith) == 0 {
		return nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&event.SharedWith).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeInternalError, "failed to share event")
	}
	return nil
}

// GetEventByID loads an event with its share list
func (r *EventRepository) GetEventByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).Preload("SharedWith").First(&event, id).Error

	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "event not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get event")
	}
	return &event, nil
}

func (r *EventRepository) DeleteEvent(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.EventShare{}).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeInternalError, "failed to delete event shares")
		}
		result := tx.Delete(&models.Event{}, id)
		if result.Error != nil {
			return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to delete event")
		}
		if result.RowsAffected == 0 {
			return errors.New(errors.ErrCodeNotFound, "event not found")
		}
		return nil
	})
}

// GetEventsByOwner lists a user's own events by date
func (r *EventRepository) GetEventsByOwner(ctx context.Context, ownerID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Preload("SharedWith").
		Order("date ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get events")
	}
	return events, nil
}

// GetEventsSharedWith lists events whose share list holds userID, owner loaded
func (r *EventRepository) GetEventsSharedWith(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Joins("JOIN event_shares ON event_shares.event_id = events.id").
		Where("event_shares.user_id = ?", userID).
		Preload("Owner").
		Order("events.date ASC, events.id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get shared events")
	}
	return events, nil
}

// GetEventsByCalendar lists a calendar's events by date
func (r *EventRepository) GetEventsByCalendar(ctx context.Context, calendarID uint) ([]models.Event, error) {
	var events []models.Event
	err := r.db.WithContext(ctx).
		Where("calendar_id = ?", calendarID).
		Order("date ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get calendar events")
	}
	return events, nil
}
