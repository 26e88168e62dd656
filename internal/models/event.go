package models

import (
	"time"

	"gorm.io/gorm"
)

const DefaultColor = "#000000"

// Recurrence frequency constants
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Recurrence is a repeat rule. Occurrences are computed on demand and never stored.
type Recurrence struct {
	Frequency string     `gorm:"type:varchar(10)" json:"frequency,omitempty"`
	Interval  int        `gorm:"default:0" json:"interval,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

func (r Recurrence) IsSet() bool {
	return r.Frequency != ""
}

type Event struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Title      string     `gorm:"type:varchar(100);not null" json:"title"`
	Date       time.Time  `gorm:"not null;index" json:"date"`
	Time       string     `gorm:"type:varchar(5)" json:"time,omitempty"`
	EndTime    string     `gorm:"type:varchar(5)" json:"endTime,omitempty"`
	AllDay     bool       `gorm:"default:false;not null" json:"allDay"`
	Details    string     `gorm:"type:varchar(500)" json:"details"`
	Location   string     `gorm:"type:varchar(100)" json:"location"`
	Color      string     `gorm:"type:varchar(7);not null;default:'#000000'" json:"color"`
	Recurrence Recurrence `gorm:"embedded;embeddedPrefix:recurrence_" json:"recurrence"`

	OwnerID    uint         `gorm:"not null;index" json:"ownerId"`
	Owner      User         `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	CalendarID *uint        `gorm:"index" json:"calendarId,omitempty"`
	SharedWith []EventShare `gorm:"foreignKey:EventID" json:"-"`

	// Completion state
	Completed     bool       `gorm:"default:false;not null" json:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CompletedByID *uint      `json:"completedBy,omitempty"`
	PointsAwarded int64      `gorm:"default:0;not null" json:"pointsAwarded"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type EventShare struct {
	EventID   uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (EventShare) TableName() string {
	return "event_shares"
}

// SharedUserIDs returns the ids in SharedWith. SharedWith must be loaded.
func (e *Event) SharedUserIDs() []uint {
	ids := make([]uint, 0, len(e.SharedWith))
	for _, s := range e.SharedWith {
		ids = append(ids, s.UserID)
	}
	return ids
}

func (e *Event) IsSharedWith(userID uint) bool {
	for _, s := range e.SharedWith {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// BeforeSave hook for the completion and recurrence rules
func (e *Event) BeforeSave(tx *gorm.DB) error {
	if e.Title == "" || e.Date.IsZero() {
		return gorm.ErrInvalidData
	}
	if e.PointsAwarded != 0 && !e.Completed {
		return gorm.ErrInvalidData
	}
	if e.PointsAwarded < 0 {
		return gorm.ErrInvalidData
	}
	if e.Recurrence.IsSet() {
		switch e.Recurrence.Frequency {
		case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		default:
			return gorm.ErrInvalidData
		}
		if e.Recurrence.Interval < 1 {
			return gorm.ErrInvalidData
		}
		if e.Recurrence.Until != nil && e.Recurrence.Until.Before(e.Date) {
			return gorm.ErrInvalidData
		}
	}
	return nil
}

func (Event) TableName() string {
	return "events"
}
