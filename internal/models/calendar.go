package models

import (
	"time"

	"gorm.io/gorm"
)

type Calendar struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Color       string          `gorm:"type:varchar(7);not null;default:'#000000'" json:"color"`
	Description string          `gorm:"type:varchar(500)" json:"description"`
	OwnerID     uint            `gorm:"not null;index" json:"ownerId"`
	Owner       User            `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Events      []Event         `gorm:"foreignKey:CalendarID" json:"events,omitempty"`
	SharedWith  []CalendarShare `gorm:"foreignKey:CalendarID" json:"-"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Share permission constants
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)

func ValidPermission(p string) bool {
	return p == PermissionView || p == PermissionEdit
}

// CalendarShare grants one user access to a calendar. A user appears at
// most once per calendar.
type CalendarShare struct {
	ID         uint      `gorm:"primaryKey"`
	CalendarID uint      `gorm:"not null;uniqueIndex:idx_calendar_shares_user"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_calendar_shares_user;index"`
	User       User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Permission string    `gorm:"type:varchar(10);not null"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (s *CalendarShare) BeforeSave(tx *gorm.DB) error {
	if !ValidPermission(s.Permission) {
		return gorm.ErrInvalidData
	}
	return nil
}

func (CalendarShare) TableName() string {
	return "calendar_shares"
}

// ShareFor returns the share entry of userID, or nil. SharedWith must be loaded.
func (c *Calendar) ShareFor(userID uint) *CalendarShare {
	for i := range c.SharedWith {
		if c.SharedWith[i].UserID == userID {
			return &c.SharedWith[i]
		}
	}
	return nil
}

func (c *Calendar) CanView(userID uint) bool {
	return c.OwnerID == userID || c.ShareFor(userID) != nil
}

func (c *Calendar) CanEdit(userID uint) bool {
	if c.OwnerID == userID {
		return true
	}
	share := c.ShareFor(userID)
	return share != nil && share.Permission == PermissionEdit
}

func (Calendar) TableName() string {
	return "calendars"
}
