package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	Username       string  `gorm:"type:varchar(30);uniqueIndex;not null" json:"username"`
	PasswordHash   string  `gorm:"type:varchar(100);not null" json:"-"`
	Email          *string `gorm:"type:varchar(255);uniqueIndex" json:"email,omitempty"`
	DisplayName    string  `gorm:"type:varchar(50)" json:"displayName"`
	Bio            string  `gorm:"type:varchar(300)" json:"bio"`
	ProfileImage   string  `gorm:"type:varchar(500)" json:"profileImage"`
	TelegramChatID int64   `gorm:"default:0;not null" json:"-"`

	// Gamification state
	WeeklyPoints       int64      `gorm:"default:0;not null" json:"-"`
	LifetimePoints     int64      `gorm:"default:0;not null" json:"-"`
	WeekStartDate      time.Time  `json:"-"`
	CurrentStreak      int        `gorm:"default:0;not null" json:"-"`
	LastCompletionDate *time.Time `json:"-"`
	DailyTasksCount    int        `gorm:"default:0;not null" json:"-"`
	DailyTasksDate     *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// UserSummary is the public profile shown next to shared resources.
type UserSummary struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	DisplayName  string `json:"displayName"`
	ProfileImage string `json:"profileImage,omitempty"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		ProfileImage: u.ProfileImage,
	}
}

// BeforeSave hook for validation
func (u *User) BeforeSave(tx *gorm.DB) error {
	if u.Username == "" {
		return gorm.ErrInvalidData
	}
	if u.WeeklyPoints < 0 || u.LifetimePoints < 0 {
		return gorm.ErrInvalidData
	}
	if u.CurrentStreak < 0 || u.DailyTasksCount < 0 {
		return gorm.ErrInvalidData
	}
	return nil
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}
