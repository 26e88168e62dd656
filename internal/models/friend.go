package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// UserFriend is one direction of a friendship. Every friendship is stored
// as two rows, (a,b) and (b,a).
type UserFriend struct {
	UserID    uint      `gorm:"primaryKey"`
	FriendID  uint      `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (f *UserFriend) BeforeCreate(tx *gorm.DB) error {
	if f.UserID == 0 || f.UserID == f.FriendID {
		return gorm.ErrInvalidData
	}
	return nil
}

func (UserFriend) TableName() string {
	return "user_friends"
}

type FriendRequest struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	FromID uint `gorm:"not null;index" json:"fromId"`
	From   User `gorm:"foreignKey:FromID;constraint:OnDelete:CASCADE" json:"-"`
	ToID   uint `gorm:"not null;index" json:"toId"`
	To     User `gorm:"foreignKey:ToID;constraint:OnDelete:CASCADE" json:"-"`
	// PairKey identifies the unordered pair; at most one pending request may exist per pair.
	PairKey     string     `gorm:"type:varchar(41);not null;uniqueIndex:idx_friend_requests_pending_pair,where:status = 'pending'" json:"-"`
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Friend request status constants
const (
	FriendRequestStatusPending  = "pending"
	FriendRequestStatusAccepted = "accepted"
	FriendRequestStatusRejected = "rejected"
)

// PairKey returns the order independent key of two users.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

func (r *FriendRequest) IsPending() bool {
	return r.Status == FriendRequestStatusPending
}

func (r *FriendRequest) BeforeSave(tx *gorm.DB) error {
	if r.FromID == r.ToID {
		return gorm.ErrInvalidData
	}
	switch r.Status {
	case FriendRequestStatusPending, FriendRequestStatusAccepted, FriendRequestStatusRejected:
	default:
		return gorm.ErrInvalidData
	}
	r.PairKey = PairKey(r.FromID, r.ToID)
	return nil
}

func (FriendRequest) TableName() string {
	return "friend_requests"
}
