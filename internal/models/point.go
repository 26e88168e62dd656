package models

import (
	"time"
)

type PointTransaction struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"userId"`
	User            User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	EventID         *uint     `gorm:"index" json:"eventId,omitempty"`
	Amount          int64     `gorm:"not null" json:"amount"`
	TransactionType string    `gorm:"type:varchar(50);not null;index" json:"type"`
	Description     string    `gorm:"type:text" json:"description"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

// Transaction type constants
const (
	TxTypeTaskCompleted = "task_completed"
	TxTypeTaskReverted  = "task_reverted"
)

func (PointTransaction) TableName() string {
	return "point_transactions"
}
