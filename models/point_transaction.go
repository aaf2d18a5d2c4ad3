package models

import "time"

// Ledger entry types.
const (
	PointsEarned = "EARNED"
	PointsSpent  = "SPENT"
)

type PointTransaction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CustomerID uint      `gorm:"not null;index" json:"customer_id"`
	OrderID    *uint     `gorm:"index" json:"order_id,omitempty"`
	Delta      int64     `gorm:"not null" json:"delta"`
	Type       string    `gorm:"type:varchar(10);not null" json:"type"`
	Reason     string    `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
}
