package models

import (
	"time"
)

// Loyalty tiers.
const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     *string   `gorm:"type:varchar(32);uniqueIndex" json:"phone,omitempty"`
	Points    int64     `gorm:"not null;default:0" json:"points"`
	Tier      string    `gorm:"type:varchar(10);not null;default:'bronze'" json:"tier"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
