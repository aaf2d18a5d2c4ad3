package models

import "time"

type Menu struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	CategoryID  uint         `gorm:"not null;index" json:"category_id"`
	Category    MenuCategory `gorm:"foreignKey:CategoryID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"category,omitempty"`
	Name        string       `gorm:"type:varchar(255);not null" json:"name"`
	Price       int64        `gorm:"not null" json:"price"`
	Available   bool         `gorm:"not null;default:true" json:"available"`
	Active      bool         `gorm:"not null;default:true" json:"active"`
	Description string       `gorm:"type:text" json:"description"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

// Sellable reports whether the item may be put on a new cart or order line.
func (m Menu) Sellable() bool {
	return m.Available && m.Active
}
