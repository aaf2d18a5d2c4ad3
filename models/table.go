package models

import "time"

// Table statuses.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

type Table struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(50);not null" json:"name"`
	Capacity  int       `gorm:"not null;default:1" json:"capacity"`
	Status    string    `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	Location  *string   `gorm:"type:varchar(100)" json:"location,omitempty"`
	SortOrder int       `gorm:"not null;default:0" json:"sort_order"`
	Version   uint      `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// ValidTableStatus reports whether s is one of the known occupancy states.
func ValidTableStatus(s string) bool {
	switch s {
	case TableAvailable, TableOccupied, TableReserved:
		return true
	}
	return false
}
