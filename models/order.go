package models

import (
	"time"
)

// Order statuses. PENDING is the open tab of a table, COMPLETED is terminal.
const (
	OrderPending   = "PENDING"
	OrderCompleted = "COMPLETED"
)

type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	TableID     uint        `gorm:"not null;index" json:"table_id"`
	Table       *Table      `gorm:"foreignKey:TableID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"table,omitempty"`
	CustomerID  *uint       `gorm:"index" json:"customer_id,omitempty"`
	Customer    *Customer   `gorm:"foreignKey:CustomerID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"customer,omitempty"`
	Status      string      `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Subtotal    int64       `gorm:"not null;default:0" json:"subtotal"`
	Discount    int64       `gorm:"not null;default:0" json:"discount"`
	Tax         int64       `gorm:"not null;default:0" json:"tax"`
	Total       int64       `gorm:"not null;default:0" json:"total"`
	Notes       string      `gorm:"type:text" json:"notes"`
	Version     uint        `gorm:"not null;default:1" json:"version"`
	OrderItems  []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt   time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
	PaidAt      *time.Time  `json:"paid_at,omitempty"`
}

// IsOpen reports whether line items may still be added to the order.
func (o *Order) IsOpen() bool {
	return o.Status == OrderPending
}
