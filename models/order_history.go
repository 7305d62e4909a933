package models

import "time"

// OrderHistory is an append-only entry in an order's status timeline
type OrderHistory struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderID     uint        `gorm:"not null;index" json:"order_id"`
	StatusCode  OrderStatus `gorm:"not null" json:"status_code"`
	Status      string      `gorm:"not null" json:"status"` // label shown to the buyer
	Description string      `gorm:"type:text" json:"description"`
	Timestamp   time.Time   `gorm:"not null;index" json:"timestamp"`
}

// TableName specifies the table name for the OrderHistory model
func (OrderHistory) TableName() string {
	return "order_history"
}
