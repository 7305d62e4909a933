package models

import "time"

// Address is a delivery address owned by a user
type Address struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index;uniqueIndex:idx_addresses_one_default,where:is_default = true" json:"user_id"`
	AddressName   string    `gorm:"not null" json:"address_name"`
	FullAddress   string    `gorm:"type:text;not null" json:"full_address"`
	ContactName   string    `gorm:"not null" json:"contact_name"`
	ContactNumber string    `gorm:"not null" json:"contact_number"`
	IsDefault     bool      `gorm:"not null;default:false" json:"is_default"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Address model
func (Address) TableName() string {
	return "addresses"
}

// Snapshot renders the address as the text frozen onto an order
func (a Address) Snapshot() string {
	return a.AddressName + ": " + a.FullAddress + " (" + a.ContactName + ", " + a.ContactNumber + ")"
}
