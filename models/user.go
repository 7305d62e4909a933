package models

import (
	"time"

	"gorm.io/gorm"
)

// UserRole is the marketplace role carried by a user profile
type UserRole string

const (
	RoleCustomer     UserRole = "customer"
	RoleSupplier     UserRole = "supplier"
	RoleProfessional UserRole = "professional"
)

// Valid reports whether the role is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleSupplier, RoleProfessional:
		return true
	}
	return false
}

// User represents a marketplace account (buyer, supplier or talent professional)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // identity provider subject ('sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      UserRole       `gorm:"not null;default:'customer'" json:"role"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
