package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory is the fixed set of budget categories
type ExpenseCategory string

const (
	CategoryMaterials      ExpenseCategory = "Materials"
	CategoryLabor          ExpenseCategory = "Labor"
	CategoryEquipment      ExpenseCategory = "Equipment"
	CategoryTransportation ExpenseCategory = "Transportation"
	CategoryPermits        ExpenseCategory = "Permits"
	CategoryConsultants    ExpenseCategory = "Consultants"
	CategoryOther          ExpenseCategory = "Other"
)

// ExpenseCategories lists every category in display order
var ExpenseCategories = []ExpenseCategory{
	CategoryMaterials,
	CategoryLabor,
	CategoryEquipment,
	CategoryTransportation,
	CategoryPermits,
	CategoryConsultants,
	CategoryOther,
}

// Valid reports whether the category is one of the fixed categories
func (c ExpenseCategory) Valid() bool {
	for _, known := range ExpenseCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is a single cost booked against a project budget
type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ProjectID   uint            `gorm:"not null;index" json:"project_id"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"amount"`
	Category    ExpenseCategory `gorm:"not null;default:'Other'" json:"category"`
	Date        time.Time       `gorm:"not null;index" json:"date"`
	OrderID     *uint           `gorm:"uniqueIndex" json:"order_id,omitempty"` // set for entries generated from material orders
	CreatedByID uint            `gorm:"not null" json:"created_by_id"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the Expense model
func (Expense) TableName() string {
	return "expenses"
}
