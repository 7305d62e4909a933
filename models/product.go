package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProductUnit is the unit a product is sold in
type ProductUnit string

const (
	UnitPiece       ProductUnit = "piece"
	UnitBag         ProductUnit = "bag"
	UnitTon         ProductUnit = "ton"
	UnitKilogram    ProductUnit = "kg"
	UnitMeter       ProductUnit = "meter"
	UnitCubicMeter  ProductUnit = "cubic_meter"
	UnitSquareMeter ProductUnit = "square_meter"
	UnitLiter       ProductUnit = "liter"
	UnitBox         ProductUnit = "box"
	UnitSet         ProductUnit = "set"
)

// Valid reports whether the unit is a known unit
func (u ProductUnit) Valid() bool {
	switch u {
	case UnitPiece, UnitBag, UnitTon, UnitKilogram, UnitMeter, UnitCubicMeter, UnitSquareMeter, UnitLiter, UnitBox, UnitSet:
		return true
	}
	return false
}

// Supplier is the business profile that owns catalog products
type Supplier struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	OwnerID       uint           `gorm:"uniqueIndex;not null" json:"owner_id"` // one supplier profile per user
	Owner         User           `gorm:"foreignKey:OwnerID" json:"-"`
	CompanyName   string         `gorm:"not null" json:"company_name"`
	Location      string         `json:"location"`
	ContactNumber string         `json:"contact_number"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Supplier model
func (Supplier) TableName() string {
	return "suppliers"
}

// Product is a catalog item offered by a supplier
type Product struct {
	ID             uint                        `gorm:"primaryKey" json:"id"`
	Name           string                      `gorm:"not null" json:"name"`
	Category       string                      `gorm:"not null;index" json:"category"`
	Description    string                      `gorm:"type:text" json:"description"`
	Price          decimal.Decimal             `gorm:"type:decimal(14,2);not null" json:"price"`
	Unit           ProductUnit                 `gorm:"not null;default:'piece'" json:"unit"`
	Stock          int                         `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	MinStock       int                         `gorm:"not null;default:0" json:"min_stock"` // advisory reorder threshold
	MinOrder       int                         `gorm:"not null;default:1;check:min_order >= 1" json:"min_order"`
	Specifications datatypes.JSONSlice[string] `json:"specifications"`
	Images         datatypes.JSONSlice[string] `json:"images"`
	SupplierID     uint                        `gorm:"not null;index" json:"supplier_id"` // immutable after creation
	Supplier       *Supplier                   `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
	DeletedAt      gorm.DeletedAt              `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}

// IsOrderable reports whether at least one minimum-sized order can be filled
func (p Product) IsOrderable() bool {
	return p.Stock > 0 && p.MinOrder <= p.Stock
}

// LowStock reports whether stock has reached the reorder threshold
func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

// MarshalJSON adds the derived orderable and low_stock flags so clients can
// disable ordering without repeating the rules
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Orderable bool `json:"orderable"`
		LowStock  bool `json:"low_stock"`
	}{product(p), p.IsOrderable(), p.LowStock()})
}
