package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderReady      OrderStatus = "READY"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// Valid reports whether the status is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderReady, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are accepted
func (s OrderStatus) IsTerminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

// Label is the human readable status written to the order history
func (s OrderStatus) Label() string {
	switch s {
	case OrderPending:
		return "Order placed"
	case OrderConfirmed:
		return "Order confirmed"
	case OrderProcessing:
		return "Processing"
	case OrderReady:
		return "Ready for dispatch"
	case OrderShipped:
		return "Shipped"
	case OrderDelivered:
		return "Delivered"
	case OrderCancelled:
		return "Cancelled"
	}
	return string(s)
}

// DefaultDescription is used for history entries submitted without a note
func (s OrderStatus) DefaultDescription() string {
	switch s {
	case OrderPending:
		return "Your order has been placed and is awaiting supplier confirmation"
	case OrderConfirmed:
		return "The supplier has confirmed your order"
	case OrderProcessing:
		return "Your order is being prepared"
	case OrderReady:
		return "Your order is packed and ready for dispatch"
	case OrderShipped:
		return "Your order is on its way"
	case OrderDelivered:
		return "Your order has been delivered"
	case OrderCancelled:
		return "The order has been cancelled"
	}
	return ""
}

// PaymentMethod is how the buyer settles an order
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "CASH"
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentInvoice    PaymentMethod = "INVOICE" // invoice on terms
)

// Valid reports whether the payment method is supported
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentInvoice:
		return true
	}
	return false
}

// Order is a purchase of a single catalog product. Orders are never deleted;
// cancellation is a terminal status.
type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	Reference         string          `gorm:"uniqueIndex;not null" json:"reference"` // public order number
	ProductID         uint            `gorm:"not null;index" json:"product_id"`
	Product           *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	UserID            uint            `gorm:"not null;index" json:"user_id"` // purchaser
	ProjectID         *uint           `gorm:"index" json:"project_id"`
	AddressID         uint            `gorm:"not null" json:"address_id"`
	DeliveryAddress   string          `gorm:"type:text;not null" json:"delivery_address"` // snapshot at placement
	Quantity          int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"unit_price"`
	TotalPrice        decimal.Decimal `gorm:"type:decimal(16,2);not null" json:"total_price"` // frozen at creation
	PaymentMethod     PaymentMethod   `gorm:"not null" json:"payment_method"`
	Status            OrderStatus     `gorm:"not null;default:'PENDING';index" json:"status"`
	TrackingCode      *string         `json:"tracking_code"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery"`
	History           []OrderHistory  `gorm:"foreignKey:OrderID" json:"history,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// AllowedTransitions lists the statuses the requesting user may move the
	// order to; filled by the order service, never stored
	AllowedTransitions []OrderStatus `gorm:"-" json:"allowed_transitions"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}
