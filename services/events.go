package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEventType names what happened to an order
type OrderEventType string

const (
	OrderPlacedEvent    OrderEventType = "placed"
	OrderCancelledEvent OrderEventType = "cancelled"
)

// OrderEvent is published by the order processor for orders placed against a
// project. The budget ledger consumes it to keep project spend in sync.
type OrderEvent struct {
	ID             string          `json:"id"`
	Type           OrderEventType  `json:"type"`
	OrderID        uint            `json:"order_id"`
	OrderReference string          `json:"order_reference"`
	ProjectID      uint            `json:"project_id"`
	UserID         uint            `json:"user_id"`
	ProductID      uint            `json:"product_id"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewOrderEvent stamps a fresh event id and time
func NewOrderEvent(eventType OrderEventType) OrderEvent {
	return OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
}

// OrderEventHandler reacts to an order event
type OrderEventHandler func(ctx context.Context, event OrderEvent) error

// EventBus delivers order events to subscribers
type EventBus interface {
	Publish(ctx context.Context, event OrderEvent) error
	Subscribe(handler OrderEventHandler)
}

// InProcessEventBus dispatches events synchronously to every subscriber
type InProcessEventBus struct {
	mu       sync.RWMutex
	handlers []OrderEventHandler
}

// NewInProcessEventBus creates an empty in-process bus
func NewInProcessEventBus() *InProcessEventBus {
	return &InProcessEventBus{}
}

// Subscribe registers a handler for all subsequent events
func (b *InProcessEventBus) Subscribe(handler OrderEventHandler) {
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// Publish calls every handler in subscription order. All handlers run even if
// one fails; their errors are joined.
func (b *InProcessEventBus) Publish(ctx context.Context, event OrderEvent) error {
	return dispatch(ctx, b.snapshot(), event)
}

func (b *InProcessEventBus) snapshot() []OrderEventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]OrderEventHandler, len(b.handlers))
	copy(handlers, b.handlers)
	return handlers
}

func dispatch(ctx context.Context, handlers []OrderEventHandler, event OrderEvent) error {
	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var eventBusInstance EventBus = NewInProcessEventBus()

// GetEventBus returns the process-wide event bus
func GetEventBus() EventBus {
	return eventBusInstance
}

// SetEventBus replaces the process-wide event bus (Kafka in production, a
// fresh in-process bus in tests)
func SetEventBus(bus EventBus) {
	eventBusInstance = bus
}
