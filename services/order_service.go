package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/buildmart/marketplace-api/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderService places orders and drives them through the status machine
type OrderService struct {
	db              *gorm.DB
	bus             EventBus
	restockOnCancel bool
}

// NewOrderService creates an order service. When restockOnCancel is set, a
// cancelled order returns its quantity to the product's stock.
func NewOrderService(db *gorm.DB, bus EventBus, restockOnCancel bool) *OrderService {
	if bus == nil {
		bus = NewInProcessEventBus()
	}
	return &OrderService{db: db, bus: bus, restockOnCancel: restockOnCancel}
}

// PlaceOrderInput is a buyer's order request
type PlaceOrderInput struct {
	ProductID     uint
	ProjectID     *uint
	AddressID     uint
	PaymentMethod models.PaymentMethod
	Quantity      int
}

// StatusUpdate is a requested status change. Nil fields are left unchanged.
type StatusUpdate struct {
	Status            models.OrderStatus
	Note              *string
	TrackingCode      *string
	EstimatedDelivery *time.Time
}

// PlaceOrder validates the request against the catalog, then decrements
// stock and records the order in one transaction. Either both happen or
// neither does.
func (s *OrderService) PlaceOrder(ctx context.Context, p Principal, in PlaceOrderInput) (*models.Order, error) {
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if !in.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	db := s.db.WithContext(ctx)
	product, err := NewCatalogService(s.db).GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if err := checkQuantity(product, in.Quantity); err != nil {
		log.Warn().Uint("product_id", product.ID).Int("quantity", in.Quantity).Err(err).Msg("order rejected")
		return nil, err
	}

	var address models.Address
	if err := db.Where("id = ? AND user_id = ?", in.AddressID, p.UserID).First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAddress
		}
		return nil, fmt.Errorf("load address %d: %w", in.AddressID, err)
	}
	if in.ProjectID != nil {
		if _, err := loadAccessibleProject(db, p.UserID, *in.ProjectID); err != nil {
			return nil, err
		}
	}

	var order models.Order
	err = db.Transaction(func(tx *gorm.DB) error {
		locked, err := decrementStock(tx, product.ID, in.Quantity)
		if err != nil {
			return err
		}
		// minOrder may have been raised since the first read
		if in.Quantity < locked.MinOrder {
			return belowMinimum(locked, in.Quantity)
		}

		order = models.Order{
			Reference:       newOrderReference(),
			ProductID:       locked.ID,
			UserID:          p.UserID,
			ProjectID:       in.ProjectID,
			AddressID:       address.ID,
			DeliveryAddress: address.Snapshot(),
			Quantity:        in.Quantity,
			UnitPrice:       locked.Price,
			TotalPrice:      locked.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
			PaymentMethod:   in.PaymentMethod,
			Status:          models.OrderPending,
			History: []models.OrderHistory{
				historyEntry(models.OrderPending, nil),
			},
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		product = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			log.Warn().Uint("product_id", in.ProductID).Int("quantity", in.Quantity).Msg("order rejected: insufficient stock")
		}
		return nil, err
	}
	order.Product = product
	order.AllowedTransitions = allowedFor(order.Status, false)

	log.Info().
		Str("reference", order.Reference).
		Uint("order_id", order.ID).
		Uint("product_id", product.ID).
		Int("quantity", order.Quantity).
		Str("total", order.TotalPrice.StringFixed(2)).
		Msg("order placed")

	if order.ProjectID != nil {
		s.publish(ctx, OrderPlacedEvent, &order)
	}
	return &order, nil
}

func checkQuantity(product *models.Product, qty int) error {
	if qty < product.MinOrder {
		return belowMinimum(product, qty)
	}
	if qty > product.Stock {
		return ErrInsufficientStock.WithMessage(
			"Only %d %s of %s available, requested %d", product.Stock, product.Unit, product.Name, qty)
	}
	return nil
}

func belowMinimum(product *models.Product, qty int) error {
	return ErrBelowMinimumOrder.WithMessage(
		"Minimum order for %s is %d %s, requested %d", product.Name, product.MinOrder, product.Unit, qty)
}

// newOrderReference builds the public order number, e.g. "ORD-3F2A9C1B7D4E"
func newOrderReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(id[:12])
}

func historyEntry(status models.OrderStatus, note *string) models.OrderHistory {
	description := status.DefaultDescription()
	if note != nil && strings.TrimSpace(*note) != "" {
		description = strings.TrimSpace(*note)
	}
	return models.OrderHistory{
		StatusCode:  status,
		Status:      status.Label(),
		Description: description,
		Timestamp:   time.Now().UTC(),
	}
}

// publish reports an order event to the bus. The order is already committed,
// so a delivery failure is logged and not returned to the buyer.
func (s *OrderService) publish(ctx context.Context, eventType OrderEventType, order *models.Order) {
	event := NewOrderEvent(eventType)
	event.OrderID = order.ID
	event.OrderReference = order.Reference
	event.UserID = order.UserID
	event.ProductID = order.ProductID
	event.Quantity = order.Quantity
	event.TotalPrice = order.TotalPrice
	if order.ProjectID != nil {
		event.ProjectID = *order.ProjectID
	}
	if order.Product != nil {
		event.ProductName = order.Product.Name
	}

	if err := s.bus.Publish(ctx, event); err != nil {
		log.Error().Err(err).Str("reference", order.Reference).Str("event", string(eventType)).Msg("failed to publish order event")
	}
}

// ListMyOrders returns the principal's orders, newest first
func (s *OrderService) ListMyOrders(ctx context.Context, p Principal) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.WithContext(ctx).
		Preload("Product", unscoped).
		Where("user_id = ?", p.UserID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	for i := range orders {
		orders[i].AllowedTransitions = allowedFor(orders[i].Status, false)
	}
	return orders, nil
}

// ListSupplierOrders returns orders for products of the principal's supplier profile
func (s *OrderService) ListSupplierOrders(ctx context.Context, p Principal, status models.OrderStatus) ([]models.Order, error) {
	db := s.db.WithContext(ctx)
	supplier, err := supplierFor(db, p.UserID)
	if err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("Unknown order status %q", status)
	}

	ownProducts := s.db.Unscoped().Model(&models.Product{}).Select("id").Where("supplier_id = ?", supplier.ID)
	query := db.Preload("Product", unscoped).
		Where("product_id IN (?)", ownProducts).
		Order("created_at DESC")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	orders := []models.Order{}
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list supplier orders: %w", err)
	}
	for i := range orders {
		orders[i].AllowedTransitions = allowedFor(orders[i].Status, true)
	}
	return orders, nil
}

// GetOrder returns an order with its history. Only the purchaser and the
// supplier of the ordered product may see it.
func (s *OrderService) GetOrder(ctx context.Context, p Principal, orderID uint) (*models.Order, error) {
	order, _, err := s.loadOrder(s.db.WithContext(ctx), p, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// GetHistory returns an order's status history, oldest first
func (s *OrderService) GetHistory(ctx context.Context, p Principal, orderID uint) ([]models.OrderHistory, error) {
	order, err := s.GetOrder(ctx, p, orderID)
	if err != nil {
		return nil, err
	}
	return order.History, nil
}

// UpdateStatus applies a status change requested by the principal. The
// supplier of the ordered product may make any legal transition; the buyer may
// only cancel.
func (s *OrderService) UpdateStatus(ctx context.Context, p Principal, orderID uint, update StatusUpdate) (*models.Order, error) {
	if !update.Status.Valid() {
		return nil, ErrInvalidStatus.WithMessage("Unknown order status %q", update.Status)
	}

	db := s.db.WithContext(ctx)
	order, isSupplier, err := s.loadOrder(db, p, orderID)
	if err != nil {
		return nil, err
	}
	if !isSupplier && update.Status != models.OrderCancelled {
		return nil, ErrForbidden.WithMessage("Only the supplier can move an order to %s", update.Status)
	}

	from := order.Status
	if from.IsTerminal() {
		return nil, ErrIllegalTransition.WithMessage("Order %s is %s and can no longer change", order.Reference, from)
	}

	if from == update.Status {
		// resubmitting the current status only touches tracking details
		if err := s.updateTracking(db, order, update); err != nil {
			return nil, err
		}
		return s.GetOrder(ctx, p, orderID)
	}

	if !CanTransition(from, update.Status) {
		log.Warn().Str("reference", order.Reference).Str("from", string(from)).Str("to", string(update.Status)).Msg("illegal status transition")
		return nil, ErrIllegalTransition.WithMessage("Cannot move order from %s to %s", from, update.Status)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		fields := map[string]interface{}{"status": update.Status}
		if update.TrackingCode != nil {
			fields["tracking_code"] = *update.TrackingCode
		}
		if update.EstimatedDelivery != nil {
			fields["estimated_delivery"] = *update.EstimatedDelivery
		}

		result := tx.Model(&models.Order{}).Where("id = ? AND status = ?", order.ID, from).Updates(fields)
		if result.Error != nil {
			return fmt.Errorf("update order %d: %w", order.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrIllegalTransition.WithMessage("Order %s changed concurrently, reload and retry", order.Reference)
		}

		entry := historyEntry(update.Status, update.Note)
		entry.OrderID = order.ID
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("append order history: %w", err)
		}

		if update.Status == models.OrderCancelled && s.restockOnCancel {
			return incrementStock(tx, order.ProductID, order.Quantity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("reference", order.Reference).Str("from", string(from)).Str("to", string(update.Status)).Msg("order status changed")

	if update.Status == models.OrderCancelled && order.ProjectID != nil {
		s.publish(ctx, OrderCancelledEvent, order)
	}
	return s.GetOrder(ctx, p, orderID)
}

func (s *OrderService) updateTracking(db *gorm.DB, order *models.Order, update StatusUpdate) error {
	fields := map[string]interface{}{}
	if update.TrackingCode != nil {
		fields["tracking_code"] = *update.TrackingCode
	}
	if update.EstimatedDelivery != nil {
		fields["estimated_delivery"] = *update.EstimatedDelivery
	}
	if len(fields) == 0 {
		return nil
	}
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Updates(fields).Error; err != nil {
		return fmt.Errorf("update tracking of order %d: %w", order.ID, err)
	}
	return nil
}

// loadOrder fetches an order visible to the principal and reports whether the
// principal is the supplier of the ordered product
func (s *OrderService) loadOrder(db *gorm.DB, p Principal, orderID uint) (*models.Order, bool, error) {
	var order models.Order
	err := db.Preload("Product", unscoped).
		Preload("History", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrOrderNotFound
		}
		return nil, false, fmt.Errorf("load order %d: %w", orderID, err)
	}

	isSupplier := false
	if order.Product != nil {
		var supplier models.Supplier
		err := db.Where("id = ? AND owner_id = ?", order.Product.SupplierID, p.UserID).Limit(1).Find(&supplier).Error
		if err != nil {
			return nil, false, fmt.Errorf("check order supplier: %w", err)
		}
		isSupplier = supplier.ID != 0
	}
	if order.UserID != p.UserID && !isSupplier {
		return nil, false, ErrForbidden.WithMessage("Order %d belongs to another user", orderID)
	}
	order.AllowedTransitions = allowedFor(order.Status, isSupplier)
	return &order, isSupplier, nil
}

// unscoped lets orders keep showing products the supplier has since deleted
func unscoped(tx *gorm.DB) *gorm.DB {
	return tx.Unscoped()
}
