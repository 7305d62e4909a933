package controllers

import (
	"net/http"
	"time"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
)

// PlaceOrderRequest is the body of POST /marketplace/placeOrder. The delivery
// address is referenced by id, as deliveryAddress or addressId.
type PlaceOrderRequest struct {
	ProductID       uint                 `json:"productId" binding:"required"`
	ProjectID       *uint                `json:"projectId"`
	DeliveryAddress uint                 `json:"deliveryAddress"`
	AddressID       uint                 `json:"addressId"`
	PaymentMethod   models.PaymentMethod `json:"paymentMethod" binding:"required"`
	Quantity        int                  `json:"quantity" binding:"required"`
}

// UpdateOrderStatusRequest is the body of PUT /supplier/updateOrderStatus/:id
type UpdateOrderStatusRequest struct {
	Status            models.OrderStatus `json:"status" binding:"required"`
	Note              *string            `json:"note"`
	TrackingCode      *string            `json:"trackingCode"`
	EstimatedDelivery *time.Time         `json:"estimatedDelivery"`
}

// CancelOrderRequest is the optional body of PUT /marketplace/cancelOrder/:id
type CancelOrderRequest struct {
	Note *string `json:"note"`
}

// PlaceOrder handles POST /marketplace/placeOrder
func PlaceOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	addressID := req.AddressID
	if addressID == 0 {
		addressID = req.DeliveryAddress
	}
	if addressID == 0 {
		respondError(c, services.ErrMissingField.WithMessage("deliveryAddress is required"))
		return
	}

	order, err := orderService().PlaceOrder(c.Request.Context(), p, services.PlaceOrderInput{
		ProductID:     req.ProductID,
		ProjectID:     req.ProjectID,
		AddressID:     addressID,
		PaymentMethod: req.PaymentMethod,
		Quantity:      req.Quantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, order)
}

// GetMyOrders handles GET /marketplace/getOrders - the caller's purchases
func GetMyOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orders, err := orderService().ListMyOrders(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

// GetOrderByID handles GET /marketplace/getOrderByid/:id
func GetOrderByID(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	order, err := orderService().GetOrder(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// GetOrderHistory handles GET /marketplace/getOrderHistory/:id
func GetOrderHistory(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	history, err := orderService().GetHistory(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, history)
}

// CancelOrder handles PUT /marketplace/cancelOrder/:id - buyer side cancellation
func CancelOrder(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			validationError(c, err)
			return
		}
	}

	order, err := orderService().UpdateStatus(c.Request.Context(), p, id, services.StatusUpdate{
		Status: models.OrderCancelled,
		Note:   req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}

// GetSupplierOrders handles GET /supplier/getOrders?status=
func GetSupplierOrders(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	orders, err := orderService().ListSupplierOrders(c.Request.Context(), p, models.OrderStatus(c.Query("status")))
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, orders)
}

// UpdateOrderStatus handles PUT /supplier/updateOrderStatus/:id
func UpdateOrderStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	order, err := orderService().UpdateStatus(c.Request.Context(), p, id, services.StatusUpdate{
		Status:            req.Status,
		Note:              req.Note,
		TrackingCode:      req.TrackingCode,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, order)
}
