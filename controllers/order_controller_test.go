package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/buildmart/marketplace-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	db        *gorm.DB
	buyer     models.User
	seller    models.User
	product   models.Product
	address   models.Address
	project   models.Project
	buyerAPI  *gin.Engine
	sellerAPI *gin.Engine
}

func newOrderFixture(t *testing.T, opts ...testutil.ProductOption) *orderFixture {
	t.Helper()
	db := setupTestDB(t)
	useEventBus(t, services.NewInProcessEventBus())

	f := &orderFixture{db: db}
	f.buyer = testutil.CreateUser(t, db, "buyer", models.RoleCustomer)
	var supplier models.Supplier
	f.seller, supplier = testutil.CreateSupplier(t, db, "seller")
	f.product = testutil.CreateProduct(t, db, supplier.ID, opts...)
	f.address = testutil.CreateAddress(t, db, f.buyer.ID)
	f.project = testutil.CreateProject(t, db, f.buyer.ID, "10000")

	f.buyerAPI = setupTestRouter()
	buyer := f.buyerAPI.Group("/marketplace", asUser(f.buyer))
	buyer.POST("/placeOrder", PlaceOrder)
	buyer.GET("/getOrders", GetMyOrders)
	buyer.GET("/getOrderByid/:id", GetOrderByID)
	buyer.GET("/getOrderHistory/:id", GetOrderHistory)
	buyer.PUT("/cancelOrder/:id", CancelOrder)

	f.sellerAPI = setupTestRouter()
	seller := f.sellerAPI.Group("/supplier", asUser(f.seller))
	seller.GET("/getOrders", GetSupplierOrders)
	seller.PUT("/updateOrderStatus/:id", UpdateOrderStatus)
	return f
}

func (f *orderFixture) orderBody(qty int) map[string]interface{} {
	return map[string]interface{}{
		"productId":       f.product.ID,
		"deliveryAddress": f.address.ID,
		"paymentMethod":   "CASH",
		"quantity":        qty,
	}
}

func (f *orderFixture) place(t *testing.T, body map[string]interface{}) uint {
	t.Helper()
	w, response := performRequest(t, f.buyerAPI, http.MethodPost, "/marketplace/placeOrder", body)
	require.Equal(t, http.StatusCreated, w.Code, "response: %v", response)
	return uint(dataOf(t, response)["id"].(float64))
}

func (f *orderFixture) stock(t *testing.T) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, f.product.ID).Error)
	return product.Stock
}

func TestPlaceOrder(t *testing.T) {
	f := newOrderFixture(t)

	w, response := performRequest(t, f.buyerAPI, http.MethodPost, "/marketplace/placeOrder", f.orderBody(20))
	require.Equal(t, http.StatusCreated, w.Code, "response: %v", response)

	data := dataOf(t, response)
	assert.True(t, response["success"].(bool))
	assert.Equal(t, "PENDING", data["status"])
	assert.Equal(t, []interface{}{"CANCELLED"}, data["allowed_transitions"])
	assert.Equal(t, float64(20), data["quantity"])
	assert.Equal(t, float64(f.buyer.ID), data["user_id"])
	assert.Regexp(t, `^ORD-[0-9A-F]{12}$`, data["reference"])
	assert.True(t, decimal.RequireFromString("19000").Equal(decimal.RequireFromString(data["total_price"].(string))))

	history := data["history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, "Order placed", history[0].(map[string]interface{})["status"])
	assert.Equal(t, 980, f.stock(t))
}

func TestPlaceOrder_Errors(t *testing.T) {
	f := newOrderFixture(t, testutil.WithStock(5, 2))
	other := testutil.CreateUser(t, f.db, "other", models.RoleCustomer)
	foreignAddress := testutil.CreateAddress(t, f.db, other.ID)

	tests := []struct {
		name           string
		mutate         func(body map[string]interface{})
		expectedStatus int
		expectedCode   string
	}{
		{"insufficient stock", func(b map[string]interface{}) { b["quantity"] = 6 }, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"below minimum", func(b map[string]interface{}) { b["quantity"] = 1 }, http.StatusBadRequest, "BELOW_MINIMUM_ORDER"},
		{"negative quantity", func(b map[string]interface{}) { b["quantity"] = -3 }, http.StatusBadRequest, "INVALID_QUANTITY"},
		{"missing quantity", func(b map[string]interface{}) { delete(b, "quantity") }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing product", func(b map[string]interface{}) { delete(b, "productId") }, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unknown product", func(b map[string]interface{}) { b["productId"] = 9999 }, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"missing address", func(b map[string]interface{}) { delete(b, "deliveryAddress") }, http.StatusBadRequest, "MISSING_FIELD"},
		{"someone else's address", func(b map[string]interface{}) { b["deliveryAddress"] = foreignAddress.ID }, http.StatusBadRequest, "INVALID_ADDRESS"},
		{"unknown payment method", func(b map[string]interface{}) { b["paymentMethod"] = "BARTER" }, http.StatusBadRequest, "INVALID_PAYMENT_METHOD"},
		{"unknown project", func(b map[string]interface{}) { b["projectId"] = 9999 }, http.StatusNotFound, "PROJECT_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := f.orderBody(4)
			tt.mutate(body)

			w, response := performRequest(t, f.buyerAPI, http.MethodPost, "/marketplace/placeOrder", body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.False(t, response["success"].(bool))
			assert.Equal(t, tt.expectedCode, errorCode(response))
			assert.Equal(t, 5, f.stock(t), "stock must be untouched")
		})
	}
}

func TestPlaceOrder_ProjectOrderBooksExpense(t *testing.T) {
	f := newOrderFixture(t)
	ledger := services.NewLedgerService(f.db, nil)
	bus := services.NewInProcessEventBus()
	bus.Subscribe(ledger.HandleOrderEvent)
	useEventBus(t, bus)

	body := f.orderBody(10)
	body["projectId"] = f.project.ID
	f.place(t, body)

	summary, err := ledger.Summary(context.Background(), services.PrincipalFor(f.buyer), f.project.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("9500").Equal(summary.TotalSpent))
	assert.True(t, decimal.RequireFromString("500").Equal(summary.Remaining))
}

func TestOrderVisibility(t *testing.T) {
	f := newOrderFixture(t)
	orderID := f.place(t, f.orderBody(10))
	path := "/marketplace/getOrderByid/" + uintString(orderID)

	w, response := performRequest(t, f.buyerAPI, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(orderID), dataOf(t, response)["id"])

	stranger := testutil.CreateUser(t, f.db, "stranger", models.RoleCustomer)
	strangerAPI := setupTestRouter()
	strangerAPI.GET("/marketplace/getOrderByid/:id", asUser(stranger), GetOrderByID)
	w, response = performRequest(t, strangerAPI, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = performRequest(t, f.buyerAPI, http.MethodGet, "/marketplace/getOrderByid/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(response))

	w, response = performRequest(t, f.buyerAPI, http.MethodGet, "/marketplace/getOrderByid/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "ORDER_NOT_FOUND", errorCode(response))

	w, response = performRequest(t, f.buyerAPI, http.MethodGet, "/marketplace/getOrders", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(t, response), 1)

	w, response = performRequest(t, f.sellerAPI, http.MethodGet, "/supplier/getOrders?status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(t, response), 1)

	w, response = performRequest(t, f.sellerAPI, http.MethodGet, "/supplier/getOrders?status=LOST", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(response))
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newOrderFixture(t)
	orderID := f.place(t, f.orderBody(10))
	path := "/supplier/updateOrderStatus/" + uintString(orderID)

	w, response := performRequest(t, f.sellerAPI, http.MethodPut, path, map[string]interface{}{"status": "SHIPPED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(response))

	w, response = performRequest(t, f.sellerAPI, http.MethodPut, path, map[string]interface{}{"status": "SOLD"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATUS", errorCode(response))

	w, response = performRequest(t, f.sellerAPI, http.MethodPut, path, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(response))

	w, response = performRequest(t, f.sellerAPI, http.MethodPut, path, map[string]interface{}{
		"status":            "CONFIRMED",
		"note":              "Dispatching from the Athi River yard",
		"trackingCode":      "TRK-77",
		"estimatedDelivery": "2026-11-02T09:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, "response: %v", response)
	data := dataOf(t, response)
	assert.Equal(t, "CONFIRMED", data["status"])
	assert.Equal(t, []interface{}{"PROCESSING", "CANCELLED"}, data["allowed_transitions"])
	assert.Equal(t, "TRK-77", data["tracking_code"])
	history := data["history"].([]interface{})
	require.Len(t, history, 2)
	assert.Equal(t, "Dispatching from the Athi River yard", history[1].(map[string]interface{})["description"])

	// the buyer cannot drive the supplier side of the lifecycle
	buyerAsSupplier := setupTestRouter()
	buyerAsSupplier.PUT("/supplier/updateOrderStatus/:id", asUser(f.buyer), UpdateOrderStatus)
	w, response = performRequest(t, buyerAsSupplier, http.MethodPut, path, map[string]interface{}{"status": "PROCESSING"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(response))

	w, response = performRequest(t, f.buyerAPI, http.MethodGet, "/marketplace/getOrderHistory/"+uintString(orderID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, listOf(t, response), 2)
}

func TestCancelOrder(t *testing.T) {
	f := newOrderFixture(t)
	orderID := f.place(t, f.orderBody(10))
	path := "/marketplace/cancelOrder/" + uintString(orderID)

	w, response := performRequest(t, f.buyerAPI, http.MethodPut, path, nil)
	require.Equal(t, http.StatusOK, w.Code, "response: %v", response)
	assert.Equal(t, "CANCELLED", dataOf(t, response)["status"])

	w, response = performRequest(t, f.buyerAPI, http.MethodPut, path, map[string]interface{}{"note": "again"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(response))

	w, response = performRequest(t, f.sellerAPI, http.MethodPut, "/supplier/updateOrderStatus/"+uintString(orderID), map[string]interface{}{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ILLEGAL_TRANSITION", errorCode(response))
}
