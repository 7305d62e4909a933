package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/testutil"
	"github.com/stretchr/testify/suite"
)

// MarketplaceAcceptanceTestSuite drives a buyer, a supplier and a budget
// through a real HTTP server
type MarketplaceAcceptanceTestSuite struct {
	suite.Suite
	server *httptest.Server
	cfg    *config.Config

	buyerToken    string
	supplierToken string
}

// SetupTest gives every test its own server and database
func (s *MarketplaceAcceptanceTestSuite) SetupTest() {
	s.cfg = testutil.TestConfig()
	router, _ := setupRouter(s.T(), s.cfg)
	s.server = httptest.NewServer(router)

	s.buyerToken = testutil.SignToken(s.T(), s.cfg, "auth0|wambui", map[string]interface{}{
		"name":  "Wambui Contractor",
		"email": "wambui@example.com",
	})
	s.supplierToken = testutil.SignToken(s.T(), s.cfg, "auth0|simba", map[string]interface{}{
		"name":  "Simba Cement",
		"email": "sales@simba.example.com",
	})
}

func (s *MarketplaceAcceptanceTestSuite) TearDownTest() {
	s.server.Close()
}

// makeRequest sends a JSON request and decodes the JSON response
func (s *MarketplaceAcceptanceTestSuite) makeRequest(method, path, token string, body interface{}) (int, map[string]interface{}) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		s.Require().NoError(err)
	}

	req, err := http.NewRequest(method, s.server.URL+path, bytes.NewReader(payload))
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var response map[string]interface{}
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))
	return resp.StatusCode, response
}

// mustSucceed asserts status and returns the response's data object
func (s *MarketplaceAcceptanceTestSuite) mustSucceed(expected int, method, path, token string, body interface{}) map[string]interface{} {
	status, response := s.makeRequest(method, path, token, body)
	s.Require().Equal(expected, status, "%s %s: %v", method, path, response)
	data, _ := response["data"].(map[string]interface{})
	return data
}

// idOf renders a decoded numeric id back into its path form
func idOf(data map[string]interface{}) string {
	raw, _ := json.Marshal(data["id"])
	return string(raw)
}

// onboard creates both profiles, a product and the buyer's project and address
func (s *MarketplaceAcceptanceTestSuite) onboard() (productID, projectID, addressID string) {
	s.mustSucceed(http.StatusCreated, http.MethodPost, "/users", s.buyerToken, nil)
	s.mustSucceed(http.StatusCreated, http.MethodPost, "/users", s.supplierToken, nil)
	s.mustSucceed(http.StatusCreated, http.MethodPost, "/supplier/createProfile", s.supplierToken, map[string]interface{}{
		"companyName": "Simba Cement Ltd",
		"location":    "Athi River",
	})

	product := s.mustSucceed(http.StatusCreated, http.MethodPost, "/supplier/createProduct", s.supplierToken, map[string]interface{}{
		"name":     "Simba Cement 50kg",
		"category": "Cement",
		"price":    "950.00",
		"unit":     "bag",
		"stock":    500,
		"minStock": 50,
		"minOrder": 10,
	})
	project := s.mustSucceed(http.StatusCreated, http.MethodPost, "/user/createProject", s.buyerToken, map[string]interface{}{
		"name":     "Ruiru Townhouses",
		"location": "Ruiru",
	})
	s.mustSucceed(http.StatusOK, http.MethodPut, "/user/setBudget/"+idOf(project), s.buyerToken, map[string]interface{}{
		"budget": 100000,
	})
	address := s.mustSucceed(http.StatusCreated, http.MethodPost, "/marketplace/addNewAddress", s.buyerToken, map[string]interface{}{
		"addressName":   "Ruiru site",
		"fullAddress":   "Plot 7, Eastern Bypass, Ruiru",
		"contactName":   "Wambui",
		"contactNumber": "+254722000000",
	})
	return idOf(product), idOf(project), idOf(address)
}

// TestOrderToDelivery places a project order and walks it to DELIVERED
func (s *MarketplaceAcceptanceTestSuite) TestOrderToDelivery() {
	productID, projectID, addressID := s.onboard()

	order := s.mustSucceed(http.StatusCreated, http.MethodPost, "/marketplace/placeOrder", s.buyerToken, map[string]interface{}{
		"productId":       json.Number(productID),
		"projectId":       json.Number(projectID),
		"deliveryAddress": json.Number(addressID),
		"paymentMethod":   "INVOICE",
		"quantity":        40,
	})
	s.Equal("PENDING", order["status"])
	s.Equal("38000", order["total_price"])
	orderID := idOf(order)

	product := s.mustSucceed(http.StatusOK, http.MethodGet, "/marketplace/getProductByid/"+productID, s.buyerToken, nil)
	s.Equal(float64(460), product["stock"])

	summary := s.mustSucceed(http.StatusOK, http.MethodGet, "/user/getBudget/"+projectID, s.buyerToken, nil)
	s.Equal("38000", summary["total_spent"])
	s.Equal("62000", summary["remaining"])

	for _, status := range []string{"CONFIRMED", "PROCESSING", "READY", "SHIPPED", "DELIVERED"} {
		updated := s.mustSucceed(http.StatusOK, http.MethodPut, "/supplier/updateOrderStatus/"+orderID, s.supplierToken, map[string]interface{}{
			"status": status,
		})
		s.Equal(status, updated["status"])
	}

	status, response := s.makeRequest(http.MethodPut, "/marketplace/cancelOrder/"+orderID, s.buyerToken, nil)
	s.Equal(http.StatusConflict, status)
	s.Equal("ILLEGAL_TRANSITION", errorCodeOf(response))

	_, response = s.makeRequest(http.MethodGet, "/marketplace/getOrderHistory/"+orderID, s.buyerToken, nil)
	history, _ := response["data"].([]interface{})
	s.Len(history, 6)
}

// TestCancelReleasesBudget cancels a project order and checks the ledger
func (s *MarketplaceAcceptanceTestSuite) TestCancelReleasesBudget() {
	productID, projectID, addressID := s.onboard()

	order := s.mustSucceed(http.StatusCreated, http.MethodPost, "/marketplace/placeOrder", s.buyerToken, map[string]interface{}{
		"productId":       json.Number(productID),
		"projectId":       json.Number(projectID),
		"deliveryAddress": json.Number(addressID),
		"paymentMethod":   "CASH",
		"quantity":        10,
	})

	cancelled := s.mustSucceed(http.StatusOK, http.MethodPut, "/marketplace/cancelOrder/"+idOf(order), s.buyerToken, map[string]interface{}{
		"note": "Changed supplier",
	})
	s.Equal("CANCELLED", cancelled["status"])

	summary := s.mustSucceed(http.StatusOK, http.MethodGet, "/user/getBudget/"+projectID, s.buyerToken, nil)
	s.Equal("0", summary["total_spent"])
	s.Equal("100000", summary["remaining"])
}

// TestInsufficientStock leaves stock untouched
func (s *MarketplaceAcceptanceTestSuite) TestInsufficientStock() {
	productID, _, addressID := s.onboard()

	status, response := s.makeRequest(http.MethodPost, "/marketplace/placeOrder", s.buyerToken, map[string]interface{}{
		"productId":       json.Number(productID),
		"deliveryAddress": json.Number(addressID),
		"paymentMethod":   "CASH",
		"quantity":        501,
	})
	s.Equal(http.StatusConflict, status)
	s.Equal("INSUFFICIENT_STOCK", errorCodeOf(response))

	product := s.mustSucceed(http.StatusOK, http.MethodGet, "/marketplace/getProductByid/"+productID, s.buyerToken, nil)
	s.Equal(float64(500), product["stock"])
}

// TestMarketplaceAcceptanceTestSuite runs the acceptance test suite
func TestMarketplaceAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceAcceptanceTestSuite))
}
