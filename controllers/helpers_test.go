package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/middleware"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/buildmart/marketplace-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// setupTestDB installs a fresh in-memory database as the global DB and
// restores the previous one when the test ends
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testutil.RequireTestEnvironment(t)

	db := testutil.NewTestDB(t)
	original := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(original) })
	return db
}

// asUser stands in for EnsureValidToken + LoadPrincipal
func asUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", user.Auth0ID)
		middleware.SetPrincipal(c, services.PrincipalFor(user))
		c.Next()
	}
}

// useEventBus installs bus as the global event bus for the test
func useEventBus(t *testing.T, bus services.EventBus) {
	t.Helper()
	original := services.GetEventBus()
	services.SetEventBus(bus)
	t.Cleanup(func() { services.SetEventBus(original) })
}

func performRequest(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w, response
}

func errorCode(response map[string]interface{}) string {
	errBody, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errBody["code"].(string)
	return code
}

func dataOf(t *testing.T, response map[string]interface{}) map[string]interface{} {
	t.Helper()
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "response has no object data: %v", response)
	return data
}

func listOf(t *testing.T, response map[string]interface{}) []interface{} {
	t.Helper()
	data, ok := response["data"].([]interface{})
	require.True(t, ok, "response has no list data: %v", response)
	return data
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
