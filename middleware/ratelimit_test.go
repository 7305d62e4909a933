package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClient(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"), "burst exhausted")

	assert.True(t, limiter.Allow("10.0.0.2"), "other clients have their own bucket")
}

func TestRateLimit_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ping", RateLimit(0.001, 1), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimiter_EvictsIdleClientsOncePerInterval(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	start := time.Now()

	limiter.limiterFor("10.0.0.1", start)
	firstSweep := limiter.lastSweep
	limiter.limiterFor("10.0.0.2", start.Add(30*time.Second))
	assert.Equal(t, firstSweep, limiter.lastSweep, "no sweep inside the interval")
	assert.Len(t, limiter.visitors, 2)

	// 10.0.0.1 has been idle longer than the TTL, 10.0.0.2 has not
	later := start.Add(visitorTTL + time.Second)
	limiter.limiterFor("10.0.0.3", later)
	assert.Equal(t, later, limiter.lastSweep)
	assert.NotContains(t, limiter.visitors, "10.0.0.1")
	assert.Contains(t, limiter.visitors, "10.0.0.2")
	assert.Contains(t, limiter.visitors, "10.0.0.3")
}
