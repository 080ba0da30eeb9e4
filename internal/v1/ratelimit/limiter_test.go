package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mazehunt/server/internal/v1/config"
)

func TestNewRejectsBadRate(t *testing.T) {
	_, err := New(&config.Config{RateLimitWsIP: "not-a-rate"})
	assert.Error(t, err)
}

func testContext(ip string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/ws/hub", nil)
	c.Request.RemoteAddr = ip + ":51000"
	return c, w
}

func TestCheckWebSocketPerIPLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, err := New(&config.Config{RateLimitWsIP: "3-M"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		c, _ := testContext("10.0.0.1")
		assert.True(t, rl.CheckWebSocket(c), "connection %d within the limit", i+1)
	}

	c, w := testContext("10.0.0.1")
	assert.False(t, rl.CheckWebSocket(c))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Retry-After"))

	// A different IP has its own counter.
	c, _ = testContext("10.0.0.2")
	assert.True(t, rl.CheckWebSocket(c))
}
