// Package ratelimit guards the websocket upgrade endpoint with per-IP
// connection limits backed by an in-memory store.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/mazehunt/server/internal/v1/config"
	"github.com/mazehunt/server/internal/v1/logging"
	"github.com/mazehunt/server/internal/v1/metrics"
)

// RateLimiter holds the websocket connection limiter.
type RateLimiter struct {
	wsIP *limiter.Limiter
}

// New creates a rate limiter from the configured rate (format "<count>-<period>",
// e.g. "100-M" for 100 per minute).
func New(cfg *config.Config) (*RateLimiter, error) {
	wsIPRate, err := limiter.NewRateFromFormatted(cfg.RateLimitWsIP)
	if err != nil {
		return nil, fmt.Errorf("invalid WS IP rate: %w", err)
	}
	return &RateLimiter{
		wsIP: limiter.New(memory.NewStore(), wsIPRate),
	}, nil
}

// CheckWebSocket reports whether a new websocket connection from this IP is
// allowed. On rejection the HTTP error response has already been written.
func (rl *RateLimiter) CheckWebSocket(c *gin.Context) bool {
	ctx := c.Request.Context()
	ip := c.ClientIP()

	ipContext, err := rl.wsIP.Get(ctx, ip)
	if err != nil {
		// Fail open: availability beats strictness for a game server.
		logging.Error(ctx, "WS rate limiter store failed", zap.Error(err))
		return true
	}

	if ipContext.Reached {
		metrics.RateLimitExceeded.WithLabelValues("websocket_connect", "ip").Inc()
		c.Header("X-RateLimit-Retry-After", strconv.FormatInt(ipContext.Reset, 10))
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many connections from this IP"})
		return false
	}
	return true
}
