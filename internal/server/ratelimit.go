package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	httperr "github.com/gridwatch-lab/gridwatch/internal/core/errors"
)

// rateLimiter is a fixed-window per-client counter. Counts reset wholesale at
// each window boundary rather than draining continuously, so a client gets a
// fresh allowance the moment a new window opens.
type rateLimiter struct {
	limit  int
	window time.Duration
	nowFn  func() time.Time

	mu          sync.Mutex
	counts      map[string]int
	windowStart time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:       limit,
		window:      window,
		nowFn:       time.Now,
		counts:      make(map[string]int),
		windowStart: time.Now(),
	}
}

// allow counts one request for the client and reports whether it fits in the
// current window.
func (rl *rateLimiter) allow(clientKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.nowFn()
	if now.Sub(rl.windowStart) >= rl.window {
		rl.counts = make(map[string]int)
		rl.windowStart = now
	}

	rl.counts[clientKey]++
	return rl.counts[clientKey] <= rl.limit
}

// RateLimit returns middleware enforcing limit requests per client per
// window, keyed by client IP. Over-limit requests get 429 with a retry hint.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	rl := newRateLimiter(limit, window)

	return func(c *gin.Context) {
		if rl.allow(c.ClientIP()) {
			c.Next()
			return
		}

		c.Header("Retry-After", window.String())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, httperr.ErrorResponse{
			ErrorType: httperr.HttpRateLimitedError,
			Message:   "Too many requests",
		})
	}
}
