package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	rateLimiterExpiry = 5 * time.Minute
	rateLimiterSize   = 10000
)

// RateLimit throttles requests per logged-in user, or per client IP for
// anonymous requests. Idle limiters are forgotten after a few minutes.
func RateLimit(ratePerSecond float64, burst int) gin.HandlerFunc {
	limiters := expirable.NewLRU[string, *rate.Limiter](rateLimiterSize, nil, rateLimiterExpiry)

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if user := CurrentUser(c); user != nil {
			key = fmt.Sprintf("user:%d", user.ID)
		}

		limiter, ok := limiters.Get(key)
		if !ok {
			limiter = rate.NewLimiter(rate.Limit(ratePerSecond), burst)
			limiters.Add(key, limiter)
		}
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
