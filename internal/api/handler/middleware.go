package handler

import (
	"net/http"

	"anonchat/backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit rejects requests from client IPs that exceed the limiter's
// budget with 429. Applied to the plain request/response endpoints and the
// WebSocket upgrade.
func RateLimit(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			return
		}
		c.Next()
	}
}
