package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anonchat/backend/internal/ratelimit"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := ratelimit.New(ratelimit.Config{
		Window:    60 * time.Second,
		MaxEvents: 2,
		BlockFor:  300 * time.Second,
	}, clock.NewMock())

	r := gin.New()
	r.GET("/ping", RateLimit(limiter), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	// Budget spent: the third request is rejected and the IP is blocked.
	assert.Equal(t, http.StatusTooManyRequests, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
