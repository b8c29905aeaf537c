package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"anonchat/backend/internal/ratelimit"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *Handler {
	return &Handler{JWTSecret: []byte("test-secret")}
}

func TestJWTRoundTrip(t *testing.T) {
	h := newTestHandler()

	token, err := h.generateJWT("anon-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	anonID, err := h.validateAndGetAnonID(token)
	require.NoError(t, err)
	assert.Equal(t, "anon-123", anonID)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	h := newTestHandler()
	token, err := h.generateJWT("anon-123")
	require.NoError(t, err)

	other := &Handler{JWTSecret: []byte("different-secret")}
	_, err = other.validateAndGetAnonID(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	h := newTestHandler()
	_, err := h.validateAndGetAnonID("not.a.token")
	assert.Error(t, err)
}

func TestGetAnonID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler()

	r := gin.New()
	r.GET("/anonid", h.GetAnonID)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anonid", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["anon_id"])
	assert.NotEmpty(t, body["token"])

	// The issued token resolves back to the issued id.
	anonID, err := h.validateAndGetAnonID(body["token"])
	require.NoError(t, err)
	assert.Equal(t, body["anon_id"], anonID)
}

// TestGetAnonIDRateLimited verifies token minting sits behind the request
// limiter like every other plain endpoint.
func TestGetAnonIDRateLimited(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newTestHandler()

	limiter := ratelimit.New(ratelimit.Config{
		Window:    60 * time.Second,
		MaxEvents: 1,
		BlockFor:  300 * time.Second,
	}, clock.NewMock())

	r := gin.New()
	r.GET("/anonid", RateLimit(limiter), h.GetAnonID)

	do := func() int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/anonid", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
