package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Status reports that the server is up.
func (h *Handler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now(),
		"message":   "Server is running normally",
	})
}

// Stats returns the online/waiting counters. Read-only projection of the
// hub's state, not authoritative.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"online_users":  h.Hub.OnlineCount(),
		"waiting_users": h.Hub.Matcher.WaitingCount(),
		"timestamp":     time.Now(),
	})
}

// Messages returns the ordered message log of a session. The log disappears
// together with the session, so a 404 here just means the conversation ended.
func (h *Handler) Messages(c *gin.Context) {
	sessionID := c.Param("session_id")

	sess, err := h.Storage.GetSessionByID(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if sess == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	messages, err := h.Storage.GetMessages(sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "messages": messages})
}
