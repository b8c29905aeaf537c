package chathub_test

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestCloseKeepsSendChannelOpen verifies tearing a client down never closes
// its send channel: the matcher and reaper push from their own goroutines, so
// a push landing after Close must be absorbed, not panic.
func TestCloseKeepsSendChannelOpen(t *testing.T) {
	client := chathub.NewWebSocketClient(nil, "user_A", nil)

	client.Close()
	client.Close() // idempotent

	assert.NotPanics(t, func() {
		client.GetSendChannel() <- models.Event{Name: models.EventWaiting}
	})
}
