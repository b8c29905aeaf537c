package models_test

import (
	"anonchat/backend/internal/models"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestSessionPartnerOf(t *testing.T) {
	sess := models.Session{
		SessionID:    "sess-1",
		Participants: pq.StringArray{"user_A", "user_B"},
		IsActive:     true,
	}

	assert.Equal(t, "user_B", sess.PartnerOf("user_A"))
	assert.Equal(t, "user_A", sess.PartnerOf("user_B"))
	assert.Empty(t, sess.PartnerOf("user_stranger"))
}

func TestSessionHas(t *testing.T) {
	sess := models.Session{
		SessionID:    "sess-1",
		Participants: pq.StringArray{"user_A", "user_B"},
	}

	assert.True(t, sess.Has("user_A"))
	assert.True(t, sess.Has("user_B"))
	assert.False(t, sess.Has("user_stranger"))
}
