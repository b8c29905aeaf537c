package models

import (
	"time"

	"github.com/lib/pq" // needed for pq.StringArray
)

// Session represents an active 1-on-1 conversation between two anonymous
// participants. It is created by the matcher, touched on every relayed
// message, and hard-deleted (together with its messages) when either side
// disconnects or the conversation goes idle. Session ids are never reused.
type Session struct {
	// SessionID is the unique identifier for the session (UUID).
	SessionID string `gorm:"primaryKey" json:"session_id"`
	// Participants holds exactly two distinct anonymous connection ids.
	Participants pq.StringArray `gorm:"type:text[];not null" json:"participants"`
	// IsActive indicates whether the session is currently live.
	IsActive bool `json:"is_active"`
	// LastActivity is bumped every time a message is relayed.
	LastActivity time.Time `json:"last_activity"`
	// CreatedAt is the timestamp when the pairing happened.
	CreatedAt time.Time `json:"created_at"`
}

// PartnerOf returns the other participant of the session, or "" if the
// given id is not a member.
func (s *Session) PartnerOf(id string) string {
	if !s.Has(id) {
		return ""
	}
	for _, p := range s.Participants {
		if p != id {
			return p
		}
	}
	return ""
}

// Has reports whether id is one of the session participants.
func (s *Session) Has(id string) bool {
	for _, p := range s.Participants {
		if p == id {
			return true
		}
	}
	return false
}
