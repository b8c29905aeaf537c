package models

import "gorm.io/gorm"

// Message represents a saved chat message in the PostgreSQL database.
// The embedded gorm.Model provides ID, CreatedAt, UpdatedAt, and DeletedAt
// fields, which serve as the message ID and timestamps. Messages live only
// as long as their session: ending a session deletes its messages.
type Message struct {
	gorm.Model

	// SessionID is the identifier of the session the message belongs to.
	SessionID string `gorm:"type:uuid;not null;index:idx_session_msg"`
	// SenderID is the anonymous id of the participant who sent the message.
	SenderID string `gorm:"type:text;not null;index:idx_session_msg"`
	// Content is the sanitized message text.
	Content string `gorm:"type:text;not null"`
}
