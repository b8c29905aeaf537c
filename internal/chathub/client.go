package chathub

import (
	"anonchat/backend/internal/models"
	"encoding/json"
)

// Client is the interface for one live connection. It abstracts the
// underlying transport so the hub can manage different client types
// uniformly.
type Client interface {
	// GetUserID returns the anonymous id identifying this connection.
	GetUserID() string
	// GetSessionID returns the id of the session the client is currently in,
	// or "" if it is unmatched.
	GetSessionID() string
	// SetSessionID assigns the client to a session. Called by the matcher
	// after a successful pairing and cleared when the session ends.
	SetSessionID(string)

	// GetSendChannel returns the channel the hub pushes client-bound events
	// into. It is a send-only channel.
	GetSendChannel() chan<- models.Event

	// Run starts the client's read and write pumps.
	Run()
	// Close signals the client to shut down. It must be safe to call
	// concurrently with pushes into the send channel.
	Close()
}

// InboundEvent is one decoded client action handed to the hub's run loop.
type InboundEvent struct {
	UserID string
	Name   string
	Data   json.RawMessage
}

// Notifier is the push boundary the matcher and reaper use to reach
// participants. The hub implements it over the connected-clients table and
// the Redis relay.
type Notifier interface {
	// Emit pushes an event to a single participant, if it is connected.
	Emit(userID, event string, payload interface{})
	// Broadcast pushes an event to every member of a session's relay channel.
	Broadcast(sessionID, event string, payload interface{})
	// IsLive reports whether the participant's connection is still up.
	IsLive(userID string) bool
	// JoinSession attaches the participant's connection to a session's relay
	// channel.
	JoinSession(userID, sessionID string)
}
