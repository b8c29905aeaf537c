package models

import "time"

// Client-bound event names.
const (
	EventWaiting             = "waiting"
	EventMatched             = "matched"
	EventReceiveMessage      = "receive-message"
	EventReceiveReaction     = "receive-reaction"
	EventPartnerDisconnected = "partner-disconnected"
	EventConversationTimeout = "conversation-timeout"
	EventError               = "error"
	EventUserStats           = "user-stats"
)

// Inbound event names (from clients).
const (
	EventSendMessage    = "send-message"
	EventAddReaction    = "add-reaction"
	EventFindNewPartner = "find-new-partner"
)

// Event is the wire envelope for everything pushed to a client. SessionID is
// set on broadcast events so the relay can route them; it is omitted on
// direct emits.
type Event struct {
	Name      string      `json:"event"`
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type MatchedPayload struct {
	SessionID string `json:"session_id"`
	PartnerID string `json:"partner_id"`
}

type ReceiveMessagePayload struct {
	SenderID  string    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ReceiveReactionPayload struct {
	MessageIndex int    `json:"message_index"`
	Emoji        string `json:"emoji"`
}

type TimeoutPayload struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type UserStatsPayload struct {
	OnlineUsers  int `json:"online_users"`
	WaitingUsers int `json:"waiting_users"`
}

// SendMessagePayload is the body of a send-message inbound event.
type SendMessagePayload struct {
	Content string `json:"content"`
}

// AddReactionPayload is the body of an add-reaction inbound event.
type AddReactionPayload struct {
	SessionID    string `json:"session_id"`
	MessageIndex int    `json:"message_index"`
	Emoji        string `json:"emoji"`
}
