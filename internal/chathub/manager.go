package chathub

import (
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/storage"
	"anonchat/backend/internal/validator"
	"encoding/json"
	"log"
	"sync"

	"github.com/benbjohnson/clock"
)

// ManagerService is the hub: it owns the connected-clients table, drives the
// connection lifecycle (connect → waiting → paired → ended) and relays
// messages between paired participants. It also implements Notifier for the
// matcher and the reaper.
//
// Register/unregister/inbound events are serialized through the run loop;
// the clients table has its own lock because the matcher and reaper
// goroutines read it through the Notifier methods.
type ManagerService struct {
	mu      sync.RWMutex
	Clients map[string]Client

	// Channels
	IncomingCh   chan InboundEvent
	RegisterCh   chan Client
	UnregisterCh chan Client
	PubSubCh     chan models.Event

	Storage  storage.Storage
	Matcher  *MatcherService
	Governor *ratelimit.Limiter
	Clock    clock.Clock

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewManagerService creates the hub. The matcher is attached afterwards via
// SetMatcher because the two reference each other.
func NewManagerService(s storage.Storage, governor *ratelimit.Limiter, clk clock.Clock) *ManagerService {
	return &ManagerService{
		Clients:      make(map[string]Client),
		IncomingCh:   make(chan InboundEvent, 64),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		PubSubCh:     make(chan models.Event, 64),
		Storage:      s,
		Governor:     governor,
		Clock:        clk,
		stopCh:       make(chan struct{}),
	}
}

// SetMatcher attaches the matchmaking service.
func (m *ManagerService) SetMatcher(matcher *MatcherService) {
	m.Matcher = matcher
}

// Run is the hub's main dispatcher goroutine.
func (m *ManagerService) Run() {
	log.Println("Chat hub started.")

	statsTicker := m.Clock.Ticker(config.StatsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case client := <-m.RegisterCh:
			m.handleRegister(client)
		case client := <-m.UnregisterCh:
			m.handleUnregister(client)
		case ev := <-m.IncomingCh:
			m.handleIncoming(ev)
		case ev := <-m.PubSubCh:
			m.deliverBroadcast(ev)
		case <-statsTicker.C:
			m.BroadcastStats()
		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates the run loop.
func (m *ManagerService) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// handleRegister admits a new connection: track it, start its rate state and
// put it into matchmaking.
func (m *ManagerService) handleRegister(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	m.Clients[userID] = client
	m.mu.Unlock()

	m.Governor.Track(userID)
	log.Printf("Participant connected: %s", userID)

	m.Matcher.Enqueue(userID)
	m.BroadcastStats()
}

// handleUnregister tears down a connection: drop it from the clients table,
// release its waiting/session state and clear its rate state.
func (m *ManagerService) handleUnregister(client Client) {
	userID := client.GetUserID()

	m.mu.Lock()
	current, ok := m.Clients[userID]
	if ok && current == client {
		delete(m.Clients, userID)
	}
	m.mu.Unlock()
	if !ok || current != client {
		return // a newer connection already replaced this one
	}

	client.Close()
	log.Printf("Participant disconnected: %s", userID)

	m.handleDisconnect(userID)
	m.Governor.Forget(userID)
	m.BroadcastStats()
}

// handleDisconnect releases everything the participant held: its waiting
// entry, and its session — whose survivor is notified and re-enqueued.
func (m *ManagerService) handleDisconnect(userID string) {
	if m.Matcher.Remove(userID) {
		log.Printf("Participant %s removed from the waiting queue", userID)
	}

	sess, err := m.Storage.FindSessionByParticipant(userID)
	if err != nil {
		log.Printf("ERROR: Failed to look up session for %s on disconnect: %v", userID, err)
	}
	if sess != nil {
		partner := sess.PartnerOf(userID)
		if partner != "" && m.IsLive(partner) {
			m.Emit(partner, models.EventPartnerDisconnected, nil)
			m.JoinSession(partner, "")
			m.Matcher.Enqueue(partner)
			// Give the re-enqueue a moment to settle before the catch-up pass.
			m.Clock.AfterFunc(config.DisconnectSweepDelay, m.Matcher.SweepAll)
		}

		// The session and its messages go away regardless of whether the
		// partner is still around.
		if err := m.Storage.EndSession(sess.SessionID); err != nil {
			log.Printf("ERROR: Failed to end session %s: %v", sess.SessionID, err)
		}
	}

	m.Matcher.SweepAll()
}

// handleIncoming dispatches one decoded client action.
func (m *ManagerService) handleIncoming(ev InboundEvent) {
	switch ev.Name {
	case models.EventSendMessage:
		var payload models.SendMessagePayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			log.Printf("Malformed %s payload from %s: %v", ev.Name, ev.UserID, err)
			return
		}
		m.handleSendMessage(ev.UserID, payload.Content)

	case models.EventAddReaction:
		var payload models.AddReactionPayload
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			log.Printf("Malformed %s payload from %s: %v", ev.Name, ev.UserID, err)
			return
		}
		m.handleAddReaction(ev.UserID, payload)

	case models.EventFindNewPartner:
		log.Printf("Participant %s requested a new partner", ev.UserID)
		m.Matcher.Enqueue(ev.UserID)

	default:
		log.Printf("Unknown event %q from %s", ev.Name, ev.UserID)
	}
}

// handleSendMessage gates, validates, persists and relays one chat message.
func (m *ManagerService) handleSendMessage(senderID, content string) {
	if !m.Governor.Allow(senderID) {
		m.Emit(senderID, models.EventError, models.ErrorPayload{Message: "You are sending messages too fast. Please try again later."})
		return
	}

	if err := validator.Validate(content); err != nil {
		m.Emit(senderID, models.EventError, models.ErrorPayload{Message: err.Error()})
		return
	}
	sanitized := validator.Sanitize(content)

	sess, err := m.Storage.FindSessionByParticipant(senderID)
	if err != nil {
		m.Emit(senderID, models.EventError, models.ErrorPayload{Message: "Something went wrong while sending the message"})
		return
	}
	if sess == nil {
		// Race between disconnect/timeout and an in-flight message: the
		// message is simply dropped.
		m.Emit(senderID, models.EventError, models.ErrorPayload{Message: "Conversation not found"})
		return
	}

	msg := &models.Message{
		SessionID: sess.SessionID,
		SenderID:  senderID,
		Content:   sanitized,
	}
	if err := m.Storage.SaveMessage(msg); err != nil {
		m.Emit(senderID, models.EventError, models.ErrorPayload{Message: "Something went wrong while sending the message"})
		return
	}

	// The sender receives the relay too, so both sides render the same
	// ordered log instead of echoing locally.
	m.Broadcast(sess.SessionID, models.EventReceiveMessage, models.ReceiveMessagePayload{
		SenderID:  senderID,
		Content:   sanitized,
		CreatedAt: msg.CreatedAt,
	})
}

// handleAddReaction relays a reaction to every member of the session's relay
// channel. Deliberately permissive: if the caller is not attached to the
// channel yet, the reaction attaches it first.
func (m *ManagerService) handleAddReaction(userID string, payload models.AddReactionPayload) {
	if payload.SessionID == "" {
		m.Emit(userID, models.EventError, models.ErrorPayload{Message: "Something went wrong while handling the reaction"})
		return
	}

	m.mu.RLock()
	client, ok := m.Clients[userID]
	m.mu.RUnlock()
	if ok && client.GetSessionID() != payload.SessionID {
		log.Printf("Participant %s not attached to session %s yet, attaching", userID, payload.SessionID)
		client.SetSessionID(payload.SessionID)
	}

	m.Broadcast(payload.SessionID, models.EventReceiveReaction, models.ReceiveReactionPayload{
		MessageIndex: payload.MessageIndex,
		Emoji:        payload.Emoji,
	})
}

// BroadcastStats pushes the online/waiting counters to every connection.
func (m *ManagerService) BroadcastStats() {
	stats := models.UserStatsPayload{
		OnlineUsers:  m.OnlineCount(),
		WaitingUsers: m.Matcher.WaitingCount(),
	}

	ev := models.Event{Name: models.EventUserStats, Data: stats}

	m.mu.RLock()
	for _, client := range m.Clients {
		m.push(client, ev)
	}
	m.mu.RUnlock()

	log.Printf("User stats: %d online, %d waiting", stats.OnlineUsers, stats.WaitingUsers)
}

// OnlineCount returns the number of connected participants.
func (m *ManagerService) OnlineCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Clients)
}

// --- Notifier implementation ---

// Emit pushes an event directly to one connected participant.
func (m *ManagerService) Emit(userID, event string, payload interface{}) {
	m.mu.RLock()
	client, ok := m.Clients[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.push(client, models.Event{Name: event, Data: payload})
}

// Broadcast publishes a session event on the relay channel. Every instance's
// pub/sub listener fans it out to its local members of the session. If the
// relay is down the event is delivered locally so a single-instance
// deployment keeps working.
func (m *ManagerService) Broadcast(sessionID, event string, payload interface{}) {
	ev := models.Event{Name: event, SessionID: sessionID, Data: payload}

	if err := m.Storage.PublishEvent(ev); err != nil {
		log.Printf("ERROR: Failed to publish %s for session %s: %v, delivering locally", event, sessionID, err)
		m.deliverBroadcast(ev)
	}
}

// IsLive reports whether the participant's connection is registered.
func (m *ManagerService) IsLive(userID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Clients[userID]
	return ok
}

// JoinSession attaches a connection to a session's relay channel.
func (m *ManagerService) JoinSession(userID, sessionID string) {
	m.mu.RLock()
	client, ok := m.Clients[userID]
	m.mu.RUnlock()
	if ok {
		client.SetSessionID(sessionID)
	}
}

// deliverBroadcast fans a relayed event out to the local members of its
// session.
func (m *ManagerService) deliverBroadcast(ev models.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, client := range m.Clients {
		if client.GetSessionID() == ev.SessionID {
			m.push(client, ev)
		}
	}
}

// push hands an event to a client without blocking the hub; a client that
// cannot keep up loses events rather than stalling everyone else.
func (m *ManagerService) push(client Client, ev models.Event) {
	select {
	case client.GetSendChannel() <- ev:
	default:
		log.Printf("WARNING: Send buffer full for participant %s, dropping %s", client.GetUserID(), ev.Name)
	}
}
