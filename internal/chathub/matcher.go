package chathub

import (
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
	"log"
	"sync"

	"github.com/benbjohnson/clock"
)

// MatcherService owns the waiting queue and the pairing algorithm. The queue
// is an ordered FIFO: a new participant is always paired with the
// earliest-inserted live entry, never by any other attribute.
//
// The queue is guarded by its own mutex so Enqueue, Remove and the periodic
// SweepAll may run concurrently with the hub's run loop. Pairing itself
// happens outside the lock; liveness is re-validated right before a pairing
// commits.
type MatcherService struct {
	Storage  storage.Storage
	Notifier Notifier
	Clock    clock.Clock

	mu    sync.Mutex
	queue []string

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewMatcherService creates a new Matcher.
func NewMatcherService(n Notifier, s storage.Storage, clk clock.Clock) *MatcherService {
	return &MatcherService{
		Storage:  s,
		Notifier: n,
		Clock:    clk,
		stopCh:   make(chan struct{}),
	}
}

// Run drives the periodic catch-up sweep so a participant who arrives while
// nobody is actively being matched is still picked up.
func (m *MatcherService) Run() {
	log.Println("Matcher service started.")

	ticker := m.Clock.Ticker(config.MatchSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.SweepAll()
		case <-m.stopCh:
			return
		}
	}
}

// Stop terminates the periodic sweep.
func (m *MatcherService) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// Enqueue places a participant into matchmaking. If a live partner is already
// waiting, the earliest one is taken and the two are paired immediately;
// otherwise dead entries are pruned and the participant is appended and told
// it is waiting. Calling Enqueue twice for the same id is a no-op.
func (m *MatcherService) Enqueue(userID string) {
	m.mu.Lock()

	if m.indexOfLocked(userID) >= 0 {
		m.mu.Unlock()
		log.Printf("Participant %s is already in the waiting queue", userID)
		return
	}

	// Scan in insertion order for the first entry that is still live.
	for i, id := range m.queue {
		if m.Notifier.IsLive(id) {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			m.mu.Unlock()
			m.pair(id, userID)
			return
		}
	}

	// No live partner: drop dead entries and wait.
	m.queue = m.pruneDeadLocked(m.queue)
	m.queue = append(m.queue, userID)
	waiting := len(m.queue)
	m.mu.Unlock()

	m.Notifier.Emit(userID, models.EventWaiting, nil)
	log.Printf("Participant %s placed in the waiting queue (%d waiting)", userID, waiting)
}

// pair creates a session for the two participants and notifies both sides.
// a is the earlier-inserted of the two.
func (m *MatcherService) pair(a, b string) {
	// A disconnect mid-pairing must not produce a session holding a dead
	// participant: re-validate liveness before committing.
	if !m.Notifier.IsLive(a) {
		if m.Notifier.IsLive(b) {
			m.requeue(b)
		}
		return
	}
	if !m.Notifier.IsLive(b) {
		m.requeue(a)
		return
	}

	// An id found matched while being paired out of the waiting set means the
	// waiting/matched mutual exclusion broke somewhere. Abort the pairing and
	// log loudly rather than silently creating an overlapping session.
	for i, id := range []string{a, b} {
		sess, err := m.Storage.FindSessionByParticipant(id)
		if err == nil && sess != nil {
			log.Printf("ERROR: invariant violation: participant %s already belongs to active session %s, aborting pairing", id, sess.SessionID)
			other := []string{b, a}[i]
			m.requeue(other)
			return
		}
	}

	session, err := m.Storage.CreateSession(a, b)
	if err != nil {
		log.Printf("ERROR: Failed to create session for %s and %s: %v", a, b, err)
		m.Notifier.Emit(a, models.EventError, models.ErrorPayload{Message: "Something went wrong while pairing"})
		m.Notifier.Emit(b, models.EventError, models.ErrorPayload{Message: "Something went wrong while pairing"})
		// Both go back to the waiting set; the next sweep retries them.
		m.requeue(a)
		m.requeue(b)
		return
	}

	m.Notifier.JoinSession(a, session.SessionID)
	m.Notifier.JoinSession(b, session.SessionID)

	m.Notifier.Emit(a, models.EventMatched, models.MatchedPayload{SessionID: session.SessionID, PartnerID: b})
	m.Notifier.Emit(b, models.EventMatched, models.MatchedPayload{SessionID: session.SessionID, PartnerID: a})

	log.Printf("Matched %s with %s in session %s", a, b, session.SessionID)
}

// requeue appends a participant back to the waiting set without attempting an
// immediate pairing, so a persistently failing store cannot cause a pairing
// loop. The periodic sweep picks it up again.
func (m *MatcherService) requeue(userID string) {
	m.mu.Lock()
	if m.indexOfLocked(userID) < 0 {
		m.queue = append(m.queue, userID)
	}
	m.mu.Unlock()
	m.Notifier.Emit(userID, models.EventWaiting, nil)
}

// SweepAll prunes dead connections, then greedily pairs the remaining live
// entries two at a time in insertion order. Runs periodically and after every
// disconnect.
func (m *MatcherService) SweepAll() {
	m.mu.Lock()

	m.queue = m.pruneDeadLocked(m.queue)

	var pairs [][2]string
	claimed := make(map[string]bool)
	for i := 0; i < len(m.queue); i++ {
		if claimed[m.queue[i]] {
			continue
		}
		for j := i + 1; j < len(m.queue); j++ {
			if claimed[m.queue[j]] {
				continue
			}
			pairs = append(pairs, [2]string{m.queue[i], m.queue[j]})
			claimed[m.queue[i]] = true
			claimed[m.queue[j]] = true
			break
		}
	}

	if len(pairs) > 0 {
		kept := m.queue[:0]
		for _, id := range m.queue {
			if !claimed[id] {
				kept = append(kept, id)
			}
		}
		m.queue = kept
	}
	m.mu.Unlock()

	for _, p := range pairs {
		m.pair(p[0], p[1])
	}

	if len(pairs) > 0 {
		log.Printf("Sweep paired %d couple(s), %d still waiting", len(pairs), m.WaitingCount())
	}
}

// Remove takes a participant out of the waiting set. Idempotent; reports
// whether an entry was actually removed.
func (m *MatcherService) Remove(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOfLocked(userID); i >= 0 {
		m.queue = append(m.queue[:i], m.queue[i+1:]...)
		return true
	}
	return false
}

// WaitingCount returns the number of queued participants.
func (m *MatcherService) WaitingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// WaitingIDs returns a snapshot of the waiting set in insertion order.
func (m *MatcherService) WaitingIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.queue))
	copy(out, m.queue)
	return out
}

func (m *MatcherService) indexOfLocked(userID string) int {
	for i, id := range m.queue {
		if id == userID {
			return i
		}
	}
	return -1
}

// pruneDeadLocked drops entries whose connection has gone away. A dead socket
// discovered here is not an error, just churn.
func (m *MatcherService) pruneDeadLocked(queue []string) []string {
	kept := queue[:0]
	for _, id := range queue {
		if m.Notifier.IsLive(id) {
			kept = append(kept, id)
		}
	}
	return kept
}
