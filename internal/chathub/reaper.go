package chathub

import (
	"anonchat/backend/internal/config"
	"anonchat/backend/internal/models"
	"anonchat/backend/internal/storage"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ReaperService periodically ends sessions that have been idle past the
// timeout. Participants of a reaped session get a conversation-timeout event
// but are not re-enqueued: reconnecting is the client's move (it may have
// navigated away), unlike the disconnect path where the survivor is known to
// still want a partner.
type ReaperService struct {
	Storage  storage.Storage
	Notifier Notifier
	Clock    clock.Clock

	IdleTimeout   time.Duration
	CheckInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewReaperService creates an idle-session reaper with the default timeout
// and sweep interval.
func NewReaperService(n Notifier, s storage.Storage, clk clock.Clock) *ReaperService {
	return &ReaperService{
		Storage:       s,
		Notifier:      n,
		Clock:         clk,
		IdleTimeout:   config.IdleTimeout,
		CheckInterval: config.IdleCheckInterval,
		stopCh:        make(chan struct{}),
	}
}

// Run sweeps for idle sessions until Stop is called.
func (r *ReaperService) Run() {
	log.Println("Idle session reaper started.")

	ticker := r.Clock.Ticker(r.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.ReapIdleSessions()
		case <-r.stopCh:
			return
		}
	}
}

// Stop terminates the periodic sweep.
func (r *ReaperService) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// ReapIdleSessions ends every active session whose last activity is older
// than the idle timeout. A failure on one session does not abort the sweep of
// the rest.
func (r *ReaperService) ReapIdleSessions() {
	threshold := r.Clock.Now().Add(-r.IdleTimeout)

	sessions, err := r.Storage.GetIdleSessions(threshold)
	if err != nil {
		log.Printf("ERROR: Failed to fetch idle sessions: %v", err)
		return
	}

	for _, sess := range sessions {
		for _, participant := range sess.Participants {
			if r.Notifier.IsLive(participant) {
				r.Notifier.Emit(participant, models.EventConversationTimeout, models.TimeoutPayload{
					SessionID: sess.SessionID,
					Message:   "The conversation ended due to inactivity",
				})
			}
			// The session is going away, so detach the connection from its
			// relay channel.
			r.Notifier.JoinSession(participant, "")
		}

		if err := r.Storage.EndSession(sess.SessionID); err != nil {
			log.Printf("ERROR: Failed to end idle session %s: %v", sess.SessionID, err)
			continue
		}
		log.Printf("Ended session %s due to inactivity", sess.SessionID)
	}
}
