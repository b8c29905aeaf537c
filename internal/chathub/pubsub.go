package chathub

import (
	"anonchat/backend/internal/models"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// StartPubSubListener starts a goroutine that forwards relayed session events
// from the Redis broadcast channel into the hub's run loop, where they are
// fanned out to the local members of each session.
func (m *ManagerService) StartPubSubListener(pubsub *redis.PubSub) {
	go func() {
		defer pubsub.Close()

		for msg := range pubsub.Channel() {
			var ev models.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				log.Printf("ERROR: Failed to unmarshal relayed event: %v", err)
				continue
			}

			select {
			case m.PubSubCh <- ev:
			case <-m.stopCh:
				return
			}
		}
	}()
}
