package storage

import (
	"anonchat/backend/internal/models"
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// BroadcastChannel is the Redis Pub/Sub channel carrying relayed session
// events between server instances.
const BroadcastChannel = "chat:broadcast"

// Storage is the persistence boundary consumed by the chathub. Sessions and
// messages live in PostgreSQL; the broadcast relay goes through Redis Pub/Sub.
type Storage interface {
	CreateSession(participantA, participantB string) (*models.Session, error)
	FindSessionByParticipant(id string) (*models.Session, error)
	GetSessionByID(sessionID string) (*models.Session, error)
	GetIdleSessions(olderThan time.Time) ([]models.Session, error)
	EndSession(sessionID string) error

	SaveMessage(msg *models.Message) error
	GetMessages(sessionID string) ([]models.Message, error)

	PublishEvent(ev models.Event) error
}

type Service struct {
	DB    *gorm.DB
	Redis *redis.Client
	Ctx   context.Context
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		Ctx:   context.Background(),
	}
}

// CreateSession creates an active session record for the two participants.
func (s *Service) CreateSession(participantA, participantB string) (*models.Session, error) {
	session := &models.Session{
		SessionID:    uuid.New().String(),
		Participants: pq.StringArray{participantA, participantB},
		IsActive:     true,
		LastActivity: time.Now(),
		CreatedAt:    time.Now(),
	}

	if err := s.DB.Create(session).Error; err != nil {
		log.Printf("ERROR: Failed to create session for %s and %s: %v", participantA, participantB, err)
		return nil, err
	}
	return session, nil
}

// FindSessionByParticipant returns the active session the participant is in,
// or nil if there is none.
func (s *Service) FindSessionByParticipant(id string) (*models.Session, error) {
	var session models.Session

	err := s.DB.Where("is_active = ?", true).
		Where("? = ANY(participants)", id).
		First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // participant is not in an active session
	}
	if err != nil {
		log.Printf("ERROR: Failed to find session for participant %s: %v", id, err)
		return nil, err
	}
	return &session, nil
}

// GetSessionByID returns the session with the given id, or nil if it is gone.
func (s *Service) GetSessionByID(sessionID string) (*models.Session, error) {
	var session models.Session

	err := s.DB.Where("session_id = ?", sessionID).First(&session).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		log.Printf("ERROR: Failed to get session %s: %v", sessionID, err)
		return nil, err
	}
	return &session, nil
}

// GetIdleSessions returns all active sessions whose last activity is older
// than the given threshold.
func (s *Service) GetIdleSessions(olderThan time.Time) ([]models.Session, error) {
	var sessions []models.Session

	err := s.DB.Where("is_active = ?", true).
		Where("last_activity < ?", olderThan).
		Find(&sessions).Error

	if err != nil {
		log.Printf("ERROR: Failed to query idle sessions: %v", err)
		return nil, err
	}
	return sessions, nil
}

// EndSession deletes the session and every message that belongs to it.
// Session ids are never reused, so this is a hard delete, not a close.
func (s *Service) EndSession(sessionID string) error {
	result := s.DB.Unscoped().Where("session_id = ?", sessionID).Delete(&models.Message{})
	if result.Error != nil {
		log.Printf("ERROR: Failed to delete messages of session %s: %v", sessionID, result.Error)
		return result.Error
	}
	log.Printf("Deleted %d messages of session %s", result.RowsAffected, sessionID)

	if err := s.DB.Where("session_id = ?", sessionID).Delete(&models.Session{}).Error; err != nil {
		log.Printf("ERROR: Failed to delete session %s: %v", sessionID, err)
		return err
	}
	return nil
}

// SaveMessage persists the message and bumps the session's last activity.
func (s *Service) SaveMessage(msg *models.Message) error {
	if err := s.DB.Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for session %s: %v", msg.SessionID, err)
		return err
	}

	err := s.DB.Model(&models.Session{}).
		Where("session_id = ?", msg.SessionID).
		Update("last_activity", time.Now()).Error
	if err != nil {
		log.Printf("ERROR: Failed to bump last_activity for session %s: %v", msg.SessionID, err)
		return err
	}
	return nil
}

// GetMessages returns the message log of a session ordered by creation time.
func (s *Service) GetMessages(sessionID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.Where("session_id = ?", sessionID).Order("created_at asc").Find(&messages).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return messages, nil
		}
		log.Printf("ERROR: Failed to get messages for session %s: %v", sessionID, err)
		return nil, err
	}
	return messages, nil
}

// PublishEvent publishes a session event on the Redis broadcast channel.
func (s *Service) PublishEvent(ev models.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return s.Redis.Publish(s.Ctx, BroadcastChannel, payload).Err()
}

// SubscribeEvents subscribes to the broadcast channel.
func (s *Service) SubscribeEvents() *redis.PubSub {
	return s.Redis.Subscribe(s.Ctx, BroadcastChannel)
}
