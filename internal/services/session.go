package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/pkg/logger"
	"gorm.io/gorm"
)

// SessionService owns conversation state: the ordered message list, the
// per-message feedback states, and the pending-feedback marker. State lives
// in the warehouse so transcripts survive restarts.
type SessionService struct {
	db *gorm.DB
}

func NewSessionService(db *gorm.DB) *SessionService {
	return &SessionService{db: db}
}

func (s *SessionService) Create() (*models.Session, error) {
	session := &models.Session{ID: uuid.New().String()}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// List returns all sessions, most recently active first, without messages.
func (s *SessionService) List() ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.Order("updated_at DESC").Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

// Get loads a session with its messages in insertion order.
func (s *SessionService) Get(id string) (*models.Session, error) {
	var session models.Session
	err := s.db.Preload("Messages", func(db *gorm.DB) *gorm.DB {
		return db.Order("idx ASC")
	}).First(&session, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Append adds a message at the next position and returns it.
func (s *SessionService) Append(sessionID, role, content string) (*models.Message, error) {
	var count int64
	if err := s.db.Model(&models.Message{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return nil, err
	}

	msg := &models.Message{
		SessionID:     sessionID,
		Idx:           int(count),
		Role:          role,
		Content:       content,
		FeedbackState: models.FeedbackUnset,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}

	// Touch the session so idle cleanup sees activity.
	s.db.Model(&models.Session{}).Where("id = ?", sessionID).Update("updated_at", time.Now())

	return msg, nil
}

// Reset clears a session's history and feedback state, keeping the session itself.
func (s *SessionService) Reset(id string) error {
	if err := s.db.Where("session_id = ?", id).Delete(&models.Message{}).Error; err != nil {
		return err
	}
	return s.db.Model(&models.Session{}).Where("id = ?", id).
		Update("pending_feedback", gorm.Expr("NULL")).Error
}

// PurgeIdle removes sessions (and their messages) not touched since the
// cutoff. Returns the number of sessions removed.
func (s *SessionService) PurgeIdle(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	var stale []models.Session
	if err := s.db.Where("updated_at < ?", cutoff).Find(&stale).Error; err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	ids := make([]string, 0, len(stale))
	for _, sess := range stale {
		ids = append(ids, sess.ID)
	}

	if err := s.db.Where("session_id IN ?", ids).Delete(&models.Message{}).Error; err != nil {
		return 0, err
	}
	result := s.db.Where("id IN ?", ids).Delete(&models.Session{})
	if result.Error != nil {
		return 0, result.Error
	}

	logger.Infof("[Session] Purged %d idle sessions older than %v", result.RowsAffected, olderThan)
	return result.RowsAffected, nil
}

// QuestionFor returns the question paired with the assistant message at idx:
// the immediately preceding user message's content, or "" when the previous
// message does not exist or is not a user message.
func QuestionFor(messages []models.Message, idx int) string {
	if idx-1 >= 0 && idx-1 < len(messages) && messages[idx-1].Role == models.RoleUser {
		return messages[idx-1].Content
	}
	return ""
}
