package services

import (
	"context"
	"time"

	"github.com/mteuf/chatbot-testing/internal/models"
	"github.com/mteuf/chatbot-testing/pkg/logger"
	"github.com/mteuf/chatbot-testing/pkg/response"
	"gorm.io/gorm"
)

// FeedbackCategories is the fixed set a thumbs-down submission must pick from.
var FeedbackCategories = []string{"inaccurate", "outdated", "too long", "too short", "other"}

func validCategory(category string) bool {
	for _, c := range FeedbackCategories {
		if c == category {
			return true
		}
	}
	return false
}

// FeedbackService runs the per-message capture flow:
// unset -> thumbs_up | thumbs_down -> submitted, with submitted terminal.
// Submission dispatches the warehouse write fire-and-forget.
type FeedbackService struct {
	db       *gorm.DB
	sessions *SessionService
	queue    TaskQueue
}

func NewFeedbackService(db *gorm.DB, queue TaskQueue) *FeedbackService {
	return &FeedbackService{
		db:       db,
		sessions: NewSessionService(db),
		queue:    queue,
	}
}

func (s *FeedbackService) message(sessionID string, idx int) (*models.Message, error) {
	var msg models.Message
	err := s.db.Where("session_id = ? AND idx = ?", sessionID, idx).First(&msg).Error
	if err != nil {
		return nil, response.NewNotFound("message not found")
	}
	return &msg, nil
}

// Rate opens the capture flow for an assistant message: unset -> thumbs_up or
// thumbs_down, and marks the message as pending so the detail form attaches
// to it.
func (s *FeedbackService) Rate(sessionID string, idx int, score string) error {
	if score != models.FeedbackThumbsUp && score != models.FeedbackThumbsDown {
		return response.NewBadRequest("score must be thumbs_up or thumbs_down")
	}

	msg, err := s.message(sessionID, idx)
	if err != nil {
		return err
	}
	if msg.Role != models.RoleAssistant {
		return response.NewBadRequest("only assistant messages can be rated")
	}

	switch msg.FeedbackState {
	case models.FeedbackUnset:
	case models.FeedbackSubmitted:
		return response.NewConflict("feedback already submitted")
	default:
		return response.NewConflict("message already rated")
	}

	if err := s.db.Model(msg).Update("feedback_state", score).Error; err != nil {
		return err
	}
	return s.db.Model(&models.Session{}).Where("id = ?", sessionID).
		Update("pending_feedback", idx).Error
}

// Submit completes the capture form and transitions the message to the
// terminal submitted state. A thumbs-down submission requires a category from
// FeedbackCategories; a thumbs-up submission records an empty category. The
// state transition happens regardless of whether the warehouse write later
// succeeds.
func (s *FeedbackService) Submit(sessionID string, idx int, category, comment string) error {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return response.NewNotFound("session not found")
	}

	msg, err := s.message(sessionID, idx)
	if err != nil {
		return err
	}

	switch msg.FeedbackState {
	case models.FeedbackThumbsDown:
		if !validCategory(category) {
			return response.NewBadRequest("category must be one of: inaccurate, outdated, too long, too short, other")
		}
	case models.FeedbackThumbsUp:
		category = ""
	case models.FeedbackSubmitted:
		return response.NewConflict("feedback already submitted")
	default:
		return response.NewConflict("message has not been rated")
	}

	task := &FeedbackTask{
		Question:  QuestionFor(session.Messages, idx),
		Answer:    msg.Content,
		Score:     msg.FeedbackState,
		Comment:   comment,
		Category:  category,
		Timestamp: time.Now().Format(time.RFC3339),
		User:      "",
	}

	// Transition first: the write is best-effort and its outcome never feeds
	// back into the capture flow.
	if err := s.db.Model(msg).Update("feedback_state", models.FeedbackSubmitted).Error; err != nil {
		return err
	}
	if session.PendingFeedback != nil && *session.PendingFeedback == idx {
		s.db.Model(&models.Session{}).Where("id = ?", sessionID).
			Update("pending_feedback", gorm.Expr("NULL"))
	}

	if err := s.queue.Enqueue(task); err != nil {
		logger.Warnf("[Feedback] Could not enqueue feedback task: %v", err)
	}

	return nil
}

// Store inserts one feedback row into the warehouse. Failures are logged and
// returned for queue bookkeeping, but by this point the interactive flow has
// already moved on.
func (s *FeedbackService) Store(ctx context.Context, task *FeedbackTask) error {
	record := models.Feedback{
		Question:  task.Question,
		Answer:    task.Answer,
		Score:     task.Score,
		Comment:   task.Comment,
		Category:  task.Category,
		Timestamp: task.Timestamp,
		User:      task.User,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		logger.Warnf("[Feedback] Could not store feedback: %v", err)
		return err
	}
	return nil
}
