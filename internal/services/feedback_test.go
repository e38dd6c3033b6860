package services

import (
	"context"
	"testing"
	"time"

	"github.com/mteuf/chatbot-testing/internal/models"
	"gorm.io/gorm"
)

// captureQueue records enqueued tasks instead of dispatching them.
type captureQueue struct {
	tasks []*FeedbackTask
}

func (q *captureQueue) Enqueue(task *FeedbackTask) error {
	q.tasks = append(q.tasks, task)
	return nil
}
func (q *captureQueue) IsAsync() bool { return false }
func (q *captureQueue) Close() error  { return nil }

func seedConversation(t *testing.T, db *gorm.DB) string {
	t.Helper()
	sessions := NewSessionService(db)
	session, err := sessions.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	sessions.Append(session.ID, models.RoleUser, "What is the policy?")
	sessions.Append(session.ID, models.RoleAssistant, "The policy says X.")
	return session.ID
}

func messageState(t *testing.T, db *gorm.DB, sessionID string, idx int) string {
	t.Helper()
	var msg models.Message
	if err := db.Where("session_id = ? AND idx = ?", sessionID, idx).First(&msg).Error; err != nil {
		t.Fatalf("load message: %v", err)
	}
	return msg.FeedbackState
}

func TestFeedback_RateOpensCapture(t *testing.T) {
	db := testDB(t)
	queue := &captureQueue{}
	service := NewFeedbackService(db, queue)
	sessionID := seedConversation(t, db)

	if err := service.Rate(sessionID, 1, models.FeedbackThumbsDown); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	// Rated but not submitted: the state survives the next render pass.
	if got := messageState(t, db, sessionID, 1); got != models.FeedbackThumbsDown {
		t.Errorf("state = %q, expected thumbs_down", got)
	}
	session, _ := NewSessionService(db).Get(sessionID)
	if session.PendingFeedback == nil || *session.PendingFeedback != 1 {
		t.Errorf("pending feedback = %v, expected 1", session.PendingFeedback)
	}
	if len(queue.tasks) != 0 {
		t.Error("rating alone must not dispatch persistence")
	}
}

func TestFeedback_RateValidation(t *testing.T) {
	db := testDB(t)
	service := NewFeedbackService(db, &captureQueue{})
	sessionID := seedConversation(t, db)

	if err := service.Rate(sessionID, 1, "meh"); err == nil {
		t.Error("expected error for invalid score")
	}
	if err := service.Rate(sessionID, 0, models.FeedbackThumbsUp); err == nil {
		t.Error("expected error rating a user message")
	}
	if err := service.Rate(sessionID, 99, models.FeedbackThumbsUp); err == nil {
		t.Error("expected error for missing message")
	}

	if err := service.Rate(sessionID, 1, models.FeedbackThumbsUp); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := service.Rate(sessionID, 1, models.FeedbackThumbsDown); err == nil {
		t.Error("expected error re-rating a rated message")
	}
}

func TestFeedback_ThumbsDownSubmit(t *testing.T) {
	db := testDB(t)
	queue := &captureQueue{}
	service := NewFeedbackService(db, queue)
	sessionID := seedConversation(t, db)

	service.Rate(sessionID, 1, models.FeedbackThumbsDown)

	if err := service.Submit(sessionID, 1, "bogus category", "too vague"); err == nil {
		t.Fatal("expected error for category outside the fixed set")
	}

	if err := service.Submit(sessionID, 1, "inaccurate", "numbers are wrong"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if got := messageState(t, db, sessionID, 1); got != models.FeedbackSubmitted {
		t.Errorf("state = %q, expected submitted", got)
	}
	session, _ := NewSessionService(db).Get(sessionID)
	if session.PendingFeedback != nil {
		t.Error("pending marker should be cleared after submission")
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 dispatched task, got %d", len(queue.tasks))
	}
	task := queue.tasks[0]
	if task.Question != "What is the policy?" {
		t.Errorf("question = %q, expected the preceding user message", task.Question)
	}
	if task.Answer != "The policy says X." {
		t.Errorf("answer = %q", task.Answer)
	}
	if task.Score != models.FeedbackThumbsDown || task.Category != "inaccurate" || task.Comment != "numbers are wrong" {
		t.Errorf("task = %+v", task)
	}
	if task.User != "" {
		t.Errorf("user = %q, expected empty", task.User)
	}
	if _, err := time.Parse(time.RFC3339, task.Timestamp); err != nil {
		t.Errorf("timestamp %q is not ISO-8601: %v", task.Timestamp, err)
	}
}

func TestFeedback_ThumbsUpSubmitClearsCategory(t *testing.T) {
	db := testDB(t)
	queue := &captureQueue{}
	service := NewFeedbackService(db, queue)
	sessionID := seedConversation(t, db)

	service.Rate(sessionID, 1, models.FeedbackThumbsUp)
	if err := service.Submit(sessionID, 1, "outdated", "great answer"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(queue.tasks) != 1 {
		t.Fatalf("expected 1 dispatched task, got %d", len(queue.tasks))
	}
	if queue.tasks[0].Category != "" {
		t.Errorf("category = %q, expected empty for thumbs_up", queue.tasks[0].Category)
	}
	if queue.tasks[0].Score != models.FeedbackThumbsUp {
		t.Errorf("score = %q", queue.tasks[0].Score)
	}
}

func TestFeedback_SubmittedIsTerminal(t *testing.T) {
	db := testDB(t)
	service := NewFeedbackService(db, &captureQueue{})
	sessionID := seedConversation(t, db)

	service.Rate(sessionID, 1, models.FeedbackThumbsUp)
	if err := service.Submit(sessionID, 1, "", ""); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if err := service.Submit(sessionID, 1, "", "again"); err == nil {
		t.Error("expected error re-submitting")
	}
	if err := service.Rate(sessionID, 1, models.FeedbackThumbsDown); err == nil {
		t.Error("expected error re-rating a submitted message")
	}
	if got := messageState(t, db, sessionID, 1); got != models.FeedbackSubmitted {
		t.Errorf("state = %q, expected submitted to be irreversible", got)
	}
}

func TestFeedback_SubmitRequiresRating(t *testing.T) {
	db := testDB(t)
	service := NewFeedbackService(db, &captureQueue{})
	sessionID := seedConversation(t, db)

	if err := service.Submit(sessionID, 1, "other", "drive-by comment"); err == nil {
		t.Error("expected error submitting an unrated message")
	}
}

func TestFeedback_StoreInsertsRow(t *testing.T) {
	db := testDB(t)
	service := NewFeedbackService(db, &captureQueue{})

	task := &FeedbackTask{
		Question:  "Q",
		Answer:    "A",
		Score:     models.FeedbackThumbsDown,
		Comment:   "C",
		Category:  "outdated",
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if err := service.Store(context.Background(), task); err != nil {
		t.Fatalf("Store: %v", err)
	}

	var record models.Feedback
	if err := db.First(&record).Error; err != nil {
		t.Fatalf("load feedback row: %v", err)
	}
	if record.Question != "Q" || record.Answer != "A" || record.Category != "outdated" {
		t.Errorf("record = %+v", record)
	}
	if record.User != "" {
		t.Errorf("user column = %q, expected empty", record.User)
	}
}
