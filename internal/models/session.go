package models

import "time"

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Per-message feedback states
const (
	FeedbackUnset      = "unset"
	FeedbackThumbsUp   = "thumbs_up"
	FeedbackThumbsDown = "thumbs_down"
	FeedbackSubmitted  = "submitted"
)

// Session is one conversation. Messages are append-only for the session's
// lifetime and cleared on reset. PendingFeedback marks which assistant
// message currently has its feedback capture form open, if any.
type Session struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	PendingFeedback *int      `json:"pending_feedback,omitempty"`
	Messages        []Message `gorm:"foreignKey:SessionID;references:ID" json:"messages,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "sessions" }

// Message is one conversation turn. Idx is the message's position within the
// session; insertion order is significant.
type Message struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	SessionID     string    `gorm:"index;size:36;not null" json:"-"`
	Idx           int       `gorm:"not null" json:"index"`
	Role          string    `gorm:"size:16;not null" json:"role"`
	Content       string    `gorm:"type:text" json:"content"`
	FeedbackState string    `gorm:"size:16;default:unset" json:"feedback_state,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
