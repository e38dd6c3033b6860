package models

import "time"

// Feedback is one immutable thumbs-up/thumbs-down record, written once at
// submission time and never read back by this service.
type Feedback struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Question  string    `gorm:"type:text" json:"question"`
	Answer    string    `gorm:"type:text" json:"answer"`
	Score     string    `gorm:"size:16;not null" json:"score"` // thumbs_up, thumbs_down
	Comment   string    `gorm:"type:text" json:"comment"`
	Timestamp string    `gorm:"size:40" json:"timestamp"` // ISO-8601, captured at submission
	Category  string    `gorm:"size:32" json:"category"`  // empty for thumbs_up
	User      string    `gorm:"column:user;size:64" json:"user"` // reserved, always empty
	CreatedAt time.Time `json:"created_at"`
}

func (Feedback) TableName() string { return "feedback" }
