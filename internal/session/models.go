package session

import "time"

type Session struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string    `gorm:"type:varchar(26);not null;index" json:"session_id"`
	Role      string    `gorm:"type:varchar(16);index;not null" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	ModelUsed *string   `gorm:"type:varchar(128)" json:"model_used,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// SessionSummary is a Session together with its message count, as returned by
// the list endpoint.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int64     `json:"message_count"`
}
