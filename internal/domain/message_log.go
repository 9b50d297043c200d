package domain

import (
	"time"
)

type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
	StatusSent    MessageStatus = "sent"
	StatusFailed  MessageStatus = "failed"
)

// MessageLog records a single send attempt. A row is created pending and
// updated exactly once more with the outcome.
type MessageLog struct {
	ID           int           `gorm:"primaryKey" json:"id"`
	PhoneNumber  string        `gorm:"type:varchar(20);not null;index" json:"phone_number"`
	Message      string        `gorm:"type:text;not null" json:"message"`
	Status       MessageStatus `gorm:"type:varchar(20);not null;index:idx_message_logs_status_created,priority:1" json:"status"`
	ResponseData *string       `gorm:"type:text" json:"response_data,omitempty"`
	ErrorMessage *string       `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time     `gorm:"not null;index:idx_message_logs_status_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null" json:"updated_at"`
}

func (MessageLog) TableName() string {
	return "message_logs"
}

// SendOutcome is returned to callers of a successful send.
type SendOutcome struct {
	LogID       int            `json:"log_id"`
	PhoneNumber string         `json:"phone_number"`
	MessageID   string         `json:"message_id,omitempty"`
	Response    map[string]any `json:"response,omitempty"`
}

// SentReceipt is the cached view of a delivered message, keyed by the
// provider message id.
type SentReceipt struct {
	MessageID   string    `json:"message_id"`
	LogID       int       `json:"log_id"`
	PhoneNumber string    `json:"phone_number"`
	SentAt      time.Time `json:"sent_at"`
}
