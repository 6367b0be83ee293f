package models

import "time"

// OutboxEntry is one pending mutation intent. Seq gives the strict FIFO order; ID doubles as
// the idempotency marker sent to the remote store.
type OutboxEntry struct {
	Seq           int64      `gorm:"primaryKey;autoIncrement" json:"seq"`
	ID            string     `gorm:"size:64;uniqueIndex;not null" json:"id"`
	ActionTag     string     `gorm:"size:64;not null" json:"action_tag"`
	Payload       string     `gorm:"type:text;not null" json:"payload"`
	EnqueuedAt    time.Time  `gorm:"not null" json:"enqueued_at"`
	Attempts      int        `gorm:"default:0" json:"attempts"`
	LastError     *string    `gorm:"type:text" json:"last_error"`
	LastAttemptAt *time.Time `json:"last_attempt_at"`
}

func (OutboxEntry) TableName() string { return "outbox_entries" }
