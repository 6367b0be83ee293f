package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey makes remote action handlers safe to replay.
// Unique constraint: (account_id, request_id). Response holds the assignments returned the first time.
type IdempotencyKey struct {
	ID        int               `gorm:"primary_key" json:"id"`
	AccountId string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"account_id"`
	RequestId string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"request_id"`
	Action    string            `gorm:"size:64;not null" json:"action"`
	Status    IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	Response  string            `gorm:"type:text" json:"response"`
	LastError *string           `gorm:"type:text" json:"last_error"`
	CreatedAt time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// IdSequence hands out server identifiers per entity kind.
type IdSequence struct {
	Entity string `gorm:"primaryKey;size:64" json:"entity"`
	NextId int64  `gorm:"not null" json:"next_id"`
}

// RemoteModels is the remote store schema.
func RemoteModels() []any {
	return append(AllModels(), &IdempotencyKey{}, &IdSequence{})
}
