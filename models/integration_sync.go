package models

import "time"

const (
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
	SyncRunStatusIdle    = "idle"
)

const (
	SyncTriggeredEnqueue   = "enqueue"
	SyncTriggeredReconnect = "reconnect"
	SyncTriggeredManual    = "manual"
	SyncTriggeredUrgent    = "urgent"
)

// Error kinds recorded on SyncError.
const (
	SyncErrorTransient   = "transient"
	SyncErrorAuthExpired = "auth_expired"
	SyncErrorRejected    = "rejected"
	SyncErrorBlocked     = "blocked"
	SyncErrorLocal       = "local"
	SyncErrorDecode      = "decode"
)

// SyncRun records one pass of the sync processor.
type SyncRun struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy string     `gorm:"size:20" json:"triggered_by"`
	Attempted   int        `json:"attempted"`
	Succeeded   int        `json:"succeeded"`
	Failed      int        `json:"failed"`
	Dropped     int        `json:"dropped"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (SyncRun) TableName() string { return "sync_runs" }

// SyncError is one failed entry within a SyncRun.
type SyncError struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SyncRunId uint      `gorm:"index;not null" json:"sync_run_id"`
	EntryId   string    `gorm:"size:64;index" json:"entry_id"`
	ActionTag string    `gorm:"size:64" json:"action_tag"`
	ErrorKind string    `gorm:"size:32" json:"error_kind"`
	Message   string    `gorm:"type:text" json:"message"`
	Payload   string    `gorm:"type:text" json:"payload,omitempty"`
	Retryable bool      `gorm:"default:false" json:"retryable"`
	CreatedAt time.Time `json:"created_at"`
}

func (SyncError) TableName() string { return "sync_errors" }

// LocalModels is the full local schema: mirrored entities plus queue and bookkeeping rows.
func LocalModels() []any {
	return append(AllModels(), &AppState{}, &OutboxEntry{}, &SyncRun{}, &SyncError{})
}
