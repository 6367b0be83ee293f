package models

import "time"

// AppState is the singleton row of the local mirror (ID is always 1).
type AppState struct {
	ID                int        `gorm:"primaryKey" json:"id"`
	DeviceId          string     `gorm:"size:64" json:"device_id"`
	LastSyncAt        *time.Time `json:"last_sync_at"`
	LastSyncSucceeded int        `json:"last_sync_succeeded"`
	LastSyncFailed    int        `json:"last_sync_failed"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const AppStateID = 1

func (AppState) TableName() string { return "app_states" }
