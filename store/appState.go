package store

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppState loads the singleton row, creating it with a fresh device id on first use.
func (s *Store) AppState(ctx context.Context) (*models.AppState, error) {
	var st models.AppState
	err := s.db.WithContext(ctx).Where("id = ?", models.AppStateID).Take(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		st = models.AppState{ID: models.AppStateID, DeviceId: uuid.NewString(), UpdatedAt: time.Now().UTC()}
		if err := s.db.WithContext(ctx).Create(&st).Error; err != nil {
			return nil, err
		}
		return &st, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// RecordSyncOutcome stamps the last pass counts onto the app state.
func (s *Store) RecordSyncOutcome(ctx context.Context, at time.Time, succeeded, failed int) error {
	st, err := s.AppState(ctx)
	if err != nil {
		return err
	}
	at = at.UTC()
	st.LastSyncAt = &at
	st.LastSyncSucceeded = succeeded
	st.LastSyncFailed = failed
	st.UpdatedAt = at
	return s.db.WithContext(ctx).Save(st).Error
}
