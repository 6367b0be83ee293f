package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Queue is the durable FIFO of mutations waiting for the remote store.
// Entries live in the local mirror, so they survive restarts and commit with the writes that produced them.
type Queue struct {
	store *store.Store
	now   func() time.Time
}

func New(s *store.Store) *Queue {
	return &Queue{store: s, now: time.Now}
}

// WithClock replaces the enqueue timestamp source.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	return &Queue{store: q.store, now: now}
}

// In binds the queue to a store transaction.
func (q *Queue) In(tx *store.Store) *Queue {
	return &Queue{store: tx, now: q.now}
}

func (q *Queue) db(ctx context.Context) *gorm.DB {
	return q.store.DB().WithContext(ctx)
}

// Enqueue appends one entry and returns its id, which doubles as the idempotency marker.
func (q *Queue) Enqueue(ctx context.Context, tag string, payload json.RawMessage) (string, error) {
	if tag == "" {
		return "", errors.New("enqueue: empty action tag")
	}
	if !json.Valid(payload) {
		return "", fmt.Errorf("enqueue %s: payload is not valid JSON", tag)
	}
	entry := models.OutboxEntry{
		ID:         uuid.NewString(),
		ActionTag:  tag,
		Payload:    string(payload),
		EnqueuedAt: q.now().UTC(),
	}
	if err := q.db(ctx).Create(&entry).Error; err != nil {
		return "", fmt.Errorf("enqueue %s: %w", tag, err)
	}
	q.store.Logger().WithFields(logrus.Fields{
		"field":    "Outbox",
		"entry_id": entry.ID,
		"seq":      entry.Seq,
		"action":   tag,
	}).Debug("entry enqueued")
	return entry.ID, nil
}

// PeekAll returns every queued entry in enqueue order without removing anything.
func (q *Queue) PeekAll(ctx context.Context) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	if err := q.db(ctx).Order("seq ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (q *Queue) Get(ctx context.Context, id string) (*models.OutboxEntry, error) {
	var entry models.OutboxEntry
	if err := q.db(ctx).Where("id = ?", id).Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("outbox entry %s: %w", id, utils.ErrorRecordNotFound)
		}
		return nil, err
	}
	return &entry, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	var n int64
	err := q.db(ctx).Model(&models.OutboxEntry{}).Count(&n).Error
	return n, err
}

// Remove deletes an entry after its remote application was confirmed.
func (q *Queue) Remove(ctx context.Context, id string) error {
	res := q.db(ctx).Where("id = ?", id).Delete(&models.OutboxEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("outbox entry %s: %w", id, utils.ErrorRecordNotFound)
	}
	return nil
}

// MarkFailed records a failed delivery attempt; the entry stays queued.
func (q *Queue) MarkFailed(ctx context.Context, id string, cause error, at time.Time) error {
	msg := cause.Error()
	at = at.UTC()
	return q.db(ctx).Model(&models.OutboxEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"attempts":        gorm.Expr("attempts + 1"),
		"last_error":      &msg,
		"last_attempt_at": &at,
	}).Error
}

// Rewrite replaces an entry's payload in place, keeping its position.
func (q *Queue) Rewrite(ctx context.Context, id string, payload json.RawMessage) error {
	return q.db(ctx).Model(&models.OutboxEntry{}).Where("id = ?", id).Update("payload", string(payload)).Error
}

// Clear drops every queued entry. Only the manual purge path calls this.
func (q *Queue) Clear(ctx context.Context) (int64, error) {
	res := q.db(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.OutboxEntry{})
	return res.RowsAffected, res.Error
}
