package store

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PurgeDeleted moves every soft-deleted record to Purged: the rows are removed for good.
// Rows that cannot exist without a purged parent (installments, opening balances) go with it;
// soft-deletable rows that merely point at it lose the reference.
func (s *Store) PurgeDeleted(ctx context.Context) (map[models.EntityKind]int, error) {
	purged := make(map[models.EntityKind]int)
	db := s.db.WithContext(ctx)

	for _, spec := range models.Entities {
		if !spec.SoftDeletes() {
			continue
		}
		var ids []models.RecordID
		if err := db.Model(spec.New()).Where("deleted_at IS NOT NULL").Pluck("id", &ids).Error; err != nil {
			return nil, fmt.Errorf("purge %s: %w", spec.Kind, err)
		}
		if len(ids) == 0 {
			continue
		}
		if err := db.Where("id IN ?", ids).Delete(spec.New()).Error; err != nil {
			return nil, fmt.Errorf("purge %s: %w", spec.Kind, err)
		}
		purged[spec.Kind] += len(ids)

		for _, fk := range models.ReverseReferences[spec.Kind] {
			ref, err := models.LookupEntity(fk.From)
			if err != nil {
				return nil, err
			}
			q := db.Model(ref.New()).Where(fk.Column+" IN ?", ids)
			if ref.SoftDeletes() {
				err = q.UpdateColumn(fk.Column, models.RecordID("")).Error
			} else {
				res := db.Where(fk.Column+" IN ?", ids).Delete(ref.New())
				err = res.Error
				purged[ref.Kind] += int(res.RowsAffected)
			}
			if err != nil {
				return nil, fmt.Errorf("purge %s.%s: %w", fk.Table(), fk.Column, err)
			}
		}
	}

	s.logger.WithFields(logrus.Fields{
		"field":  "PurgeDeleted",
		"purged": purged,
	}).Info("recycle bin emptied")
	return purged, nil
}

// DeleteAll removes every mirrored record. Queue and sync history are kept.
func (s *Store) DeleteAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for i := len(models.Entities) - 1; i >= 0; i-- {
		spec := models.Entities[i]
		if err := db.Delete(spec.New()).Error; err != nil {
			return fmt.Errorf("delete all %s: %w", spec.Kind, err)
		}
	}
	return nil
}
