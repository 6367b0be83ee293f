package store

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/sirupsen/logrus"
)

// Reconcile rewrites a pending identifier of kind to its confirmed value: the row's own
// primary key and every column listed in models.ReverseReferences[kind]. It returns the number
// of rows touched. Run it inside Transaction so the cascade is all-or-nothing.
func (s *Store) Reconcile(ctx context.Context, kind models.EntityKind, from, to models.RecordID) (int64, error) {
	if !from.IsPending() {
		return 0, fmt.Errorf("reconcile %s: %s is not a pending id", kind, from)
	}
	if !to.IsConfirmed() {
		return 0, fmt.Errorf("reconcile %s: %s is not a confirmed id", kind, to)
	}
	spec, err := models.LookupEntity(kind)
	if err != nil {
		return 0, err
	}

	db := s.db.WithContext(ctx)
	res := db.Model(spec.New()).Where("id = ?", from).UpdateColumn("id", to)
	if res.Error != nil {
		return 0, fmt.Errorf("reconcile %s %s: %w", kind, from, res.Error)
	}
	touched := res.RowsAffected

	for _, fk := range models.ReverseReferences[kind] {
		ref, err := models.LookupEntity(fk.From)
		if err != nil {
			return 0, err
		}
		res := db.Model(ref.New()).Where(fk.Column+" = ?", from).UpdateColumn(fk.Column, to)
		if res.Error != nil {
			return 0, fmt.Errorf("reconcile %s.%s: %w", fk.Table(), fk.Column, res.Error)
		}
		touched += res.RowsAffected
	}

	s.logger.WithFields(logrus.Fields{
		"field":   "Reconcile",
		"entity":  kind,
		"from":    from,
		"to":      to,
		"touched": touched,
	}).Debug("pending id confirmed")
	return touched, nil
}

// PendingReferences lists the pending ids still stored in any reference column or primary key.
// Used by the queue view to show what is waiting for confirmation.
func (s *Store) PendingReferences(ctx context.Context) (map[models.EntityKind]int64, error) {
	out := make(map[models.EntityKind]int64)
	for _, spec := range models.Entities {
		var n int64
		if err := s.db.WithContext(ctx).Model(spec.New()).Where("id LIKE ?", "tmp-%").Count(&n).Error; err != nil {
			return nil, err
		}
		if n > 0 {
			out[spec.Kind] = n
		}
	}
	return out, nil
}
