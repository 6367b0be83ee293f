package workflow

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
)

// linkColumns are the references that make two records one unit: a stock row and its payment side,
// the two halves of a transfer, an advance and its money row. Deleting or restoring one moves all.
var linkColumns = map[string]bool{
	"linked_stock_tx_id": true,
	"stock_tx_id":        true,
	"counterpart_id":     true,
	"advance_id":         true,
}

type recordKey struct {
	kind models.EntityKind
	id   models.RecordID
}

// linkedGroup collects root and everything transitively linked to it that is in state want.
func linkedGroup(u *unit, root models.SoftDeletable, want models.LifecycleState) ([]models.SoftDeletable, error) {
	seen := map[recordKey]bool{{root.Kind(), root.GetID()}: true}
	group := []models.SoftDeletable{root}

	add := func(r models.Record) {
		sd, ok := r.(models.SoftDeletable)
		if !ok || models.StateOf(sd) != want {
			return
		}
		key := recordKey{sd.Kind(), sd.GetID()}
		if seen[key] {
			return
		}
		seen[key] = true
		group = append(group, sd)
	}

	for i := 0; i < len(group); i++ {
		r := group[i]
		var forward []recordKey
		r.EachRef(func(column string, id *models.RecordID) {
			if !linkColumns[column] || id.IsZero() {
				return
			}
			if to, ok := models.RefTarget(r.Kind(), column); ok {
				forward = append(forward, recordKey{to, *id})
			}
		})
		for _, k := range forward {
			rec, err := u.tx.Get(u.ctx, k.kind, k.id)
			if errors.Is(err, utils.ErrorRecordNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			add(rec)
		}
		for _, fk := range models.ReverseReferences[r.Kind()] {
			if !linkColumns[fk.Column] {
				continue
			}
			rows, err := u.tx.Query(u.ctx, fk.From, store.RefersTo(fk.Column, r.GetID()))
			if err != nil {
				return nil, err
			}
			for _, rec := range rows {
				add(rec)
			}
		}
	}
	return group, nil
}

func loadSoftDeletable(u *unit, kind models.EntityKind, id models.RecordID) (models.SoftDeletable, error) {
	spec, err := models.LookupEntity(kind)
	if err != nil {
		return nil, invalid("Entity", "oneof", "%v", err)
	}
	if !spec.SoftDeletes() {
		if kind == models.EntityCategory {
			return nil, invalid("Entity", "soft_delete", "categories are removed with DeleteCategory")
		}
		return nil, invalid("Entity", "soft_delete", "%s records cannot be deleted on their own", kind)
	}
	rec, err := u.tx.Get(u.ctx, kind, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, invalid("ID", "exists", "%s %s does not exist", kind, id)
	}
	if err != nil {
		return nil, err
	}
	return rec.(models.SoftDeletable), nil
}

// Delete soft-deletes a record together with every record linked to it.
func (m *Manager) Delete(ctx context.Context, kind models.EntityKind, id models.RecordID) ([]models.SoftDeletable, error) {
	var group []models.SoftDeletable
	err := m.commit(ctx, "Delete", func(u *unit) error {
		root, err := loadSoftDeletable(u, kind, id)
		if err != nil {
			return err
		}
		if models.StateOf(root) != models.LifecycleActive {
			return invalid("ID", "active", "%s %s is already deleted", kind, id)
		}
		if group, err = linkedGroup(u, root, models.LifecycleActive); err != nil {
			return err
		}
		for _, r := range group {
			if err := models.SoftDelete(r, u.now); err != nil {
				return err
			}
			if err := u.put(r); err != nil {
				return err
			}
			if err := u.enqueue(&action.SoftDeleteRecord{Entity: r.Kind(), ID: r.GetID(), DeletedAt: *r.GetDeletedAt()}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// Restore brings a deleted record and its deleted linked records back.
func (m *Manager) Restore(ctx context.Context, kind models.EntityKind, id models.RecordID) ([]models.SoftDeletable, error) {
	var group []models.SoftDeletable
	err := m.commit(ctx, "Restore", func(u *unit) error {
		root, err := loadSoftDeletable(u, kind, id)
		if err != nil {
			return err
		}
		if models.StateOf(root) != models.LifecycleDeleted {
			return invalid("ID", "deleted", "%s %s is not deleted", kind, id)
		}
		if group, err = linkedGroup(u, root, models.LifecycleDeleted); err != nil {
			return err
		}
		for _, r := range group {
			if err := models.Restore(r); err != nil {
				return err
			}
			if err := u.put(r); err != nil {
				return err
			}
			if err := u.enqueue(&action.RestoreRecord{Entity: r.Kind(), ID: r.GetID()}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return group, nil
}

// EmptyRecycleBin purges every soft-deleted record, locally and remotely.
func (m *Manager) EmptyRecycleBin(ctx context.Context) (map[models.EntityKind]int, error) {
	var purged map[models.EntityKind]int
	err := m.commit(ctx, "EmptyRecycleBin", func(u *unit) error {
		var err error
		if purged, err = u.tx.PurgeDeleted(u.ctx); err != nil {
			return err
		}
		return u.enqueue(&action.EmptyRecycleBin{})
	})
	return purged, err
}

// DeleteAll wipes every record of the account, locally and remotely.
func (m *Manager) DeleteAll(ctx context.Context) error {
	return m.commit(ctx, "DeleteAll", func(u *unit) error {
		if err := u.tx.DeleteAll(u.ctx); err != nil {
			return err
		}
		return u.enqueue(&action.DeleteAll{})
	})
}
