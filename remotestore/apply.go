package remotestore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"gorm.io/gorm"
)

func reject(status int, code, format string, args ...any) *utils.RemoteRejectionError {
	return &utils.RemoteRejectionError{Status: status, Code: code, Reason: fmt.Sprintf(format, args...)}
}

// applier writes one action for one account inside the apply transaction.
type applier struct {
	ctx     context.Context
	tx      *store.Store
	account string
	written []models.Record
}

// assign replaces every pending id the action creates with a fresh server id.
func assign(tx *gorm.DB, a action.Action) ([]action.Assignment, error) {
	m := make(models.IDMap)
	var out []action.Assignment
	var err error
	a.EachID(func(kind models.EntityKind, id *models.RecordID, created bool) {
		if err != nil || !created || !id.IsPending() {
			return
		}
		if _, seen := m[*id]; seen {
			return
		}
		var confirmed models.RecordID
		if confirmed, err = nextID(tx, kind); err != nil {
			return
		}
		m[*id] = confirmed
		out = append(out, action.Assignment{Entity: kind, Pending: *id, Confirmed: confirmed})
	})
	if err != nil {
		return nil, err
	}
	action.Remap(a, m)

	// Anything still pending points at a record this store never confirmed.
	a.EachID(func(kind models.EntityKind, id *models.RecordID, _ bool) {
		if err == nil && id.IsPending() {
			err = reject(http.StatusUnprocessableEntity, "unresolved_reference", "%s %s was never created on the remote store", kind, *id)
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ap *applier) create(r models.Record) error {
	r.SetAccountId(ap.account)
	if err := ap.tx.Put(ap.ctx, r); err != nil {
		return err
	}
	ap.written = append(ap.written, r)
	return nil
}

func (ap *applier) update(r models.Record) error {
	if _, err := ap.load(r.Kind(), r.GetID()); err != nil {
		return err
	}
	return ap.create(r)
}

func (ap *applier) load(kind models.EntityKind, id models.RecordID) (models.Record, error) {
	rec, err := ap.tx.Get(ap.ctx, kind, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, reject(http.StatusNotFound, "not_found", "%s %s does not exist", kind, id)
	}
	return rec, err
}

func (ap *applier) payload(p action.RecordPayload, write func(models.Record) error) error {
	r, err := p.Record()
	if err != nil {
		return reject(http.StatusBadRequest, "bad_payload", "%v", err)
	}
	return write(r)
}

// checkRefs runs after every write of the action, so references between its own records resolve.
func (ap *applier) checkRefs() error {
	for _, r := range ap.written {
		var err error
		r.EachRef(func(column string, id *models.RecordID) {
			if err != nil || id.IsZero() {
				return
			}
			kind, ok := models.RefTarget(r.Kind(), column)
			if !ok {
				return
			}
			if _, lerr := ap.tx.Get(ap.ctx, kind, *id); lerr != nil {
				if errors.Is(lerr, utils.ErrorRecordNotFound) {
					err = reject(http.StatusUnprocessableEntity, "missing_reference", "%s %s: %s %s no longer exists", r.Kind(), r.GetID(), column, *id)
					return
				}
				err = lerr
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (ap *applier) settle(s *action.Settlement) error {
	if err := ap.payload(s.Payment, ap.create); err != nil {
		return err
	}
	for i := range s.Ledgers {
		l := &s.Ledgers[i]
		if l.Type != models.LedgerTypeAdvance && l.PaidAmount.GreaterThan(l.Amount) {
			return reject(http.StatusUnprocessableEntity, "overpaid", "ledger %s: paid %s exceeds amount %s", l.ID, l.PaidAmount, l.Amount)
		}
		if err := ap.update(l); err != nil {
			return err
		}
	}
	for i := range s.Installments {
		if err := ap.create(&s.Installments[i]); err != nil {
			return err
		}
	}
	return nil
}

func (ap *applier) softDeletable(kind models.EntityKind, id models.RecordID) (models.SoftDeletable, error) {
	rec, err := ap.load(kind, id)
	if err != nil {
		return nil, err
	}
	sd, ok := rec.(models.SoftDeletable)
	if !ok {
		return nil, reject(http.StatusUnprocessableEntity, "not_soft_deletable", "%s records cannot be soft-deleted", kind)
	}
	return sd, nil
}

// apply dispatches on the closed action set. Replays of delete and restore are no-ops.
func (ap *applier) apply(a action.Action) error {
	switch v := a.(type) {
	case *action.CreateRecord:
		if err := ap.payload(v.Record, ap.create); err != nil {
			return err
		}
	case *action.UpdateRecord:
		if err := ap.payload(v.Record, ap.update); err != nil {
			return err
		}
	case *action.SoftDeleteRecord:
		sd, err := ap.softDeletable(v.Entity, v.ID)
		if err != nil {
			return err
		}
		if models.StateOf(sd) == models.LifecycleActive {
			if err := models.SoftDelete(sd, v.DeletedAt); err != nil {
				return err
			}
			if err := ap.tx.Put(ap.ctx, sd); err != nil {
				return err
			}
		}
	case *action.RestoreRecord:
		sd, err := ap.softDeletable(v.Entity, v.ID)
		if err != nil {
			return err
		}
		if models.StateOf(sd) == models.LifecycleDeleted {
			if err := models.Restore(sd); err != nil {
				return err
			}
			if err := ap.create(sd); err != nil {
				return err
			}
		}
	case *action.SettleTotal:
		if err := ap.settle(&v.Settlement); err != nil {
			return err
		}
	case *action.SettleDirect:
		if len(v.Ledgers) != 1 {
			return reject(http.StatusBadRequest, "bad_payload", "a direct settlement covers exactly one ledger line, got %d", len(v.Ledgers))
		}
		if err := ap.settle(&v.Settlement); err != nil {
			return err
		}
	case *action.TransferFunds:
		if err := ap.payload(v.Debit, ap.create); err != nil {
			return err
		}
		if err := ap.payload(v.Credit, ap.create); err != nil {
			return err
		}
	case *action.SetInitialBalances:
		db := ap.tx.DB().WithContext(ap.ctx)
		if err := db.Where("account_id = ?", ap.account).Delete(&models.InitialStock{}).Error; err != nil {
			return err
		}
		if err := db.Where("account_id = ?", ap.account).Delete(&models.InitialBalance{}).Error; err != nil {
			return err
		}
		for i := range v.Stocks {
			if err := ap.create(&v.Stocks[i]); err != nil {
				return err
			}
		}
		for i := range v.Balances {
			if err := ap.create(&v.Balances[i]); err != nil {
				return err
			}
		}
	case *action.DeleteCategory:
		if err := ap.tx.Delete(ap.ctx, models.EntityCategory, v.ID); err != nil && !errors.Is(err, utils.ErrorRecordNotFound) {
			return err
		}
	case *action.CreateLinkedStockTransaction:
		if err := ap.create(&v.Stock); err != nil {
			return err
		}
		if v.Money != nil {
			if err := ap.payload(*v.Money, ap.create); err != nil {
				return err
			}
		}
		if v.Ledger != nil {
			if err := ap.create(v.Ledger); err != nil {
				return err
			}
		}
	case *action.UpdateStockTransaction:
		if err := ap.update(&v.Stock); err != nil {
			return err
		}
		if v.Money != nil {
			if err := ap.payload(*v.Money, ap.update); err != nil {
				return err
			}
		}
		if v.Ledger != nil {
			if err := ap.update(v.Ledger); err != nil {
				return err
			}
		}
	case *action.BatchImport:
		for _, p := range v.Records {
			if err := ap.payload(p, ap.create); err != nil {
				return err
			}
		}
	case *action.DeleteAll:
		if err := ap.tx.DeleteAll(ap.ctx); err != nil {
			return err
		}
	case *action.EmptyRecycleBin:
		if _, err := ap.tx.PurgeDeleted(ap.ctx); err != nil {
			return err
		}
	default:
		return reject(http.StatusNotFound, "unknown_action", "no handler for %s", a.Tag())
	}
	return ap.checkRefs()
}
