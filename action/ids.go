package action

import "bitbucket.org/mmdatafocus/tradebooks/models"

func (a *CreateRecord) EachID(fn Visitor) { a.Record.eachID(fn, true) }

func (a *UpdateRecord) EachID(fn Visitor) { a.Record.eachID(fn, false) }

func (a *SoftDeleteRecord) EachID(fn Visitor) { fn(a.Entity, &a.ID, false) }

func (a *RestoreRecord) EachID(fn Visitor) { fn(a.Entity, &a.ID, false) }

func (s *Settlement) eachID(fn Visitor) {
	s.Payment.eachID(fn, true)
	for i := range s.Ledgers {
		visitRecord(&s.Ledgers[i], fn, false)
	}
	for i := range s.Installments {
		visitRecord(&s.Installments[i], fn, true)
	}
}

func (a *SettleTotal) EachID(fn Visitor) {
	if !a.ContactId.IsZero() {
		fn(models.EntityContact, &a.ContactId, false)
	}
	a.Settlement.eachID(fn)
}

func (a *SettleDirect) EachID(fn Visitor) { a.Settlement.eachID(fn) }

func (a *TransferFunds) EachID(fn Visitor) {
	a.Debit.eachID(fn, true)
	a.Credit.eachID(fn, true)
}

func (a *SetInitialBalances) EachID(fn Visitor) {
	for i := range a.Stocks {
		visitRecord(&a.Stocks[i], fn, true)
	}
	for i := range a.Balances {
		visitRecord(&a.Balances[i], fn, true)
	}
}

func (a *DeleteCategory) EachID(fn Visitor) { fn(models.EntityCategory, &a.ID, false) }

func (a *CreateLinkedStockTransaction) EachID(fn Visitor) {
	visitRecord(&a.Stock, fn, true)
	if a.Money != nil {
		a.Money.eachID(fn, true)
	}
	if a.Ledger != nil {
		visitRecord(a.Ledger, fn, true)
	}
}

func (a *UpdateStockTransaction) EachID(fn Visitor) {
	visitRecord(&a.Stock, fn, false)
	if a.Money != nil {
		a.Money.eachID(fn, false)
	}
	if a.Ledger != nil {
		visitRecord(a.Ledger, fn, false)
	}
}

func (a *BatchImport) EachID(fn Visitor) {
	for i := range a.Records {
		a.Records[i].eachID(fn, true)
	}
}

func (*DeleteAll) EachID(Visitor) {}

func (*EmptyRecycleBin) EachID(Visitor) {}

// Creates lists the pending ids the action brings into existence, in payload order.
func Creates(a Action) []models.RecordID {
	var out []models.RecordID
	a.EachID(func(_ models.EntityKind, id *models.RecordID, created bool) {
		if created && id.IsPending() {
			out = append(out, *id)
		}
	})
	return out
}

// PendingRefs lists pending ids the action depends on but does not create.
func PendingRefs(a Action) []models.RecordID {
	own := make(map[models.RecordID]bool)
	for _, id := range Creates(a) {
		own[id] = true
	}
	seen := make(map[models.RecordID]bool)
	var out []models.RecordID
	a.EachID(func(_ models.EntityKind, id *models.RecordID, created bool) {
		if created || !id.IsPending() || own[*id] || seen[*id] {
			return
		}
		seen[*id] = true
		out = append(out, *id)
	})
	return out
}

// Remap rewrites every mapped pending id carried by a. It reports whether anything changed.
func Remap(a Action, m models.IDMap) bool {
	changed := false
	a.EachID(func(_ models.EntityKind, id *models.RecordID, _ bool) {
		if m.Rewrite(id) {
			changed = true
		}
	})
	return changed
}
