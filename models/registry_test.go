package models

import "testing"

// Every EachRef column must be declared in ForeignKeys, or reconciliation would miss it.
func TestEachRefMatchesForeignKeys(t *testing.T) {
	declared := make(map[EntityKind]map[string]bool)
	for _, fk := range ForeignKeys {
		if declared[fk.From] == nil {
			declared[fk.From] = make(map[string]bool)
		}
		declared[fk.From][fk.Column] = true
	}
	for _, def := range Entities {
		seen := make(map[string]bool)
		def.New().EachRef(func(column string, id *RecordID) {
			seen[column] = true
			if !declared[def.Kind][column] {
				t.Fatalf("%s.%s is visited by EachRef but missing from ForeignKeys", def.Kind, column)
			}
		})
		for column := range declared[def.Kind] {
			if !seen[column] {
				t.Fatalf("%s.%s is declared but never visited by EachRef", def.Kind, column)
			}
		}
	}
}

func TestReverseReferences(t *testing.T) {
	refs := ReverseReferences[EntityStock]
	cols := make(map[string]bool)
	for _, fk := range refs {
		cols[string(fk.From)+"."+fk.Column] = true
	}
	for _, want := range []string{"cash_transaction.linked_stock_tx_id", "bank_transaction.linked_stock_tx_id", "ledger_entry.stock_tx_id"} {
		if !cols[want] {
			t.Fatalf("expected %s among references to stock, got %v", want, cols)
		}
	}
	if to, ok := RefTarget(EntityInstallment, "ledger_entry_id"); !ok || to != EntityLedger {
		t.Fatalf("unexpected target %s %v", to, ok)
	}
}

func TestRecordIDStates(t *testing.T) {
	p := NewPendingID()
	if !p.IsPending() || p.IsConfirmed() {
		t.Fatalf("expected pending, got %s", p.State())
	}
	c := ConfirmedID(7)
	if !c.IsConfirmed() || c.String() != "7" {
		t.Fatalf("expected confirmed 7, got %s", c)
	}
	var none RecordID
	if none.State() != IDStateNone {
		t.Fatalf("expected none")
	}

	m := IDMap{p: c}
	id := p
	if !m.Rewrite(&id) || id != c {
		t.Fatalf("rewrite failed: %s", id)
	}
	if m.Rewrite(&id) {
		t.Fatalf("confirmed ids are never rewritten")
	}
}

func TestLifecycle(t *testing.T) {
	c := &Contact{ID: NewPendingID()}
	if StateOf(c) != LifecycleActive {
		t.Fatalf("expected active")
	}
	if err := Restore(c); err == nil {
		t.Fatalf("restoring an active record must fail")
	}
	if err := SoftDelete(c, testTime()); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if err := SoftDelete(c, testTime()); err == nil {
		t.Fatalf("double delete must fail")
	}
	if err := Restore(c); err != nil || StateOf(c) != LifecycleActive {
		t.Fatalf("restore: %v", err)
	}
	if CanTransition(LifecycleActive, LifecyclePurged) {
		t.Fatalf("active records cannot be purged directly")
	}
}

func TestLedgerStatus(t *testing.T) {
	l := LedgerEntry{Type: LedgerTypePayable, Amount: dec(500)}
	l.RefreshStatus()
	if l.Status != LedgerStatusUnpaid {
		t.Fatalf("expected unpaid, got %s", l.Status)
	}
	l.PaidAmount = dec(300)
	l.RefreshStatus()
	if l.Status != LedgerStatusPartiallyPaid || !l.Remaining().Equal(dec(200)) {
		t.Fatalf("expected partially paid with 200 left, got %s %s", l.Status, l.Remaining())
	}
	l.PaidAmount = dec(500)
	l.RefreshStatus()
	if l.Status != LedgerStatusPaid {
		t.Fatalf("expected paid, got %s", l.Status)
	}
	adv := LedgerEntry{Type: LedgerTypeAdvance, Amount: dec(-50), PaidAmount: dec(-50)}
	adv.RefreshStatus()
	if adv.Status != LedgerStatusPaid || !adv.Remaining().IsZero() {
		t.Fatalf("advance must stay paid with nothing remaining")
	}
}
