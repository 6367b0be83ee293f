package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", config.NewLogger(""))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPutGetQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	contact := &models.Contact{ID: models.NewPendingID(), Name: "Ko Aung", Type: models.ContactKindSupplier, CreatedAt: day(1)}
	if err := s.Put(ctx, contact); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := Get[models.Contact](ctx, s, contact.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Ko Aung" {
		t.Fatalf("expected Ko Aung, got %q", got.Name)
	}

	contact.Name = "Ko Aung Aung"
	if err := s.Put(ctx, contact); err != nil {
		t.Fatalf("put overwrite: %v", err)
	}
	rec, err := s.Get(ctx, models.EntityContact, contact.ID)
	if err != nil {
		t.Fatalf("get by kind: %v", err)
	}
	if rec.(*models.Contact).Name != "Ko Aung Aung" {
		t.Fatalf("overwrite not persisted: %+v", rec)
	}

	deletedAt := day(2)
	gone := &models.Contact{ID: models.NewPendingID(), Name: "Old", Type: models.ContactKindCustomer, CreatedAt: day(1), DeletedAt: &deletedAt}
	if err := s.Put(ctx, gone); err != nil {
		t.Fatalf("put deleted: %v", err)
	}
	active, err := s.Query(ctx, models.EntityContact, Active())
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(active) != 1 || active[0].GetID() != contact.ID {
		t.Fatalf("expected only the active contact, got %+v", active)
	}

	if _, err := s.Get(ctx, models.EntityContact, "tmp-missing"); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Delete(ctx, models.EntityContact, gone.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, models.EntityContact, gone.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestTransactionRollsBackEveryTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	stock := &models.StockTransaction{ID: models.NewPendingID(), Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, PaymentMethod: models.PaymentMethodCash}
	cash := &models.CashTransaction{MonetaryTransaction: models.MonetaryTransaction{ID: models.NewPendingID(), Date: day(1), Type: models.MonetaryTypeExpense, LinkedStockTxId: stock.ID}}

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx *Store) error {
		if err := tx.Put(ctx, stock); err != nil {
			return err
		}
		if err := tx.Put(ctx, cash); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	stocks, _ := List[models.StockTransaction](ctx, s)
	cashes, _ := List[models.CashTransaction](ctx, s)
	if len(stocks) != 0 || len(cashes) != 0 {
		t.Fatalf("expected rollback, got %d stock and %d cash rows", len(stocks), len(cashes))
	}
}

func TestReconcileCascadesToEveryReference(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	contactID := models.NewPendingID()
	stockID := models.NewPendingID()
	ledgerID := models.NewPendingID()
	bankID := models.NewPendingID()

	rows := []models.Record{
		&models.Contact{ID: contactID, Name: "Daw Hla", Type: models.ContactKindCustomer},
		&models.BankAccount{ID: bankID, Name: "KBZ"},
		&models.StockTransaction{ID: stockID, Date: day(1), ItemName: "beans", Type: models.StockTypeSale, PaymentMethod: models.PaymentMethodBank, ContactId: contactID, BankId: bankID},
		&models.BankTransaction{MonetaryTransaction: models.MonetaryTransaction{ID: models.NewPendingID(), Date: day(1), Type: models.MonetaryTypeDeposit, LinkedStockTxId: stockID, ContactId: contactID}, BankId: bankID},
		&models.LedgerEntry{ID: ledgerID, Date: day(1), Type: models.LedgerTypeReceivable, Status: models.LedgerStatusUnpaid, ContactId: contactID, StockTxId: stockID},
		&models.PaymentInstallment{ID: models.NewPendingID(), LedgerEntryId: ledgerID, Date: day(2), PaymentMethod: models.PaymentMethodCash},
	}
	for _, r := range rows {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("seed %s: %v", r.Kind(), err)
		}
	}

	confirmed := models.ConfirmedID(42)
	err := s.Transaction(ctx, func(tx *Store) error {
		_, err := tx.Reconcile(ctx, models.EntityStock, stockID, confirmed)
		return err
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if _, err := Get[models.StockTransaction](ctx, s, confirmed); err != nil {
		t.Fatalf("stock not rekeyed: %v", err)
	}
	banks, _ := List[models.BankTransaction](ctx, s)
	if len(banks) != 1 || banks[0].LinkedStockTxId != confirmed {
		t.Fatalf("bank tx link not rewritten: %+v", banks)
	}
	ledgers, _ := List[models.LedgerEntry](ctx, s)
	if ledgers[0].StockTxId != confirmed {
		t.Fatalf("ledger stock link not rewritten: %s", ledgers[0].StockTxId)
	}
	if banks[0].ContactId != contactID {
		t.Fatalf("unrelated reference changed: %s", banks[0].ContactId)
	}

	if _, err := s.Reconcile(ctx, models.EntityStock, confirmed, models.ConfirmedID(43)); err == nil {
		t.Fatalf("expected error reconciling a confirmed id")
	}

	pending, err := s.PendingReferences(ctx)
	if err != nil {
		t.Fatalf("pending refs: %v", err)
	}
	if pending[models.EntityStock] != 0 || pending[models.EntityContact] != 1 {
		t.Fatalf("unexpected pending counts %+v", pending)
	}
}

func TestPurgeDeletedRemovesDependants(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	deletedAt := day(3)

	ledgerID := models.NewPendingID()
	keepID := models.NewPendingID()
	rows := []models.Record{
		&models.LedgerEntry{ID: ledgerID, Date: day(1), Type: models.LedgerTypePayable, Amount: decimal.NewFromInt(100), Status: models.LedgerStatusPartiallyPaid, DeletedAt: &deletedAt},
		&models.PaymentInstallment{ID: models.NewPendingID(), LedgerEntryId: ledgerID, Amount: decimal.NewFromInt(40), Date: day(2), PaymentMethod: models.PaymentMethodCash},
		&models.CashTransaction{MonetaryTransaction: models.MonetaryTransaction{ID: models.NewPendingID(), Date: day(2), Type: models.MonetaryTypeExpense, LinkedLedgerId: ledgerID}},
		&models.LedgerEntry{ID: keepID, Date: day(1), Type: models.LedgerTypePayable, Amount: decimal.NewFromInt(50), Status: models.LedgerStatusUnpaid},
	}
	for _, r := range rows {
		if err := s.Put(ctx, r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	purged, err := s.PurgeDeleted(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if purged[models.EntityLedger] != 1 || purged[models.EntityInstallment] != 1 {
		t.Fatalf("unexpected purge counts %+v", purged)
	}
	ledgers, _ := List[models.LedgerEntry](ctx, s)
	if len(ledgers) != 1 || ledgers[0].ID != keepID {
		t.Fatalf("wrong ledgers left: %+v", ledgers)
	}
	cashes, _ := List[models.CashTransaction](ctx, s)
	if len(cashes) != 1 || !cashes[0].LinkedLedgerId.IsZero() {
		t.Fatalf("cash tx should survive with its link cleared: %+v", cashes)
	}
}

func TestDeleteAllKeepsAppState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	st, err := s.AppState(ctx)
	if err != nil {
		t.Fatalf("app state: %v", err)
	}
	if st.DeviceId == "" {
		t.Fatalf("expected a device id")
	}
	if err := s.Put(ctx, &models.Category{ID: models.NewPendingID(), Name: "rent", Type: models.CategoryKindExpense}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	cats, _ := List[models.Category](ctx, s)
	if len(cats) != 0 {
		t.Fatalf("expected no categories, got %d", len(cats))
	}
	again, err := s.AppState(ctx)
	if err != nil || again.DeviceId != st.DeviceId {
		t.Fatalf("app state should survive delete-all: %v %+v", err, again)
	}
	if err := s.RecordSyncOutcome(ctx, day(5), 3, 1); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	again, _ = s.AppState(ctx)
	if again.LastSyncSucceeded != 3 || again.LastSyncFailed != 1 {
		t.Fatalf("outcome not stored: %+v", again)
	}
}
