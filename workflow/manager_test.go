package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/outbox"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type countingTrigger struct {
	mu      sync.Mutex
	reasons []string
}

func (c *countingTrigger) Trigger(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reasons = append(c.reasons, reason)
}

func (c *countingTrigger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.reasons)
}

type fixture struct {
	ctx     context.Context
	store   *store.Store
	queue   *outbox.Queue
	m       *Manager
	trigger *countingTrigger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := config.NewLogger("")
	s, err := store.Open(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	clock := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	tick := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	q := outbox.New(s).WithClock(tick)
	trigger := &countingTrigger{}
	m := NewManager(s, q, logger, WithClock(tick), WithSyncTrigger(trigger))
	return &fixture{ctx: context.Background(), store: s, queue: q, m: m, trigger: trigger}
}

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func day(n int) time.Time { return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC) }

func (f *fixture) contact(t *testing.T, kind models.ContactKind) *models.Contact {
	t.Helper()
	c, err := f.m.AddContact(f.ctx, ContactInput{Name: "U Ba " + string(kind), Kind: kind})
	if err != nil {
		t.Fatalf("add contact: %v", err)
	}
	return c
}

func (f *fixture) bank(t *testing.T) *models.BankAccount {
	t.Helper()
	b, err := f.m.AddBankAccount(f.ctx, BankAccountInput{Name: "KBZ", AccountNumber: "0011"})
	if err != nil {
		t.Fatalf("add bank: %v", err)
	}
	return b
}

func (f *fixture) tags(t *testing.T) []action.Tag {
	t.Helper()
	entries, err := f.queue.PeekAll(f.ctx)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	out := make([]action.Tag, 0, len(entries))
	for _, e := range entries {
		out = append(out, action.Tag(e.ActionTag))
	}
	return out
}

func TestRecordPaymentEndToEnd(t *testing.T) {
	f := newFixture(t)
	supplier := f.contact(t, models.ContactKindSupplier)
	payable, err := f.m.AddLedgerEntry(f.ctx, LedgerInput{Date: day(1), Type: models.LedgerTypePayable, Amount: d(500), ContactId: supplier.ID, Description: "rice on account"})
	if err != nil {
		t.Fatalf("add ledger: %v", err)
	}

	res, err := f.m.RecordPayment(f.ctx, PaymentInput{Type: models.LedgerTypePayable, Amount: d(300), Method: models.PaymentMethodCash, Date: day(2)})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	cash, _ := store.List[models.CashTransaction](f.ctx, f.store)
	if len(cash) != 1 || cash[0].Type != models.MonetaryTypeExpense || !cash[0].ActualAmount.Equal(d(300)) {
		t.Fatalf("expected one cash expense of 300, got %+v", cash)
	}
	ledger, err := store.Get[models.LedgerEntry](f.ctx, f.store, payable.ID)
	if err != nil {
		t.Fatalf("get ledger: %v", err)
	}
	if !ledger.PaidAmount.Equal(d(300)) || ledger.Status != models.LedgerStatusPartiallyPaid {
		t.Fatalf("ledger not paid down: paid=%s status=%s", ledger.PaidAmount, ledger.Status)
	}
	inst, _ := store.List[models.PaymentInstallment](f.ctx, f.store)
	if len(inst) != 1 || inst[0].LedgerEntryId != payable.ID || !inst[0].Amount.Equal(d(300)) {
		t.Fatalf("expected one installment of 300, got %+v", inst)
	}
	if len(res.Installments) != 1 || cash[0].LinkedLedgerId != payable.ID {
		t.Fatalf("single-line settlement should link the payment to the line")
	}

	tags := f.tags(t)
	want := []action.Tag{action.TagCreateRecord, action.TagCreateRecord, action.TagSettleTotal}
	if len(tags) != len(want) {
		t.Fatalf("queue %v, want %v", tags, want)
	}
	for i := range want {
		if tags[i] != want[i] {
			t.Fatalf("queue %v, want %v", tags, want)
		}
	}
	if f.trigger.count() != 3 {
		t.Fatalf("expected a sync trigger per write, got %d", f.trigger.count())
	}
	if s := f.m.Summary(); !s.TotalPayables.Equal(d(200)) || !s.CashBalance.Equal(d(-300)) {
		t.Fatalf("summary not refreshed: %+v", s)
	}
}

func TestPaymentAboveOutstandingIsRejected(t *testing.T) {
	f := newFixture(t)
	c := f.contact(t, models.ContactKindCustomer)
	if _, err := f.m.AddLedgerEntry(f.ctx, LedgerInput{Date: day(1), Type: models.LedgerTypeReceivable, Amount: d(100), ContactId: c.ID}); err != nil {
		t.Fatalf("add ledger: %v", err)
	}
	before, _ := f.queue.Len(f.ctx)

	_, err := f.m.RecordPayment(f.ctx, PaymentInput{ContactId: c.ID, Type: models.LedgerTypeReceivable, Amount: d(150), Method: models.PaymentMethodCash, Date: day(2)})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	after, _ := f.queue.Len(f.ctx)
	if after != before {
		t.Fatalf("a rejected payment must not be queued")
	}
	cash, _ := store.List[models.CashTransaction](f.ctx, f.store)
	if len(cash) != 0 {
		t.Fatalf("a rejected payment must not be written")
	}
}

func TestSettleDirectPaysChosenLine(t *testing.T) {
	f := newFixture(t)
	c := f.contact(t, models.ContactKindSupplier)
	bank := f.bank(t)
	older, _ := f.m.AddLedgerEntry(f.ctx, LedgerInput{Date: day(1), Type: models.LedgerTypePayable, Amount: d(100), ContactId: c.ID})
	newer, _ := f.m.AddLedgerEntry(f.ctx, LedgerInput{Date: day(5), Type: models.LedgerTypePayable, Amount: d(100), ContactId: c.ID})

	if _, err := f.m.SettleDirect(f.ctx, DirectPaymentInput{LedgerId: newer.ID, Amount: d(100), Method: models.PaymentMethodBank, BankId: bank.ID, Date: day(6)}); err != nil {
		t.Fatalf("settle direct: %v", err)
	}
	got, _ := store.Get[models.LedgerEntry](f.ctx, f.store, newer.ID)
	if got.Status != models.LedgerStatusPaid {
		t.Fatalf("chosen line should be paid, got %s", got.Status)
	}
	untouched, _ := store.Get[models.LedgerEntry](f.ctx, f.store, older.ID)
	if !untouched.PaidAmount.IsZero() {
		t.Fatalf("older line must not be touched")
	}
	banks, _ := store.List[models.BankTransaction](f.ctx, f.store)
	if len(banks) != 1 || banks[0].Type != models.MonetaryTypeWithdrawal || banks[0].BankId != bank.ID {
		t.Fatalf("expected one withdrawal, got %+v", banks)
	}
}

func TestStockPurchasePaidByCash(t *testing.T) {
	f := newFixture(t)
	res, err := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, Weight: d(100), PricePerKg: d(10), PaymentMethod: models.PaymentMethodCash})
	if err != nil {
		t.Fatalf("record stock: %v", err)
	}
	cash, ok := res.Money.(*models.CashTransaction)
	if !ok {
		t.Fatalf("expected a cash row, got %T", res.Money)
	}
	if cash.LinkedStockTxId != res.Stock.ID || !cash.ActualAmount.Equal(d(1000)) || cash.Type != models.MonetaryTypeExpense {
		t.Fatalf("cash row wrong: %+v", cash)
	}
	if tags := f.tags(t); len(tags) != 1 || tags[0] != action.TagCreateLinkedStockTransaction {
		t.Fatalf("expected one linked create, got %v", tags)
	}
	s := f.m.Summary()
	if !s.CashBalance.Equal(d(-1000)) || len(s.Stock) != 1 || !s.Stock[0].AvgPrice.Equal(d(10)) {
		t.Fatalf("summary %+v", s)
	}
}

func TestActualAmountOverrideNeedsReason(t *testing.T) {
	f := newFixture(t)
	override := d(950)
	in := StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, Weight: d(100), PricePerKg: d(10), PaymentMethod: models.PaymentMethodCash, ActualAmount: &override}
	if _, err := f.m.RecordStockTransaction(f.ctx, in); !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n, _ := f.queue.Len(f.ctx); n != 0 {
		t.Fatalf("nothing may be queued on validation failure")
	}

	in.VarianceReason = "bulk discount"
	res, err := f.m.RecordStockTransaction(f.ctx, in)
	if err != nil {
		t.Fatalf("record stock: %v", err)
	}
	cash := res.Money.(*models.CashTransaction)
	if !cash.ActualAmount.Equal(d(950)) || !cash.Difference.Equal(d(-50)) || !cash.ExpectedAmount.Equal(d(1000)) {
		t.Fatalf("override not applied: %+v", cash.MonetaryTransaction)
	}
}

func TestCreditSaleOpensReceivable(t *testing.T) {
	f := newFixture(t)
	customer := f.contact(t, models.ContactKindCustomer)
	res, err := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(2), ItemName: "beans", Type: models.StockTypeSale, Weight: d(20), PricePerKg: d(15), PaymentMethod: models.PaymentMethodCredit, ContactId: customer.ID})
	if err != nil {
		t.Fatalf("record stock: %v", err)
	}
	if res.Money != nil || res.Ledger == nil {
		t.Fatalf("credit sale owns a ledger line only")
	}
	l := res.Ledger
	if l.Type != models.LedgerTypeReceivable || l.Status != models.LedgerStatusUnpaid || !l.Amount.Equal(d(300)) || l.StockTxId != res.Stock.ID || l.ContactName != customer.Name {
		t.Fatalf("ledger line wrong: %+v", l)
	}

	if _, err := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(2), ItemName: "beans", Type: models.StockTypeSale, Weight: d(1), PricePerKg: d(1), PaymentMethod: models.PaymentMethodCredit}); !utils.IsValidationError(err) {
		t.Fatalf("credit without a contact must fail validation, got %v", err)
	}
}

func TestUpdateStockPropagatesAmount(t *testing.T) {
	f := newFixture(t)
	bank := f.bank(t)
	res, err := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypeSale, Weight: d(10), PricePerKg: d(10), PaymentMethod: models.PaymentMethodBank, BankId: bank.ID})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := f.m.UpdateStockTransaction(f.ctx, res.Stock.ID, StockEditInput{Date: day(3), ItemName: "rice", Weight: d(12), PricePerKg: d(10)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	banks, _ := store.List[models.BankTransaction](f.ctx, f.store)
	if len(banks) != 1 || !banks[0].ActualAmount.Equal(d(120)) || !banks[0].Date.Equal(day(3)) {
		t.Fatalf("bank row not re-amounted: %+v", banks)
	}
	stock, _ := store.Get[models.StockTransaction](f.ctx, f.store, res.Stock.ID)
	if !stock.ActualAmount.Equal(d(120)) {
		t.Fatalf("stock not re-amounted: %s", stock.ActualAmount)
	}
	if tags := f.tags(t); tags[len(tags)-1] != action.TagUpdateStockTransaction {
		t.Fatalf("expected an update action last, got %v", tags)
	}
}

func TestUpdateCreditStockBelowPaidIsRejected(t *testing.T) {
	f := newFixture(t)
	c := f.contact(t, models.ContactKindSupplier)
	res, _ := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, Weight: d(10), PricePerKg: d(10), PaymentMethod: models.PaymentMethodCredit, ContactId: c.ID})
	if _, err := f.m.SettleDirect(f.ctx, DirectPaymentInput{LedgerId: res.Ledger.ID, Amount: d(80), Method: models.PaymentMethodCash, Date: day(2)}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	_, err := f.m.UpdateStockTransaction(f.ctx, res.Stock.ID, StockEditInput{Date: day(1), ItemName: "rice", Weight: d(5), PricePerKg: d(10)})
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteStockDeletesLinkedMoney(t *testing.T) {
	f := newFixture(t)
	bank := f.bank(t)
	res, _ := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, Weight: d(10), PricePerKg: d(10), PaymentMethod: models.PaymentMethodBank, BankId: bank.ID})

	group, err := f.m.Delete(f.ctx, models.EntityStock, res.Stock.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(group) != 2 {
		t.Fatalf("expected stock and bank row, got %d records", len(group))
	}
	stock, _ := store.Get[models.StockTransaction](f.ctx, f.store, res.Stock.ID)
	money, _ := store.Get[models.BankTransaction](f.ctx, f.store, res.Money.GetID())
	if stock.DeletedAt == nil || money.DeletedAt == nil {
		t.Fatalf("both must be soft-deleted")
	}
	if s := f.m.Summary(); !s.BankBalance.IsZero() || len(s.Stock) != 0 {
		t.Fatalf("deleted rows must drop out of the summary: %+v", s)
	}

	restored, err := f.m.Restore(f.ctx, models.EntityBank, res.Money.GetID())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restored) != 2 {
		t.Fatalf("restore should bring both back, got %d", len(restored))
	}
	if s := f.m.Summary(); !s.BankBalance.Equal(d(-100)) {
		t.Fatalf("restored balance %s", s.BankBalance)
	}
}

// A local failure halfway through a composite delete leaves both rows active.
func TestCompositeDeleteIsAtomic(t *testing.T) {
	f := newFixture(t)
	res, _ := f.m.RecordStockTransaction(f.ctx, StockInput{Date: day(1), ItemName: "rice", Type: models.StockTypePurchase, Weight: d(10), PricePerKg: d(10), PaymentMethod: models.PaymentMethodCash})
	queued, _ := f.queue.Len(f.ctx)

	boom := errors.New("disk full")
	err := f.store.DB().Callback().Update().Before("gorm:update").Register("test:fail_cash", func(db *gorm.DB) {
		if db.Statement.Table == "cash_transactions" {
			_ = db.AddError(boom)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}

	if _, err := f.m.Delete(f.ctx, models.EntityStock, res.Stock.ID); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	_ = f.store.DB().Callback().Update().Remove("test:fail_cash")

	stock, _ := store.Get[models.StockTransaction](f.ctx, f.store, res.Stock.ID)
	cash, _ := store.Get[models.CashTransaction](f.ctx, f.store, res.Money.GetID())
	if stock.DeletedAt != nil || cash.DeletedAt != nil {
		t.Fatalf("neither row may be deleted after a failed composite delete")
	}
	if n, _ := f.queue.Len(f.ctx); n != queued {
		t.Fatalf("failed delete must not queue anything")
	}
}

func TestTransferFundsPairsRows(t *testing.T) {
	f := newFixture(t)
	bank := f.bank(t)
	debit, credit, err := f.m.TransferFunds(f.ctx, TransferInput{From: models.BalanceKindCash, To: models.BalanceKindBank, BankId: bank.ID, Amount: d(250), Date: day(4)})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	cash := debit.(*models.CashTransaction)
	dep := credit.(*models.BankTransaction)
	if cash.CounterpartId != dep.ID || dep.CounterpartId != cash.ID || !cash.Date.Equal(dep.Date) {
		t.Fatalf("rows not paired: %+v / %+v", cash, dep)
	}
	s := f.m.Summary()
	if !s.CashBalance.Equal(d(-250)) || !s.BankBalance.Equal(d(250)) {
		t.Fatalf("balances %s / %s", s.CashBalance, s.BankBalance)
	}

	if _, _, err := f.m.TransferFunds(f.ctx, TransferInput{From: models.BalanceKindCash, To: models.BalanceKindCash, BankId: bank.ID, Amount: d(1), Date: day(4)}); !utils.IsValidationError(err) {
		t.Fatalf("same-side transfer must fail validation, got %v", err)
	}

	group, err := f.m.Delete(f.ctx, models.EntityBank, dep.ID)
	if err != nil || len(group) != 2 {
		t.Fatalf("deleting one side deletes both: %v %d", err, len(group))
	}
}

func TestAdvanceQueuesLedgerBeforeMoney(t *testing.T) {
	f := newFixture(t)
	c := f.contact(t, models.ContactKindSupplier)
	ledger, money, err := f.m.RecordAdvance(f.ctx, AdvanceInput{ContactId: c.ID, Direction: AdvancePaid, Amount: d(80), Method: models.PaymentMethodCash, Date: day(3)})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if ledger.Status != models.LedgerStatusPaid || !ledger.Amount.Equal(d(-80)) {
		t.Fatalf("advance line wrong: %+v", ledger)
	}
	cash := money.(*models.CashTransaction)
	if cash.AdvanceId != ledger.ID || cash.Type != models.MonetaryTypeExpense {
		t.Fatalf("money row wrong: %+v", cash)
	}

	entries, _ := f.queue.PeekAll(f.ctx)
	last := entries[len(entries)-2:]
	first, _ := action.Decode(action.Tag(last[0].ActionTag), []byte(last[0].Payload))
	second, _ := action.Decode(action.Tag(last[1].ActionTag), []byte(last[1].Payload))
	if got := action.Creates(first); len(got) != 1 || got[0] != ledger.ID {
		t.Fatalf("ledger line must be queued first, got %v", got)
	}
	if refs := action.PendingRefs(second); len(refs) != 2 {
		t.Fatalf("money row depends on the contact and the advance line, got %v", refs)
	}
	if s := f.m.Summary(); !s.AdvanceCredit.Equal(d(80)) || !s.TotalPayables.IsZero() {
		t.Fatalf("advance must not count as payable: %+v", s)
	}
}

func TestOpeningBalancesReplace(t *testing.T) {
	f := newFixture(t)
	bank := f.bank(t)
	in := OpeningInput{Cash: d(1000), Banks: []OpeningBank{{BankId: bank.ID, Amount: d(5000)}}, Stocks: []OpeningStock{{ItemName: "rice", Weight: d(50), PricePerKg: d(8)}}}
	if _, err := f.m.SetInitialBalances(f.ctx, in); err != nil {
		t.Fatalf("opening: %v", err)
	}
	in.Cash = d(400)
	if _, err := f.m.SetInitialBalances(f.ctx, in); err != nil {
		t.Fatalf("opening again: %v", err)
	}
	balances, _ := store.List[models.InitialBalance](f.ctx, f.store)
	if len(balances) != 2 {
		t.Fatalf("opening rows must be replaced, got %d", len(balances))
	}
	s := f.m.Summary()
	if !s.CashBalance.Equal(d(400)) || !s.BankBalance.Equal(d(5000)) || !s.StockValue.Equal(d(400)) {
		t.Fatalf("summary %+v", s)
	}
}

func TestCategoryLifecycle(t *testing.T) {
	f := newFixture(t)
	cat, err := f.m.AddCategory(f.ctx, CategoryInput{Name: "rent", Kind: models.CategoryKindExpense})
	if err != nil {
		t.Fatalf("add category: %v", err)
	}
	if _, err := f.m.AddCategory(f.ctx, CategoryInput{Name: "rent", Kind: models.CategoryKindExpense}); !utils.IsValidationError(err) {
		t.Fatalf("duplicate category must fail, got %v", err)
	}
	tx, err := f.m.AddCash(f.ctx, MoneyInput{Date: day(1), Type: models.MonetaryTypeExpense, ExpectedAmount: d(50), Category: "rent"})
	if err != nil {
		t.Fatalf("add cash: %v", err)
	}
	if _, err := f.m.Delete(f.ctx, models.EntityCategory, cat.ID); !utils.IsValidationError(err) {
		t.Fatalf("categories are not soft-deleted, got %v", err)
	}
	if err := f.m.DeleteCategory(f.ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	kept, _ := store.Get[models.CashTransaction](f.ctx, f.store, tx.ID)
	if kept.Category != "rent" {
		t.Fatalf("transactions keep their category text")
	}
}

func TestEmptyRecycleBinAndDeleteAll(t *testing.T) {
	f := newFixture(t)
	c := f.contact(t, models.ContactKindBoth)
	if _, err := f.m.Delete(f.ctx, models.EntityContact, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	purged, err := f.m.EmptyRecycleBin(f.ctx)
	if err != nil || purged[models.EntityContact] != 1 {
		t.Fatalf("purge: %v %v", err, purged)
	}
	if _, err := f.m.Restore(f.ctx, models.EntityContact, c.ID); !utils.IsValidationError(err) {
		t.Fatalf("purged records cannot be restored, got %v", err)
	}

	if _, err := f.m.AddCash(f.ctx, MoneyInput{Date: day(1), Type: models.MonetaryTypeIncome, ExpectedAmount: d(10)}); err != nil {
		t.Fatalf("add cash: %v", err)
	}
	if err := f.m.DeleteAll(f.ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if s := f.m.Summary(); !s.CashBalance.IsZero() {
		t.Fatalf("delete all must clear balances")
	}
	tags := f.tags(t)
	if tags[len(tags)-1] != action.TagDeleteAll {
		t.Fatalf("expected delete_all queued last, got %v", tags)
	}
}

func TestContactPhoneValidation(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.AddContact(f.ctx, ContactInput{Name: "Ma Ma", Kind: models.ContactKindCustomer, Phone: "12"}); !utils.IsValidationError(err) {
		t.Fatalf("expected phone validation error, got %v", err)
	}
	if _, err := f.m.AddContact(f.ctx, ContactInput{Name: "Ma Ma", Kind: "vendor"}); !utils.IsValidationError(err) {
		t.Fatalf("expected kind validation error, got %v", err)
	}
}
