package valuation

import (
	"math/rand"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func cash(t models.MonetaryType, amount int64) models.CashTransaction {
	return models.CashTransaction{MonetaryTransaction: models.MonetaryTransaction{ID: models.NewPendingID(), Type: t, ActualAmount: d(amount)}}
}

func stock(date time.Time, t models.StockType, weight, price int64) models.StockTransaction {
	return models.StockTransaction{ID: models.NewPendingID(), Date: date, CreatedAt: date, ItemName: "rice", Type: t, Weight: d(weight), PricePerKg: d(price)}
}

func TestCashBalanceIsOrderIndependent(t *testing.T) {
	txs := []models.CashTransaction{
		cash(models.MonetaryTypeIncome, 500),
		cash(models.MonetaryTypeExpense, 120),
		cash(models.MonetaryTypeIncome, 30),
		cash(models.MonetaryTypeExpense, 75),
	}
	want := d(335)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		rng.Shuffle(len(txs), func(a, b int) { txs[a], txs[b] = txs[b], txs[a] })
		if got := CashBalance(decimal.Zero, txs); !got.Equal(want) {
			t.Fatalf("shuffle %d: got %s want %s", i, got, want)
		}
	}

	deleted := cash(models.MonetaryTypeIncome, 1000)
	now := time.Now()
	deleted.DeletedAt = &now
	if got := CashBalance(d(100), append(txs, deleted)); !got.Equal(d(435)) {
		t.Fatalf("opening balance added and deleted rows skipped: got %s", got)
	}
}

func TestBankBalances(t *testing.T) {
	kbz, aya := models.RecordID("1"), models.RecordID("2")
	deposit := models.BankTransaction{MonetaryTransaction: models.MonetaryTransaction{Type: models.MonetaryTypeDeposit, ActualAmount: d(300)}, BankId: kbz}
	withdrawal := models.BankTransaction{MonetaryTransaction: models.MonetaryTransaction{Type: models.MonetaryTypeWithdrawal, ActualAmount: d(50)}, BankId: aya}
	opening := []models.InitialBalance{{Type: models.BalanceKindBank, BankId: aya, Amount: d(200)}, {Type: models.BalanceKindCash, Amount: d(10)}}

	s := Summarize(History{Bank: []models.BankTransaction{deposit, withdrawal}, InitialBalances: opening})
	if !s.BankBalance.Equal(d(450)) {
		t.Fatalf("bank balance %s", s.BankBalance)
	}
	if !s.BankBalances[kbz].Equal(d(300)) || !s.BankBalances[aya].Equal(d(150)) {
		t.Fatalf("per-account balances %v", s.BankBalances)
	}
	if !s.CashBalance.Equal(d(10)) {
		t.Fatalf("cash opening not applied: %s", s.CashBalance)
	}
}

func TestPurchaseThenSale(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := Valuate(nil, []models.StockTransaction{
		stock(jan, models.StockTypePurchase, 100, 10),
		stock(jan.AddDate(0, 0, 1), models.StockTypeSale, 40, 15),
	})
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	it := items[0]
	if !it.Weight.Equal(d(60)) || !it.AvgPrice.Equal(d(10)) || !it.TotalValue.Equal(d(600)) {
		t.Fatalf("got weight %s avg %s value %s", it.Weight, it.AvgPrice, it.TotalValue)
	}
}

// Rows inserted in reverse date order value the same as rows inserted chronologically.
func TestReplaySortsByDate(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	purchase := stock(jan, models.StockTypePurchase, 100, 10)
	sale := stock(jan.AddDate(0, 0, 1), models.StockTypeSale, 40, 15)
	sale.CreatedAt = jan.Add(-time.Hour)

	forward := Valuate(nil, []models.StockTransaction{purchase, sale})
	reverse := Valuate(nil, []models.StockTransaction{sale, purchase})
	if !forward[0].TotalValue.Equal(reverse[0].TotalValue) || !forward[0].Weight.Equal(reverse[0].Weight) {
		t.Fatalf("order dependent: %+v vs %+v", forward[0], reverse[0])
	}
	if !reverse[0].TotalValue.Equal(d(600)) {
		t.Fatalf("expected 600, got %s", reverse[0].TotalValue)
	}
}

func TestInitialStockSeedsAverage(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := Valuate(
		[]models.InitialStock{{ItemName: "rice", Weight: d(50), PricePerKg: d(8)}},
		[]models.StockTransaction{stock(jan, models.StockTypePurchase, 50, 12)},
	)
	if !items[0].AvgPrice.Equal(d(10)) || !items[0].Weight.Equal(d(100)) {
		t.Fatalf("got %+v", items[0])
	}
}

func TestOverSoldItemHasZeroAverage(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	items := Valuate(nil, []models.StockTransaction{stock(jan, models.StockTypeSale, 10, 5)})
	if !items[0].Weight.Equal(d(-10)) || !items[0].AvgPrice.IsZero() {
		t.Fatalf("got %+v", items[0])
	}
}

func TestPayablesReceivablesAndAdvances(t *testing.T) {
	ledgers := []models.LedgerEntry{
		{Type: models.LedgerTypePayable, Amount: d(500), PaidAmount: d(300)},
		{Type: models.LedgerTypePayable, Amount: d(100)},
		{Type: models.LedgerTypeReceivable, Amount: d(250), PaidAmount: d(50)},
		{Type: models.LedgerTypeAdvance, Amount: d(-80), PaidAmount: d(-80)},
	}
	if got := TotalPayables(ledgers); !got.Equal(d(300)) {
		t.Fatalf("payables %s", got)
	}
	if got := TotalReceivables(ledgers); !got.Equal(d(200)) {
		t.Fatalf("receivables %s", got)
	}
	if got := AdvanceCredit(ledgers); !got.Equal(d(80)) {
		t.Fatalf("advance credit %s", got)
	}
}
