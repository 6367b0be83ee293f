// Package valuation derives balances, debts and stock value by replaying the local history.
// Nothing here is persisted; every figure can be recomputed at any time.
package valuation

import (
	"slices"
	"sort"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

// StockItem is the derived position of one item.
type StockItem struct {
	Name       string          `json:"name"`
	Weight     decimal.Decimal `json:"weight"`
	TotalValue decimal.Decimal `json:"total_value"`
	AvgPrice   decimal.Decimal `json:"avg_purchase_price_per_kg"`
}

// SignedSum adds inflows and subtracts outflows, skipping deleted rows.
func SignedSum(txs []models.MonetaryTransaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.DeletedAt != nil {
			continue
		}
		total = total.Add(tx.SignedAmount())
	}
	return total
}

// CashBalance is opening cash plus income minus expense.
func CashBalance(opening decimal.Decimal, txs []models.CashTransaction) decimal.Decimal {
	flat := make([]models.MonetaryTransaction, 0, len(txs))
	for _, tx := range txs {
		flat = append(flat, tx.MonetaryTransaction)
	}
	return opening.Add(SignedSum(flat))
}

// BankBalance is the opening balances plus deposits minus withdrawals across every account.
func BankBalance(opening decimal.Decimal, txs []models.BankTransaction) decimal.Decimal {
	flat := make([]models.MonetaryTransaction, 0, len(txs))
	for _, tx := range txs {
		flat = append(flat, tx.MonetaryTransaction)
	}
	return opening.Add(SignedSum(flat))
}

// BankBalances splits the bank balance per bank account.
func BankBalances(opening []models.InitialBalance, txs []models.BankTransaction) map[models.RecordID]decimal.Decimal {
	out := make(map[models.RecordID]decimal.Decimal)
	for _, b := range opening {
		if b.Type == models.BalanceKindBank {
			out[b.BankId] = out[b.BankId].Add(b.Amount)
		}
	}
	for _, tx := range txs {
		if tx.DeletedAt != nil {
			continue
		}
		out[tx.BankId] = out[tx.BankId].Add(tx.SignedAmount())
	}
	return out
}

// OpeningTotals sums the initial cash and bank balances.
func OpeningTotals(balances []models.InitialBalance) (cash, bank decimal.Decimal) {
	for _, b := range balances {
		switch b.Type {
		case models.BalanceKindCash:
			cash = cash.Add(b.Amount)
		case models.BalanceKindBank:
			bank = bank.Add(b.Amount)
		}
	}
	return cash, bank
}

// Outstanding sums amount - paid_amount over active ledger entries of one type.
func Outstanding(entries []models.LedgerEntry, kind models.LedgerType) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.DeletedAt != nil || e.Type != kind {
			continue
		}
		total = total.Add(e.Amount.Sub(e.PaidAmount))
	}
	return total
}

func TotalPayables(entries []models.LedgerEntry) decimal.Decimal {
	return Outstanding(entries, models.LedgerTypePayable)
}

func TotalReceivables(entries []models.LedgerEntry) decimal.Decimal {
	return Outstanding(entries, models.LedgerTypeReceivable)
}

// AdvanceCredit is the prepaid credit held by active advance entries, as a positive amount.
func AdvanceCredit(entries []models.LedgerEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.DeletedAt == nil && e.Type == models.LedgerTypeAdvance {
			total = total.Add(e.Amount.Abs())
		}
	}
	return total
}

// Chronological returns a copy of txs ordered by date, then creation order.
func Chronological(txs []models.StockTransaction) []models.StockTransaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b models.StockTransaction) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out
}

type position struct {
	weight decimal.Decimal
	value  decimal.Decimal
}

// Valuate replays initial stock and then every active stock transaction in date order, using
// moving weighted-average cost. A sale removes weight at the average price held just before it.
func Valuate(initial []models.InitialStock, txs []models.StockTransaction) []StockItem {
	book := make(map[string]*position)
	get := func(name string) *position {
		p, ok := book[name]
		if !ok {
			p = &position{}
			book[name] = p
		}
		return p
	}

	for _, s := range initial {
		p := get(s.ItemName)
		p.weight = p.weight.Add(s.Weight)
		p.value = p.value.Add(s.Weight.Mul(s.PricePerKg))
	}

	for _, tx := range Chronological(txs) {
		if tx.DeletedAt != nil {
			continue
		}
		p := get(tx.ItemName)
		switch tx.Type {
		case models.StockTypePurchase:
			p.weight = p.weight.Add(tx.Weight)
			p.value = p.value.Add(tx.Weight.Mul(tx.PricePerKg))
		case models.StockTypeSale:
			avg := average(p.value, p.weight)
			p.weight = p.weight.Sub(tx.Weight)
			p.value = p.value.Sub(tx.Weight.Mul(avg))
		}
	}

	items := make([]StockItem, 0, len(book))
	for name, p := range book {
		items = append(items, StockItem{Name: name, Weight: p.weight, TotalValue: p.value, AvgPrice: average(p.value, p.weight)})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}

func average(value, weight decimal.Decimal) decimal.Decimal {
	if !weight.IsPositive() {
		return decimal.Zero
	}
	return value.Div(weight)
}
