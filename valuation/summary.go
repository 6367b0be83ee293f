package valuation

import (
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

// History is everything the derived figures are computed from.
type History struct {
	Cash            []models.CashTransaction
	Bank            []models.BankTransaction
	Stock           []models.StockTransaction
	Ledgers         []models.LedgerEntry
	InitialStocks   []models.InitialStock
	InitialBalances []models.InitialBalance
}

// Summary is the derived state refreshed after every local write.
type Summary struct {
	CashBalance      decimal.Decimal                     `json:"cash_balance"`
	BankBalance      decimal.Decimal                     `json:"bank_balance"`
	BankBalances     map[models.RecordID]decimal.Decimal `json:"bank_balances"`
	TotalPayables    decimal.Decimal                     `json:"total_payables"`
	TotalReceivables decimal.Decimal                     `json:"total_receivables"`
	AdvanceCredit    decimal.Decimal                     `json:"advance_credit"`
	Stock            []StockItem                         `json:"stock"`
	StockValue       decimal.Decimal                     `json:"stock_value"`
}

func Summarize(h History) Summary {
	openingCash, openingBank := OpeningTotals(h.InitialBalances)
	items := Valuate(h.InitialStocks, h.Stock)
	stockValue := decimal.Zero
	for _, it := range items {
		stockValue = stockValue.Add(it.TotalValue)
	}
	return Summary{
		CashBalance:      CashBalance(openingCash, h.Cash),
		BankBalance:      BankBalance(openingBank, h.Bank),
		BankBalances:     BankBalances(h.InitialBalances, h.Bank),
		TotalPayables:    TotalPayables(h.Ledgers),
		TotalReceivables: TotalReceivables(h.Ledgers),
		AdvanceCredit:    AdvanceCredit(h.Ledgers),
		Stock:            items,
		StockValue:       stockValue,
	}
}
