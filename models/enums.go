package models

import "github.com/shopspring/decimal"

type MonetaryType string

const (
	MonetaryTypeIncome     MonetaryType = "income"
	MonetaryTypeExpense    MonetaryType = "expense"
	MonetaryTypeDeposit    MonetaryType = "deposit"
	MonetaryTypeWithdrawal MonetaryType = "withdrawal"
)

// IsInflow reports whether the transaction increases its account balance.
func (t MonetaryType) IsInflow() bool {
	return t == MonetaryTypeIncome || t == MonetaryTypeDeposit
}

type StockType string

const (
	StockTypePurchase StockType = "purchase"
	StockTypeSale     StockType = "sale"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodBank   PaymentMethod = "bank"
	PaymentMethodCredit PaymentMethod = "credit"
)

// MonetaryTypeFor picks the cash/bank movement type for money flowing in or out.
func MonetaryTypeFor(method PaymentMethod, inflow bool) MonetaryType {
	switch {
	case method == PaymentMethodBank && inflow:
		return MonetaryTypeDeposit
	case method == PaymentMethodBank:
		return MonetaryTypeWithdrawal
	case inflow:
		return MonetaryTypeIncome
	default:
		return MonetaryTypeExpense
	}
}

type LedgerType string

const (
	LedgerTypePayable    LedgerType = "payable"
	LedgerTypeReceivable LedgerType = "receivable"
	LedgerTypeAdvance    LedgerType = "advance"
)

type LedgerStatus string

const (
	LedgerStatusUnpaid        LedgerStatus = "unpaid"
	LedgerStatusPartiallyPaid LedgerStatus = "partially_paid"
	LedgerStatusPaid          LedgerStatus = "paid"
)

// StatusFor derives the settlement status from paid vs amount.
func StatusFor(amount, paid decimal.Decimal) LedgerStatus {
	switch {
	case paid.LessThanOrEqual(decimal.Zero):
		return LedgerStatusUnpaid
	case paid.GreaterThanOrEqual(amount):
		return LedgerStatusPaid
	default:
		return LedgerStatusPartiallyPaid
	}
}

type ContactKind string

const (
	ContactKindSupplier ContactKind = "supplier"
	ContactKindCustomer ContactKind = "customer"
	ContactKindBoth     ContactKind = "both"
)

type CategoryKind string

const (
	CategoryKindIncome  CategoryKind = "income"
	CategoryKindExpense CategoryKind = "expense"
)

type BalanceKind string

const (
	BalanceKindCash BalanceKind = "cash"
	BalanceKindBank BalanceKind = "bank"
)
