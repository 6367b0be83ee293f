package workflow

import (
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"github.com/shopspring/decimal"
)

// Struct tags cover presence and enums; amounts are decimals and are checked in code.

type ContactInput struct {
	Name  string             `validate:"required,max=255"`
	Phone string             `validate:"omitempty,max=50"`
	Kind  models.ContactKind `validate:"required,oneof=supplier customer both"`
}

type BankAccountInput struct {
	Name          string `validate:"required,max=255"`
	AccountNumber string `validate:"omitempty,max=64"`
}

type CategoryInput struct {
	Name string              `validate:"required,max=100"`
	Kind models.CategoryKind `validate:"required,oneof=income expense"`
}

// MoneyInput is a standalone cash or bank movement.
type MoneyInput struct {
	Date           time.Time           `validate:"required"`
	Type           models.MonetaryType `validate:"required,oneof=income expense deposit withdrawal"`
	ExpectedAmount decimal.Decimal
	// ActualAmount overrides ExpectedAmount; a differing value needs VarianceReason.
	ActualAmount   *decimal.Decimal
	VarianceReason string          `validate:"max=255"`
	Description    string          `validate:"max=255"`
	Category       string          `validate:"max=100"`
	ContactId      models.RecordID `validate:"omitempty,max=64"`
	BankId         models.RecordID `validate:"omitempty,max=64"`
}

// LedgerInput opens a payable or receivable without a stock movement (e.g. carried-over debt).
type LedgerInput struct {
	Date        time.Time         `validate:"required"`
	Type        models.LedgerType `validate:"required,oneof=payable receivable"`
	Description string            `validate:"max=255"`
	Amount      decimal.Decimal
	ContactId   models.RecordID `validate:"required"`
}

type StockInput struct {
	Date           time.Time        `validate:"required"`
	ItemName       string           `validate:"required,max=255"`
	Type           models.StockType `validate:"required,oneof=purchase sale"`
	Weight         decimal.Decimal
	PricePerKg     decimal.Decimal
	PaymentMethod  models.PaymentMethod `validate:"required,oneof=cash bank credit"`
	ContactId      models.RecordID      `validate:"required_if=PaymentMethod credit"`
	BankId         models.RecordID      `validate:"required_if=PaymentMethod bank"`
	ActualAmount   *decimal.Decimal
	VarianceReason string `validate:"max=255"`
	Description    string `validate:"max=255"`
}

// StockEditInput replaces the editable fields of a stock transaction. Payment method is fixed.
type StockEditInput struct {
	Date           time.Time `validate:"required"`
	ItemName       string    `validate:"required,max=255"`
	Weight         decimal.Decimal
	PricePerKg     decimal.Decimal
	ActualAmount   *decimal.Decimal
	VarianceReason string `validate:"max=255"`
}

// PaymentInput settles a contact's outstanding total oldest first. An empty ContactId settles
// across every contact's lines of Type.
type PaymentInput struct {
	ContactId   models.RecordID   `validate:"omitempty,max=64"`
	Type        models.LedgerType `validate:"required,oneof=payable receivable"`
	Amount      decimal.Decimal
	Method      models.PaymentMethod `validate:"required,oneof=cash bank"`
	BankId      models.RecordID      `validate:"required_if=Method bank"`
	Date        time.Time            `validate:"required"`
	Description string               `validate:"max=255"`
}

// DirectPaymentInput settles one chosen ledger line.
type DirectPaymentInput struct {
	LedgerId    models.RecordID `validate:"required"`
	Amount      decimal.Decimal
	Method      models.PaymentMethod `validate:"required,oneof=cash bank"`
	BankId      models.RecordID      `validate:"required_if=Method bank"`
	Date        time.Time            `validate:"required"`
	Description string               `validate:"max=255"`
}

type AdvanceDirection string

const (
	AdvancePaid     AdvanceDirection = "paid"
	AdvanceReceived AdvanceDirection = "received"
)

// AdvanceInput records money paid to a supplier (or received from a customer) ahead of any invoice.
type AdvanceInput struct {
	ContactId   models.RecordID  `validate:"required"`
	Direction   AdvanceDirection `validate:"required,oneof=paid received"`
	Amount      decimal.Decimal
	Method      models.PaymentMethod `validate:"required,oneof=cash bank"`
	BankId      models.RecordID      `validate:"required_if=Method bank"`
	Date        time.Time            `validate:"required"`
	Description string               `validate:"max=255"`
}

type TransferInput struct {
	From        models.BalanceKind `validate:"required,oneof=cash bank"`
	To          models.BalanceKind `validate:"required,oneof=cash bank,nefield=From"`
	BankId      models.RecordID    `validate:"required"`
	Amount      decimal.Decimal
	Date        time.Time `validate:"required"`
	Description string    `validate:"max=255"`
}

type OpeningBank struct {
	BankId models.RecordID `validate:"required"`
	Amount decimal.Decimal
}

type OpeningStock struct {
	ItemName   string `validate:"required,max=255"`
	Weight     decimal.Decimal
	PricePerKg decimal.Decimal
}

// OpeningInput replaces every opening balance and opening stock row.
type OpeningInput struct {
	Cash   decimal.Decimal
	Banks  []OpeningBank  `validate:"dive"`
	Stocks []OpeningStock `validate:"dive"`
}
