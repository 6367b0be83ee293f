package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type StockTransaction struct {
	ID             RecordID        `gorm:"primaryKey;size:64" json:"id"`
	AccountId      string          `gorm:"size:64;index" json:"-"`
	Date           time.Time       `gorm:"index;not null" json:"date"`
	ItemName       string          `gorm:"size:255;index;not null" json:"item_name"`
	Type           StockType       `gorm:"size:20;not null" json:"type"`
	Weight         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	PricePerKg     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_per_kg"`
	PaymentMethod  PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	ContactId      RecordID        `gorm:"size:64;index" json:"contact_id,omitempty"`
	BankId         RecordID        `gorm:"size:64;index" json:"bank_id,omitempty"`
	ExpectedAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"expected_amount"`
	ActualAmount   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_amount"`
	Difference     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"difference"`
	VarianceReason string          `gorm:"size:255" json:"variance_reason,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      *time.Time      `gorm:"index" json:"deleted_at,omitempty"`
}

func (StockTransaction) TableName() string { return "stock_transactions" }
func (StockTransaction) Kind() EntityKind  { return EntityStock }

func (s *StockTransaction) GetID() RecordID             { return s.ID }
func (s *StockTransaction) SetID(id RecordID)           { s.ID = id }
func (s *StockTransaction) GetDeletedAt() *time.Time    { return s.DeletedAt }
func (s *StockTransaction) SetDeletedAt(at *time.Time)  { s.DeletedAt = at }
func (s *StockTransaction) SetAccountId(account string) { s.AccountId = account }

func (s *StockTransaction) EachRef(fn func(column string, id *RecordID)) {
	fn("contact_id", &s.ContactId)
	fn("bank_id", &s.BankId)
}

// LineTotal is weight × price_per_kg.
func (s StockTransaction) LineTotal() decimal.Decimal {
	return s.Weight.Mul(s.PricePerKg)
}

// InitialStock seeds the valuation replay.
type InitialStock struct {
	ID         RecordID        `gorm:"primaryKey;size:64" json:"id"`
	AccountId  string          `gorm:"size:64;index" json:"-"`
	ItemName   string          `gorm:"size:255;index;not null" json:"item_name"`
	Weight     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"weight"`
	PricePerKg decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"price_per_kg"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (InitialStock) TableName() string { return "initial_stocks" }
func (InitialStock) Kind() EntityKind  { return EntityInitialStock }

func (s *InitialStock) GetID() RecordID                           { return s.ID }
func (s *InitialStock) SetID(id RecordID)                         { s.ID = id }
func (s *InitialStock) SetAccountId(account string)               { s.AccountId = account }
func (s *InitialStock) EachRef(func(column string, id *RecordID)) {}

// InitialBalance is the opening balance of cash or of one bank account.
type InitialBalance struct {
	ID        RecordID        `gorm:"primaryKey;size:64" json:"id"`
	AccountId string          `gorm:"size:64;index" json:"-"`
	Type      BalanceKind     `gorm:"size:10;not null" json:"kind"`
	BankId    RecordID        `gorm:"size:64;index" json:"bank_id,omitempty"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func (InitialBalance) TableName() string { return "initial_balances" }

func (InitialBalance) Kind() EntityKind { return EntityInitialBalance }

func (b *InitialBalance) GetID() RecordID             { return b.ID }
func (b *InitialBalance) SetID(id RecordID)           { b.ID = id }
func (b *InitialBalance) SetAccountId(account string) { b.AccountId = account }
func (b *InitialBalance) EachRef(fn func(column string, id *RecordID)) {
	fn("bank_id", &b.BankId)
}
