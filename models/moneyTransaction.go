package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonetaryTransaction is the shared shape of cash and bank movements.
type MonetaryTransaction struct {
	ID              RecordID        `gorm:"primaryKey;size:64" json:"id"`
	AccountId       string          `gorm:"size:64;index" json:"-"`
	Date            time.Time       `gorm:"index;not null" json:"date"`
	Type            MonetaryType    `gorm:"size:20;not null" json:"type"`
	ExpectedAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"expected_amount"`
	ActualAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"actual_amount"`
	Difference      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"difference"`
	Description     string          `gorm:"size:255" json:"description"`
	Category        string          `gorm:"size:100;index" json:"category"`
	VarianceReason  string          `gorm:"size:255" json:"variance_reason,omitempty"`
	ContactId       RecordID        `gorm:"size:64;index" json:"contact_id,omitempty"`
	LinkedStockTxId RecordID        `gorm:"size:64;index" json:"linked_stock_tx_id,omitempty"`
	LinkedLedgerId  RecordID        `gorm:"size:64;index" json:"linked_ledger_id,omitempty"`
	AdvanceId       RecordID        `gorm:"size:64;index" json:"advance_id,omitempty"`
	CounterpartId   RecordID        `gorm:"size:64;index" json:"counterpart_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       *time.Time      `gorm:"index" json:"deleted_at,omitempty"`
}

func (m *MonetaryTransaction) GetID() RecordID             { return m.ID }
func (m *MonetaryTransaction) SetID(id RecordID)           { m.ID = id }
func (m *MonetaryTransaction) GetDeletedAt() *time.Time    { return m.DeletedAt }
func (m *MonetaryTransaction) SetDeletedAt(at *time.Time)  { m.DeletedAt = at }
func (m *MonetaryTransaction) SetAccountId(account string) { m.AccountId = account }

// SignedAmount is the actual amount with the sign of its effect on the balance.
func (m MonetaryTransaction) SignedAmount() decimal.Decimal {
	if m.Type.IsInflow() {
		return m.ActualAmount
	}
	return m.ActualAmount.Neg()
}

func (m *MonetaryTransaction) eachRef(fn func(column string, id *RecordID)) {
	fn("contact_id", &m.ContactId)
	fn("linked_stock_tx_id", &m.LinkedStockTxId)
	fn("linked_ledger_id", &m.LinkedLedgerId)
	fn("advance_id", &m.AdvanceId)
	fn("counterpart_id", &m.CounterpartId)
}

type CashTransaction struct {
	MonetaryTransaction
}

func (CashTransaction) TableName() string { return "cash_transactions" }
func (CashTransaction) Kind() EntityKind  { return EntityCash }

func (c *CashTransaction) EachRef(fn func(column string, id *RecordID)) {
	c.MonetaryTransaction.eachRef(fn)
}

type BankTransaction struct {
	MonetaryTransaction
	BankId RecordID `gorm:"size:64;index" json:"bank_id"`
}

func (BankTransaction) TableName() string { return "bank_transactions" }
func (BankTransaction) Kind() EntityKind  { return EntityBank }

func (b *BankTransaction) EachRef(fn func(column string, id *RecordID)) {
	b.MonetaryTransaction.eachRef(fn)
	fn("bank_id", &b.BankId)
}
