package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one accounts-payable / accounts-receivable line tracked to settlement.
type LedgerEntry struct {
	ID           RecordID             `gorm:"primaryKey;size:64" json:"id"`
	AccountId    string               `gorm:"size:64;index" json:"-"`
	Date         time.Time            `gorm:"index;not null" json:"date"`
	Type         LedgerType           `gorm:"size:20;not null;index" json:"type"`
	Description  string               `gorm:"size:255" json:"description"`
	Amount       decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"amount"`
	PaidAmount   decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	Status       LedgerStatus         `gorm:"size:20;not null;index" json:"status"`
	ContactId    RecordID             `gorm:"size:64;index" json:"contact_id"`
	ContactName  string               `gorm:"size:255" json:"contact_name"`
	StockTxId    RecordID             `gorm:"size:64;index" json:"stock_tx_id,omitempty"`
	Installments []PaymentInstallment `gorm:"-" json:"installments,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	DeletedAt    *time.Time           `gorm:"index" json:"deleted_at,omitempty"`
}

func (LedgerEntry) TableName() string { return "ledger_entries" }
func (LedgerEntry) Kind() EntityKind  { return EntityLedger }

func (l *LedgerEntry) GetID() RecordID             { return l.ID }
func (l *LedgerEntry) SetID(id RecordID)           { l.ID = id }
func (l *LedgerEntry) GetDeletedAt() *time.Time    { return l.DeletedAt }
func (l *LedgerEntry) SetDeletedAt(at *time.Time)  { l.DeletedAt = at }
func (l *LedgerEntry) SetAccountId(account string) { l.AccountId = account }

func (l *LedgerEntry) EachRef(fn func(column string, id *RecordID)) {
	fn("contact_id", &l.ContactId)
	fn("stock_tx_id", &l.StockTxId)
}

// Remaining is amount - paid_amount, never negative.
func (l LedgerEntry) Remaining() decimal.Decimal {
	r := l.Amount.Sub(l.PaidAmount)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// RefreshStatus recomputes Status from PaidAmount. Advances stay paid.
func (l *LedgerEntry) RefreshStatus() {
	if l.Type == LedgerTypeAdvance {
		l.Status = LedgerStatusPaid
		return
	}
	l.Status = StatusFor(l.Amount, l.PaidAmount)
}

// PaymentInstallment is the append-only audit row of one allocation.
type PaymentInstallment struct {
	ID            RecordID        `gorm:"primaryKey;size:64" json:"id"`
	AccountId     string          `gorm:"size:64;index" json:"-"`
	LedgerEntryId RecordID        `gorm:"size:64;index;not null" json:"ledger_entry_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	Date          time.Time       `gorm:"not null" json:"date"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (PaymentInstallment) TableName() string { return "payment_installments" }
func (PaymentInstallment) Kind() EntityKind  { return EntityInstallment }

func (p *PaymentInstallment) GetID() RecordID             { return p.ID }
func (p *PaymentInstallment) SetID(id RecordID)           { p.ID = id }
func (p *PaymentInstallment) SetAccountId(account string) { p.AccountId = account }

func (p *PaymentInstallment) EachRef(fn func(column string, id *RecordID)) {
	fn("ledger_entry_id", &p.LedgerEntryId)
}
