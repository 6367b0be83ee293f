package action

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
)

// RecordPayload carries exactly one entity; the set field names its kind.
type RecordPayload struct {
	Contact        *models.Contact            `json:"contact,omitempty"`
	BankAccount    *models.BankAccount        `json:"bank_account,omitempty"`
	Category       *models.Category           `json:"category,omitempty"`
	InitialStock   *models.InitialStock       `json:"initial_stock,omitempty"`
	InitialBalance *models.InitialBalance     `json:"initial_balance,omitempty"`
	Stock          *models.StockTransaction   `json:"stock_transaction,omitempty"`
	Ledger         *models.LedgerEntry        `json:"ledger_entry,omitempty"`
	Installment    *models.PaymentInstallment `json:"payment_installment,omitempty"`
	Cash           *models.CashTransaction    `json:"cash_transaction,omitempty"`
	Bank           *models.BankTransaction    `json:"bank_transaction,omitempty"`
}

var errEmptyPayload = errors.New("record payload carries no entity")

// Wrap puts r into a payload. The payload shares r's memory.
func Wrap(r models.Record) RecordPayload {
	var p RecordPayload
	switch v := r.(type) {
	case *models.Contact:
		p.Contact = v
	case *models.BankAccount:
		p.BankAccount = v
	case *models.Category:
		p.Category = v
	case *models.InitialStock:
		p.InitialStock = v
	case *models.InitialBalance:
		p.InitialBalance = v
	case *models.StockTransaction:
		p.Stock = v
	case *models.LedgerEntry:
		p.Ledger = v
	case *models.PaymentInstallment:
		p.Installment = v
	case *models.CashTransaction:
		p.Cash = v
	case *models.BankTransaction:
		p.Bank = v
	default:
		panic(fmt.Sprintf("action: cannot wrap %T", r))
	}
	return p
}

// WrapPtr is Wrap for optional payload fields.
func WrapPtr(r models.Record) *RecordPayload {
	p := Wrap(r)
	return &p
}

// Record returns the single entity carried by the payload.
func (p RecordPayload) Record() (models.Record, error) {
	var found []models.Record
	add := func(ok bool, r models.Record) {
		if ok {
			found = append(found, r)
		}
	}
	add(p.Contact != nil, p.Contact)
	add(p.BankAccount != nil, p.BankAccount)
	add(p.Category != nil, p.Category)
	add(p.InitialStock != nil, p.InitialStock)
	add(p.InitialBalance != nil, p.InitialBalance)
	add(p.Stock != nil, p.Stock)
	add(p.Ledger != nil, p.Ledger)
	add(p.Installment != nil, p.Installment)
	add(p.Cash != nil, p.Cash)
	add(p.Bank != nil, p.Bank)
	switch len(found) {
	case 0:
		return nil, errEmptyPayload
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("record payload carries %d entities", len(found))
	}
}

func (p RecordPayload) eachID(fn Visitor, created bool) {
	if r, err := p.Record(); err == nil {
		visitRecord(r, fn, created)
	}
}

// visitRecord walks the primary key (created or not) and every reference of r.
func visitRecord(r models.Record, fn Visitor, created bool) {
	kind := r.Kind()
	id := r.GetID()
	fn(kind, &id, created)
	r.SetID(id)
	r.EachRef(func(column string, ref *models.RecordID) {
		if ref.IsZero() {
			return
		}
		to, _ := models.RefTarget(kind, column)
		fn(to, ref, false)
	})
}
