package models

import (
	"fmt"
	"time"
)

type EntityKind string

const (
	EntityCash           EntityKind = "cash_transaction"
	EntityBank           EntityKind = "bank_transaction"
	EntityStock          EntityKind = "stock_transaction"
	EntityLedger         EntityKind = "ledger_entry"
	EntityInstallment    EntityKind = "payment_installment"
	EntityContact        EntityKind = "contact"
	EntityBankAccount    EntityKind = "bank_account"
	EntityCategory       EntityKind = "category"
	EntityInitialStock   EntityKind = "initial_stock"
	EntityInitialBalance EntityKind = "initial_balance"
)

// Record is any mirrored entity.
type Record interface {
	Kind() EntityKind
	TableName() string
	GetID() RecordID
	SetID(RecordID)
	SetAccountId(string)
	// EachRef visits every foreign-key field with its column name.
	EachRef(fn func(column string, id *RecordID))
}

// SoftDeletable records move Active -> Deleted -> Purged.
type SoftDeletable interface {
	Record
	GetDeletedAt() *time.Time
	SetDeletedAt(*time.Time)
}

type EntitySpec struct {
	Kind  EntityKind
	Table string
	New   func() Record
}

// SoftDeletes reports whether records of this kind carry deleted_at.
func (s EntitySpec) SoftDeletes() bool {
	_, ok := s.New().(SoftDeletable)
	return ok
}

// Entities lists every mirrored entity, parents before children.
var Entities = []EntitySpec{
	{Kind: EntityContact, Table: "contacts", New: func() Record { return &Contact{} }},
	{Kind: EntityBankAccount, Table: "bank_accounts", New: func() Record { return &BankAccount{} }},
	{Kind: EntityCategory, Table: "categories", New: func() Record { return &Category{} }},
	{Kind: EntityInitialStock, Table: "initial_stocks", New: func() Record { return &InitialStock{} }},
	{Kind: EntityInitialBalance, Table: "initial_balances", New: func() Record { return &InitialBalance{} }},
	{Kind: EntityStock, Table: "stock_transactions", New: func() Record { return &StockTransaction{} }},
	{Kind: EntityLedger, Table: "ledger_entries", New: func() Record { return &LedgerEntry{} }},
	{Kind: EntityInstallment, Table: "payment_installments", New: func() Record { return &PaymentInstallment{} }},
	{Kind: EntityCash, Table: "cash_transactions", New: func() Record { return &CashTransaction{} }},
	{Kind: EntityBank, Table: "bank_transactions", New: func() Record { return &BankTransaction{} }},
}

var entityByKind = func() map[EntityKind]EntitySpec {
	m := make(map[EntityKind]EntitySpec, len(Entities))
	for _, e := range Entities {
		m[e.Kind] = e
	}
	return m
}()

func LookupEntity(kind EntityKind) (EntitySpec, error) {
	def, ok := entityByKind[kind]
	if !ok {
		return EntitySpec{}, fmt.Errorf("unknown entity kind %q", kind)
	}
	return def, nil
}

// ForeignKey declares that From.Column holds an identifier of To.
type ForeignKey struct {
	From   EntityKind
	Column string
	To     EntityKind
}

func (fk ForeignKey) Table() string {
	return entityByKind[fk.From].Table
}

// ForeignKeys is the forward reference table; it must agree with every record's EachRef.
var ForeignKeys = []ForeignKey{
	{From: EntityCash, Column: "contact_id", To: EntityContact},
	{From: EntityCash, Column: "linked_stock_tx_id", To: EntityStock},
	{From: EntityCash, Column: "linked_ledger_id", To: EntityLedger},
	{From: EntityCash, Column: "advance_id", To: EntityLedger},
	{From: EntityCash, Column: "counterpart_id", To: EntityBank},
	{From: EntityBank, Column: "contact_id", To: EntityContact},
	{From: EntityBank, Column: "linked_stock_tx_id", To: EntityStock},
	{From: EntityBank, Column: "linked_ledger_id", To: EntityLedger},
	{From: EntityBank, Column: "advance_id", To: EntityLedger},
	{From: EntityBank, Column: "counterpart_id", To: EntityCash},
	{From: EntityBank, Column: "bank_id", To: EntityBankAccount},
	{From: EntityStock, Column: "contact_id", To: EntityContact},
	{From: EntityStock, Column: "bank_id", To: EntityBankAccount},
	{From: EntityLedger, Column: "contact_id", To: EntityContact},
	{From: EntityLedger, Column: "stock_tx_id", To: EntityStock},
	{From: EntityInstallment, Column: "ledger_entry_id", To: EntityLedger},
	{From: EntityInitialBalance, Column: "bank_id", To: EntityBankAccount},
}

// ReverseReferences[k] lists every column that may hold an identifier of k. Built once.
var ReverseReferences = buildReverseReferences(ForeignKeys)

func buildReverseReferences(fks []ForeignKey) map[EntityKind][]ForeignKey {
	out := make(map[EntityKind][]ForeignKey)
	for _, fk := range fks {
		out[fk.To] = append(out[fk.To], fk)
	}
	return out
}

// AllModels returns one zero value per local table, for migrations.
func AllModels() []any {
	out := make([]any, 0, len(Entities)+4)
	for _, e := range Entities {
		out = append(out, e.New())
	}
	return out
}

type refKey struct {
	from   EntityKind
	column string
}

var refTargets = func() map[refKey]EntityKind {
	m := make(map[refKey]EntityKind, len(ForeignKeys))
	for _, fk := range ForeignKeys {
		m[refKey{fk.From, fk.Column}] = fk.To
	}
	return m
}()

// RefTarget names the entity a reference column of from points at.
func RefTarget(from EntityKind, column string) (EntityKind, bool) {
	to, ok := refTargets[refKey{from, column}]
	return to, ok
}
