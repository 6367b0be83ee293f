// Package action is the closed set of mutations the remote store accepts.
// Every action carries a typed payload; adding one means adding a Tag, a type and a case in Decode.
package action

import (
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/models"
)

type Tag string

const (
	TagCreateRecord                 Tag = "create_record"
	TagUpdateRecord                 Tag = "update_record"
	TagSoftDeleteRecord             Tag = "soft_delete_record"
	TagRestoreRecord                Tag = "restore_record"
	TagSettleTotal                  Tag = "settle_total"
	TagSettleDirect                 Tag = "settle_direct"
	TagTransferFunds                Tag = "transfer_funds"
	TagSetInitialBalances           Tag = "set_initial_balances"
	TagDeleteCategory               Tag = "delete_category"
	TagCreateLinkedStockTransaction Tag = "create_linked_stock_transaction"
	TagUpdateStockTransaction       Tag = "update_stock_transaction"
	TagBatchImport                  Tag = "batch_import"
	TagDeleteAll                    Tag = "delete_all"
	TagEmptyRecycleBin              Tag = "empty_recycle_bin"
)

// Tags lists every action tag, in declaration order.
var Tags = []Tag{
	TagCreateRecord, TagUpdateRecord, TagSoftDeleteRecord, TagRestoreRecord,
	TagSettleTotal, TagSettleDirect, TagTransferFunds, TagSetInitialBalances,
	TagDeleteCategory, TagCreateLinkedStockTransaction, TagUpdateStockTransaction,
	TagBatchImport, TagDeleteAll, TagEmptyRecycleBin,
}

// Visitor receives every identifier an action carries. kind is the entity the id names;
// created is true for ids the action itself brings into existence.
type Visitor func(kind models.EntityKind, id *models.RecordID, created bool)

// Action is implemented only by the types in this package.
type Action interface {
	Tag() Tag
	EachID(fn Visitor)
	sealed()
}

// Assignment reports the confirmed id the remote store gave a pending one.
type Assignment struct {
	Entity    models.EntityKind `json:"entity"`
	Pending   models.RecordID   `json:"pending"`
	Confirmed models.RecordID   `json:"confirmed"`
}

type CreateRecord struct {
	Record RecordPayload `json:"record"`
}

type UpdateRecord struct {
	Record RecordPayload `json:"record"`
}

type SoftDeleteRecord struct {
	Entity    models.EntityKind `json:"entity"`
	ID        models.RecordID   `json:"id"`
	DeletedAt time.Time         `json:"deleted_at"`
}

type RestoreRecord struct {
	Entity models.EntityKind `json:"entity"`
	ID     models.RecordID   `json:"id"`
}

// Settlement is a payment with the ledger lines it pays down.
type Settlement struct {
	Payment      RecordPayload               `json:"payment"`
	Ledgers      []models.LedgerEntry        `json:"ledgers"`
	Installments []models.PaymentInstallment `json:"installments"`
}

// SettleTotal pays a contact's outstanding lines oldest first.
type SettleTotal struct {
	ContactId models.RecordID `json:"contact_id"`
	Settlement
}

// SettleDirect pays one chosen line.
type SettleDirect struct {
	Settlement
}

type TransferFunds struct {
	Debit  RecordPayload `json:"debit"`
	Credit RecordPayload `json:"credit"`
}

// SetInitialBalances replaces every opening stock and balance row.
type SetInitialBalances struct {
	Stocks   []models.InitialStock   `json:"stocks"`
	Balances []models.InitialBalance `json:"balances"`
}

type DeleteCategory struct {
	ID models.RecordID `json:"id"`
}

// CreateLinkedStockTransaction creates a stock row with its money row (cash/bank) or ledger line (credit).
type CreateLinkedStockTransaction struct {
	Stock  models.StockTransaction `json:"stock"`
	Money  *RecordPayload          `json:"money,omitempty"`
	Ledger *models.LedgerEntry     `json:"ledger,omitempty"`
}

// UpdateStockTransaction carries the edited stock row and its re-amounted counterpart.
type UpdateStockTransaction struct {
	Stock  models.StockTransaction `json:"stock"`
	Money  *RecordPayload          `json:"money,omitempty"`
	Ledger *models.LedgerEntry     `json:"ledger,omitempty"`
}

type BatchImport struct {
	Records []RecordPayload `json:"records"`
}

type DeleteAll struct{}

type EmptyRecycleBin struct{}

func (CreateRecord) Tag() Tag                 { return TagCreateRecord }
func (UpdateRecord) Tag() Tag                 { return TagUpdateRecord }
func (SoftDeleteRecord) Tag() Tag             { return TagSoftDeleteRecord }
func (RestoreRecord) Tag() Tag                { return TagRestoreRecord }
func (SettleTotal) Tag() Tag                  { return TagSettleTotal }
func (SettleDirect) Tag() Tag                 { return TagSettleDirect }
func (TransferFunds) Tag() Tag                { return TagTransferFunds }
func (SetInitialBalances) Tag() Tag           { return TagSetInitialBalances }
func (DeleteCategory) Tag() Tag               { return TagDeleteCategory }
func (CreateLinkedStockTransaction) Tag() Tag { return TagCreateLinkedStockTransaction }
func (UpdateStockTransaction) Tag() Tag       { return TagUpdateStockTransaction }
func (BatchImport) Tag() Tag                  { return TagBatchImport }
func (DeleteAll) Tag() Tag                    { return TagDeleteAll }
func (EmptyRecycleBin) Tag() Tag              { return TagEmptyRecycleBin }

func (*CreateRecord) sealed()                 {}
func (*UpdateRecord) sealed()                 {}
func (*SoftDeleteRecord) sealed()             {}
func (*RestoreRecord) sealed()                {}
func (*SettleTotal) sealed()                  {}
func (*SettleDirect) sealed()                 {}
func (*TransferFunds) sealed()                {}
func (*SetInitialBalances) sealed()           {}
func (*DeleteCategory) sealed()               {}
func (*CreateLinkedStockTransaction) sealed() {}
func (*UpdateStockTransaction) sealed()       {}
func (*BatchImport) sealed()                  {}
func (*DeleteAll) sealed()                    {}
func (*EmptyRecycleBin) sealed()              {}
