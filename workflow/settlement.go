package workflow

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/allocation"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
)

// SettlementResult is the payment row, the ledger lines it paid down and one installment per line.
type SettlementResult struct {
	Payment      models.Record
	Ledgers      []models.LedgerEntry
	Installments []models.PaymentInstallment
}

// RecordPayment settles outstanding payables or receivables oldest first.
func (m *Manager) RecordPayment(ctx context.Context, in PaymentInput) (*SettlementResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("Amount", "gt", "payment must be greater than zero")
	}
	var res *SettlementResult
	err := m.commit(ctx, "RecordPayment", func(u *unit) error {
		if !in.ContactId.IsZero() {
			if _, err := active[models.Contact](u, "contact_id", in.ContactId); err != nil {
				return err
			}
		}
		all, err := store.List[models.LedgerEntry](u.ctx, u.tx, store.Active(), store.Where("type = ?", in.Type))
		if err != nil {
			return err
		}
		outstanding := allocation.Outstanding(all, in.ContactId, in.Type)
		owed := allocation.TotalRemaining(outstanding)
		if !owed.IsPositive() {
			return invalid("Amount", "outstanding", "nothing is outstanding to settle")
		}
		if in.Amount.GreaterThan(owed) {
			return invalid("Amount", "lte", "payment %s exceeds the %s outstanding", in.Amount, owed)
		}

		alloc := allocation.Allocate(outstanding, in.Amount)
		description := in.Description
		if description == "" {
			description = fmt.Sprintf("settlement of %d %s line(s)", len(alloc.Allocations), in.Type)
		}
		if res, err = settle(u, in.Type, in.ContactId, in.Method, in.BankId, in.Date, description, alloc); err != nil {
			return err
		}
		return u.enqueue(&action.SettleTotal{ContactId: in.ContactId, Settlement: res.settlement()})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// SettleDirect pays one explicitly chosen ledger line.
func (m *Manager) SettleDirect(ctx context.Context, in DirectPaymentInput) (*SettlementResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("Amount", "gt", "payment must be greater than zero")
	}
	var res *SettlementResult
	err := m.commit(ctx, "SettleDirect", func(u *unit) error {
		entry, err := active[models.LedgerEntry](u, "ledger_id", in.LedgerId)
		if err != nil {
			return err
		}
		if entry.Type == models.LedgerTypeAdvance {
			return invalid("LedgerId", "oneof", "advances are already paid")
		}
		if in.Amount.GreaterThan(entry.Remaining()) {
			return invalid("Amount", "lte", "payment %s exceeds the %s remaining", in.Amount, entry.Remaining())
		}
		alloc := allocation.Apply(*entry, in.Amount)
		description := in.Description
		if description == "" {
			description = "settlement: " + entry.Description
		}
		if res, err = settle(u, entry.Type, entry.ContactId, in.Method, in.BankId, in.Date, description, alloc); err != nil {
			return err
		}
		return u.enqueue(&action.SettleDirect{Settlement: res.settlement()})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *SettlementResult) settlement() action.Settlement {
	return action.Settlement{Payment: action.Wrap(r.Payment), Ledgers: r.Ledgers, Installments: r.Installments}
}

// settle writes the payment row, the paid-down ledger lines and their installments.
func settle(u *unit, kind models.LedgerType, contact models.RecordID, method models.PaymentMethod, bankID models.RecordID,
	date time.Time, description string, alloc allocation.Result) (*SettlementResult, error) {
	if method == models.PaymentMethodBank {
		if _, err := active[models.BankAccount](u, "bank_id", bankID); err != nil {
			return nil, err
		}
	} else if !bankID.IsZero() {
		return nil, invalid("BankId", "excluded_unless", "bank account only applies to bank payments")
	}

	date = date.UTC()
	paid := alloc.Applied()
	mt := models.MonetaryTransaction{
		ID:             models.NewPendingID(),
		Date:           date,
		Type:           models.MonetaryTypeFor(method, kind == models.LedgerTypeReceivable),
		ExpectedAmount: paid,
		ActualAmount:   paid,
		Difference:     decimal.Zero,
		Description:    description,
		Category:       "settlement",
		ContactId:      contact,
	}
	if len(alloc.Allocations) == 1 {
		mt.LinkedLedgerId = alloc.Allocations[0].EntryId
	}
	mt.CreatedAt = u.stamp()
	mt.UpdatedAt = mt.CreatedAt

	res := &SettlementResult{Ledgers: alloc.Entries}
	if method == models.PaymentMethodBank {
		res.Payment = &models.BankTransaction{MonetaryTransaction: mt, BankId: bankID}
	} else {
		res.Payment = &models.CashTransaction{MonetaryTransaction: mt}
	}
	if err := u.put(res.Payment); err != nil {
		return nil, err
	}

	for i := range res.Ledgers {
		res.Ledgers[i].UpdatedAt = u.now
		if err := u.put(&res.Ledgers[i]); err != nil {
			return nil, err
		}
	}
	for _, a := range alloc.Allocations {
		inst := models.PaymentInstallment{
			ID:            models.NewPendingID(),
			LedgerEntryId: a.EntryId,
			Amount:        a.Applied,
			Date:          date,
			PaymentMethod: method,
			CreatedAt:     u.stamp(),
		}
		if err := u.put(&inst); err != nil {
			return nil, err
		}
		res.Installments = append(res.Installments, inst)
	}
	return res, nil
}

// RecordAdvance books money paid to a supplier, or received from a customer, before any invoice.
// The advance is a paid ledger line with a negative amount; the money row points at it.
func (m *Manager) RecordAdvance(ctx context.Context, in AdvanceInput) (*models.LedgerEntry, models.Record, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, nil, invalid("Amount", "gt", "advance must be greater than zero")
	}
	var (
		ledger *models.LedgerEntry
		money  models.Record
	)
	err := m.commit(ctx, "RecordAdvance", func(u *unit) error {
		contact, err := active[models.Contact](u, "contact_id", in.ContactId)
		if err != nil {
			return err
		}
		if in.Method == models.PaymentMethodBank {
			if _, err := active[models.BankAccount](u, "bank_id", in.BankId); err != nil {
				return err
			}
		}
		date := in.Date.UTC()
		description := in.Description
		if description == "" {
			description = fmt.Sprintf("advance %s: %s", in.Direction, contact.Name)
		}
		ledger = &models.LedgerEntry{
			ID:          models.NewPendingID(),
			Date:        date,
			Type:        models.LedgerTypeAdvance,
			Description: description,
			Amount:      in.Amount.Neg(),
			PaidAmount:  in.Amount.Neg(),
			ContactId:   in.ContactId,
			ContactName: contact.Name,
		}
		ledger.RefreshStatus()
		ledger.CreatedAt = u.stamp()
		ledger.UpdatedAt = ledger.CreatedAt

		mt := models.MonetaryTransaction{
			ID:             models.NewPendingID(),
			Date:           date,
			Type:           models.MonetaryTypeFor(in.Method, in.Direction == AdvanceReceived),
			ExpectedAmount: in.Amount,
			ActualAmount:   in.Amount,
			Difference:     decimal.Zero,
			Description:    description,
			Category:       "advance",
			ContactId:      in.ContactId,
			AdvanceId:      ledger.ID,
		}
		mt.CreatedAt = u.stamp()
		mt.UpdatedAt = mt.CreatedAt
		if in.Method == models.PaymentMethodBank {
			money = &models.BankTransaction{MonetaryTransaction: mt, BankId: in.BankId}
		} else {
			money = &models.CashTransaction{MonetaryTransaction: mt}
		}

		if err := u.put(ledger, money); err != nil {
			return err
		}
		// Two entries: the money row's advance_id is rewritten once the ledger line is confirmed.
		if err := u.enqueue(&action.CreateRecord{Record: action.Wrap(ledger)}); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(money)})
	})
	if err != nil {
		return nil, nil, err
	}
	return ledger, money, nil
}
