package workflow

import (
	"context"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
)

// StockResult is a stock transaction with the one counterpart it owns: a cash or bank row when
// paid, or a ledger line when on credit.
type StockResult struct {
	Stock  *models.StockTransaction
	Money  models.Record
	Ledger *models.LedgerEntry
}

func (r *StockResult) records() []models.Record {
	out := []models.Record{r.Stock}
	if r.Money != nil {
		out = append(out, r.Money)
	}
	if r.Ledger != nil {
		out = append(out, r.Ledger)
	}
	return out
}

// RecordStockTransaction records a purchase or sale together with its payment side.
func (m *Manager) RecordStockTransaction(ctx context.Context, in StockInput) (*StockResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	var res *StockResult
	err := m.commit(ctx, "RecordStockTransaction", func(u *unit) error {
		var err error
		if res, err = buildStock(u, in); err != nil {
			return err
		}
		if err := u.put(res.records()...); err != nil {
			return err
		}
		a := &action.CreateLinkedStockTransaction{Stock: *res.Stock, Ledger: res.Ledger}
		if res.Money != nil {
			a.Money = action.WrapPtr(res.Money)
		}
		return u.enqueue(a)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func buildStock(u *unit, in StockInput) (*StockResult, error) {
	if !in.Weight.IsPositive() {
		return nil, invalid("Weight", "gt", "weight must be greater than zero")
	}
	if in.PricePerKg.IsNegative() {
		return nil, invalid("PricePerKg", "gte", "price per kg cannot be negative")
	}
	if in.PaymentMethod != models.PaymentMethodBank && !in.BankId.IsZero() {
		return nil, invalid("BankId", "excluded_unless", "bank account only applies to bank payments")
	}
	expected, actual, diff, err := amounts(in.Weight.Mul(in.PricePerKg), in.ActualAmount, in.VarianceReason)
	if err != nil {
		return nil, err
	}

	var contact *models.Contact
	if !in.ContactId.IsZero() {
		if contact, err = active[models.Contact](u, "contact_id", in.ContactId); err != nil {
			return nil, err
		}
	}
	if in.PaymentMethod == models.PaymentMethodBank {
		if _, err := active[models.BankAccount](u, "bank_id", in.BankId); err != nil {
			return nil, err
		}
	}

	date := in.Date.UTC()
	created := u.stamp()
	stock := &models.StockTransaction{
		ID:             models.NewPendingID(),
		Date:           date,
		ItemName:       strings.TrimSpace(in.ItemName),
		Type:           in.Type,
		Weight:         in.Weight,
		PricePerKg:     in.PricePerKg,
		PaymentMethod:  in.PaymentMethod,
		ContactId:      in.ContactId,
		BankId:         in.BankId,
		ExpectedAmount: expected,
		ActualAmount:   actual,
		Difference:     diff,
		VarianceReason: in.VarianceReason,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	res := &StockResult{Stock: stock}

	description := in.Description
	if description == "" {
		description = fmt.Sprintf("%s %s %skg @ %s", in.Type, stock.ItemName, in.Weight, in.PricePerKg)
	}
	sale := in.Type == models.StockTypeSale

	if in.PaymentMethod == models.PaymentMethodCredit {
		kind := models.LedgerTypePayable
		if sale {
			kind = models.LedgerTypeReceivable
		}
		ledger := &models.LedgerEntry{
			ID:          models.NewPendingID(),
			Date:        date,
			Type:        kind,
			Description: description,
			Amount:      actual,
			PaidAmount:  decimal.Zero,
			ContactId:   in.ContactId,
			ContactName: contact.Name,
			StockTxId:   stock.ID,
		}
		ledger.RefreshStatus()
		ledger.CreatedAt = u.stamp()
		ledger.UpdatedAt = ledger.CreatedAt
		res.Ledger = ledger
		return res, nil
	}

	category := "stock purchase"
	if sale {
		category = "stock sale"
	}
	money := models.MonetaryTransaction{
		ID:              models.NewPendingID(),
		Date:            date,
		Type:            models.MonetaryTypeFor(in.PaymentMethod, sale),
		ExpectedAmount:  expected,
		ActualAmount:    actual,
		Difference:      diff,
		Description:     description,
		Category:        category,
		VarianceReason:  in.VarianceReason,
		ContactId:       in.ContactId,
		LinkedStockTxId: stock.ID,
	}
	money.CreatedAt = u.stamp()
	money.UpdatedAt = money.CreatedAt
	if in.PaymentMethod == models.PaymentMethodBank {
		res.Money = &models.BankTransaction{MonetaryTransaction: money, BankId: in.BankId}
	} else {
		res.Money = &models.CashTransaction{MonetaryTransaction: money}
	}
	return res, nil
}

// UpdateStockTransaction re-amounts a stock transaction and carries the new amount to its
// linked cash/bank row or ledger line in the same local transaction.
func (m *Manager) UpdateStockTransaction(ctx context.Context, id models.RecordID, in StockEditInput) (*StockResult, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Weight.IsPositive() {
		return nil, invalid("Weight", "gt", "weight must be greater than zero")
	}
	if in.PricePerKg.IsNegative() {
		return nil, invalid("PricePerKg", "gte", "price per kg cannot be negative")
	}
	expected, actual, diff, err := amounts(in.Weight.Mul(in.PricePerKg), in.ActualAmount, in.VarianceReason)
	if err != nil {
		return nil, err
	}

	var res *StockResult
	err = m.commit(ctx, "UpdateStockTransaction", func(u *unit) error {
		stock, err := active[models.StockTransaction](u, "id", id)
		if err != nil {
			return err
		}
		date := in.Date.UTC()
		stock.Date = date
		stock.ItemName = strings.TrimSpace(in.ItemName)
		stock.Weight = in.Weight
		stock.PricePerKg = in.PricePerKg
		stock.ExpectedAmount, stock.ActualAmount, stock.Difference = expected, actual, diff
		stock.VarianceReason = in.VarianceReason
		stock.UpdatedAt = u.now
		res = &StockResult{Stock: stock}

		linked := []store.Scope{store.Active(), store.RefersTo("linked_stock_tx_id", id)}
		cashes, err := store.List[models.CashTransaction](u.ctx, u.tx, linked...)
		if err != nil {
			return err
		}
		banks, err := store.List[models.BankTransaction](u.ctx, u.tx, linked...)
		if err != nil {
			return err
		}
		reamount := func(mt *models.MonetaryTransaction) {
			mt.Date = date
			mt.ExpectedAmount, mt.ActualAmount, mt.Difference = expected, actual, diff
			mt.VarianceReason = in.VarianceReason
			mt.UpdatedAt = u.now
		}
		switch {
		case len(cashes) > 0:
			reamount(&cashes[0].MonetaryTransaction)
			res.Money = &cashes[0]
		case len(banks) > 0:
			reamount(&banks[0].MonetaryTransaction)
			res.Money = &banks[0]
		}

		ledgers, err := store.List[models.LedgerEntry](u.ctx, u.tx, store.Active(), store.RefersTo("stock_tx_id", id))
		if err != nil {
			return err
		}
		if len(ledgers) > 0 {
			l := &ledgers[0]
			if actual.LessThan(l.PaidAmount) {
				return invalid("ActualAmount", "gte", "new amount %s is below the %s already paid", actual, l.PaidAmount)
			}
			l.Date = date
			l.Amount = actual
			l.RefreshStatus()
			l.UpdatedAt = u.now
			res.Ledger = l
		}

		if err := u.put(res.records()...); err != nil {
			return err
		}
		a := &action.UpdateStockTransaction{Stock: *res.Stock, Ledger: res.Ledger}
		if res.Money != nil {
			a.Money = action.WrapPtr(res.Money)
		}
		return u.enqueue(a)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
