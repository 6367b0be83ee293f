package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
)

// ImportBatch is a parsed workbook. Rows may refer to contacts and bank accounts of the same
// batch by name.
type ImportBatch struct {
	Contacts     []ContactInput
	BankAccounts []BankAccountInput
	Cash         []ImportMoney
	Bank         []ImportMoney
	Stock        []ImportStock
}

type ImportMoney struct {
	Row         int
	ContactName string
	BankName    string
	MoneyInput
}

type ImportStock struct {
	Row         int
	ContactName string
	BankName    string
	StockInput
}

// ImportResult counts what a batch created.
type ImportResult struct {
	Records map[models.EntityKind]int
}

// BatchImport writes a whole workbook in one local transaction and queues it as one action.
// A single bad row rejects the batch.
func (m *Manager) BatchImport(ctx context.Context, batch ImportBatch) (*ImportResult, error) {
	res := &ImportResult{Records: make(map[models.EntityKind]int)}
	a := &action.BatchImport{}

	err := m.commit(ctx, "BatchImport", func(u *unit) error {
		contacts := make(map[string]models.RecordID)
		banks := make(map[string]models.RecordID)
		add := func(r models.Record) error {
			if err := u.put(r); err != nil {
				return err
			}
			a.Records = append(a.Records, action.Wrap(r))
			res.Records[r.Kind()]++
			return nil
		}

		for i, in := range batch.Contacts {
			if err := validateContact(in); err != nil {
				return rowError("contacts", i+2, err)
			}
			created := u.stamp()
			c := &models.Contact{ID: models.NewPendingID(), Name: in.Name, Phone: in.Phone, Type: in.Kind, CreatedAt: created, UpdatedAt: created}
			contacts[in.Name] = c.ID
			if err := add(c); err != nil {
				return err
			}
		}
		for i, in := range batch.BankAccounts {
			if err := utils.ValidateStruct(in); err != nil {
				return rowError("banks", i+2, err)
			}
			created := u.stamp()
			b := &models.BankAccount{ID: models.NewPendingID(), Name: in.Name, AccountNumber: in.AccountNumber, CreatedAt: created, UpdatedAt: created}
			banks[in.Name] = b.ID
			if err := add(b); err != nil {
				return err
			}
		}

		resolve := func(sheet string, row int, contactName, bankName string, contactID, bankID *models.RecordID) error {
			if contactName != "" {
				id, ok := contacts[contactName]
				if !ok {
					return rowError(sheet, row, invalid("ContactName", "exists", "unknown contact %q", contactName))
				}
				*contactID = id
			}
			if bankName != "" {
				id, ok := banks[bankName]
				if !ok {
					return rowError(sheet, row, invalid("BankName", "exists", "unknown bank account %q", bankName))
				}
				*bankID = id
			}
			return nil
		}

		for _, in := range batch.Cash {
			if err := resolve("cash", in.Row, in.ContactName, "", &in.ContactId, &in.BankId); err != nil {
				return err
			}
			if err := utils.ValidateStruct(in.MoneyInput); err != nil {
				return rowError("cash", in.Row, err)
			}
			mt, err := buildMoney(u, in.MoneyInput)
			if err != nil {
				return rowError("cash", in.Row, err)
			}
			if err := add(&models.CashTransaction{MonetaryTransaction: mt}); err != nil {
				return err
			}
		}
		for _, in := range batch.Bank {
			if err := resolve("bank", in.Row, in.ContactName, in.BankName, &in.ContactId, &in.BankId); err != nil {
				return err
			}
			if err := utils.ValidateStruct(in.MoneyInput); err != nil {
				return rowError("bank", in.Row, err)
			}
			if in.BankId.IsZero() {
				return rowError("bank", in.Row, invalid("BankName", "required", "bank account is required"))
			}
			mt, err := buildMoney(u, in.MoneyInput)
			if err != nil {
				return rowError("bank", in.Row, err)
			}
			if err := add(&models.BankTransaction{MonetaryTransaction: mt, BankId: in.BankId}); err != nil {
				return err
			}
		}
		for _, in := range batch.Stock {
			if err := resolve("stock", in.Row, in.ContactName, in.BankName, &in.ContactId, &in.BankId); err != nil {
				return err
			}
			if err := utils.ValidateStruct(in.StockInput); err != nil {
				return rowError("stock", in.Row, err)
			}
			built, err := buildStock(u, in.StockInput)
			if err != nil {
				return rowError("stock", in.Row, err)
			}
			for _, r := range built.records() {
				if err := add(r); err != nil {
					return err
				}
			}
		}

		if len(a.Records) == 0 {
			return invalid("Batch", "required", "the workbook holds no rows")
		}
		return u.enqueue(a)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// rowError keeps validation failures typed while naming the offending row.
func rowError(sheet string, row int, err error) error {
	var ve *utils.ValidationError
	if errors.As(err, &ve) {
		return &utils.ValidationError{Message: fmt.Sprintf("%s row %d: %s", sheet, row, ve.Message), Fields: ve.Fields}
	}
	return fmt.Errorf("%s row %d: %w", sheet, row, err)
}
