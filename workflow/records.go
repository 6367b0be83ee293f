package workflow

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
)

func (m *Manager) AddContact(ctx context.Context, in ContactInput) (*models.Contact, error) {
	if err := validateContact(in); err != nil {
		return nil, err
	}
	c := &models.Contact{ID: models.NewPendingID(), Name: strings.TrimSpace(in.Name), Phone: in.Phone, Type: in.Kind}
	err := m.commit(ctx, "AddContact", func(u *unit) error {
		c.CreatedAt = u.stamp()
		c.UpdatedAt = c.CreatedAt
		if err := u.put(c); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(c)})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateContact replaces name, phone and kind of an active contact.
func (m *Manager) UpdateContact(ctx context.Context, id models.RecordID, in ContactInput) (*models.Contact, error) {
	if err := validateContact(in); err != nil {
		return nil, err
	}
	var c *models.Contact
	err := m.commit(ctx, "UpdateContact", func(u *unit) error {
		var err error
		if c, err = active[models.Contact](u, "contact_id", id); err != nil {
			return err
		}
		c.Name, c.Phone, c.Type = strings.TrimSpace(in.Name), in.Phone, in.Kind
		c.UpdatedAt = u.now
		if err := u.put(c); err != nil {
			return err
		}
		return u.enqueue(&action.UpdateRecord{Record: action.Wrap(c)})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func validateContact(in ContactInput) error {
	if err := utils.ValidateStruct(in); err != nil {
		return err
	}
	if in.Phone != "" {
		if err := utils.ValidatePhoneNumber(in.Phone, utils.CountryCode); err != nil {
			return invalid("Phone", "phone", "invalid phone number %q: %v", in.Phone, err)
		}
	}
	return nil
}

func (m *Manager) AddBankAccount(ctx context.Context, in BankAccountInput) (*models.BankAccount, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	b := &models.BankAccount{ID: models.NewPendingID(), Name: strings.TrimSpace(in.Name), AccountNumber: in.AccountNumber}
	err := m.commit(ctx, "AddBankAccount", func(u *unit) error {
		b.CreatedAt = u.stamp()
		b.UpdatedAt = b.CreatedAt
		if err := u.put(b); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(b)})
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (m *Manager) AddCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	c := &models.Category{ID: models.NewPendingID(), Name: strings.TrimSpace(in.Name), Type: in.Kind}
	err := m.commit(ctx, "AddCategory", func(u *unit) error {
		existing, err := u.tx.Query(u.ctx, models.EntityCategory, store.Where("name = ? AND type = ?", c.Name, c.Type))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return invalid("Name", "unique", "category %q already exists", c.Name)
		}
		c.CreatedAt = u.stamp()
		if err := u.put(c); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(c)})
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AddCash records a standalone cash income or expense.
func (m *Manager) AddCash(ctx context.Context, in MoneyInput) (*models.CashTransaction, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Type != models.MonetaryTypeIncome && in.Type != models.MonetaryTypeExpense {
		return nil, invalid("Type", "oneof", "cash transactions are income or expense, got %s", in.Type)
	}
	if !in.BankId.IsZero() {
		return nil, invalid("BankId", "excluded", "cash transactions carry no bank account")
	}
	tx := &models.CashTransaction{}
	err := m.commit(ctx, "AddCash", func(u *unit) error {
		mt, err := buildMoney(u, in)
		if err != nil {
			return err
		}
		tx.MonetaryTransaction = mt
		if err := u.put(tx); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(tx)})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// AddBank records a standalone deposit or withdrawal on one bank account.
func (m *Manager) AddBank(ctx context.Context, in MoneyInput) (*models.BankTransaction, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Type != models.MonetaryTypeDeposit && in.Type != models.MonetaryTypeWithdrawal {
		return nil, invalid("Type", "oneof", "bank transactions are deposit or withdrawal, got %s", in.Type)
	}
	if in.BankId.IsZero() {
		return nil, invalid("BankId", "required", "bank account is required")
	}
	tx := &models.BankTransaction{BankId: in.BankId}
	err := m.commit(ctx, "AddBank", func(u *unit) error {
		if _, err := active[models.BankAccount](u, "bank_id", in.BankId); err != nil {
			return err
		}
		mt, err := buildMoney(u, in)
		if err != nil {
			return err
		}
		tx.MonetaryTransaction = mt
		if err := u.put(tx); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(tx)})
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func buildMoney(u *unit, in MoneyInput) (models.MonetaryTransaction, error) {
	expected, actual, diff, err := amounts(in.ExpectedAmount, in.ActualAmount, in.VarianceReason)
	if err != nil {
		return models.MonetaryTransaction{}, err
	}
	if !in.ContactId.IsZero() {
		if _, err := active[models.Contact](u, "contact_id", in.ContactId); err != nil {
			return models.MonetaryTransaction{}, err
		}
	}
	created := u.stamp()
	return models.MonetaryTransaction{
		ID:             models.NewPendingID(),
		Date:           in.Date.UTC(),
		Type:           in.Type,
		ExpectedAmount: expected,
		ActualAmount:   actual,
		Difference:     diff,
		Description:    in.Description,
		Category:       in.Category,
		VarianceReason: in.VarianceReason,
		ContactId:      in.ContactId,
		CreatedAt:      created,
		UpdatedAt:      created,
	}, nil
}

// amounts resolves expected/actual/difference. An actual amount that differs from the
// expected one must come with a reason.
func amounts(expected decimal.Decimal, override *decimal.Decimal, reason string) (decimal.Decimal, decimal.Decimal, decimal.Decimal, error) {
	if !expected.IsPositive() {
		return expected, expected, decimal.Zero, invalid("ExpectedAmount", "gt", "amount must be greater than zero")
	}
	actual := expected
	if override != nil {
		actual = *override
	}
	if actual.IsNegative() {
		return expected, actual, decimal.Zero, invalid("ActualAmount", "gte", "actual amount cannot be negative")
	}
	diff := actual.Sub(expected)
	if !diff.IsZero() && strings.TrimSpace(reason) == "" {
		return expected, actual, diff, invalid("VarianceReason", "required_with", "actual amount %s differs from %s without a reason", actual, expected)
	}
	return expected, actual, diff, nil
}

// AddLedgerEntry opens an unpaid payable or receivable for a contact.
func (m *Manager) AddLedgerEntry(ctx context.Context, in LedgerInput) (*models.LedgerEntry, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("Amount", "gt", "amount must be greater than zero")
	}
	l := &models.LedgerEntry{
		ID:          models.NewPendingID(),
		Date:        in.Date.UTC(),
		Type:        in.Type,
		Description: in.Description,
		Amount:      in.Amount,
		PaidAmount:  decimal.Zero,
		ContactId:   in.ContactId,
	}
	l.RefreshStatus()
	err := m.commit(ctx, "AddLedgerEntry", func(u *unit) error {
		contact, err := active[models.Contact](u, "contact_id", in.ContactId)
		if err != nil {
			return err
		}
		l.ContactName = contact.Name
		l.CreatedAt = u.stamp()
		l.UpdatedAt = l.CreatedAt
		if err := u.put(l); err != nil {
			return err
		}
		return u.enqueue(&action.CreateRecord{Record: action.Wrap(l)})
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}
