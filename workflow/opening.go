package workflow

import (
	"context"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"gorm.io/gorm"
)

// SetInitialBalances replaces the opening cash, bank and stock positions.
func (m *Manager) SetInitialBalances(ctx context.Context, in OpeningInput) (*action.SetInitialBalances, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	if in.Cash.IsNegative() {
		return nil, invalid("Cash", "gte", "opening cash cannot be negative")
	}
	seenBank := make(map[models.RecordID]bool)
	for _, b := range in.Banks {
		if seenBank[b.BankId] {
			return nil, invalid("Banks", "unique", "bank account %s listed twice", b.BankId)
		}
		seenBank[b.BankId] = true
	}
	for _, s := range in.Stocks {
		if s.Weight.IsNegative() || s.PricePerKg.IsNegative() {
			return nil, invalid("Stocks", "gte", "opening stock of %s cannot be negative", s.ItemName)
		}
	}

	a := &action.SetInitialBalances{}
	err := m.commit(ctx, "SetInitialBalances", func(u *unit) error {
		for _, b := range in.Banks {
			if _, err := active[models.BankAccount](u, "bank_id", b.BankId); err != nil {
				return err
			}
		}
		all := u.tx.DB().WithContext(u.ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.InitialBalance{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.InitialStock{}).Error; err != nil {
			return err
		}

		if in.Cash.IsPositive() {
			a.Balances = append(a.Balances, models.InitialBalance{ID: models.NewPendingID(), Type: models.BalanceKindCash, Amount: in.Cash, CreatedAt: u.stamp()})
		}
		for _, b := range in.Banks {
			a.Balances = append(a.Balances, models.InitialBalance{ID: models.NewPendingID(), Type: models.BalanceKindBank, BankId: b.BankId, Amount: b.Amount, CreatedAt: u.stamp()})
		}
		for _, s := range in.Stocks {
			a.Stocks = append(a.Stocks, models.InitialStock{ID: models.NewPendingID(), ItemName: strings.TrimSpace(s.ItemName), Weight: s.Weight, PricePerKg: s.PricePerKg, CreatedAt: u.stamp()})
		}
		if err := store.PutAll(u.ctx, u.tx, a.Balances); err != nil {
			return err
		}
		if err := store.PutAll(u.ctx, u.tx, a.Stocks); err != nil {
			return err
		}
		return u.enqueue(a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteCategory removes a category. Transactions keep their category text.
func (m *Manager) DeleteCategory(ctx context.Context, id models.RecordID) error {
	return m.commit(ctx, "DeleteCategory", func(u *unit) error {
		if _, err := active[models.Category](u, "category_id", id); err != nil {
			return err
		}
		if err := u.tx.Delete(u.ctx, models.EntityCategory, id); err != nil {
			return err
		}
		return u.enqueue(&action.DeleteCategory{ID: id})
	})
}
