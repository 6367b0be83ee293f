package workflow

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/shopspring/decimal"
)

// TransferFunds moves money between cash and a bank account as two rows dated identically,
// each naming the other as its counterpart.
func (m *Manager) TransferFunds(ctx context.Context, in TransferInput) (debit, credit models.Record, err error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, nil, invalid("Amount", "gt", "transfer amount must be greater than zero")
	}
	err = m.commit(ctx, "TransferFunds", func(u *unit) error {
		bank, err := active[models.BankAccount](u, "bank_id", in.BankId)
		if err != nil {
			return err
		}
		date := in.Date.UTC()
		description := in.Description
		if description == "" {
			description = fmt.Sprintf("transfer %s to %s (%s)", in.From, in.To, bank.Name)
		}
		base := func(t models.MonetaryType) models.MonetaryTransaction {
			created := u.stamp()
			return models.MonetaryTransaction{
				ID:             models.NewPendingID(),
				Date:           date,
				Type:           t,
				ExpectedAmount: in.Amount,
				ActualAmount:   in.Amount,
				Difference:     decimal.Zero,
				Description:    description,
				Category:       "transfer",
				CreatedAt:      created,
				UpdatedAt:      created,
			}
		}

		var cash *models.CashTransaction
		var bankTx *models.BankTransaction
		if in.From == models.BalanceKindCash {
			cash = &models.CashTransaction{MonetaryTransaction: base(models.MonetaryTypeExpense)}
			bankTx = &models.BankTransaction{MonetaryTransaction: base(models.MonetaryTypeDeposit), BankId: in.BankId}
			debit, credit = cash, bankTx
		} else {
			bankTx = &models.BankTransaction{MonetaryTransaction: base(models.MonetaryTypeWithdrawal), BankId: in.BankId}
			cash = &models.CashTransaction{MonetaryTransaction: base(models.MonetaryTypeIncome)}
			debit, credit = bankTx, cash
		}
		cash.CounterpartId = bankTx.ID
		bankTx.CounterpartId = cash.ID

		if err := u.put(debit, credit); err != nil {
			return err
		}
		return u.enqueue(&action.TransferFunds{Debit: action.Wrap(debit), Credit: action.Wrap(credit)})
	})
	if err != nil {
		return nil, nil, err
	}
	return debit, credit, nil
}
