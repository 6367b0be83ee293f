package main

import (
	"context"
	"flag"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/google/subcommands"
)

type payCmd struct {
	contact     string
	ledger      string
	kind        string
	amount      string
	method      string
	bank        string
	date        string
	description string
}

func (*payCmd) Name() string     { return "pay" }
func (*payCmd) Synopsis() string { return "settle payables or receivables" }
func (*payCmd) Usage() string {
	return `ledger pay -type payable|receivable -amount <amount> [-contact <id>] -method cash|bank [-bank <id>]
ledger pay -ledger <id> -amount <amount> -method cash|bank [-bank <id>]

  Without -ledger the amount settles the oldest open lines first, across every contact when
  -contact is empty. With -ledger it settles that one line.
`
}

func (c *payCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.contact, "contact", "", "Contact whose lines are settled")
	f.StringVar(&c.ledger, "ledger", "", "Settle this single ledger line")
	f.StringVar(&c.kind, "type", string(models.LedgerTypePayable), "payable or receivable")
	f.StringVar(&c.amount, "amount", "", "Amount paid")
	f.StringVar(&c.method, "method", string(models.PaymentMethodCash), "cash or bank")
	f.StringVar(&c.bank, "bank", "", "Bank account id (required for bank)")
	f.StringVar(&c.date, "date", "", "Payment date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.description, "desc", "", "Description")
}

func (c *payCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", c.amount)
		if err != nil {
			return err
		}
		var res *workflow.SettlementResult
		if c.ledger != "" {
			res, err = a.manager.SettleDirect(ctx, workflow.DirectPaymentInput{
				LedgerId: models.RecordID(c.ledger), Amount: amount, Method: models.PaymentMethod(c.method),
				BankId: models.RecordID(c.bank), Date: date, Description: c.description,
			})
		} else {
			res, err = a.manager.RecordPayment(ctx, workflow.PaymentInput{
				ContactId: models.RecordID(c.contact), Type: models.LedgerType(c.kind), Amount: amount,
				Method: models.PaymentMethod(c.method), BankId: models.RecordID(c.bank), Date: date, Description: c.description,
			})
		}
		if err != nil {
			return err
		}
		fmt.Printf("payment %s %s\n", res.Payment.Kind(), res.Payment.GetID())
		for _, l := range res.Ledgers {
			fmt.Printf("  %s %s paid %s of %s (%s)\n", l.Type, l.ID, formatAmount(l.PaidAmount, *currency), formatAmount(l.Amount, *currency), l.Status)
		}
		return nil
	})
}

type advanceCmd struct {
	contact     string
	direction   string
	amount      string
	method      string
	bank        string
	date        string
	description string
}

func (*advanceCmd) Name() string     { return "advance" }
func (*advanceCmd) Synopsis() string { return "record an advance paid to a supplier or received from a customer" }
func (*advanceCmd) Usage() string {
	return "ledger advance -contact <id> -direction paid|received -amount <amount> -method cash|bank [-bank <id>] [-date YYYY-MM-DD]\n"
}

func (c *advanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.contact, "contact", "", "Contact id")
	f.StringVar(&c.direction, "direction", string(workflow.AdvancePaid), "paid or received")
	f.StringVar(&c.amount, "amount", "", "Advance amount")
	f.StringVar(&c.method, "method", string(models.PaymentMethodCash), "cash or bank")
	f.StringVar(&c.bank, "bank", "", "Bank account id (required for bank)")
	f.StringVar(&c.date, "date", "", "Date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.description, "desc", "", "Description")
}

func (c *advanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", c.amount)
		if err != nil {
			return err
		}
		ledger, money, err := a.manager.RecordAdvance(ctx, workflow.AdvanceInput{
			ContactId: models.RecordID(c.contact), Direction: workflow.AdvanceDirection(c.direction),
			Amount: amount, Method: models.PaymentMethod(c.method), BankId: models.RecordID(c.bank),
			Date: date, Description: c.description,
		})
		if err != nil {
			return err
		}
		fmt.Printf("advance %s %s, %s %s\n", ledger.ID, formatAmount(ledger.Amount.Abs(), *currency), money.Kind(), money.GetID())
		return nil
	})
}

type transferCmd struct {
	from        string
	to          string
	bank        string
	amount      string
	date        string
	description string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between cash and a bank account" }
func (*transferCmd) Usage() string {
	return "ledger transfer -from cash|bank -to bank|cash -bank <id> -amount <amount> [-date YYYY-MM-DD]\n"
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", string(models.BalanceKindCash), "cash or bank")
	f.StringVar(&c.to, "to", string(models.BalanceKindBank), "bank or cash")
	f.StringVar(&c.bank, "bank", "", "Bank account id")
	f.StringVar(&c.amount, "amount", "", "Amount moved")
	f.StringVar(&c.date, "date", "", "Date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.description, "desc", "", "Description")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", c.amount)
		if err != nil {
			return err
		}
		debit, credit, err := a.manager.TransferFunds(ctx, workflow.TransferInput{
			From: models.BalanceKind(c.from), To: models.BalanceKind(c.to), BankId: models.RecordID(c.bank),
			Amount: amount, Date: date, Description: c.description,
		})
		if err != nil {
			return err
		}
		fmt.Printf("transfer %s %s -> %s %s\n", debit.Kind(), debit.GetID(), credit.Kind(), credit.GetID())
		return nil
	})
}
