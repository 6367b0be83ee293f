package main

import (
	"context"
	"flag"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/google/subcommands"
)

type contactCmd struct {
	id    string
	name  string
	phone string
	kind  string
}

func (*contactCmd) Name() string     { return "contact" }
func (*contactCmd) Synopsis() string { return "add or edit a supplier or customer" }
func (*contactCmd) Usage() string {
	return `ledger contact -name <name> [-phone <phone>] [-kind supplier|customer|both] [-id <id>]

  Adds a contact, or replaces the details of contact -id.
`
}

func (c *contactCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Contact to edit instead of adding a new one")
	f.StringVar(&c.name, "name", "", "Contact name")
	f.StringVar(&c.phone, "phone", "", "Phone number")
	f.StringVar(&c.kind, "kind", string(models.ContactKindSupplier), "supplier, customer or both")
}

func (c *contactCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		in := workflow.ContactInput{Name: c.name, Phone: c.phone, Kind: models.ContactKind(c.kind)}
		var (
			contact *models.Contact
			err     error
		)
		if c.id != "" {
			contact, err = a.manager.UpdateContact(ctx, models.RecordID(c.id), in)
		} else {
			contact, err = a.manager.AddContact(ctx, in)
		}
		if err != nil {
			return err
		}
		fmt.Printf("contact %s %s\n", contact.ID, contact.Name)
		return nil
	})
}

type bankAccountCmd struct {
	name   string
	number string
}

func (*bankAccountCmd) Name() string     { return "bank-account" }
func (*bankAccountCmd) Synopsis() string { return "add a bank account" }
func (*bankAccountCmd) Usage() string {
	return "ledger bank-account -name <name> [-number <account number>]\n"
}

func (c *bankAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Bank account name")
	f.StringVar(&c.number, "number", "", "Account number")
}

func (c *bankAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		b, err := a.manager.AddBankAccount(ctx, workflow.BankAccountInput{Name: c.name, AccountNumber: c.number})
		if err != nil {
			return err
		}
		fmt.Printf("bank account %s %s\n", b.ID, b.Name)
		return nil
	})
}

type categoryCmd struct {
	name   string
	kind   string
	delete string
}

func (*categoryCmd) Name() string     { return "category" }
func (*categoryCmd) Synopsis() string { return "add or remove an income or expense category" }
func (*categoryCmd) Usage() string {
	return `ledger category -name <name> -kind income|expense
ledger category -delete <id>

  Deleting a category keeps the transactions filed under it.
`
}

func (c *categoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "Category name")
	f.StringVar(&c.kind, "kind", string(models.CategoryKindExpense), "income or expense")
	f.StringVar(&c.delete, "delete", "", "Category to remove")
}

func (c *categoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if c.delete != "" {
			return a.manager.DeleteCategory(ctx, models.RecordID(c.delete))
		}
		cat, err := a.manager.AddCategory(ctx, workflow.CategoryInput{Name: c.name, Kind: models.CategoryKind(c.kind)})
		if err != nil {
			return err
		}
		fmt.Printf("category %s %s\n", cat.ID, cat.Name)
		return nil
	})
}

// moneyFlags are shared by the cash and bank commands.
type moneyFlags struct {
	date        string
	kind        string
	amount      string
	actual      string
	reason      string
	category    string
	description string
	contact     string
}

func (m *moneyFlags) set(f *flag.FlagSet, defaultType models.MonetaryType) {
	f.StringVar(&m.date, "date", "", "Transaction date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&m.kind, "type", string(defaultType), "income, expense, deposit or withdrawal")
	f.StringVar(&m.amount, "amount", "", "Expected amount")
	f.StringVar(&m.actual, "actual", "", "Actual amount when it differs from the expected amount")
	f.StringVar(&m.reason, "reason", "", "Why the actual amount differs")
	f.StringVar(&m.category, "category", "", "Category name")
	f.StringVar(&m.description, "desc", "", "Description")
	f.StringVar(&m.contact, "contact", "", "Contact id")
}

func (m *moneyFlags) input() (workflow.MoneyInput, error) {
	date, err := parseDate(m.date)
	if err != nil {
		return workflow.MoneyInput{}, err
	}
	amount, err := parseAmount("amount", m.amount)
	if err != nil {
		return workflow.MoneyInput{}, err
	}
	actual, err := parseOptionalAmount("actual", m.actual)
	if err != nil {
		return workflow.MoneyInput{}, err
	}
	return workflow.MoneyInput{
		Date:           date,
		Type:           models.MonetaryType(m.kind),
		ExpectedAmount: amount,
		ActualAmount:   actual,
		VarianceReason: m.reason,
		Description:    m.description,
		Category:       m.category,
		ContactId:      models.RecordID(m.contact),
	}, nil
}

type cashCmd struct{ moneyFlags }

func (*cashCmd) Name() string     { return "cash" }
func (*cashCmd) Synopsis() string { return "record a cash income or expense" }
func (*cashCmd) Usage() string {
	return "ledger cash -type income|expense -amount <amount> [-actual <amount> -reason <text>] [-category <name>] [-contact <id>] [-date YYYY-MM-DD]\n"
}
func (c *cashCmd) SetFlags(f *flag.FlagSet) { c.set(f, models.MonetaryTypeExpense) }

func (c *cashCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		in, err := c.input()
		if err != nil {
			return err
		}
		tx, err := a.manager.AddCash(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("cash %s %s %s\n", tx.ID, tx.Type, formatAmount(tx.ActualAmount, *currency))
		return nil
	})
}

type bankCmd struct {
	moneyFlags
	bank string
}

func (*bankCmd) Name() string     { return "bank" }
func (*bankCmd) Synopsis() string { return "record a bank deposit or withdrawal" }
func (*bankCmd) Usage() string {
	return "ledger bank -bank <id> -type deposit|withdrawal -amount <amount> [-actual <amount> -reason <text>] [-category <name>] [-date YYYY-MM-DD]\n"
}

func (c *bankCmd) SetFlags(f *flag.FlagSet) {
	c.set(f, models.MonetaryTypeDeposit)
	f.StringVar(&c.bank, "bank", "", "Bank account id")
}

func (c *bankCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		in, err := c.input()
		if err != nil {
			return err
		}
		in.BankId = models.RecordID(c.bank)
		tx, err := a.manager.AddBank(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("bank %s %s %s\n", tx.ID, tx.Type, formatAmount(tx.ActualAmount, *currency))
		return nil
	})
}

type ledgerCmd struct {
	date        string
	kind        string
	amount      string
	contact     string
	description string
}

func (*ledgerCmd) Name() string     { return "debt" }
func (*ledgerCmd) Synopsis() string { return "open a payable or receivable without a stock movement" }
func (*ledgerCmd) Usage() string {
	return "ledger debt -contact <id> -type payable|receivable -amount <amount> [-desc <text>] [-date YYYY-MM-DD]\n"
}

func (c *ledgerCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.kind, "type", string(models.LedgerTypePayable), "payable or receivable")
	f.StringVar(&c.amount, "amount", "", "Amount owed")
	f.StringVar(&c.contact, "contact", "", "Contact id")
	f.StringVar(&c.description, "desc", "", "Description")
}

func (c *ledgerCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		amount, err := parseAmount("amount", c.amount)
		if err != nil {
			return err
		}
		l, err := a.manager.AddLedgerEntry(ctx, workflow.LedgerInput{
			Date: date, Type: models.LedgerType(c.kind), Description: c.description,
			Amount: amount, ContactId: models.RecordID(c.contact),
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s %s\n", l.Type, l.ID, formatAmount(l.Amount, *currency))
		return nil
	})
}
