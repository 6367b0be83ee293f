package main

import (
	"context"
	"flag"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/google/subcommands"
)

type stockCmd struct {
	date        string
	item        string
	kind        string
	weight      string
	price       string
	method      string
	contact     string
	bank        string
	actual      string
	reason      string
	description string
}

func (*stockCmd) Name() string     { return "stock" }
func (*stockCmd) Synopsis() string { return "record a stock purchase or sale" }
func (*stockCmd) Usage() string {
	return `ledger stock -item <name> -type purchase|sale -weight <kg> -price <per kg> -method cash|bank|credit
             [-bank <id>] [-contact <id>] [-actual <amount> -reason <text>] [-date YYYY-MM-DD]

  A cash or bank payment is recorded alongside the stock movement. A credit sale or purchase
  opens a receivable or payable for the contact instead.
`
}

func (c *stockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "date", "", "Transaction date, YYYY-MM-DD (defaults to today)")
	f.StringVar(&c.item, "item", "", "Item name")
	f.StringVar(&c.kind, "type", string(models.StockTypePurchase), "purchase or sale")
	f.StringVar(&c.weight, "weight", "", "Weight in kg")
	f.StringVar(&c.price, "price", "", "Price per kg")
	f.StringVar(&c.method, "method", string(models.PaymentMethodCash), "cash, bank or credit")
	f.StringVar(&c.contact, "contact", "", "Contact id (required for credit)")
	f.StringVar(&c.bank, "bank", "", "Bank account id (required for bank)")
	f.StringVar(&c.actual, "actual", "", "Actual amount when it differs from weight x price")
	f.StringVar(&c.reason, "reason", "", "Why the actual amount differs")
	f.StringVar(&c.description, "desc", "", "Description")
}

func (c *stockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		weight, err := parseAmount("weight", c.weight)
		if err != nil {
			return err
		}
		price, err := parseAmount("price", c.price)
		if err != nil {
			return err
		}
		actual, err := parseOptionalAmount("actual", c.actual)
		if err != nil {
			return err
		}
		res, err := a.manager.RecordStockTransaction(ctx, workflow.StockInput{
			Date: date, ItemName: c.item, Type: models.StockType(c.kind),
			Weight: weight, PricePerKg: price, PaymentMethod: models.PaymentMethod(c.method),
			ContactId: models.RecordID(c.contact), BankId: models.RecordID(c.bank),
			ActualAmount: actual, VarianceReason: c.reason, Description: c.description,
		})
		if err != nil {
			return err
		}
		printStockResult(res)
		return nil
	})
}

type editStockCmd struct {
	id     string
	date   string
	item   string
	weight string
	price  string
	actual string
	reason string
}

func (*editStockCmd) Name() string     { return "edit-stock" }
func (*editStockCmd) Synopsis() string { return "edit a stock transaction and its linked payment or debt" }
func (*editStockCmd) Usage() string {
	return `ledger edit-stock -id <id> -date YYYY-MM-DD -item <name> -weight <kg> -price <per kg> [-actual <amount> -reason <text>]

  The payment method cannot change. A credit transaction cannot drop below what was already paid.
`
}

func (c *editStockCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Stock transaction id")
	f.StringVar(&c.date, "date", "", "Transaction date, YYYY-MM-DD")
	f.StringVar(&c.item, "item", "", "Item name")
	f.StringVar(&c.weight, "weight", "", "Weight in kg")
	f.StringVar(&c.price, "price", "", "Price per kg")
	f.StringVar(&c.actual, "actual", "", "Actual amount when it differs from weight x price")
	f.StringVar(&c.reason, "reason", "", "Why the actual amount differs")
}

func (c *editStockCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		date, err := parseDate(c.date)
		if err != nil {
			return err
		}
		weight, err := parseAmount("weight", c.weight)
		if err != nil {
			return err
		}
		price, err := parseAmount("price", c.price)
		if err != nil {
			return err
		}
		actual, err := parseOptionalAmount("actual", c.actual)
		if err != nil {
			return err
		}
		res, err := a.manager.UpdateStockTransaction(ctx, models.RecordID(c.id), workflow.StockEditInput{
			Date: date, ItemName: c.item, Weight: weight, PricePerKg: price,
			ActualAmount: actual, VarianceReason: c.reason,
		})
		if err != nil {
			return err
		}
		printStockResult(res)
		return nil
	})
}

func printStockResult(res *workflow.StockResult) {
	s := res.Stock
	fmt.Printf("stock %s %s %s %skg %s\n", s.ID, s.Type, s.ItemName, s.Weight.StringFixed(2), formatAmount(s.ActualAmount, *currency))
	if res.Money != nil {
		fmt.Printf("  payment %s %s\n", res.Money.Kind(), res.Money.GetID())
	}
	if res.Ledger != nil {
		fmt.Printf("  %s %s %s\n", res.Ledger.Type, res.Ledger.ID, formatAmount(res.Ledger.Amount, *currency))
	}
}
