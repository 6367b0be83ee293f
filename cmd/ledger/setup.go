package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/importer"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/google/subcommands"
)

// bankOpenings collects repeated -bank <id>=<amount> flags.
type bankOpenings []workflow.OpeningBank

func (b *bankOpenings) String() string { return fmt.Sprint(len(*b)) }

func (b *bankOpenings) Set(v string) error {
	id, amount, ok := strings.Cut(v, "=")
	if !ok {
		return fmt.Errorf("want <bank id>=<amount>, got %q", v)
	}
	d, err := parseAmount("bank", amount)
	if err != nil {
		return err
	}
	*b = append(*b, workflow.OpeningBank{BankId: models.RecordID(strings.TrimSpace(id)), Amount: d})
	return nil
}

// stockOpenings collects repeated -stock <item>:<kg>@<price per kg> flags.
type stockOpenings []workflow.OpeningStock

func (s *stockOpenings) String() string { return fmt.Sprint(len(*s)) }

func (s *stockOpenings) Set(v string) error {
	item, rest, ok := strings.Cut(v, ":")
	weight, price, ok2 := strings.Cut(rest, "@")
	if !ok || !ok2 {
		return fmt.Errorf("want <item>:<kg>@<price per kg>, got %q", v)
	}
	w, err := parseAmount("stock", weight)
	if err != nil {
		return err
	}
	p, err := parseAmount("stock", price)
	if err != nil {
		return err
	}
	*s = append(*s, workflow.OpeningStock{ItemName: strings.TrimSpace(item), Weight: w, PricePerKg: p})
	return nil
}

type openingCmd struct {
	cash   string
	banks  bankOpenings
	stocks stockOpenings
}

func (*openingCmd) Name() string     { return "opening" }
func (*openingCmd) Synopsis() string { return "replace the opening cash, bank and stock balances" }
func (*openingCmd) Usage() string {
	return `ledger opening [-cash <amount>] [-bank <id>=<amount> ...] [-stock <item>:<kg>@<price> ...]

  Every previous opening balance is replaced, including those not named again.
`
}

func (c *openingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cash, "cash", "", "Opening cash balance")
	f.Var(&c.banks, "bank", "Opening balance of a bank account, <id>=<amount> (repeatable)")
	f.Var(&c.stocks, "stock", "Opening stock, <item>:<kg>@<price per kg> (repeatable)")
}

func (c *openingCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		cash, err := parseAmount("cash", c.cash)
		if err != nil {
			return err
		}
		set, err := a.manager.SetInitialBalances(ctx, workflow.OpeningInput{Cash: cash, Banks: c.banks, Stocks: c.stocks})
		if err != nil {
			return err
		}
		fmt.Printf("opening balances: %d balance row(s), %d stock row(s)\n", len(set.Balances), len(set.Stocks))
		return nil
	})
}

type importCmd struct {
	template string
	export   string
}

func (*importCmd) Name() string     { return "import" }
func (*importCmd) Synopsis() string { return "import contacts, money and stock rows from an xlsx workbook" }
func (*importCmd) Usage() string {
	return `ledger import <workbook.xlsx>
ledger import -template <path>
ledger import -export <path>

  The whole workbook is imported or, when any row is invalid, nothing is. -export writes the
  current books in the same layout; settlements and advances are not included.
`
}

func (c *importCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.template, "template", "", "Write an empty workbook to this path instead of importing")
	f.StringVar(&c.export, "export", "", "Write the current books to this path instead of importing")
}

func (c *importCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.template != "" {
		out, err := os.Create(c.template)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		defer out.Close()
		if err := importer.WriteTemplate(out); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	if c.export != "" {
		return runApp(ctx, false, func(a *app) error {
			out, err := os.Create(c.export)
			if err != nil {
				return err
			}
			defer out.Close()
			return importer.Export(ctx, a.store, out)
		})
	}
	if f.NArg() != 1 {
		fmt.Fprint(os.Stderr, c.Usage())
		return subcommands.ExitUsageError
	}
	return run(ctx, func(a *app) error {
		batch, err := importer.ReadFile(f.Arg(0))
		if err != nil {
			return err
		}
		res, err := a.manager.BatchImport(ctx, *batch)
		if err != nil {
			return err
		}
		for kind, n := range res.Records {
			fmt.Printf("imported %d %s\n", n, kind)
		}
		return nil
	})
}
