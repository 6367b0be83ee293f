package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/syncer"
	"github.com/google/subcommands"
)

type syncCmd struct {
	entry string
}

func (*syncCmd) Name() string     { return "sync" }
func (*syncCmd) Synopsis() string { return "deliver queued actions to the remote store" }
func (*syncCmd) Usage() string {
	return `ledger sync [-entry <queue id>]

  Drains the queue in order. With -entry only that entry is delivered, ahead of the rest.
  Requires LEDGER_REMOTE_URL and LEDGER_TOKEN.
`
}

func (c *syncCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.entry, "entry", "", "Deliver a single queued entry")
}

func (c *syncCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runApp(ctx, true, func(a *app) error {
		if a.processor == nil {
			return errors.New("no remote store configured: set LEDGER_TOKEN")
		}
		var (
			sum *syncer.Summary
			err error
		)
		if c.entry != "" {
			sum, err = a.processor.RunEntry(ctx, c.entry)
		} else {
			sum, err = a.processor.Run(ctx, models.SyncTriggeredManual)
		}
		if sum != nil {
			printSync(sum)
		}
		return err
	})
}

func printSync(sum *syncer.Summary) {
	if sum.Skipped {
		fmt.Println("sync skipped")
		return
	}
	fmt.Printf("sync %s: %d attempted, %d delivered, %d failed, %d dropped, %d blocked\n",
		sum.Status, sum.Attempted, sum.Succeeded, sum.Failed, sum.Dropped, sum.Blocked)
	for _, e := range sum.Errors {
		fmt.Fprintf(os.Stderr, "  %s %s [%s]: %v\n", e.EntryId, e.Action, e.Kind, e.Err)
	}
}

type queueCmd struct{}

func (*queueCmd) Name() string             { return "queue" }
func (*queueCmd) Synopsis() string         { return "list actions waiting for the remote store" }
func (*queueCmd) Usage() string            { return "ledger queue\n" }
func (*queueCmd) SetFlags(_ *flag.FlagSet) {}

func (*queueCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runApp(ctx, false, func(a *app) error {
		entries, err := a.queue.PeekAll(ctx)
		if err != nil {
			return err
		}
		printQueue(os.Stdout, entries)

		pending, err := a.store.PendingReferences(ctx)
		if err != nil {
			return err
		}
		for kind, n := range pending {
			if n > 0 {
				fmt.Printf("%d %s record(s) still carry a temporary id\n", n, kind)
			}
		}
		state, err := a.store.AppState(ctx)
		if err != nil {
			return err
		}
		if state.LastSyncAt != nil {
			fmt.Printf("last sync %s: %d delivered, %d failed\n", state.LastSyncAt.Format("2006-01-02 15:04:05"), state.LastSyncSucceeded, state.LastSyncFailed)
		}
		return nil
	})
}

type balancesCmd struct{}

func (*balancesCmd) Name() string             { return "balances" }
func (*balancesCmd) Synopsis() string         { return "show cash, bank, debt and stock positions" }
func (*balancesCmd) Usage() string            { return "ledger balances\n" }
func (*balancesCmd) SetFlags(_ *flag.FlagSet) {}

func (*balancesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return runApp(ctx, false, func(a *app) error {
		banks, err := store.List[models.BankAccount](ctx, a.store, store.Active())
		if err != nil {
			return err
		}
		names := make(map[models.RecordID]string, len(banks))
		for _, b := range banks {
			names[b.ID] = b.Name
		}
		printSummary(os.Stdout, a.manager.Summary(), *currency, names)
		return nil
	})
}
