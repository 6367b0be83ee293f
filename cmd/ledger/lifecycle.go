package main

import (
	"context"
	"flag"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/google/subcommands"
)

type deleteCmd struct {
	kind string
	id   string
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "move a record and its linked records to the recycle bin" }
func (*deleteCmd) Usage() string {
	return "ledger delete -kind <kind> -id <id>\n\n  Kinds: cash_transaction, bank_transaction, stock_transaction, ledger_entry, contact, bank_account.\n"
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Record kind")
	f.StringVar(&c.id, "id", "", "Record id")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		kind, err := parseKind(c.kind)
		if err != nil {
			return err
		}
		moved, err := a.manager.Delete(ctx, kind, models.RecordID(c.id))
		if err != nil {
			return err
		}
		printMoved("deleted", moved)
		return nil
	})
}

type restoreCmd struct {
	kind string
	id   string
}

func (*restoreCmd) Name() string     { return "restore" }
func (*restoreCmd) Synopsis() string { return "bring a record and its linked records back from the recycle bin" }
func (*restoreCmd) Usage() string    { return "ledger restore -kind <kind> -id <id>\n" }

func (c *restoreCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.kind, "kind", "", "Record kind")
	f.StringVar(&c.id, "id", "", "Record id")
}

func (c *restoreCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		kind, err := parseKind(c.kind)
		if err != nil {
			return err
		}
		moved, err := a.manager.Restore(ctx, kind, models.RecordID(c.id))
		if err != nil {
			return err
		}
		printMoved("restored", moved)
		return nil
	})
}

func printMoved(verb string, moved []models.SoftDeletable) {
	for _, r := range moved {
		fmt.Printf("%s %s %s\n", verb, r.Kind(), r.GetID())
	}
}

type emptyBinCmd struct{}

func (*emptyBinCmd) Name() string             { return "empty-bin" }
func (*emptyBinCmd) Synopsis() string         { return "permanently remove everything in the recycle bin" }
func (*emptyBinCmd) Usage() string            { return "ledger empty-bin\n" }
func (*emptyBinCmd) SetFlags(_ *flag.FlagSet) {}

func (*emptyBinCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		purged, err := a.manager.EmptyRecycleBin(ctx)
		if err != nil {
			return err
		}
		for kind, n := range purged {
			fmt.Printf("purged %d %s\n", n, kind)
		}
		return nil
	})
}

type wipeCmd struct {
	yes bool
}

func (*wipeCmd) Name() string     { return "wipe" }
func (*wipeCmd) Synopsis() string { return "delete every record, locally and on the remote store" }
func (*wipeCmd) Usage() string    { return "ledger wipe -yes\n" }

func (c *wipeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.yes, "yes", false, "Confirm that every record should be deleted")
}

func (c *wipeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return run(ctx, func(a *app) error {
		if !c.yes {
			return utils.NewValidationError("wipe deletes every record; pass -yes to confirm")
		}
		return a.manager.DeleteAll(ctx)
	})
}
