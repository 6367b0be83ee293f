package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

func register(c *subcommands.Commander) {
	c.Register(&contactCmd{}, "records")
	c.Register(&bankAccountCmd{}, "records")
	c.Register(&categoryCmd{}, "records")
	c.Register(&cashCmd{}, "records")
	c.Register(&bankCmd{}, "records")
	c.Register(&ledgerCmd{}, "records")

	c.Register(&stockCmd{}, "stock")
	c.Register(&editStockCmd{}, "stock")

	c.Register(&payCmd{}, "payments")
	c.Register(&advanceCmd{}, "payments")
	c.Register(&transferCmd{}, "payments")

	c.Register(&deleteCmd{}, "lifecycle")
	c.Register(&restoreCmd{}, "lifecycle")
	c.Register(&emptyBinCmd{}, "lifecycle")
	c.Register(&wipeCmd{}, "lifecycle")

	c.Register(&openingCmd{}, "setup")
	c.Register(&importCmd{}, "setup")

	c.Register(&syncCmd{}, "sync")
	c.Register(&queueCmd{}, "sync")
	c.Register(&balancesCmd{}, "reports")
}
