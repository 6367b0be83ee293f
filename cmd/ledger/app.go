package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/outbox"
	"bitbucket.org/mmdatafocus/tradebooks/remote"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/syncer"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"bitbucket.org/mmdatafocus/tradebooks/workflow"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var (
	dbPath   = flag.String("db", "", "Path to the local ledger database (defaults to LEDGER_DB_PATH)")
	offline  = flag.Bool("offline", false, "Do not contact the remote store after a write")
	currency = flag.String("currency", "MMK", "Currency code used to display amounts")
)

// app is one CLI invocation: the local store, its queue and the sync processor behind it.
type app struct {
	settings  config.ClientSettings
	logger    *logrus.Logger
	store     *store.Store
	queue     *outbox.Queue
	manager   *workflow.Manager
	processor *syncer.Processor
}

// openApp opens the local ledger. With online false the processor waits for a successful probe
// before delivering anything.
func openApp(ctx context.Context, online bool) (*app, error) {
	settings := config.LoadClientSettings()
	if *dbPath != "" {
		settings.DBPath = *dbPath
	}
	level := settings.LogLevel
	if level == "" {
		level = "warn"
	}
	logger := config.NewLogger(level)

	s, err := store.Open(settings.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", settings.DBPath, err)
	}
	q := outbox.New(s)
	a := &app{settings: settings, logger: logger, store: s, queue: q, manager: workflow.NewManager(s, q, logger)}

	if !*offline && settings.Token != "" {
		client, err := remote.NewClientFromSettings(settings, logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		a.processor = syncer.NewProcessor(s, q, client, logger, syncer.WithState(syncer.NewState(online)))
		a.manager.SetSyncTrigger(a.processor)
	}
	if _, err := a.manager.Refresh(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return a, nil
}

// flush delivers whatever the command queued if the remote store answers.
func (a *app) flush(ctx context.Context) {
	if a.processor == nil {
		return
	}
	if a.processor.Probe(ctx) {
		a.processor.Wait()
		return
	}
	if n, err := a.queue.Len(ctx); err == nil && n > 0 {
		fmt.Fprintf(os.Stderr, "remote store unreachable, %d action(s) queued\n", n)
	}
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		config.LogError(a.logger, "app.go", "close", "close store", a.settings.DBPath, err)
	}
}

// run opens the ledger, runs fn, pushes queued actions and maps the outcome to an exit status.
func run(ctx context.Context, fn func(a *app) error) subcommands.ExitStatus {
	return runApp(ctx, false, fn)
}

func runApp(ctx context.Context, online bool, fn func(a *app) error) subcommands.ExitStatus {
	a, err := openApp(ctx, online)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := fn(a); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if utils.IsValidationError(err) {
			return subcommands.ExitUsageError
		}
		return subcommands.ExitFailure
	}
	a.flush(ctx)
	return subcommands.ExitSuccess
}

func parseDate(v string) (time.Time, error) {
	if v == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, utils.NewValidationError("invalid date %q, want YYYY-MM-DD", v)
	}
	return t, nil
}

func parseAmount(name, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(v, ",", ""))
	if err != nil {
		return decimal.Zero, utils.NewValidationError("-%s: %q is not a number", name, v)
	}
	return d, nil
}

func parseOptionalAmount(name, v string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := parseAmount(name, v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseKind(v string) (models.EntityKind, error) {
	kind := models.EntityKind(v)
	if _, err := models.LookupEntity(kind); err != nil {
		return "", utils.NewValidationError("unknown record kind %q", v)
	}
	return kind, nil
}
