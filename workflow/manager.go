package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/outbox"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"bitbucket.org/mmdatafocus/tradebooks/valuation"
	"github.com/sirupsen/logrus"
)

// SyncTrigger is notified after a write that queued remote work.
type SyncTrigger interface {
	Trigger(reason string)
}

// Manager applies user-level mutations to the local mirror. Each operation is one local
// transaction that also queues the remote actions reproducing it.
type Manager struct {
	store  *store.Store
	queue  *outbox.Queue
	logger *logrus.Logger
	now    func() time.Time
	sync   SyncTrigger

	mu      sync.RWMutex
	summary valuation.Summary
}

type Option func(*Manager)

// WithClock replaces time.Now; creation timestamps break ordering ties, so tests pin it.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithSyncTrigger(t SyncTrigger) Option {
	return func(m *Manager) { m.sync = t }
}

func NewManager(s *store.Store, q *outbox.Queue, logger *logrus.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = config.GetLogger()
	}
	m := &Manager{store: s, queue: q, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetSyncTrigger wires the sync processor after construction.
func (m *Manager) SetSyncTrigger(t SyncTrigger) { m.sync = t }

func (m *Manager) Store() *store.Store { return m.store }

// unit is the scope of one composite operation.
type unit struct {
	ctx      context.Context
	tx       *store.Store
	queue    *outbox.Queue
	now      time.Time
	enqueued []string
}

func (u *unit) put(records ...models.Record) error {
	for _, r := range records {
		if err := u.tx.Put(u.ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) enqueue(a action.Action) error {
	tag, raw, err := action.Encode(a)
	if err != nil {
		return err
	}
	id, err := u.queue.Enqueue(u.ctx, string(tag), raw)
	if err != nil {
		return err
	}
	u.enqueued = append(u.enqueued, id)
	return nil
}

// stamp sets the creation time of fresh records; successive records get strictly increasing times.
func (u *unit) stamp() time.Time {
	t := u.now
	u.now = u.now.Add(time.Microsecond)
	return t
}

// commit runs fn as one local transaction, then refreshes derived state and wakes the sync processor.
func (m *Manager) commit(ctx context.Context, op string, fn func(u *unit) error) error {
	var enqueued []string
	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		u := &unit{ctx: ctx, tx: tx, queue: m.queue.In(tx), now: m.now().UTC()}
		if err := fn(u); err != nil {
			return err
		}
		enqueued = u.enqueued
		return nil
	})
	if err != nil {
		if !utils.IsValidationError(err) {
			config.LogError(m.logger, "manager.go", op, "commit", nil, err)
		}
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"field":    "LedgerManager",
		"op":       op,
		"enqueued": len(enqueued),
	}).Info("local write committed")

	if _, err := m.Refresh(ctx); err != nil {
		config.LogError(m.logger, "manager.go", op, "Refresh", nil, err)
	}
	if len(enqueued) > 0 && m.sync != nil {
		m.sync.Trigger(models.SyncTriggeredEnqueue)
	}
	return nil
}

// Refresh recomputes balances, debts and stock value from a committed snapshot.
func (m *Manager) Refresh(ctx context.Context) (valuation.Summary, error) {
	var h valuation.History
	err := m.store.Transaction(ctx, func(tx *store.Store) error {
		var err error
		if h.Cash, err = store.List[models.CashTransaction](ctx, tx, store.Active()); err != nil {
			return err
		}
		if h.Bank, err = store.List[models.BankTransaction](ctx, tx, store.Active()); err != nil {
			return err
		}
		if h.Stock, err = store.List[models.StockTransaction](ctx, tx, store.Active()); err != nil {
			return err
		}
		if h.Ledgers, err = store.List[models.LedgerEntry](ctx, tx, store.Active()); err != nil {
			return err
		}
		if h.InitialStocks, err = store.List[models.InitialStock](ctx, tx); err != nil {
			return err
		}
		h.InitialBalances, err = store.List[models.InitialBalance](ctx, tx)
		return err
	})
	if err != nil {
		return valuation.Summary{}, err
	}
	s := valuation.Summarize(h)
	m.mu.Lock()
	m.summary = s
	m.mu.Unlock()
	return s, nil
}

// Summary returns the derived state computed after the last write.
func (m *Manager) Summary() valuation.Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summary
}

// active loads a record and insists it is not soft-deleted. Missing or deleted
// references are validation failures on field.
func active[T any, PT interface {
	*T
	models.Record
}](u *unit, field string, id models.RecordID) (*T, error) {
	rec, err := store.Get[T, PT](u.ctx, u.tx, id)
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return nil, &utils.ValidationError{Message: fmt.Sprintf("%s %s does not exist", field, id), Fields: map[string]string{field: "exists"}}
	}
	if err != nil {
		return nil, err
	}
	if models.StateOf(PT(rec)) != models.LifecycleActive {
		return nil, &utils.ValidationError{Message: fmt.Sprintf("%s %s is deleted", field, id), Fields: map[string]string{field: "active"}}
	}
	return rec, nil
}

func invalid(field, tag, format string, args ...any) *utils.ValidationError {
	return &utils.ValidationError{Message: fmt.Sprintf(format, args...), Fields: map[string]string{field: tag}}
}
