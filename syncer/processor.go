// Package syncer delivers queued outbox entries to the remote store in enqueue order and
// confirms the pending identifiers the remote store assigns.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/config"
	"bitbucket.org/mmdatafocus/tradebooks/models"
	"bitbucket.org/mmdatafocus/tradebooks/outbox"
	"bitbucket.org/mmdatafocus/tradebooks/remote"
	"bitbucket.org/mmdatafocus/tradebooks/store"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Processor struct {
	store  *store.Store
	queue  *outbox.Queue
	remote remote.Store
	logger *logrus.Logger
	tracer trace.Tracer
	state  *State
	now    func() time.Time

	wg sync.WaitGroup
}

type Option func(*Processor)

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

func WithState(s *State) Option {
	return func(p *Processor) { p.state = s }
}

func NewProcessor(s *store.Store, q *outbox.Queue, r remote.Store, logger *logrus.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = config.GetLogger()
	}
	p := &Processor{
		store:  s,
		queue:  q,
		remote: r,
		logger: logger,
		tracer: otel.Tracer("tradebooks/syncer"),
		state:  NewState(true),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) State() *State { return p.state }

// Run drains the whole queue once. A call while a pass is active, or while offline,
// returns a skipped summary without touching the queue.
func (p *Processor) Run(ctx context.Context, reason string) (*Summary, error) {
	return p.run(ctx, reason, "")
}

// RunEntry delivers a single queued entry ahead of the regular pass.
func (p *Processor) RunEntry(ctx context.Context, entryID string) (*Summary, error) {
	return p.run(ctx, models.SyncTriggeredUrgent, entryID)
}

// Trigger starts a pass in the background. Triggers that land while a pass is running are dropped.
func (p *Processor) Trigger(reason string) {
	if !p.state.Online() || p.state.Running() {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if _, err := p.Run(context.Background(), reason); err != nil {
			config.LogError(p.logger, "processor.go", "Trigger", "background sync pass", reason, err)
		}
	}()
}

// Wait blocks until every triggered background pass has returned.
func (p *Processor) Wait() { p.wg.Wait() }

// SetOnline records connectivity; going from offline to online starts a pass.
func (p *Processor) SetOnline(online bool) {
	if p.state.setOnline(online) {
		p.logger.WithFields(logrus.Fields{"field": "SyncProcessor"}).Info("connectivity restored")
		p.Trigger(models.SyncTriggeredReconnect)
	}
}

// Probe pings the remote store and updates the online flag from the answer.
func (p *Processor) Probe(ctx context.Context) bool {
	err := p.remote.Ping(ctx)
	p.SetOnline(err == nil)
	return err == nil
}

func (p *Processor) run(ctx context.Context, reason, only string) (*Summary, error) {
	if !p.state.Online() {
		return &Summary{TriggeredBy: reason, Status: models.SyncRunStatusIdle, Skipped: true}, nil
	}
	if !p.state.running.CompareAndSwap(false, true) {
		return &Summary{TriggeredBy: reason, Status: models.SyncRunStatusIdle, Skipped: true}, nil
	}
	defer p.state.running.Store(false)

	ctx, span := p.tracer.Start(ctx, "sync.pass", trace.WithAttributes(attribute.String("sync.triggered_by", reason)))
	defer span.End()

	entries, err := p.queue.PeekAll(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("read outbox: %w", err)
	}

	held := newHolds()
	var ids []string
	if only != "" {
		for _, e := range entries {
			if e.ID == only {
				ids = append(ids, e.ID)
				break
			}
			if a, err := action.Decode(action.Tag(e.ActionTag), json.RawMessage(e.Payload)); err == nil {
				held.hold(a)
			}
		}
		if len(ids) == 0 {
			return nil, fmt.Errorf("outbox entry %s: %w", only, utils.ErrorRecordNotFound)
		}
	} else {
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
	}

	started := p.now().UTC()
	run := models.SyncRun{Status: models.SyncRunStatusRunning, TriggeredBy: reason, StartedAt: &started}
	if err := p.store.DB().WithContext(ctx).Create(&run).Error; err != nil {
		return nil, fmt.Errorf("create sync run: %w", err)
	}
	sum := &Summary{RunId: run.ID, TriggeredBy: reason, StartedAt: started}

	var abort error
	for _, id := range ids {
		if ctx.Err() != nil {
			abort = ctx.Err()
			break
		}
		// Re-read: an earlier entry in this pass may have remapped this payload.
		entry, err := p.queue.Get(ctx, id)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				continue
			}
			abort = err
			break
		}
		sum.Attempted++
		if err := p.deliver(ctx, &run, entry, held, sum); err != nil {
			abort = err
			break
		}
	}

	p.finish(context.WithoutCancel(ctx), &run, sum)
	span.SetAttributes(
		attribute.Int("sync.attempted", sum.Attempted),
		attribute.Int("sync.succeeded", sum.Succeeded),
		attribute.Int("sync.failed", sum.Failed),
		attribute.Int("sync.dropped", sum.Dropped),
	)
	if abort != nil {
		span.SetStatus(codes.Error, abort.Error())
	}
	p.state.setLast(sum)
	return sum, abort
}

// deliver processes one entry. A non-nil return aborts the pass.
func (p *Processor) deliver(ctx context.Context, run *models.SyncRun, entry *models.OutboxEntry, held *holds, sum *Summary) error {
	a, err := action.Decode(action.Tag(entry.ActionTag), json.RawMessage(entry.Payload))
	if err != nil {
		// Nothing can ever deliver it; keeping it would poison every later pass.
		if rmErr := p.queue.Remove(ctx, entry.ID); rmErr != nil {
			return rmErr
		}
		sum.Dropped++
		p.recordError(ctx, run, entry, models.SyncErrorDecode, err, false, sum)
		return nil
	}

	if blocked := held.blocker(a); blocked != nil {
		held.hold(a)
		sum.Failed++
		sum.Blocked++
		p.recordError(ctx, run, entry, models.SyncErrorBlocked, blocked, true, sum)
		return nil
	}

	ectx, span := p.tracer.Start(ctx, "sync.entry", trace.WithAttributes(
		attribute.String("outbox.entry_id", entry.ID),
		attribute.String("outbox.action", entry.ActionTag),
		attribute.Int64("outbox.seq", entry.Seq),
	))
	defer span.End()

	assignments, err := p.remote.Apply(ectx, entry.ID, a)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		switch {
		case utils.IsAuthExpired(err):
			sum.Failed++
			p.recordError(ctx, run, entry, models.SyncErrorAuthExpired, err, true, sum)
			return err
		case utils.IsRemoteRejection(err):
			if rmErr := p.queue.Remove(ctx, entry.ID); rmErr != nil {
				return rmErr
			}
			held.dropCreates(a)
			sum.Dropped++
			p.recordError(ctx, run, entry, models.SyncErrorRejected, err, false, sum)
		default:
			held.hold(a)
			if mErr := p.queue.MarkFailed(ctx, entry.ID, err, p.now()); mErr != nil {
				return mErr
			}
			sum.Failed++
			p.recordError(ctx, run, entry, models.SyncErrorTransient, err, true, sum)
		}
		return nil
	}

	if err := p.confirm(ctx, entry, assignments); err != nil {
		// The remote side is done; the replay on the next pass returns the same assignments.
		span.SetStatus(codes.Error, err.Error())
		held.hold(a)
		sum.Failed++
		p.recordError(ctx, run, entry, models.SyncErrorLocal, err, true, sum)
		return nil
	}
	sum.Succeeded++
	p.logger.WithFields(logrus.Fields{
		"field":       "SyncProcessor",
		"entry_id":    entry.ID,
		"action":      entry.ActionTag,
		"assignments": len(assignments),
	}).Info("entry synced")
	return nil
}

// confirm rewrites assigned ids across the mirror and the rest of the queue, then dequeues the
// entry, all in one local transaction.
func (p *Processor) confirm(ctx context.Context, entry *models.OutboxEntry, assignments []action.Assignment) error {
	return p.store.Transaction(ctx, func(tx *store.Store) error {
		m := make(models.IDMap, len(assignments))
		for _, as := range assignments {
			if _, err := tx.Reconcile(ctx, as.Entity, as.Pending, as.Confirmed); err != nil {
				return err
			}
			m[as.Pending] = as.Confirmed
		}

		q := p.queue.In(tx)
		if len(m) > 0 {
			rest, err := q.PeekAll(ctx)
			if err != nil {
				return err
			}
			for _, other := range rest {
				if other.ID == entry.ID {
					continue
				}
				oa, err := action.Decode(action.Tag(other.ActionTag), json.RawMessage(other.Payload))
				if err != nil {
					continue
				}
				if !action.Remap(oa, m) {
					continue
				}
				_, raw, err := action.Encode(oa)
				if err != nil {
					return err
				}
				if err := q.Rewrite(ctx, other.ID, raw); err != nil {
					return err
				}
			}
		}
		return q.Remove(ctx, entry.ID)
	})
}

func (p *Processor) recordError(ctx context.Context, run *models.SyncRun, entry *models.OutboxEntry, kind string, err error, retryable bool, sum *Summary) {
	sum.Errors = append(sum.Errors, EntryError{EntryId: entry.ID, Action: entry.ActionTag, Kind: kind, Err: err})

	row := models.SyncError{
		SyncRunId: run.ID,
		EntryId:   entry.ID,
		ActionTag: entry.ActionTag,
		ErrorKind: kind,
		Message:   err.Error(),
		Retryable: retryable,
	}
	if !retryable {
		row.Payload = entry.Payload
	}
	if dbErr := p.store.DB().WithContext(ctx).Create(&row).Error; dbErr != nil {
		config.LogError(p.logger, "processor.go", "recordError", "create sync error", row, dbErr)
	}
	p.logger.WithFields(logrus.Fields{
		"field":    "SyncProcessor",
		"entry_id": entry.ID,
		"action":   entry.ActionTag,
		"kind":     kind,
	}).Warn("entry not synced: " + err.Error())
}

func (p *Processor) finish(ctx context.Context, run *models.SyncRun, sum *Summary) {
	finished := p.now().UTC()
	errorCount := sum.Failed + sum.Dropped
	status := models.SyncRunStatusSuccess
	if errorCount > 0 && sum.Succeeded == 0 {
		status = models.SyncRunStatusFailed
	} else if errorCount > 0 {
		status = models.SyncRunStatusPartial
	}
	sum.Status = status
	sum.FinishedAt = finished

	if err := p.store.DB().WithContext(ctx).Model(&models.SyncRun{}).Where("id = ?", run.ID).Updates(map[string]interface{}{
		"status":      status,
		"attempted":   sum.Attempted,
		"succeeded":   sum.Succeeded,
		"failed":      sum.Failed,
		"dropped":     sum.Dropped,
		"finished_at": &finished,
		"duration_ms": finished.Sub(sum.StartedAt).Milliseconds(),
	}).Error; err != nil {
		config.LogError(p.logger, "processor.go", "finish", "update sync run", run.ID, err)
	}
	if err := p.store.RecordSyncOutcome(ctx, finished, sum.Succeeded, errorCount); err != nil {
		config.LogError(p.logger, "processor.go", "finish", "record sync outcome", run.ID, err)
	}

	p.logger.WithFields(logrus.Fields{
		"field":        "SyncProcessor",
		"run_id":       run.ID,
		"triggered_by": sum.TriggeredBy,
		"status":       status,
		"attempted":    sum.Attempted,
		"succeeded":    sum.Succeeded,
		"failed":       sum.Failed,
		"dropped":      sum.Dropped,
	}).Info("sync pass finished")
}
