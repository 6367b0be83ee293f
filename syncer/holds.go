package syncer

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/models"
)

// holds remembers what the entries that did not reach the remote store in this pass would have
// done: the pending ids they create and the rows they write. A later entry depending on either
// waits for the next pass, so the remote store applies writes to a row in queue order.
type holds struct {
	pending  map[models.RecordID]bool
	rows     map[action.Key]bool
	bookWide bool
	queued   int
}

func newHolds() *holds {
	return &holds{pending: make(map[models.RecordID]bool), rows: make(map[action.Key]bool)}
}

// hold records an entry that is still queued.
func (h *holds) hold(a action.Action) {
	h.queued++
	h.dropCreates(a)
	for _, k := range action.Writes(a) {
		h.rows[k] = true
	}
	if action.BookWide(a) {
		h.bookWide = true
	}
}

// dropCreates records an entry that left the queue without creating anything remotely.
func (h *holds) dropCreates(a action.Action) {
	for _, id := range action.Creates(a) {
		h.pending[id] = true
	}
}

// blocker explains why a must wait, or returns nil.
func (h *holds) blocker(a action.Action) error {
	if h.bookWide {
		return errors.New("waits for an earlier book-wide change")
	}
	if action.BookWide(a) && h.queued > 0 {
		return errors.New("waits for earlier entries that are still queued")
	}
	for _, ref := range action.PendingRefs(a) {
		if h.pending[ref] {
			return fmt.Errorf("waits for %s, whose creation has not reached the remote store", ref)
		}
	}
	for _, k := range action.Writes(a) {
		if h.rows[k] {
			return fmt.Errorf("waits for an earlier change to %s %s", k.Kind, k.ID)
		}
	}
	return nil
}
