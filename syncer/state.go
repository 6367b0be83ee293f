package syncer

import (
	"sync"
	"sync/atomic"
	"time"
)

// Summary is the aggregate outcome of one pass.
type Summary struct {
	RunId       uint
	TriggeredBy string
	Status      string
	Attempted   int
	Succeeded   int
	Failed      int
	Dropped     int
	Blocked     int
	Skipped     bool
	StartedAt   time.Time
	FinishedAt  time.Time
	Errors      []EntryError
}

// EntryError describes one entry that did not make it to the remote store in a pass.
type EntryError struct {
	EntryId string
	Action  string
	Kind    string
	Err     error
}

// State is the process-wide sync context owned by the Processor and read by the presentation layer.
type State struct {
	running atomic.Bool

	mu     sync.RWMutex
	online bool
	last   *Summary
}

func NewState(online bool) *State {
	return &State{online: online}
}

func (s *State) Online() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.online
}

// setOnline reports whether this call moved the state from offline to online.
func (s *State) setOnline(online bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasOffline := !s.online
	s.online = online
	return wasOffline && online
}

func (s *State) Running() bool { return s.running.Load() }

// LastSummary returns a copy of the most recent completed pass, or nil.
func (s *State) LastSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	cp.Errors = append([]EntryError(nil), s.last.Errors...)
	return &cp
}

func (s *State) setLast(sum *Summary) {
	s.mu.Lock()
	s.last = sum
	s.mu.Unlock()
}
