package models

import (
	"fmt"
	"time"
)

type LifecycleState string

const (
	LifecycleActive  LifecycleState = "active"
	LifecycleDeleted LifecycleState = "deleted"
	LifecyclePurged  LifecycleState = "purged"
)

// StateOf reads the lifecycle state of a stored record. Purged records no longer exist.
func StateOf(r Record) LifecycleState {
	if sd, ok := r.(SoftDeletable); ok && sd.GetDeletedAt() != nil {
		return LifecycleDeleted
	}
	return LifecycleActive
}

var allowedTransitions = map[LifecycleState][]LifecycleState{
	LifecycleActive:  {LifecycleDeleted},
	LifecycleDeleted: {LifecycleActive, LifecyclePurged},
}

func CanTransition(from, to LifecycleState) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SoftDelete moves an active record to Deleted.
func SoftDelete(r SoftDeletable, at time.Time) error {
	if from := StateOf(r); !CanTransition(from, LifecycleDeleted) {
		return fmt.Errorf("%s %s: cannot move from %s to %s", r.Kind(), r.GetID(), from, LifecycleDeleted)
	}
	at = at.UTC()
	r.SetDeletedAt(&at)
	return nil
}

// Restore moves a deleted record back to Active.
func Restore(r SoftDeletable) error {
	if from := StateOf(r); !CanTransition(from, LifecycleActive) {
		return fmt.Errorf("%s %s: cannot move from %s to %s", r.Kind(), r.GetID(), from, LifecycleActive)
	}
	r.SetDeletedAt(nil)
	return nil
}
