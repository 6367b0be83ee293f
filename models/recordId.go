package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// RecordID is either Pending (a client token, "tmp-<uuid>") or Confirmed (assigned by the remote store).
// The empty value means "no reference".
type RecordID string

const pendingPrefix = "tmp-"

type IDState int

const (
	IDStateNone IDState = iota
	IDStatePending
	IDStateConfirmed
)

func (s IDState) String() string {
	switch s {
	case IDStatePending:
		return "pending"
	case IDStateConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// NewPendingID mints a client-side temporary identifier.
func NewPendingID() RecordID {
	return RecordID(pendingPrefix + uuid.NewString())
}

func ConfirmedID(serverID int64) RecordID {
	return RecordID(strconv.FormatInt(serverID, 10))
}

func (id RecordID) State() IDState {
	switch {
	case id == "":
		return IDStateNone
	case strings.HasPrefix(string(id), pendingPrefix):
		return IDStatePending
	default:
		return IDStateConfirmed
	}
}

func (id RecordID) IsZero() bool      { return id == "" }
func (id RecordID) IsPending() bool   { return id.State() == IDStatePending }
func (id RecordID) IsConfirmed() bool { return id.State() == IDStateConfirmed }
func (id RecordID) String() string    { return string(id) }

// IDMap maps pending identifiers to their confirmed replacements.
type IDMap map[RecordID]RecordID

// Rewrite replaces *id in place when it is mapped. It reports whether a rewrite happened.
func (m IDMap) Rewrite(id *RecordID) bool {
	if id == nil || !id.IsPending() {
		return false
	}
	if to, ok := m[*id]; ok {
		*id = to
		return true
	}
	return false
}
