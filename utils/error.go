package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrorRecordNotFound = errors.New("record not found")
	ErrAuthExpired      = errors.New("session expired")
)

// ValidationError rejects a mutation before anything is written or queued.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed: " + e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	msg := e.Message
	if msg == "" {
		msg = "invalid input"
	}
	return fmt.Sprintf("validation failed: %s (%s)", msg, strings.Join(parts, ", "))
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// TransientNetworkError means the remote store could not be reached; the entry stays queued.
type TransientNetworkError struct {
	Err error
}

func (e *TransientNetworkError) Error() string { return "remote unreachable: " + e.Err.Error() }
func (e *TransientNetworkError) Unwrap() error { return e.Err }

// AuthExpiredError is returned to the session layer instead of being retried.
type AuthExpiredError struct {
	Status int
}

func (e *AuthExpiredError) Error() string {
	return fmt.Sprintf("remote rejected credentials (status %d)", e.Status)
}
func (e *AuthExpiredError) Unwrap() error { return ErrAuthExpired }

// RemoteRejectionError is a domain refusal; the entry is dropped from the queue.
type RemoteRejectionError struct {
	Status int
	Code   string
	Reason string
}

func (e *RemoteRejectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("remote rejected (%d %s): %s", e.Status, e.Code, e.Reason)
	}
	return fmt.Sprintf("remote rejected (%d): %s", e.Status, e.Reason)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsTransient(err error) bool {
	var te *TransientNetworkError
	return errors.As(err, &te)
}

func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

func IsRemoteRejection(err error) bool {
	var re *RemoteRejectionError
	return errors.As(err, &re)
}
