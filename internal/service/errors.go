package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrBookingConflict is returned by CreateBooking when the requested stay
// overlaps a booked booking of the same room.
var ErrBookingConflict = errors.New("room already booked for selected dates")

// ValidationError reports malformed input rejected before any transaction
// is opened.  Fields maps the offending field to a message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// TxError wraps a store failure that aborted a booking transaction.  The
// transaction has been rolled back; Retryable is set when the failure was
// lock contention or a deadline, so running the whole operation again is
// safe.
type TxError struct {
	Op        string
	Err       error
	Retryable bool
}

func (e *TxError) Error() string { return fmt.Sprintf("%s: transaction failed: %v", e.Op, e.Err) }

func (e *TxError) Unwrap() error { return e.Err }
