// Package audit persists a durable record of unhandled request failures,
// separate from the log stream. Log lines rotate away; audit rows stay
// queryable.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded failure.
type Entry struct {
	ID         uuid.UUID
	Timestamp  time.Time
	Message    string
	StackTrace string
	ErrorType  string
}

// NewEntry builds an entry for err with the stack captured at the failure
// site. Timestamps are UTC so rows compare sanely across hosts.
func NewEntry(err error, stack string) Entry {
	return Entry{
		ID:         uuid.New(),
		Timestamp:  time.Now().UTC(),
		Message:    err.Error(),
		StackTrace: stack,
		ErrorType:  fmt.Sprintf("%T", err),
	}
}

// Store persists entries.
type Store interface {
	Save(ctx context.Context, e Entry) error
}
