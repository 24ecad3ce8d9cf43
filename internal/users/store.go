package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("users: not found")

	// These two double as user-facing validation messages on the
	// email-collection form, so they must stay free of internals.
	ErrDuplicateEmail = errors.New("an account with this email already exists")
	ErrLoginTaken     = errors.New("this external login is already linked to another account")
)

// Store is the user persistence contract.
type Store interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByLogin(ctx context.Context, provider, providerKey string) (*User, error)

	// Create persists a new user. The caller sets Username and Email
	// explicitly; ID and timestamps are assigned by the store.
	Create(ctx context.Context, u *User) error

	// AddLogin links (provider, providerKey) to the user. Links are only
	// ever added, never mutated.
	AddLogin(ctx context.Context, userID uuid.UUID, provider, providerKey string) error

	ConfirmEmail(ctx context.Context, id uuid.UUID) error

	// RecordAccessFailure increments the failed sign-in counter and returns
	// the new count.
	RecordAccessFailure(ctx context.Context, id uuid.UUID) (int, error)
	ResetAccessFailures(ctx context.Context, id uuid.UUID) error
	SetLockout(ctx context.Context, id uuid.UUID, until time.Time) error
}

// EmailStore extends Store with case-insensitive email lookup. The external
// login flow cannot work without this capability.
type EmailStore interface {
	Store

	FindByEmail(ctx context.Context, email string) (*User, error)
}

// RequireEmailStore asserts once, at wiring time, that the store supports
// email lookup, instead of discovering a missing capability mid-request.
func RequireEmailStore(s Store) (EmailStore, error) {
	es, ok := s.(EmailStore)
	if !ok {
		return nil, fmt.Errorf("users: store %T does not support email lookup", s)
	}
	return es, nil
}
