package users

import (
	"time"

	"github.com/google/uuid"
)

// User is the local account record owned by the persistent store.
// Accounts are created either by password registration or by the external
// login confirmation flow.
type User struct {
	ID                uuid.UUID
	Username          string
	Email             string
	EmailConfirmed    bool
	FailedAccessCount int
	LockoutUntil      *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsLockedOut reports whether the account is locked out at the given instant.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}
