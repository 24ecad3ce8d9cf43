package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Promise30/promise-auth/internal/db"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	emailUniqueConstraint = "users_email_lower_unique"
	loginUniqueConstraint = "identities_provider_unique"
)

// PostgresStore is the canonical user store. It relies on the database's own
// unique constraints for email and login uniqueness; application-level
// existence checks are fast paths only.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `
	id, username, email, email_confirmed,
	failed_access_count, lockout_until, created_at, updated_at
`

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.EmailConfirmed,
		&u.FailedAccessCount,
		&u.LockoutUntil,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email))
}

func (s *PostgresStore) FindByLogin(ctx context.Context, provider, providerKey string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN identities i ON i.user_id = u.id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`, provider, providerKey))
}

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, u.Username, u.Email).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)

	if isUniqueViolation(err, emailUniqueConstraint) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *PostgresStore) AddLogin(ctx context.Context, userID uuid.UUID, provider, providerKey string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`, userID, provider, providerKey)

	if isUniqueViolation(err, loginUniqueConstraint) {
		return ErrLoginTaken
	}
	return err
}

func (s *PostgresStore) ConfirmEmail(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email_confirmed = true, updated_at = NOW()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordAccessFailure(ctx context.Context, id uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE users
		SET failed_access_count = failed_access_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING failed_access_count
	`, id).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrNotFound
	}
	return count, err
}

func (s *PostgresStore) ResetAccessFailures(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET failed_access_count = 0, lockout_until = NULL, updated_at = NOW()
		WHERE id = $1
	`, id)
	return err
}

func (s *PostgresStore) SetLockout(ctx context.Context, id uuid.UUID, until time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET lockout_until = $2, updated_at = NOW()
		WHERE id = $1
	`, id, until)
	return err
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == "23505" && (constraint == "" || pqErr.Constraint == constraint)
}
