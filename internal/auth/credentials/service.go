package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Promise30/promise-auth/internal/db"
	"github.com/Promise30/promise-auth/internal/users"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrLockedOut          = errors.New("account is locked out")
)

// Service handles password registration and sign-in. Passwords live in their
// own table; a user row can exist with external logins only, credentials
// only, or both.
type Service struct {
	db        *db.DB
	users     users.EmailStore
	threshold int
	window    time.Duration
	now       func() time.Time
}

type Config struct {
	DB               *db.DB
	Users            users.EmailStore
	LockoutThreshold int
	LockoutWindow    time.Duration
}

func NewService(cfg Config) *Service {
	return &Service{
		db:        cfg.DB,
		users:     cfg.Users,
		threshold: cfg.LockoutThreshold,
		window:    cfg.LockoutWindow,
		now:       time.Now,
	}
}

// Register finds or creates the user for email and attaches a password to
// it. Registering the email of an account that already has a password
// returns ErrAlreadyRegistered; an account that only has external logins
// simply gains a password.
func (s *Service) Register(ctx context.Context, email, password string) (*users.User, error) {

	// 1. Find or create user by email
	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		u = &users.User{
			Username: email,
			Email:    email,
		}
		err = s.users.Create(ctx, u)
	}
	if err != nil {
		return nil, err
	}

	// 2. Check if credentials already exist
	var exists bool
	err = s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM credentials WHERE user_id = $1
		)
	`, u.ID).Scan(&exists)

	if err != nil {
		return nil, fmt.Errorf("credentials: existence check: %w", err)
	}

	if exists {
		return nil, ErrAlreadyRegistered
	}

	// 3. Hash password
	hash, version, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	// 4. Insert credentials
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, u.ID, hash, version)

	if err != nil {
		return nil, fmt.Errorf("credentials: insert: %w", err)
	}

	return u, nil
}

// Authenticate verifies email+password, enforcing the failed-attempt
// lockout. ErrInvalidCredentials hides whether the account exists.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*users.User, error) {

	u, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if u.IsLockedOut(now) {
		return nil, ErrLockedOut
	}

	var passwordHash string
	err = s.db.QueryRowContext(ctx, `
		SELECT password_hash FROM credentials WHERE user_id = $1
	`, u.ID).Scan(&passwordHash)
	if err != nil {
		// no password row reads the same as a wrong password
		return nil, ErrInvalidCredentials
	}

	if err := VerifyPassword(passwordHash, password); err != nil {
		count, recErr := s.users.RecordAccessFailure(ctx, u.ID)
		if recErr != nil {
			return nil, recErr
		}
		if count >= s.threshold {
			if err := s.users.SetLockout(ctx, u.ID, now.Add(s.window)); err != nil {
				return nil, err
			}
			return nil, ErrLockedOut
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.users.ResetAccessFailures(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}
