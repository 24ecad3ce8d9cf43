package audit

import (
	"context"
	"fmt"

	"github.com/Promise30/promise-auth/internal/db"
)

type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, created_at, message, stack_trace, error_type)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Timestamp, e.Message, e.StackTrace, e.ErrorType,
	)
	if err != nil {
		return fmt.Errorf("audit: save entry: %w", err)
	}
	return nil
}
