// internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"storefront/internal/tenant"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Storage struct {
	DB *sql.DB
}

func NewStorage(ctx context.Context, dsn string, opts Options) (*Storage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return &Storage{DB: db}, nil
}

// New wraps an already opened handle, used by tests with sqlmock.
func New(db *sql.DB) *Storage {
	return &Storage{DB: db}
}

func (s *Storage) Close() error {
	return s.DB.Close()
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

// scopeClause appends the tenant filter for column, if the scope is bound.
func scopeClause(scope tenant.Scope, column string, args []any) (string, []any, error) {
	if err := scope.Validate(); err != nil {
		return "", args, err
	}
	if id, ok := scope.StoreID(); ok {
		args = append(args, id)
		return fmt.Sprintf(" AND %s = $%d", column, len(args)), args, nil
	}
	return "", args, nil
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
