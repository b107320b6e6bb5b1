package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrDuplicateKey is returned when an insert violates a uniqueness constraint.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrInvalidReference is returned when a row references a missing parent.
	ErrInvalidReference = errors.New("invalid reference")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// DBTX is the subset of pgx shared by pools and transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Tx exposes repositories bound to a single unit of work.
type Tx interface {
	Leads() LeadRepository
	Operators() OperatorRepository
	Sources() SourceRepository
	Interactions() InteractionRepository
}

// Store opens units of work. The callback's Tx is committed when fn returns
// nil and rolled back on error or panic.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// PostgresStore runs units of work as pgx transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// WithinTx implements Store.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) (err error) {
	if s == nil || s.pool == nil {
		return errors.New("postgres store not configured")
	}
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = pgTx.Rollback(context.Background())
			panic(p)
		}
		if err != nil {
			_ = pgTx.Rollback(context.Background())
			return
		}
		if commitErr := pgTx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("commit tx: %w", commitErr)
		}
	}()

	return fn(ctx, NewTx(pgTx))
}

type boundTx struct {
	leads        LeadRepository
	operators    OperatorRepository
	sources      SourceRepository
	interactions InteractionRepository
}

// NewTx binds every repository to db.
func NewTx(db DBTX) Tx {
	return &boundTx{
		leads:        NewLeadRepository(db),
		operators:    NewOperatorRepository(db),
		sources:      NewSourceRepository(db),
		interactions: NewInteractionRepository(db),
	}
}

func (t *boundTx) Leads() LeadRepository               { return t.leads }
func (t *boundTx) Operators() OperatorRepository       { return t.operators }
func (t *boundTx) Sources() SourceRepository           { return t.sources }
func (t *boundTx) Interactions() InteractionRepository { return t.interactions }

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %w", ErrDuplicateKey, pgErr.ConstraintName, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s: %w", ErrInvalidReference, pgErr.ConstraintName, err)
		}
	}
	return err
}
