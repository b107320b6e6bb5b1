package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/crm-kit/lead-router/internal/domain"
)

// InteractionRepository encapsulates interaction persistence.
type InteractionRepository interface {
	Create(ctx context.Context, it *domain.Interaction) error
	GetByID(ctx context.Context, id int64) (*domain.Interaction, error)
	// Close moves an open interaction to closed. It returns pgx.ErrNoRows
	// when no open interaction with that id exists.
	Close(ctx context.Context, id int64, at time.Time) error
	// OpenCountByOperator counts open interactions per operator. Operators
	// without open interactions are absent from the map.
	OpenCountByOperator(ctx context.Context) (map[int64]int, error)
}

type interactionRepository struct {
	db DBTX
}

// NewInteractionRepository instantiates repository.
func NewInteractionRepository(db DBTX) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Create(ctx context.Context, it *domain.Interaction) error {
	const query = `
        INSERT INTO interactions (lead_id, source_id, operator_id, status, message)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`

	if err := r.db.QueryRow(ctx, query,
		it.LeadID,
		it.SourceID,
		it.OperatorID,
		it.Status,
		it.Message,
	).Scan(&it.ID, &it.CreatedAt); err != nil {
		return fmt.Errorf("insert interaction: %w", translateError(err))
	}
	return nil
}

func (r *interactionRepository) GetByID(ctx context.Context, id int64) (*domain.Interaction, error) {
	const query = `
        SELECT id, lead_id, source_id, operator_id, status, message, created_at, closed_at
        FROM interactions WHERE id=$1`

	var it domain.Interaction
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&it.ID,
		&it.LeadID,
		&it.SourceID,
		&it.OperatorID,
		&it.Status,
		&it.Message,
		&it.CreatedAt,
		&it.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *interactionRepository) Close(ctx context.Context, id int64, at time.Time) error {
	const query = `
        UPDATE interactions SET status='closed', closed_at=$1
        WHERE id=$2 AND status='open'`

	cmd, err := r.db.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("close interaction: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *interactionRepository) OpenCountByOperator(ctx context.Context) (map[int64]int, error) {
	const query = `
        SELECT operator_id, COUNT(id)
        FROM interactions
        WHERE status='open' AND operator_id IS NOT NULL
        GROUP BY operator_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query open load: %w", err)
	}
	defer rows.Close()

	load := make(map[int64]int)
	for rows.Next() {
		var (
			operatorID int64
			count      int
		)
		if err := rows.Scan(&operatorID, &count); err != nil {
			return nil, fmt.Errorf("scan open load: %w", err)
		}
		load[operatorID] = count
	}
	return load, rows.Err()
}
