package repository

import (
	"context"
	"fmt"

	"github.com/crm-kit/lead-router/internal/domain"
)

// LeadRepository encapsulates lead persistence.
type LeadRepository interface {
	// Create inserts the lead and fills its generated fields. A concurrent
	// insert of the same external id yields ErrDuplicateKey and leaves the
	// surrounding transaction usable.
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id int64) (*domain.Lead, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Lead, error)
}

type leadRepository struct {
	db DBTX
}

// NewLeadRepository instantiates repository.
func NewLeadRepository(db DBTX) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *domain.Lead) error {
	const query = `
        INSERT INTO leads (external_id)
        VALUES ($1)
        RETURNING id, created_at`

	// A failed statement aborts the whole transaction in postgres; the
	// savepoint confines the unique violation to this insert.
	sp, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin lead savepoint: %w", err)
	}
	defer func() { _ = sp.Rollback(ctx) }()

	if err := sp.QueryRow(ctx, query, lead.ExternalID).Scan(&lead.ID, &lead.CreatedAt); err != nil {
		return translateError(err)
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release lead savepoint: %w", err)
	}
	return nil
}

func (r *leadRepository) GetByID(ctx context.Context, id int64) (*domain.Lead, error) {
	const query = `SELECT id, external_id, created_at FROM leads WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *leadRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Lead, error) {
	const query = `SELECT id, external_id, created_at FROM leads WHERE external_id=$1`
	return r.fetchSingle(ctx, query, externalID)
}

func (r *leadRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Lead, error) {
	var lead domain.Lead
	if err := r.db.QueryRow(ctx, query, arg).Scan(&lead.ID, &lead.ExternalID, &lead.CreatedAt); err != nil {
		return nil, err
	}
	return &lead, nil
}
