package repository

import (
	"context"
	"fmt"

	"github.com/crm-kit/lead-router/internal/domain"
)

// SourceRepository handles sources and their routing links.
type SourceRepository interface {
	Create(ctx context.Context, src *domain.Source) error
	GetByID(ctx context.Context, id int64) (*domain.Source, error)
	List(ctx context.Context) ([]domain.Source, error)
	UpsertLink(ctx context.Context, link domain.SourceOperatorLink) error
	ListLinks(ctx context.Context, sourceID int64) ([]domain.SourceOperatorLink, error)
	// LinkedActiveOperators joins the source's links to active operators.
	LinkedActiveOperators(ctx context.Context, sourceID int64) ([]domain.LinkedOperator, error)
}

type sourceRepository struct {
	db DBTX
}

// NewSourceRepository instantiates the repository.
func NewSourceRepository(db DBTX) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) Create(ctx context.Context, src *domain.Source) error {
	const query = `
        INSERT INTO sources (name)
        VALUES ($1)
        RETURNING id, created_at`

	if err := r.db.QueryRow(ctx, query, src.Name).Scan(&src.ID, &src.CreatedAt); err != nil {
		return fmt.Errorf("insert source: %w", translateError(err))
	}
	return nil
}

func (r *sourceRepository) GetByID(ctx context.Context, id int64) (*domain.Source, error) {
	const query = `SELECT id, name, created_at FROM sources WHERE id=$1`

	var src domain.Source
	if err := r.db.QueryRow(ctx, query, id).Scan(&src.ID, &src.Name, &src.CreatedAt); err != nil {
		return nil, err
	}
	return &src, nil
}

func (r *sourceRepository) List(ctx context.Context) ([]domain.Source, error) {
	const query = `SELECT id, name, created_at FROM sources ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var result []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(&src.ID, &src.Name, &src.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		result = append(result, src)
	}
	return result, rows.Err()
}

func (r *sourceRepository) UpsertLink(ctx context.Context, link domain.SourceOperatorLink) error {
	const query = `
        INSERT INTO source_operator_links (source_id, operator_id, weight)
        VALUES ($1,$2,$3)
        ON CONFLICT (source_id, operator_id) DO UPDATE SET weight = EXCLUDED.weight`

	if _, err := r.db.Exec(ctx, query, link.SourceID, link.OperatorID, link.Weight); err != nil {
		return fmt.Errorf("upsert source link: %w", translateError(err))
	}
	return nil
}

func (r *sourceRepository) ListLinks(ctx context.Context, sourceID int64) ([]domain.SourceOperatorLink, error) {
	const query = `
        SELECT source_id, operator_id, weight
        FROM source_operator_links
        WHERE source_id=$1
        ORDER BY operator_id`

	rows, err := r.db.Query(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list source links: %w", err)
	}
	defer rows.Close()

	result := []domain.SourceOperatorLink{}
	for rows.Next() {
		var link domain.SourceOperatorLink
		if err := rows.Scan(&link.SourceID, &link.OperatorID, &link.Weight); err != nil {
			return nil, fmt.Errorf("scan source link: %w", err)
		}
		result = append(result, link)
	}
	return result, rows.Err()
}

func (r *sourceRepository) LinkedActiveOperators(ctx context.Context, sourceID int64) ([]domain.LinkedOperator, error) {
	const query = `
        SELECT l.operator_id, l.weight, o.max_load
        FROM source_operator_links l
        JOIN operators o ON o.id = l.operator_id
        WHERE l.source_id=$1 AND o.is_active
        ORDER BY l.operator_id`

	rows, err := r.db.Query(ctx, query, sourceID)
	if err != nil {
		return nil, fmt.Errorf("query linked operators: %w", err)
	}
	defer rows.Close()

	var result []domain.LinkedOperator
	for rows.Next() {
		var lo domain.LinkedOperator
		if err := rows.Scan(&lo.OperatorID, &lo.Weight, &lo.MaxLoad); err != nil {
			return nil, fmt.Errorf("scan linked operator: %w", err)
		}
		result = append(result, lo)
	}
	return result, rows.Err()
}
