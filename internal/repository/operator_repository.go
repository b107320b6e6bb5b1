package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/crm-kit/lead-router/internal/domain"
)

// OperatorRepository handles persistence for operators.
type OperatorRepository interface {
	Create(ctx context.Context, op *domain.Operator) error
	Update(ctx context.Context, op *domain.Operator) error
	GetByID(ctx context.Context, id int64) (*domain.Operator, error)
	List(ctx context.Context) ([]domain.Operator, error)
	// LoadReport returns every operator with its count of open interactions,
	// computed by a single aggregate query.
	LoadReport(ctx context.Context) ([]domain.OperatorLoad, error)
}

type operatorRepository struct {
	db DBTX
}

// NewOperatorRepository instantiates the repository.
func NewOperatorRepository(db DBTX) OperatorRepository {
	return &operatorRepository{db: db}
}

func (r *operatorRepository) Create(ctx context.Context, op *domain.Operator) error {
	const query = `
        INSERT INTO operators (name, is_active, max_load)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`

	if err := r.db.QueryRow(ctx, query, op.Name, op.IsActive, op.MaxLoad).Scan(&op.ID, &op.CreatedAt); err != nil {
		return fmt.Errorf("insert operator: %w", translateError(err))
	}
	return nil
}

func (r *operatorRepository) Update(ctx context.Context, op *domain.Operator) error {
	const query = `
        UPDATE operators SET name=$1, is_active=$2, max_load=$3
        WHERE id=$4`

	cmd, err := r.db.Exec(ctx, query, op.Name, op.IsActive, op.MaxLoad, op.ID)
	if err != nil {
		return fmt.Errorf("update operator: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *operatorRepository) GetByID(ctx context.Context, id int64) (*domain.Operator, error) {
	const query = `SELECT id, name, is_active, max_load, created_at FROM operators WHERE id=$1`

	var op domain.Operator
	if err := r.db.QueryRow(ctx, query, id).Scan(&op.ID, &op.Name, &op.IsActive, &op.MaxLoad, &op.CreatedAt); err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *operatorRepository) List(ctx context.Context) ([]domain.Operator, error) {
	const query = `SELECT id, name, is_active, max_load, created_at FROM operators ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	defer rows.Close()

	var result []domain.Operator
	for rows.Next() {
		var op domain.Operator
		if err := rows.Scan(&op.ID, &op.Name, &op.IsActive, &op.MaxLoad, &op.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan operator: %w", err)
		}
		result = append(result, op)
	}
	return result, rows.Err()
}

func (r *operatorRepository) LoadReport(ctx context.Context) ([]domain.OperatorLoad, error) {
	const query = `
        SELECT o.id, o.name, o.max_load, o.is_active, COUNT(i.id) AS current_load
        FROM operators o
        LEFT JOIN interactions i
            ON i.operator_id = o.id AND i.status = 'open'
        GROUP BY o.id
        ORDER BY o.id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query operator load: %w", err)
	}
	defer rows.Close()

	result := []domain.OperatorLoad{}
	for rows.Next() {
		var row domain.OperatorLoad
		if err := rows.Scan(&row.OperatorID, &row.Name, &row.MaxLoad, &row.IsActive, &row.CurrentLoad); err != nil {
			return nil, fmt.Errorf("scan operator load: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
