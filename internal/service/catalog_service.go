package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/repository"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

// CatalogService manages operators, sources, routing weights and closing
// of interactions.
type CatalogService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// OperatorInput creates an operator.
type OperatorInput struct {
	Name     string
	MaxLoad  int
	IsActive *bool
}

// OperatorPatch updates the provided fields only.
type OperatorPatch struct {
	Name     *string
	MaxLoad  *int
	IsActive *bool
}

// WeightInput sets one operator's share of a source.
type WeightInput struct {
	OperatorID int64
	Weight     int
}

// NewCatalogService creates the service.
func NewCatalogService(store repository.Store, dispatcher events.Dispatcher, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{store: store, dispatcher: dispatcher, logger: logger, now: time.Now}
}

// CreateOperator registers an operator. MaxLoad zero means the default capacity.
func (s *CatalogService) CreateOperator(ctx context.Context, input OperatorInput) (*domain.Operator, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	maxLoad := input.MaxLoad
	if maxLoad == 0 {
		maxLoad = domain.DefaultMaxLoad
	}
	if maxLoad < 0 {
		return nil, apperrors.NewValidationError("max_load must be positive", map[string]any{"max_load": input.MaxLoad})
	}
	op := &domain.Operator{Name: name, MaxLoad: maxLoad, IsActive: true}
	if input.IsActive != nil {
		op.IsActive = *input.IsActive
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Operators().Create(ctx, op)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("operator created", zap.Int64("operator_id", op.ID), zap.Int("max_load", op.MaxLoad))
	s.publishOperatorChanged(ctx, op)
	return op, nil
}

// ListOperators returns every operator ordered by id.
func (s *CatalogService) ListOperators(ctx context.Context) ([]domain.Operator, error) {
	var ops []domain.Operator
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		ops, err = tx.Operators().List(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return ops, nil
}

// GetOperator loads one operator.
func (s *CatalogService) GetOperator(ctx context.Context, id int64) (*domain.Operator, error) {
	var op *domain.Operator
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		op, err = tx.Operators().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "operator", map[string]any{"operator_id": id})
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return op, nil
}

// UpdateOperator applies patch. Deactivating an operator keeps its open
// interactions but removes it from future selection.
func (s *CatalogService) UpdateOperator(ctx context.Context, id int64, patch OperatorPatch) (*domain.Operator, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, apperrors.NewValidationError("name must not be empty", nil)
	}
	if patch.MaxLoad != nil && *patch.MaxLoad <= 0 {
		return nil, apperrors.NewValidationError("max_load must be positive", map[string]any{"max_load": *patch.MaxLoad})
	}

	var op *domain.Operator
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		op, err = tx.Operators().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "operator", map[string]any{"operator_id": id})
		}
		if patch.Name != nil {
			op.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.MaxLoad != nil {
			op.MaxLoad = *patch.MaxLoad
		}
		if patch.IsActive != nil {
			op.IsActive = *patch.IsActive
		}
		return tx.Operators().Update(ctx, op)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishOperatorChanged(ctx, op)
	return op, nil
}

// CreateSource registers a lead source. Names are unique.
func (s *CatalogService) CreateSource(ctx context.Context, name string) (*domain.Source, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	src := &domain.Source{Name: name}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Sources().Create(ctx, src)
	})
	if errors.Is(err, repository.ErrDuplicateKey) {
		return nil, apperrors.NewConflict("source already exists", map[string]any{"name": name})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return src, nil
}

// ListSources returns every source ordered by id.
func (s *CatalogService) ListSources(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		sources, err = tx.Sources().List(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return sources, nil
}

// ConfigureSourceWeights upserts the given links. Either every link is
// written or none is.
func (s *CatalogService) ConfigureSourceWeights(ctx context.Context, sourceID int64, weights []WeightInput) ([]domain.SourceOperatorLink, error) {
	if len(weights) == 0 {
		return nil, apperrors.NewValidationError("at least one weight required", nil)
	}
	seen := make(map[int64]struct{}, len(weights))
	for _, w := range weights {
		if w.Weight < 0 {
			return nil, apperrors.NewValidationError("weight must not be negative", map[string]any{"operator_id": w.OperatorID, "weight": w.Weight})
		}
		if _, dup := seen[w.OperatorID]; dup {
			return nil, apperrors.NewValidationError("operator listed twice", map[string]any{"operator_id": w.OperatorID})
		}
		seen[w.OperatorID] = struct{}{}
	}

	var links []domain.SourceOperatorLink
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureSource(ctx, tx, sourceID); err != nil {
			return err
		}
		for _, w := range weights {
			if _, err := tx.Operators().GetByID(ctx, w.OperatorID); err != nil {
				return notFoundOr(err, "operator", map[string]any{"operator_id": w.OperatorID})
			}
			link := domain.SourceOperatorLink{SourceID: sourceID, OperatorID: w.OperatorID, Weight: w.Weight}
			if err := tx.Sources().UpsertLink(ctx, link); err != nil {
				return referenceError(err)
			}
		}
		var err error
		links, err = tx.Sources().ListLinks(ctx, sourceID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("source weights configured", zap.Int64("source_id", sourceID), zap.Int("links", len(weights)))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventSourceConfigured, events.SourceConfiguredPayload{
			SourceID: sourceID,
			Links:    len(links),
		}))
	}
	return links, nil
}

// SourceLinks lists the routing links of a source.
func (s *CatalogService) SourceLinks(ctx context.Context, sourceID int64) ([]domain.SourceOperatorLink, error) {
	var links []domain.SourceOperatorLink
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureSource(ctx, tx, sourceID); err != nil {
			return err
		}
		var err error
		links, err = tx.Sources().ListLinks(ctx, sourceID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return links, nil
}

// CloseInteraction moves an open interaction to closed, freeing operator
// capacity. Closing an already closed interaction returns it unchanged.
func (s *CatalogService) CloseInteraction(ctx context.Context, id int64) (*domain.Interaction, error) {
	var (
		it      *domain.Interaction
		changed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		it, err = tx.Interactions().GetByID(ctx, id)
		if err != nil {
			return notFoundOr(err, "interaction", map[string]any{"interaction_id": id})
		}
		if it.Status == domain.InteractionStatusClosed {
			return nil
		}
		err = tx.Interactions().Close(ctx, id, s.now().UTC())
		if errors.Is(err, pgx.ErrNoRows) {
			// closed by a concurrent request
			it, err = tx.Interactions().GetByID(ctx, id)
			return err
		}
		if err != nil {
			return fmt.Errorf("close interaction: %w", err)
		}
		changed = true
		it, err = tx.Interactions().GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if changed && s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventInteractionClosed, events.InteractionClosedPayload{
			InteractionID: it.ID,
			OperatorID:    it.OperatorID,
		}))
	}
	return it, nil
}

func (s *CatalogService) publishOperatorChanged(ctx context.Context, op *domain.Operator) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventOperatorChanged, events.OperatorChangedPayload{
		OperatorID: op.ID,
		IsActive:   op.IsActive,
		MaxLoad:    op.MaxLoad,
	}))
}
