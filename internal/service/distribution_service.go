package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/repository"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

// DistributionService routes leads to operators.
type DistributionService struct {
	store      repository.Store
	registry   *LeadRegistry
	selector   *CandidateSelector
	picker     *WeightedPicker
	recorder   *InteractionRecorder
	stats      *StatsAggregator
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// DistributionDependencies bundles collaborators.
type DistributionDependencies struct {
	Store      repository.Store
	Registry   *LeadRegistry
	Selector   *CandidateSelector
	Picker     *WeightedPicker
	Recorder   *InteractionRecorder
	Stats      *StatsAggregator
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewDistributionService creates the service. Missing collaborators get defaults.
func NewDistributionService(deps DistributionDependencies) *DistributionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &DistributionService{
		store:      deps.Store,
		registry:   deps.Registry,
		selector:   deps.Selector,
		picker:     deps.Picker,
		recorder:   deps.Recorder,
		stats:      deps.Stats,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
	if svc.registry == nil {
		svc.registry = NewLeadRegistry(logger, nil)
	}
	if svc.selector == nil {
		svc.selector = NewCandidateSelector(nil)
	}
	if svc.picker == nil {
		svc.picker = NewWeightedPicker(0)
	}
	if svc.recorder == nil {
		svc.recorder = NewInteractionRecorder()
	}
	if svc.stats == nil {
		svc.stats = NewStatsAggregator(deps.Store, nil, logger)
	}
	return svc
}

// ResolveLead returns the lead for externalID, creating it if needed.
func (s *DistributionService) ResolveLead(ctx context.Context, externalID string) (*domain.Lead, error) {
	var lead *domain.Lead
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		lead, err = s.registry.Resolve(ctx, tx, externalID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return lead, nil
}

// Assign picks an operator for sourceID without recording anything.
// A nil result means no operator currently has capacity.
func (s *DistributionService) Assign(ctx context.Context, sourceID int64) (*int64, error) {
	var chosen *int64
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureSource(ctx, tx, sourceID); err != nil {
			return err
		}
		var err error
		chosen, err = s.choose(ctx, tx, sourceID)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return chosen, nil
}

// RecordInteraction stores an open interaction for an already made decision.
func (s *DistributionService) RecordInteraction(ctx context.Context, leadID, sourceID int64, operatorID *int64, message *string) (*domain.Interaction, error) {
	var it *domain.Interaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := tx.Leads().GetByID(ctx, leadID); err != nil {
			return notFoundOr(err, "lead", map[string]any{"lead_id": leadID})
		}
		if err := ensureSource(ctx, tx, sourceID); err != nil {
			return err
		}
		if operatorID != nil {
			if _, err := tx.Operators().GetByID(ctx, *operatorID); err != nil {
				return notFoundOr(err, "operator", map[string]any{"operator_id": *operatorID})
			}
		}
		var err error
		it, err = s.recorder.Record(ctx, tx, leadID, sourceID, operatorID, message)
		return referenceError(err)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishRegistered(ctx, it)
	return it, nil
}

// RegisterInteraction resolves the lead, selects an operator and records the
// interaction in one unit of work.
func (s *DistributionService) RegisterInteraction(ctx context.Context, externalID string, sourceID int64, message *string) (*domain.Interaction, error) {
	var it *domain.Interaction
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := ensureSource(ctx, tx, sourceID); err != nil {
			return err
		}
		lead, err := s.registry.Resolve(ctx, tx, externalID)
		if err != nil {
			return err
		}
		operatorID, err := s.choose(ctx, tx, sourceID)
		if err != nil {
			return err
		}
		it, err = s.recorder.Record(ctx, tx, lead.ID, sourceID, operatorID, message)
		return referenceError(err)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	fields := []zap.Field{
		zap.Int64("interaction_id", it.ID),
		zap.Int64("lead_id", it.LeadID),
		zap.Int64("source_id", sourceID),
	}
	if it.IsAssigned() {
		s.logger.Info("interaction assigned", append(fields, zap.Int64("operator_id", *it.OperatorID))...)
	} else {
		s.logger.Info("interaction unassigned", fields...)
	}
	s.publishRegistered(ctx, it)
	return it, nil
}

// Stats returns the current load report.
func (s *DistributionService) Stats(ctx context.Context) ([]domain.OperatorLoad, error) {
	report, err := s.stats.Report(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return report, nil
}

func (s *DistributionService) choose(ctx context.Context, tx repository.Tx, sourceID int64) (*int64, error) {
	candidates, err := s.selector.Eligible(ctx, tx, sourceID)
	if err != nil {
		return nil, err
	}
	operatorID, ok := s.picker.Pick(candidates)
	if !ok {
		s.logger.Debug("no operator available", zap.Int64("source_id", sourceID))
		return nil, nil
	}
	return &operatorID, nil
}

func (s *DistributionService) publishRegistered(ctx context.Context, it *domain.Interaction) {
	if s.dispatcher == nil || it == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventInteractionRegistered, events.InteractionRegisteredPayload{
		InteractionID: it.ID,
		LeadID:        it.LeadID,
		SourceID:      it.SourceID,
		OperatorID:    it.OperatorID,
	}))
}

func ensureSource(ctx context.Context, tx repository.Tx, sourceID int64) error {
	if _, err := tx.Sources().GetByID(ctx, sourceID); err != nil {
		return notFoundOr(err, "source", map[string]any{"source_id": sourceID})
	}
	return nil
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

func referenceError(err error) error {
	if errors.Is(err, repository.ErrInvalidReference) {
		return apperrors.NewValidationError("interaction references a missing record", map[string]any{"cause": err.Error()})
	}
	return err
}
