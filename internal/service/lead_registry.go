package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/domain"
	"github.com/crm-kit/lead-router/internal/observability"
	"github.com/crm-kit/lead-router/internal/repository"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

// LeadRegistry maps external lead identifiers to durable leads.
type LeadRegistry struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewLeadRegistry creates the registry.
func NewLeadRegistry(logger *zap.Logger, metrics *observability.Metrics) *LeadRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadRegistry{logger: logger, metrics: metrics}
}

// Resolve returns the lead for externalID, creating it on first sight.
// Concurrent callers racing on the same identifier all receive the single
// stored row; the uniqueness conflict is absorbed by re-reading.
// externalID is opaque and stored exactly as given.
func (r *LeadRegistry) Resolve(ctx context.Context, tx repository.Tx, externalID string) (*domain.Lead, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, apperrors.NewValidationError("external_lead_id required", nil)
	}

	leads := tx.Leads()
	lead, err := leads.GetByExternalID(ctx, externalID)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lookup lead: %w", err)
	}

	lead = &domain.Lead{ExternalID: externalID}
	err = leads.Create(ctx, lead)
	if err == nil {
		return lead, nil
	}
	if !errors.Is(err, repository.ErrDuplicateKey) {
		return nil, fmt.Errorf("create lead: %w", err)
	}

	r.logger.Debug("lead created concurrently, re-reading", zap.String("external_id", externalID))
	r.metrics.RecordLeadConflict()

	existing, err := leads.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("reload lead after conflict: %w", err)
	}
	return existing, nil
}
