package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/observability"
)

// MonitoringService reacts to routing events: it logs them, counts
// assignment outcomes and drops the cached load report.
type MonitoringService struct {
	dispatcher events.Dispatcher
	stats      *StatsAggregator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewMonitoringService creates the service.
func NewMonitoringService(dispatcher events.Dispatcher, stats *StatsAggregator, metrics *observability.Metrics, logger *zap.Logger) *MonitoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MonitoringService{
		dispatcher: dispatcher,
		stats:      stats,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (m *MonitoringService) RegisterHandlers() {
	if m.dispatcher == nil {
		return
	}
	m.dispatcher.Subscribe(events.EventInteractionRegistered, m.handleInteractionRegistered)
	m.dispatcher.Subscribe(events.EventInteractionClosed, m.handleInteractionClosed)
	m.dispatcher.Subscribe(events.EventOperatorChanged, m.handleOperatorChanged)
	m.dispatcher.Subscribe(events.EventSourceConfigured, m.handleSourceConfigured)
}

func (m *MonitoringService) handleInteractionRegistered(ctx context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.InteractionRegisteredPayload)
	m.logger.Debug("InteractionRegistered", zap.String("event_id", event.ID), zap.Any("payload", payload))
	m.metrics.RecordAssignment(payload.OperatorID != nil)
	return m.invalidate(ctx)
}

func (m *MonitoringService) handleInteractionClosed(ctx context.Context, event events.Event) error {
	m.logger.Info("InteractionClosed", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	m.metrics.RecordClosed()
	return m.invalidate(ctx)
}

func (m *MonitoringService) handleOperatorChanged(ctx context.Context, event events.Event) error {
	m.logger.Info("OperatorChanged", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return m.invalidate(ctx)
}

func (m *MonitoringService) handleSourceConfigured(_ context.Context, event events.Event) error {
	m.logger.Info("SourceConfigured", zap.String("event_id", event.ID), zap.Any("payload", event.Payload))
	return nil
}

func (m *MonitoringService) invalidate(ctx context.Context) error {
	if m.stats == nil {
		return nil
	}
	return m.stats.Invalidate(ctx)
}
