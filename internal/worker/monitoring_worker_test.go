package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/observability"
	"github.com/crm-kit/lead-router/internal/service"
)

func TestStartMonitoringWorkerSubscribes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	metrics := observability.NewMetrics()
	StartMonitoringWorker(service.NewMonitoringService(dispatcher, nil, metrics, zap.NewNop()))

	operatorID := int64(4)
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventInteractionRegistered,
		events.InteractionRegisteredPayload{InteractionID: 1, OperatorID: &operatorID})))
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventInteractionRegistered,
		events.InteractionRegisteredPayload{InteractionID: 2})))
	require.NoError(t, dispatcher.Publish(context.Background(), events.NewEvent(events.EventInteractionClosed,
		events.InteractionClosedPayload{InteractionID: 1})))

	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.Assigned)
	assert.Equal(t, int64(1), snap.Unassigned)
	assert.Equal(t, int64(1), snap.ClosedInteracts)
}

func TestStartMonitoringWorkerNil(t *testing.T) {
	assert.NotPanics(t, func() { StartMonitoringWorker(nil) })
}
