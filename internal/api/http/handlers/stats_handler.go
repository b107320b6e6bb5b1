package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	"github.com/crm-kit/lead-router/internal/observability"
	"github.com/crm-kit/lead-router/internal/service"
)

// StatsHandler serves the load report and process counters.
type StatsHandler struct {
	service *service.DistributionService
	metrics *observability.Metrics
}

// NewStatsHandler constructs handler.
func NewStatsHandler(distribution *service.DistributionService, metrics *observability.Metrics) *StatsHandler {
	return &StatsHandler{service: distribution, metrics: metrics}
}

// Stats GET /stats/.
func (h *StatsHandler) Stats(c *fiber.Ctx) error {
	report, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorLoadResponses(report)})
}

// Metrics GET /metrics.
func (h *StatsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(h.metrics.Snapshot())
}
