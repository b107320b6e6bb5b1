package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	"github.com/crm-kit/lead-router/internal/service"
)

// LeadsHandler exposes lead identity resolution.
type LeadsHandler struct {
	service *service.DistributionService
}

// NewLeadsHandler constructs handler.
func NewLeadsHandler(distribution *service.DistributionService) *LeadsHandler {
	return &LeadsHandler{service: distribution}
}

// Resolve POST /leads/resolve.
func (h *LeadsHandler) Resolve(c *fiber.Ctx) error {
	var req dto.ResolveLeadRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	lead, err := h.service.ResolveLead(c.UserContext(), req.ExternalLeadID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLeadResponse(lead)})
}
