package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	"github.com/crm-kit/lead-router/internal/service"
)

// InteractionsHandler manages interaction endpoints.
type InteractionsHandler struct {
	distribution *service.DistributionService
	catalog      *service.CatalogService
}

// NewInteractionsHandler constructs handler.
func NewInteractionsHandler(distribution *service.DistributionService, catalog *service.CatalogService) *InteractionsHandler {
	return &InteractionsHandler{distribution: distribution, catalog: catalog}
}

// Register POST /interactions/.
func (h *InteractionsHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterInteractionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	it, err := h.distribution.RegisterInteraction(c.UserContext(), req.ExternalLeadID, req.SourceID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewInteractionResponse(it)})
}

// Record POST /interactions/record.
func (h *InteractionsHandler) Record(c *fiber.Ctx) error {
	var req dto.RecordInteractionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	it, err := h.distribution.RecordInteraction(c.UserContext(), req.LeadID, req.SourceID, req.OperatorID, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewInteractionResponse(it)})
}

// Close POST /interactions/:id/close.
func (h *InteractionsHandler) Close(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	it, err := h.catalog.CloseInteraction(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewInteractionResponse(it)})
}
