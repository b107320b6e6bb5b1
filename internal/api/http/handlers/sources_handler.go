package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	"github.com/crm-kit/lead-router/internal/service"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

// SourcesHandler manages sources, their routing weights and operator selection.
type SourcesHandler struct {
	catalog      *service.CatalogService
	distribution *service.DistributionService
}

// NewSourcesHandler constructs handler.
func NewSourcesHandler(catalog *service.CatalogService, distribution *service.DistributionService) *SourcesHandler {
	return &SourcesHandler{catalog: catalog, distribution: distribution}
}

// Create POST /sources/.
func (h *SourcesHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSourceRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	src, err := h.catalog.CreateSource(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSourceResponse(src)})
}

// List GET /sources/.
func (h *SourcesHandler) List(c *fiber.Ctx) error {
	sources, err := h.catalog.ListSources(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SourceResponse, 0, len(sources))
	for i := range sources {
		items = append(items, dto.NewSourceResponse(&sources[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Configure POST /sources/:id/config with a JSON array of weights.
func (h *SourcesHandler) Configure(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req []dto.SourceWeightRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if len(req) == 0 {
		return apperrors.NewValidationError("at least one weight required", nil)
	}
	weights := make([]service.WeightInput, 0, len(req))
	for i := range req {
		if err := dto.Validate(&req[i]); err != nil {
			return err
		}
		weights = append(weights, service.WeightInput{OperatorID: req[i].OperatorID, Weight: *req[i].Weight})
	}
	links, err := h.catalog.ConfigureSourceWeights(c.UserContext(), id, weights)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "updated", "data": dto.NewSourceLinkResponses(links)})
}

// Links GET /sources/:id/config.
func (h *SourcesHandler) Links(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	links, err := h.catalog.SourceLinks(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSourceLinkResponses(links)})
}

// Assign GET /sources/:id/assign selects an operator without recording it.
func (h *SourcesHandler) Assign(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	operatorID, err := h.distribution.Assign(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignResponse{OperatorID: operatorID}})
}
