package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	"github.com/crm-kit/lead-router/internal/service"
)

// OperatorsHandler manages operator configuration.
type OperatorsHandler struct {
	service *service.CatalogService
}

// NewOperatorsHandler constructs handler.
func NewOperatorsHandler(catalog *service.CatalogService) *OperatorsHandler {
	return &OperatorsHandler{service: catalog}
}

// Create POST /operators/.
func (h *OperatorsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateOperatorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	input := service.OperatorInput{Name: req.Name, IsActive: req.IsActive}
	if req.MaxLoad != nil {
		input.MaxLoad = *req.MaxLoad
	}
	op, err := h.service.CreateOperator(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewOperatorResponse(op)})
}

// List GET /operators/.
func (h *OperatorsHandler) List(c *fiber.Ctx) error {
	ops, err := h.service.ListOperators(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.OperatorResponse, 0, len(ops))
	for i := range ops {
		items = append(items, dto.NewOperatorResponse(&ops[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /operators/:id.
func (h *OperatorsHandler) Get(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	op, err := h.service.GetOperator(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorResponse(op)})
}

// Update PATCH /operators/:id.
func (h *OperatorsHandler) Update(c *fiber.Ctx) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateOperatorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	op, err := h.service.UpdateOperator(c.UserContext(), id, service.OperatorPatch{
		Name:     req.Name,
		MaxLoad:  req.MaxLoad,
		IsActive: req.IsActive,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorResponse(op)})
}
