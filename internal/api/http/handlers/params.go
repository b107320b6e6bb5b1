package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/crm-kit/lead-router/internal/api/dto"
	apperrors "github.com/crm-kit/lead-router/pkg/util"
)

func pathID(c *fiber.Ctx, name string) (int64, error) {
	raw := c.Params(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return id, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(out)
}
