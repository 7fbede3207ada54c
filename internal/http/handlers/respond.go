package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/http/dto"
)

// fail maps a domain error to its HTTP status. Unclassified errors are
// surfaced as 500 without leaking internals.
func fail(c *fiber.Ctx, err error) error {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: msg, Kind: string(apperr.KindOf(err))})
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: data})
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: data})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}

func parseIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}
