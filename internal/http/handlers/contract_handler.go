package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/services"
)

type ContractHandler struct {
	contractService *services.ContractService
	bookingService  *services.BookingService
	log             *zap.Logger
}

func NewContractHandler(contractService *services.ContractService, bookingService *services.BookingService, log *zap.Logger) *ContractHandler {
	return &ContractHandler{contractService: contractService, bookingService: bookingService, log: log}
}

func (h *ContractHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid contract id")
	}
	contract, err := h.contractService.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if _, err := h.bookingService.Get(c.Context(), contract.BookingID, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, contract)
}

func (h *ContractHandler) GetByBooking(c *fiber.Ctx) error {
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), bookingID, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	contract, err := h.contractService.GetByBooking(c.Context(), bookingID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, contract)
}

func (h *ContractHandler) Sign(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid contract id")
	}
	contract, err := h.contractService.Sign(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, contract)
}

func (h *ContractHandler) Void(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid contract id")
	}
	contract, err := h.contractService.Void(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, contract)
}
