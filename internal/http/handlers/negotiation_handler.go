package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/http/dto"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/services"
)

type NegotiationHandler struct {
	negotiationService *services.NegotiationService
	log                *zap.Logger
}

func NewNegotiationHandler(negotiationService *services.NegotiationService, log *zap.Logger) *NegotiationHandler {
	return &NegotiationHandler{negotiationService: negotiationService, log: log}
}

func (h *NegotiationHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid negotiation id")
	}
	neg, err := h.negotiationService.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, neg)
}

func (h *NegotiationHandler) Accept(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid negotiation id")
	}
	booking, err := h.negotiationService.Accept(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, booking)
}

func (h *NegotiationHandler) Decline(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid negotiation id")
	}
	neg, err := h.negotiationService.Decline(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, neg)
}

func (h *NegotiationHandler) Counter(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid negotiation id")
	}
	var req dto.CounterOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	neg, err := h.negotiationService.Counter(c.Context(), id, middleware.GetUserID(c), services.CounterInput{
		Fee:          req.Fee,
		SlotCategory: req.SlotCategory,
		Message:      req.Message,
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, neg)
}
