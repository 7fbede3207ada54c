package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
	bookingService *services.BookingService
	log            *zap.Logger
}

func NewPaymentHandler(paymentService *services.PaymentService, bookingService *services.BookingService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, bookingService: bookingService, log: log}
}

// Milestones lists a booking's escrow milestones for its parties.
func (h *PaymentHandler) Milestones(c *fiber.Ctx) error {
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), bookingID, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	milestones, err := h.paymentService.Milestones(c.Context(), bookingID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, milestones)
}

func (h *PaymentHandler) Records(c *fiber.Ctx) error {
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), bookingID, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	records, err := h.paymentService.Records(c.Context(), bookingID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, records)
}

// RequestCharge (re)creates the gateway payment intent for a pending
// milestone so the organizer can pay it.
func (h *PaymentHandler) RequestCharge(c *fiber.Ctx) error {
	milestoneID, err := parseIDParam(c, "milestoneId")
	if err != nil {
		return badRequest(c, "invalid milestone id")
	}
	result, err := h.paymentService.RequestCharge(c.Context(), milestoneID)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, result)
}

// Reconcile re-checks the booking's escrow conservation identity.
func (h *PaymentHandler) Reconcile(c *fiber.Ctx) error {
	bookingID, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), bookingID, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	if err := h.paymentService.Reconcile(c.Context(), bookingID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.Map{"consistent": true})
}
