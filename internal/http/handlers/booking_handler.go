package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/http/dto"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
	"github.com/gigmarket/backend/internal/services"
)

type BookingHandler struct {
	bookingService      *services.BookingService
	cancellationService *services.CancellationService
	auditRepo           *repositories.AuditRepo
	log                 *zap.Logger
}

func NewBookingHandler(
	bookingService *services.BookingService,
	cancellationService *services.CancellationService,
	auditRepo *repositories.AuditRepo,
	log *zap.Logger,
) *BookingHandler {
	return &BookingHandler{
		bookingService:      bookingService,
		cancellationService: cancellationService,
		auditRepo:           auditRepo,
		log:                 log,
	}
}

func (h *BookingHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	booking, err := h.bookingService.Get(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, booking)
}

func (h *BookingHandler) List(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.BookingFilter{}
	switch middleware.GetRole(c) {
	case models.PartyArtist:
		filter.ArtistID = &userID
	default:
		filter.OrganizerID = &userID
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	bookings, err := h.bookingService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list bookings failed", zap.Error(err))
		return fail(c, err)
	}
	return ok(c, bookings)
}

func (h *BookingHandler) Cancel(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	var req dto.CancelBookingRequest
	if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
		return badRequest(c, "invalid request")
	}

	rec, err := h.bookingService.Cancel(c.Context(), id, middleware.GetUserID(c), req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, rec)
}

// CancelPreview shows the split a cancellation would apply right now.
func (h *BookingHandler) CancelPreview(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	split, err := h.cancellationService.Preview(c.Context(), id, middleware.GetUserID(c), c.Query("reason"))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, split)
}

func (h *BookingHandler) GetCancellation(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	rec, err := h.cancellationService.GetByBooking(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, rec)
}

func (h *BookingHandler) ConfirmCompletion(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	booking, err := h.bookingService.ConfirmCompletion(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, booking)
}

func (h *BookingHandler) ResolveDispute(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	var req dto.ResolveDisputeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	booking, err := h.bookingService.ResolveDispute(c.Context(), id, middleware.GetUserID(c), req.Outcome)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, booking)
}

// Events returns the booking's audit trail.
func (h *BookingHandler) Events(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid booking id")
	}
	if _, err := h.bookingService.Get(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	entries, err := h.auditRepo.ListByEntity(c.Context(), "booking", id, 100)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, entries)
}
