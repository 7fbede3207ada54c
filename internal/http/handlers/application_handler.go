package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/http/dto"
	"github.com/gigmarket/backend/internal/middleware"
	"github.com/gigmarket/backend/internal/repositories"
	"github.com/gigmarket/backend/internal/services"
)

type ApplicationHandler struct {
	applicationService *services.ApplicationService
	log                *zap.Logger
}

func NewApplicationHandler(applicationService *services.ApplicationService, log *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{applicationService: applicationService, log: log}
}

func (h *ApplicationHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}
	opportunityID, err := uuid.Parse(req.OpportunityID)
	if err != nil {
		return badRequest(c, "invalid opportunity_id")
	}

	app, err := h.applicationService.Submit(c.Context(), middleware.GetUserID(c), services.SubmitApplicationInput{
		OpportunityID: opportunityID,
		ProposedFee:   req.ProposedFee,
		Message:       req.Message,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, app)
}

func (h *ApplicationHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	app, err := h.applicationService.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, app)
}

// ListMine lists the calling artist's applications.
func (h *ApplicationHandler) ListMine(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	filter := repositories.ApplicationFilter{ArtistID: &userID}
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

	apps, err := h.applicationService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list applications failed", zap.Error(err))
		return fail(c, err)
	}
	return ok(c, apps)
}

func (h *ApplicationHandler) Shortlist(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	app, err := h.applicationService.Shortlist(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, app)
}

func (h *ApplicationHandler) Decline(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	app, err := h.applicationService.Decline(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, app)
}

// Accept selects the artist and opens the booking.
func (h *ApplicationHandler) Accept(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	booking, err := h.applicationService.Accept(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return created(c, booking)
}

// Counter opens a negotiation with the organizer's counter-offer.
func (h *ApplicationHandler) Counter(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	var req dto.CounterOfferRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	neg, err := h.applicationService.Counter(c.Context(), id, middleware.GetUserID(c), services.CounterOfferInput{
		Fee:          req.Fee,
		SlotCategory: req.SlotCategory,
		Message:      req.Message,
	})
	if err != nil {
		return fail(c, err)
	}
	return created(c, neg)
}

func (h *ApplicationHandler) Withdraw(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid application id")
	}
	app, err := h.applicationService.Withdraw(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, app)
}
