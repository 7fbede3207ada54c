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

type OpportunityHandler struct {
	opportunityService *services.OpportunityService
	applicationService *services.ApplicationService
	log                *zap.Logger
}

func NewOpportunityHandler(
	opportunityService *services.OpportunityService,
	applicationService *services.ApplicationService,
	log *zap.Logger,
) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService: opportunityService,
		applicationService: applicationService,
		log:                log,
	}
}

func (h *OpportunityHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateOpportunityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request")
	}

	in := services.CreateOpportunityInput{
		Title:               req.Title,
		Description:         req.Description,
		EventDate:           req.EventDate,
		SlotCategory:        req.SlotCategory,
		BudgetMin:           req.BudgetMin,
		BudgetMax:           req.BudgetMax,
		Currency:            req.Currency,
		Genres:              req.Genres,
		ApplicationDeadline: req.ApplicationDeadline,
	}
	if req.VenueID != nil {
		venueID, err := uuid.Parse(*req.VenueID)
		if err != nil {
			return badRequest(c, "invalid venue_id")
		}
		in.VenueID = &venueID
	}

	opp, err := h.opportunityService.Create(c.Context(), middleware.GetUserID(c), in)
	if err != nil {
		return fail(c, err)
	}
	return created(c, opp)
}

func (h *OpportunityHandler) Get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid opportunity id")
	}
	opp, err := h.opportunityService.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, opp)
}

func (h *OpportunityHandler) List(c *fiber.Ctx) error {
	filter := repositories.OpportunityFilter{}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("genre"); v != "" {
		filter.Genre = &v
	}
	if v := c.Query("organizer_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return badRequest(c, "invalid organizer_id")
		}
		filter.OrganizerID = &id
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

	opps, err := h.opportunityService.List(c.Context(), filter)
	if err != nil {
		h.log.Error("list opportunities failed", zap.Error(err))
		return fail(c, err)
	}
	return ok(c, opps)
}

func (h *OpportunityHandler) Close(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid opportunity id")
	}
	if err := h.opportunityService.Close(c.Context(), id, middleware.GetUserID(c)); err != nil {
		return fail(c, err)
	}
	return ok(c, nil)
}

// Applications lists the applications on one of the caller's
// opportunities.
func (h *OpportunityHandler) Applications(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return badRequest(c, "invalid opportunity id")
	}
	opp, err := h.opportunityService.Get(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if opp.OrganizerID != middleware.GetUserID(c) {
		return badRequest(c, "not your opportunity")
	}

	apps, err := h.applicationService.List(c.Context(), repositories.ApplicationFilter{OpportunityID: &id})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, apps)
}
