package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type OpportunityService struct {
	opportunityRepo *repositories.OpportunityRepo
	auditRepo       *repositories.AuditRepo
	log             *zap.Logger
}

func NewOpportunityService(
	opportunityRepo *repositories.OpportunityRepo,
	auditRepo *repositories.AuditRepo,
	log *zap.Logger,
) *OpportunityService {
	return &OpportunityService{
		opportunityRepo: opportunityRepo,
		auditRepo:       auditRepo,
		log:             log,
	}
}

type CreateOpportunityInput struct {
	VenueID             *uuid.UUID
	Title               string
	Description         *string
	EventDate           time.Time
	SlotCategory        string
	BudgetMin           string
	BudgetMax           string
	Currency            string
	Genres              []string
	ApplicationDeadline time.Time
}

func (s *OpportunityService) Create(ctx context.Context, organizerID uuid.UUID, in CreateOpportunityInput) (*models.Opportunity, error) {
	if in.Title == "" {
		return nil, apperr.Validation("title is required")
	}
	if !models.IsValidSlotCategory(in.SlotCategory) {
		return nil, apperr.Validation("unknown slot category %q", in.SlotCategory)
	}
	if !in.EventDate.After(time.Now()) {
		return nil, apperr.Validation("event date must be in the future")
	}
	if !in.ApplicationDeadline.Before(in.EventDate) {
		return nil, apperr.Validation("application deadline must precede the event date")
	}

	budgetMin, err := parseAmount(in.BudgetMin)
	if err != nil {
		return nil, apperr.Validation("invalid budget_min: %v", err)
	}
	budgetMax, err := parseAmount(in.BudgetMax)
	if err != nil {
		return nil, apperr.Validation("invalid budget_max: %v", err)
	}
	if budgetMax.LessThan(budgetMin) {
		return nil, apperr.Validation("budget_max must not be below budget_min")
	}

	o := &models.Opportunity{
		OrganizerID:         organizerID,
		VenueID:             in.VenueID,
		Title:               in.Title,
		Description:         in.Description,
		EventDate:           in.EventDate,
		SlotCategory:        in.SlotCategory,
		BudgetMin:           budgetMin,
		BudgetMax:           budgetMax,
		Currency:            in.Currency,
		Genres:              in.Genres,
		ApplicationDeadline: in.ApplicationDeadline,
		Status:              models.OpportunityStatusActive,
	}
	if err := s.opportunityRepo.Create(ctx, o); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &organizerID,
		ActorType:   models.ActorTypeUser,
		Action:      "opportunity_created",
		EntityType:  "opportunity",
		EntityID:    &o.ID,
		Meta:        map[string]any{"title": o.Title, "event_date": o.EventDate},
	})
	return o, nil
}

func (s *OpportunityService) Get(ctx context.Context, id uuid.UUID) (*models.Opportunity, error) {
	return s.opportunityRepo.GetByID(ctx, id)
}

func (s *OpportunityService) List(ctx context.Context, f repositories.OpportunityFilter) ([]models.Opportunity, error) {
	return s.opportunityRepo.List(ctx, f)
}

// Close withdraws an active opportunity from the marketplace.
func (s *OpportunityService) Close(ctx context.Context, id, organizerID uuid.UUID) error {
	o, err := s.opportunityRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.OrganizerID != organizerID {
		return apperr.Validation("only the organizer can close this opportunity")
	}
	ok, err := s.opportunityRepo.UpdateStatusFrom(ctx, id,
		[]string{models.OpportunityStatusActive}, models.OpportunityStatusClosed)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.State("opportunity is %s, only active ones can be closed", o.Status)
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &organizerID,
		ActorType:   models.ActorTypeUser,
		Action:      "opportunity_closed",
		EntityType:  "opportunity",
		EntityID:    &id,
	})
	return nil
}
