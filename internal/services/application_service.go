package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type ApplicationService struct {
	applicationRepo *repositories.ApplicationRepo
	opportunityRepo *repositories.OpportunityRepo
	auditRepo       *repositories.AuditRepo
	trustSvc        *TrustService
	negotiationSvc  *NegotiationService
	bookingSvc      *BookingService
	publisher       events.Publisher
	log             *zap.Logger
}

func NewApplicationService(
	applicationRepo *repositories.ApplicationRepo,
	opportunityRepo *repositories.OpportunityRepo,
	auditRepo *repositories.AuditRepo,
	trustSvc *TrustService,
	negotiationSvc *NegotiationService,
	bookingSvc *BookingService,
	publisher events.Publisher,
	log *zap.Logger,
) *ApplicationService {
	return &ApplicationService{
		applicationRepo: applicationRepo,
		opportunityRepo: opportunityRepo,
		auditRepo:       auditRepo,
		trustSvc:        trustSvc,
		negotiationSvc:  negotiationSvc,
		bookingSvc:      bookingSvc,
		publisher:       publisher,
		log:             log,
	}
}

type SubmitApplicationInput struct {
	OpportunityID uuid.UUID
	ProposedFee   string
	Message       *string
}

// Submit files an artist's application. The pending-applications cap
// for the artist's trust tier is enforced atomically at insert time.
func (s *ApplicationService) Submit(ctx context.Context, artistID uuid.UUID, in SubmitApplicationInput) (*models.Application, error) {
	opp, err := s.opportunityRepo.GetByID(ctx, in.OpportunityID)
	if err != nil {
		return nil, err
	}
	if opp.OrganizerID == artistID {
		return nil, apperr.Validation("cannot apply to your own opportunity")
	}
	if opp.Status != models.OpportunityStatusActive {
		return nil, apperr.State("opportunity is %s, not accepting applications", opp.Status)
	}
	if !opp.AcceptsApplications(time.Now()) {
		return nil, apperr.DeadlineExceeded("application deadline passed at %s",
			opp.ApplicationDeadline.Format(time.RFC3339))
	}

	fee, err := parseAmount(in.ProposedFee)
	if err != nil {
		return nil, apperr.Validation("invalid proposed fee: %v", err)
	}
	if fee.IsZero() {
		return nil, apperr.Validation("proposed fee must be positive")
	}

	booked, err := s.applicationRepo.ArtistBookedOn(ctx, artistID, opp.EventDate.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	if booked {
		return nil, apperr.Conflict("artist already has a booking on %s", opp.EventDate.Format("2006-01-02"))
	}

	tierPolicy, tier, err := s.trustSvc.PolicyFor(ctx, artistID)
	if err != nil {
		return nil, err
	}

	app := &models.Application{
		OpportunityID: opp.ID,
		ArtistID:      artistID,
		ProposedFee:   fee,
		Currency:      opp.Currency,
		Message:       in.Message,
		Status:        models.ApplicationStatusPending,
	}
	if err := s.applicationRepo.CreateWithLimit(ctx, app, tierPolicy.MaxPendingApplications); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &artistID,
		ActorType:   models.ActorTypeUser,
		Action:      "application_submitted",
		EntityType:  "application",
		EntityID:    &app.ID,
		Meta:        map[string]any{"opportunity_id": opp.ID.String(), "proposed_fee": fee.String(), "tier": tier},
	})
	s.publishStatus(ctx, app, "")
	return app, nil
}

// MarkViewed stamps the organizer's first look at an application.
// Already-progressed applications are left alone.
func (s *ApplicationService) MarkViewed(ctx context.Context, appID, organizerID uuid.UUID) error {
	app, opp, err := s.loadForOrganizer(ctx, appID, organizerID)
	if err != nil {
		return err
	}
	_ = opp
	if app.Status != models.ApplicationStatusPending {
		return nil
	}
	_, err = s.applicationRepo.UpdateStatusFrom(ctx, appID,
		[]string{models.ApplicationStatusPending}, models.ApplicationStatusViewed)
	return err
}

// Shortlist marks an application as under serious consideration.
func (s *ApplicationService) Shortlist(ctx context.Context, appID, organizerID uuid.UUID) (*models.Application, error) {
	app, _, err := s.loadForOrganizer(ctx, appID, organizerID)
	if err != nil {
		return nil, err
	}
	return s.move(ctx, app, models.ApplicationStatusShortlisted, organizerID)
}

// Decline rejects an application.
func (s *ApplicationService) Decline(ctx context.Context, appID, organizerID uuid.UUID) (*models.Application, error) {
	app, _, err := s.loadForOrganizer(ctx, appID, organizerID)
	if err != nil {
		return nil, err
	}
	return s.move(ctx, app, models.ApplicationStatusDeclined, organizerID)
}

// Accept selects the artist: the application is accepted, every other
// live application on the opportunity is declined, the opportunity is
// filled, and a booking is opened on the proposed terms.
func (s *ApplicationService) Accept(ctx context.Context, appID, organizerID uuid.UUID) (*models.Booking, error) {
	app, opp, err := s.loadForOrganizer(ctx, appID, organizerID)
	if err != nil {
		return nil, err
	}
	if !models.IsApplicationRespondable(app.Status) {
		return nil, apperr.State("application is %s and cannot be accepted", app.Status)
	}

	terms := models.Terms{
		Fee:          app.ProposedFee,
		Currency:     app.Currency,
		SlotCategory: opp.SlotCategory,
		EventDate:    opp.EventDate,
	}
	booking, err := s.bookingSvc.CreateFromApplication(ctx, app, opp, terms, organizerID)
	if err != nil {
		return nil, err
	}

	if _, err := s.move(ctx, app, models.ApplicationStatusAccepted, organizerID); err != nil {
		return nil, err
	}
	declined, err := s.applicationRepo.DeclineSiblings(ctx, opp.ID, app.ID)
	if err != nil {
		s.log.Warn("declining sibling applications failed", zap.Error(err))
	} else if declined > 0 {
		s.log.Info("declined sibling applications",
			zap.String("opportunity_id", opp.ID.String()),
			zap.Int64("count", declined),
		)
	}
	if _, err := s.opportunityRepo.UpdateStatusFrom(ctx, opp.ID,
		[]string{models.OpportunityStatusActive}, models.OpportunityStatusFilled); err != nil {
		s.log.Warn("marking opportunity filled failed", zap.Error(err))
	}
	return booking, nil
}

type CounterOfferInput struct {
	Fee          string
	SlotCategory string
	Message      *string
}

// Counter opens a negotiation with the organizer's counter-offer as
// round one.
func (s *ApplicationService) Counter(ctx context.Context, appID, organizerID uuid.UUID, in CounterOfferInput) (*models.Negotiation, error) {
	app, opp, err := s.loadForOrganizer(ctx, appID, organizerID)
	if err != nil {
		return nil, err
	}
	if !models.IsApplicationRespondable(app.Status) {
		return nil, apperr.State("application is %s and cannot be countered", app.Status)
	}

	fee, err := parseAmount(in.Fee)
	if err != nil {
		return nil, apperr.Validation("invalid counter fee: %v", err)
	}
	slot := in.SlotCategory
	if slot == "" {
		slot = opp.SlotCategory
	}
	proposed := models.Terms{
		Fee:          fee,
		Currency:     app.Currency,
		SlotCategory: slot,
		EventDate:    opp.EventDate,
	}

	neg, err := s.negotiationSvc.Open(ctx, app, opp, proposed, in.Message)
	if err != nil {
		return nil, err
	}

	if _, err := s.move(ctx, app, models.ApplicationStatusCounterOffered, organizerID); err != nil {
		return nil, err
	}
	return neg, nil
}

// Withdraw lets the artist pull a live application.
func (s *ApplicationService) Withdraw(ctx context.Context, appID, artistID uuid.UUID) (*models.Application, error) {
	app, err := s.applicationRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, err
	}
	if app.ArtistID != artistID {
		return nil, apperr.NotFound("application not found")
	}
	if !models.IsApplicationWithdrawable(app.Status) {
		return nil, apperr.State("application is %s and cannot be withdrawn", app.Status)
	}
	wasCountered := app.Status == models.ApplicationStatusCounterOffered
	withdrawn, err := s.move(ctx, app, models.ApplicationStatusWithdrawn, artistID)
	if err != nil {
		return nil, err
	}
	if wasCountered {
		// The guarded move above already beat any concurrent accept, so
		// from here the negotiation can only close.
		if err := s.negotiationSvc.CloseForApplication(ctx, app.ID, artistID); err != nil {
			s.log.Warn("closing negotiation after withdrawal failed", zap.Error(err))
		}
	}
	return withdrawn, nil
}

func (s *ApplicationService) Get(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return s.applicationRepo.GetByID(ctx, id)
}

func (s *ApplicationService) List(ctx context.Context, f repositories.ApplicationFilter) ([]models.Application, error) {
	return s.applicationRepo.List(ctx, f)
}

// move performs the guarded transition with audit and event fan-out.
func (s *ApplicationService) move(ctx context.Context, app *models.Application, to string, actorID uuid.UUID) (*models.Application, error) {
	if !models.IsValidApplicationTransition(app.Status, to) {
		return nil, apperr.State("application cannot go from %s to %s", app.Status, to)
	}
	ok, err := s.applicationRepo.UpdateStatusFrom(ctx, app.ID, []string{app.Status}, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("application changed concurrently, reload and retry")
	}
	old := app.Status
	app.Status = to

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   models.ActorTypeUser,
		Action:      "application_" + old + "_to_" + to,
		EntityType:  "application",
		EntityID:    &app.ID,
		Meta:        map[string]any{"old_status": old, "new_status": to},
	})
	s.publishStatus(ctx, app, old)
	return app, nil
}

func (s *ApplicationService) publishStatus(ctx context.Context, app *models.Application, old string) {
	_ = s.publisher.Publish(ctx, events.ChannelNegotiations, events.Event{
		Type: events.EventApplicationStatusChanged,
		Payload: map[string]any{
			"application_id": app.ID.String(),
			"artist_id":      app.ArtistID.String(),
			"old_status":     old,
			"new_status":     app.Status,
		},
	})
}

func (s *ApplicationService) loadForOrganizer(ctx context.Context, appID, organizerID uuid.UUID) (*models.Application, *models.Opportunity, error) {
	app, err := s.applicationRepo.GetByID(ctx, appID)
	if err != nil {
		return nil, nil, err
	}
	opp, err := s.opportunityRepo.GetByID(ctx, app.OpportunityID)
	if err != nil {
		return nil, nil, err
	}
	if opp.OrganizerID != organizerID {
		return nil, nil, apperr.NotFound("application not found")
	}
	return app, opp, nil
}
