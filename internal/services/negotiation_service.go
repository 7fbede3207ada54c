package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type NegotiationService struct {
	negotiationRepo *repositories.NegotiationRepo
	applicationRepo *repositories.ApplicationRepo
	opportunityRepo *repositories.OpportunityRepo
	auditRepo       *repositories.AuditRepo
	bookingSvc      *BookingService
	publisher       events.Publisher
	cfg             *config.Config
	log             *zap.Logger
}

func NewNegotiationService(
	negotiationRepo *repositories.NegotiationRepo,
	applicationRepo *repositories.ApplicationRepo,
	opportunityRepo *repositories.OpportunityRepo,
	auditRepo *repositories.AuditRepo,
	bookingSvc *BookingService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *NegotiationService {
	return &NegotiationService{
		negotiationRepo: negotiationRepo,
		applicationRepo: applicationRepo,
		opportunityRepo: opportunityRepo,
		auditRepo:       auditRepo,
		bookingSvc:      bookingSvc,
		publisher:       publisher,
		cfg:             cfg,
		log:             log,
	}
}

// Open starts a negotiation from the organizer's first counter-offer.
// The counter is validated against the artist's originally proposed
// terms before the record exists.
func (s *NegotiationService) Open(ctx context.Context, app *models.Application, opp *models.Opportunity, proposed models.Terms, message *string) (*models.Negotiation, error) {
	now := time.Now()
	n := &models.Negotiation{
		ApplicationID: app.ID,
		ArtistID:      app.ArtistID,
		OrganizerID:   opp.OrganizerID,
		Round:         0,
		Status:        models.NegotiationStatusPendingArtist,
		LastOfferBy:   models.PartyOrganizer,
		CurrentTerms: models.Terms{
			Fee:          app.ProposedFee,
			Currency:     app.Currency,
			SlotCategory: opp.SlotCategory,
			EventDate:    opp.EventDate,
		},
		OriginalFee: app.ProposedFee,
		Deadline:    now.Add(s.cfg.NegotiationWindow),
	}
	if err := n.ValidateCounter(proposed); err != nil {
		return nil, err
	}
	n.ApplyCounter(models.PartyOrganizer, proposed, message, now, s.cfg.NegotiationWindow)

	if err := s.negotiationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &n.OrganizerID,
		ActorType:   models.ActorTypeUser,
		Action:      "negotiation_opened",
		EntityType:  "negotiation",
		EntityID:    &n.ID,
		Meta:        map[string]any{"application_id": app.ID.String(), "counter_fee": proposed.Fee.String()},
	})
	s.publishStatus(ctx, n, "")
	return n, nil
}

// Accept locks the current terms in and opens the booking.
func (s *NegotiationService) Accept(ctx context.Context, negotiationID, actorID uuid.UUID) (*models.Booking, error) {
	n, actor, err := s.loadForActor(ctx, negotiationID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTurnOrExpire(ctx, n, actor); err != nil {
		return nil, err
	}

	prev := n.Status
	n.Status = models.NegotiationStatusAccepted
	n.UpdatedAt = time.Now()
	ok, err := s.negotiationRepo.SaveFrom(ctx, n, prev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("negotiation changed concurrently, reload and retry")
	}

	app, err := s.applicationRepo.GetByID(ctx, n.ApplicationID)
	if err != nil {
		return nil, err
	}
	opp, err := s.opportunityRepo.GetByID(ctx, app.OpportunityID)
	if err != nil {
		return nil, err
	}

	// The application is the source of truth for whether the offer is
	// still open. Flipping it is the gate: if it already left
	// counter_offered (withdrawn, expired) the accept must not produce
	// a booking, and the negotiation row is rolled back.
	moved, err := s.applicationRepo.UpdateStatusFrom(ctx, app.ID,
		[]string{models.ApplicationStatusCounterOffered}, models.ApplicationStatusAccepted)
	if err == nil && !moved {
		err = apperr.State("application is no longer open, it was withdrawn or closed")
	}
	if err != nil {
		s.rollbackAccept(ctx, n, prev, uuid.Nil)
		return nil, err
	}

	booking, err := s.bookingSvc.CreateFromApplication(ctx, app, opp, n.CurrentTerms, actorID)
	if err != nil {
		s.rollbackAccept(ctx, n, prev, app.ID)
		return nil, err
	}

	if _, err := s.applicationRepo.DeclineSiblings(ctx, opp.ID, app.ID); err != nil {
		s.log.Warn("declining sibling applications failed", zap.Error(err))
	}
	if _, err := s.opportunityRepo.UpdateStatusFrom(ctx, opp.ID,
		[]string{models.OpportunityStatusActive}, models.OpportunityStatusFilled); err != nil {
		s.log.Warn("marking opportunity filled failed", zap.Error(err))
	}

	s.audit(ctx, n, actorID, "negotiation_accepted", map[string]any{
		"agreed_fee": n.CurrentTerms.Fee.String(),
		"booking_id": booking.ID.String(),
	})
	s.publishStatus(ctx, n, prev)
	return booking, nil
}

// Decline ends the negotiation and closes the application.
func (s *NegotiationService) Decline(ctx context.Context, negotiationID, actorID uuid.UUID) (*models.Negotiation, error) {
	n, actor, err := s.loadForActor(ctx, negotiationID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTurnOrExpire(ctx, n, actor); err != nil {
		return nil, err
	}

	prev := n.Status
	n.Status = models.NegotiationStatusDeclined
	n.UpdatedAt = time.Now()
	ok, err := s.negotiationRepo.SaveFrom(ctx, n, prev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("negotiation changed concurrently, reload and retry")
	}

	if _, err := s.applicationRepo.UpdateStatusFrom(ctx, n.ApplicationID,
		[]string{models.ApplicationStatusCounterOffered}, models.ApplicationStatusDeclined); err != nil {
		s.log.Warn("declining negotiated application failed", zap.Error(err))
	}

	s.audit(ctx, n, actorID, "negotiation_declined", nil)
	s.publishStatus(ctx, n, prev)
	return n, nil
}

type CounterInput struct {
	Fee          string
	SlotCategory string
	Message      *string
}

// Counter files the next round's counter-offer.
func (s *NegotiationService) Counter(ctx context.Context, negotiationID, actorID uuid.UUID, in CounterInput) (*models.Negotiation, error) {
	n, actor, err := s.loadForActor(ctx, negotiationID, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.checkTurnOrExpire(ctx, n, actor); err != nil {
		return nil, err
	}

	fee, err := parseAmount(in.Fee)
	if err != nil {
		return nil, apperr.Validation("invalid counter fee: %v", err)
	}
	slot := in.SlotCategory
	if slot == "" {
		slot = n.CurrentTerms.SlotCategory
	}
	proposed := models.Terms{
		Fee:          fee,
		Currency:     n.CurrentTerms.Currency,
		SlotCategory: slot,
		EventDate:    n.CurrentTerms.EventDate,
	}
	if err := n.ValidateCounter(proposed); err != nil {
		return nil, err
	}

	prev := n.Status
	now := time.Now()
	n.ApplyCounter(actor, proposed, in.Message, now, s.cfg.NegotiationWindow)
	ok, err := s.negotiationRepo.SaveFrom(ctx, n, prev)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("negotiation changed concurrently, reload and retry")
	}

	s.audit(ctx, n, actorID, "negotiation_counter", map[string]any{
		"round": n.Round,
		"fee":   proposed.Fee.String(),
	})
	s.publishStatus(ctx, n, prev)
	return n, nil
}

// CloseForApplication declines whatever live negotiation hangs off the
// application. Called when the artist withdraws mid-negotiation so the
// negotiation cannot be accepted against a closed application.
func (s *NegotiationService) CloseForApplication(ctx context.Context, applicationID, actorID uuid.UUID) error {
	n, err := s.negotiationRepo.CloseByApplication(ctx, applicationID)
	if err != nil || n == nil {
		return err
	}
	s.audit(ctx, n, actorID, "negotiation_declined", map[string]any{
		"cause": "application_withdrawn",
	})
	s.publishStatus(ctx, n, "")
	return nil
}

func (s *NegotiationService) Get(ctx context.Context, id uuid.UUID) (*models.Negotiation, error) {
	return s.negotiationRepo.GetByID(ctx, id)
}

func (s *NegotiationService) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*models.Negotiation, error) {
	return s.negotiationRepo.GetByApplicationID(ctx, applicationID)
}

// ExpireDue sweeps negotiations past their response deadline and
// closes the underlying applications. Called from the worker; safe to
// run concurrently because the expiry update is status-guarded.
func (s *NegotiationService) ExpireDue(ctx context.Context) (int, error) {
	expired, err := s.negotiationRepo.ExpireDue(ctx)
	if err != nil {
		return 0, err
	}
	for i := range expired {
		n := &expired[i]
		if _, err := s.applicationRepo.UpdateStatusFrom(ctx, n.ApplicationID,
			[]string{models.ApplicationStatusCounterOffered}, models.ApplicationStatusExpired); err != nil {
			s.log.Warn("expiring negotiated application failed",
				zap.String("negotiation_id", n.ID.String()), zap.Error(err))
		}
		s.audit(ctx, n, uuid.Nil, "negotiation_expired", map[string]any{
			"deadline": n.Deadline,
		})
		s.publishStatus(ctx, n, "")
	}
	return len(expired), nil
}

// rollbackAccept undoes the status flips of a failed Accept. Passing
// uuid.Nil for appID skips the application leg when it never moved.
func (s *NegotiationService) rollbackAccept(ctx context.Context, n *models.Negotiation, prevStatus string, appID uuid.UUID) {
	if appID != uuid.Nil {
		if _, err := s.applicationRepo.UpdateStatusFrom(ctx, appID,
			[]string{models.ApplicationStatusAccepted}, models.ApplicationStatusCounterOffered); err != nil {
			s.log.Warn("reverting application after failed accept", zap.Error(err))
		}
	}
	n.Status = prevStatus
	if _, err := s.negotiationRepo.SaveFrom(ctx, n, models.NegotiationStatusAccepted); err != nil {
		s.log.Warn("reverting negotiation after failed accept", zap.Error(err))
	}
}

// checkTurnOrExpire validates the actor's turn; a lapsed deadline
// flips the record to expired before the error is returned.
func (s *NegotiationService) checkTurnOrExpire(ctx context.Context, n *models.Negotiation, actor models.Party) error {
	err := n.CheckTurn(actor, time.Now())
	if apperr.IsKind(err, apperr.KindDeadline) {
		if mErr := s.negotiationRepo.MarkExpired(ctx, n.ID); mErr != nil {
			s.log.Warn("marking negotiation expired failed", zap.Error(mErr))
		}
		if _, aErr := s.applicationRepo.UpdateStatusFrom(ctx, n.ApplicationID,
			[]string{models.ApplicationStatusCounterOffered}, models.ApplicationStatusExpired); aErr != nil {
			s.log.Warn("expiring negotiated application failed", zap.Error(aErr))
		}
	}
	return err
}

func (s *NegotiationService) loadForActor(ctx context.Context, negotiationID, actorID uuid.UUID) (*models.Negotiation, models.Party, error) {
	n, err := s.negotiationRepo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, "", err
	}
	switch actorID {
	case n.ArtistID:
		return n, models.PartyArtist, nil
	case n.OrganizerID:
		return n, models.PartyOrganizer, nil
	}
	return nil, "", apperr.NotFound("negotiation not found")
}

func (s *NegotiationService) audit(ctx context.Context, n *models.Negotiation, actorID uuid.UUID, action string, meta map[string]any) {
	entry := &models.AuditLog{
		ActorType:  models.ActorTypeUser,
		Action:     action,
		EntityType: "negotiation",
		EntityID:   &n.ID,
		Meta:       meta,
	}
	if actorID == uuid.Nil {
		entry.ActorType = models.ActorTypeWorker
	} else {
		entry.ActorUserID = &actorID
	}
	_ = s.auditRepo.Log(ctx, entry)
}

func (s *NegotiationService) publishStatus(ctx context.Context, n *models.Negotiation, old string) {
	_ = s.publisher.Publish(ctx, events.ChannelNegotiations, events.Event{
		Type: events.EventNegotiationStatusChanged,
		Payload: map[string]any{
			"negotiation_id": n.ID.String(),
			"application_id": n.ApplicationID.String(),
			"old_status":     old,
			"new_status":     n.Status,
			"round":          n.Round,
		},
	})
}
