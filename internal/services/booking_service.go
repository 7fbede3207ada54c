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
	"github.com/gigmarket/backend/internal/policy"
	"github.com/gigmarket/backend/internal/repositories"
)

// BookingService drives a booking through its lifecycle. Writes are
// version-guarded: a stale actor loses the update and retries against
// fresh state.
type BookingService struct {
	bookingRepo     *repositories.BookingRepo
	auditRepo       *repositories.AuditRepo
	trustSvc        *TrustService
	contractSvc     *ContractService
	paymentSvc      *PaymentService
	cancellationSvc *CancellationService
	publisher       events.Publisher
	cfg             *config.Config
	log             *zap.Logger
}

func NewBookingService(
	bookingRepo *repositories.BookingRepo,
	auditRepo *repositories.AuditRepo,
	trustSvc *TrustService,
	contractSvc *ContractService,
	paymentSvc *PaymentService,
	cancellationSvc *CancellationService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo:     bookingRepo,
		auditRepo:       auditRepo,
		trustSvc:        trustSvc,
		contractSvc:     contractSvc,
		paymentSvc:      paymentSvc,
		cancellationSvc: cancellationSvc,
		publisher:       publisher,
		cfg:             cfg,
		log:             log,
	}
}

// CreateFromApplication opens a booking on accepted terms. The
// commission rate is taken from the artist's trust tier at this moment
// and stays fixed for the booking's life.
func (s *BookingService) CreateFromApplication(ctx context.Context, app *models.Application, opp *models.Opportunity, terms models.Terms, actorID uuid.UUID) (*models.Booking, error) {
	artistPolicy, artistTier, err := s.trustSvc.PolicyFor(ctx, app.ArtistID)
	if err != nil {
		return nil, err
	}

	b := &models.Booking{
		OpportunityID: opp.ID,
		ApplicationID: app.ID,
		ArtistID:      app.ArtistID,
		OrganizerID:   opp.OrganizerID,
		VenueID:       opp.VenueID,
		EventDate:     terms.EventDate,
		SlotCategory:  terms.SlotCategory,
		AgreedFee:     terms.Fee,
		Currency:      terms.Currency,
		CommissionBPS: artistPolicy.CommissionBPS,
		Status:        models.BookingStatusPendingContract,
	}
	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   models.ActorTypeUser,
		Action:      "booking_created",
		EntityType:  "booking",
		EntityID:    &b.ID,
		Meta: map[string]any{
			"agreed_fee":     b.AgreedFee.String(),
			"commission_bps": b.CommissionBPS,
			"artist_tier":    artistTier,
		},
	})

	if _, err := s.contractSvc.Generate(ctx, b); err != nil {
		return nil, err
	}

	if err := s.move(ctx, b, models.BookingStatusContractSent, &actorID); err != nil {
		return nil, err
	}
	return b, nil
}

// Get returns the booking if userID is one of its parties.
func (s *BookingService) Get(ctx context.Context, id, userID uuid.UUID) (*models.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, ok := b.PartyOf(userID); !ok {
		return nil, apperr.NotFound("booking not found")
	}
	return b, nil
}

func (s *BookingService) List(ctx context.Context, f repositories.BookingFilter) ([]models.Booking, error) {
	return s.bookingRepo.List(ctx, f)
}

// Cancel applies the penalty tier for the acting party and timing.
func (s *BookingService) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*models.CancellationRecord, error) {
	return s.cancellationSvc.Cancel(ctx, bookingID, actorID, reason)
}

// ConfirmCompletion records one party's sign-off on the performance.
// The second confirmation settles the booking.
func (s *BookingService) ConfirmCompletion(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	party, ok := b.PartyOf(actorID)
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	if !party.CanSign() {
		return nil, apperr.State("party %s cannot confirm completion", party)
	}
	if b.Status != models.BookingStatusInProgress {
		return nil, apperr.State("booking is %s, completion can only be confirmed in progress", b.Status)
	}

	b, err = s.bookingRepo.SetConfirmation(ctx, bookingID, party)
	if err != nil {
		return nil, err
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   models.ActorTypeUser,
		Action:      "completion_confirmed_by_" + string(party),
		EntityType:  "booking",
		EntityID:    &b.ID,
	})

	if b.BothConfirmed() {
		if err := s.complete(ctx, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// complete settles the booking: escrow released, artist paid out, both
// parties credited.
func (s *BookingService) complete(ctx context.Context, b *models.Booking) error {
	if err := s.move(ctx, b, models.BookingStatusCompleted, nil); err != nil {
		return err
	}

	if err := s.paymentSvc.ReleaseAll(ctx, b); err != nil {
		return err
	}

	if _, err := s.trustSvc.ApplyCompletion(ctx, b.ArtistID, b.ID); err != nil {
		s.log.Warn("artist completion credit failed", zap.Error(err))
	}
	if _, err := s.trustSvc.ApplyCompletion(ctx, b.OrganizerID, b.ID); err != nil {
		s.log.Warn("organizer completion credit failed", zap.Error(err))
	}
	return nil
}

// StartDue moves confirmed bookings whose event date has arrived into
// in_progress. Worker sweep; version guards make concurrent runs safe.
func (s *BookingService) StartDue(ctx context.Context) (int, error) {
	due, err := s.bookingRepo.ConfirmedPastEventDate(ctx)
	if err != nil {
		return 0, err
	}
	started := 0
	for i := range due {
		b := &due[i]
		if err := s.move(ctx, b, models.BookingStatusInProgress, nil); err != nil {
			s.log.Warn("starting booking failed",
				zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		started++
	}
	return started, nil
}

// EscalateStale flags in-progress bookings still unconfirmed past the
// completion window as disputed.
func (s *BookingService) EscalateStale(ctx context.Context) (int, error) {
	stale, err := s.bookingRepo.AwaitingConfirmationBeyond(ctx, int(s.cfg.CompletionConfirmWindow.Seconds()))
	if err != nil {
		return 0, err
	}
	escalated := 0
	for i := range stale {
		b := &stale[i]
		if err := s.move(ctx, b, models.BookingStatusDisputed, nil); err != nil {
			s.log.Warn("escalating booking failed",
				zap.String("booking_id", b.ID.String()), zap.Error(err))
			continue
		}
		escalated++
	}
	return escalated, nil
}

// ResolveDispute settles a disputed booking one way or the other.
// Admin-only surface.
func (s *BookingService) ResolveDispute(ctx context.Context, bookingID, adminID uuid.UUID, outcome string) (*models.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusDisputed {
		return nil, apperr.State("booking is %s, not disputed", b.Status)
	}

	switch outcome {
	case models.BookingStatusCompleted:
		if err := s.complete(ctx, b); err != nil {
			return nil, err
		}
	case models.BookingStatusCancelled:
		if _, err := s.cancellationSvc.CancelBySystem(ctx, b.ID, policy.ReasonMutualAgreement); err != nil {
			return nil, err
		}
		b.Status = models.BookingStatusCancelled
	default:
		return nil, apperr.Validation("dispute outcome must be completed or cancelled")
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &adminID,
		ActorType:   models.ActorTypeAdmin,
		Action:      "dispute_resolved_" + outcome,
		EntityType:  "booking",
		EntityID:    &b.ID,
	})
	return b, nil
}

// move performs the transition-table-checked, version-guarded status
// change with audit and event fan-out.
func (s *BookingService) move(ctx context.Context, b *models.Booking, to string, actorID *uuid.UUID) error {
	if !models.IsValidBookingTransition(b.Status, to) {
		return apperr.State("booking cannot go from %s to %s", b.Status, to)
	}
	ok, err := s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, to)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("booking changed concurrently, reload and retry")
	}
	old := b.Status
	b.Status = to
	b.Version++
	b.UpdatedAt = time.Now()

	entry := &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "booking_" + old + "_to_" + to,
		EntityType: "booking",
		EntityID:   &b.ID,
		Meta:       map[string]any{"old_status": old, "new_status": to},
	}
	if actorID != nil {
		entry.ActorUserID = actorID
		entry.ActorType = models.ActorTypeUser
	}
	_ = s.auditRepo.Log(ctx, entry)

	_ = s.publisher.Publish(ctx, events.ChannelBookings, events.Event{
		Type: events.EventBookingStatusChanged,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"old_status": old,
			"new_status": to,
		},
	})
	return nil
}
