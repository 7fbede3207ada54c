package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/policy"
	"github.com/gigmarket/backend/internal/repositories"
)

type CancellationService struct {
	cancellationRepo *repositories.CancellationRepo
	bookingRepo      *repositories.BookingRepo
	opportunityRepo  *repositories.OpportunityRepo
	contractRepo     *repositories.ContractRepo
	auditRepo        *repositories.AuditRepo
	paymentSvc       *PaymentService
	trustSvc         *TrustService
	publisher        events.Publisher
	log              *zap.Logger
}

func NewCancellationService(
	cancellationRepo *repositories.CancellationRepo,
	bookingRepo *repositories.BookingRepo,
	opportunityRepo *repositories.OpportunityRepo,
	contractRepo *repositories.ContractRepo,
	auditRepo *repositories.AuditRepo,
	paymentSvc *PaymentService,
	trustSvc *TrustService,
	publisher events.Publisher,
	log *zap.Logger,
) *CancellationService {
	return &CancellationService{
		cancellationRepo: cancellationRepo,
		bookingRepo:      bookingRepo,
		opportunityRepo:  opportunityRepo,
		contractRepo:     contractRepo,
		auditRepo:        auditRepo,
		paymentSvc:       paymentSvc,
		trustSvc:         trustSvc,
		publisher:        publisher,
		log:              log,
	}
}

// Cancel tears a booking down under the penalty tier for the actor and
// timing. Idempotent: the cancellation record is created first and a
// retry that finds it returns it unchanged.
func (s *CancellationService) Cancel(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (*models.CancellationRecord, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	party, ok := b.PartyOf(actorID)
	if !ok {
		return nil, apperr.NotFound("booking not found")
	}
	if !party.CanCancel() {
		return nil, apperr.State("party %s cannot cancel bookings", party)
	}

	initiated := policy.ReasonOrganizerInitiated
	if party == models.PartyArtist {
		initiated = policy.ReasonArtistInitiated
	}
	switch reason {
	case "":
		reason = initiated
	case initiated, policy.ReasonForceMajeure, policy.ReasonMutualAgreement:
	default:
		return nil, apperr.Validation("cancellation reason %q is not available to %s", reason, party)
	}

	return s.cancel(ctx, b, &actorID, party, reason)
}

// CancelBySystem is the path for cancellations no user initiated, such
// as lapsed contracts or dispute resolutions. Carve-out reasons only;
// nobody's trust score moves.
func (s *CancellationService) CancelBySystem(ctx context.Context, bookingID uuid.UUID, reason string) (*models.CancellationRecord, error) {
	switch reason {
	case policy.ReasonContractExpired, policy.ReasonForceMajeure, policy.ReasonMutualAgreement:
	default:
		return nil, apperr.Validation("reason %q is not a system cancellation reason", reason)
	}
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, b, nil, models.PartyOrganizer, reason)
}

func (s *CancellationService) cancel(ctx context.Context, b *models.Booking, actorID *uuid.UUID, party models.Party, reason string) (*models.CancellationRecord, error) {
	if b.Status == models.BookingStatusCompleted {
		return nil, apperr.State("completed bookings cannot be cancelled")
	}

	// Retry path. An existing record is the idempotency boundary: the
	// penalties it prescribes were computed once and must not be
	// recomputed, but any settlement step a prior attempt left undone
	// still has to run.
	rec, err := s.cancellationRepo.GetByBookingID(ctx, b.ID)
	if err == nil {
		return rec, s.finish(ctx, b, rec)
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	now := time.Now()
	days := b.DaysBeforeEvent(now)
	split := policy.ComputeSplit(string(party), reason, days)

	milestones, err := s.paymentSvc.Milestones(ctx, b.ID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}
	totalHeld := decimal.Zero
	for i := range milestones {
		if milestones[i].Escrowed() && milestones[i].EscrowStatus == models.EscrowStatusHeld {
			totalHeld = totalHeld.Add(milestones[i].Amount)
		}
	}

	refund := pctOf(totalHeld, split.OrganizerRefundPct)
	compensation := pctOf(totalHeld, split.ArtistCompensationPct)
	retained := totalHeld.Sub(refund).Sub(compensation)

	rec = &models.CancellationRecord{
		BookingID:          b.ID,
		CancelledBy:        actorID,
		CancellingParty:    party,
		Reason:             reason,
		DaysBeforeEvent:    days,
		PolicyTier:         split.PolicyTier,
		TotalPaid:          totalHeld,
		OrganizerRefund:    refund,
		ArtistCompensation: compensation,
		PlatformRetained:   retained,
		Currency:           b.Currency,
	}
	if err := s.cancellationRepo.Create(ctx, rec); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			// A concurrent cancellation won; resume its outcome.
			existing, gerr := s.cancellationRepo.GetByBookingID(ctx, b.ID)
			if gerr != nil {
				return nil, gerr
			}
			return existing, s.finish(ctx, b, existing)
		}
		return nil, err
	}

	// One-shot effects, keyed to record creation so a retry cannot
	// apply them twice.
	if split.TrustDelta != 0 {
		penalizedID := b.OrganizerID
		if party == models.PartyArtist {
			penalizedID = b.ArtistID
		}
		if _, err := s.trustSvc.ApplyDelta(ctx, penalizedID, split.TrustDelta, policy.ReasonCancellation, map[string]any{
			"booking_id":  b.ID.String(),
			"policy_tier": split.PolicyTier,
		}); err != nil {
			s.log.Warn("trust penalty failed", zap.Error(err))
		}
	}

	entry := &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "booking_cancelled",
		EntityType: "booking",
		EntityID:   &b.ID,
		Meta: map[string]any{
			"reason":      reason,
			"policy_tier": split.PolicyTier,
			"refund":      refund.String(),
			"retained":    retained.String(),
		},
	}
	if actorID != nil {
		entry.ActorUserID = actorID
		entry.ActorType = models.ActorTypeUser
	}
	_ = s.auditRepo.Log(ctx, entry)

	return rec, s.finish(ctx, b, rec)
}

// finish applies the settlement a cancellation record prescribes. Safe
// to run again after a partial failure: settled milestones, a flipped
// booking, a voided contract, and a reopened opportunity are all
// skipped on the next pass.
func (s *CancellationService) finish(ctx context.Context, b *models.Booking, rec *models.CancellationRecord) error {
	milestones, err := s.paymentSvc.Milestones(ctx, b.ID)
	if err != nil && !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	remaining := models.OutstandingRefund(milestones, rec.OrganizerRefund)
	if err := s.settleLedger(ctx, milestones, remaining, rec.Reason); err != nil {
		return err
	}
	s.paymentSvc.PayoutCompensation(ctx, b, rec.ArtistCompensation)

	if b.Status != models.BookingStatusCancelled {
		if ok, err := s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, models.BookingStatusCancelled); err != nil {
			return err
		} else if !ok {
			s.log.Warn("booking version moved during cancellation, status applied by competitor",
				zap.String("booking_id", b.ID.String()))
		}
		s.publishBooking(ctx, b, models.BookingStatusCancelled)
	}

	s.voidContract(ctx, b.ID, rec.Reason)

	if b.EventDate.After(time.Now()) && rec.Reason != policy.ReasonForceMajeure {
		if _, err := s.opportunityRepo.UpdateStatusFrom(ctx, b.OpportunityID,
			[]string{models.OpportunityStatusFilled}, models.OpportunityStatusActive); err != nil {
			s.log.Warn("reopening opportunity failed", zap.Error(err))
		}
	}
	return nil
}

// settleLedger walks the held milestones allocating the organizer's
// refund first; whatever remains on each milestone is released toward
// compensation and retention. Already-settled milestones are skipped,
// so a resumed cancellation only touches what the prior attempt left.
func (s *CancellationService) settleLedger(ctx context.Context, milestones []models.PaymentMilestone, refundTotal decimal.Decimal, reason string) error {
	shares, err := models.AllocateRefund(milestones, refundTotal)
	if err != nil {
		return err
	}
	for i := range milestones {
		m := &milestones[i]
		if !m.Escrowed() || m.EscrowStatus != models.EscrowStatusHeld {
			continue
		}
		if _, err := s.paymentSvc.RefundMilestone(ctx, m, shares[i], reason); err != nil {
			return err
		}
	}
	return nil
}

func (s *CancellationService) voidContract(ctx context.Context, bookingID uuid.UUID, reason string) {
	c, err := s.contractRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return
	}
	to := models.ContractStatusVoided
	if reason == policy.ReasonContractExpired {
		to = models.ContractStatusExpired
	}
	if _, err := s.contractRepo.UpdateStatusFrom(ctx, c.ID, []string{
		models.ContractStatusDraft,
		models.ContractStatusPendingArtist,
		models.ContractStatusPendingOrganizer,
	}, to); err != nil {
		s.log.Warn("voiding contract failed", zap.Error(err))
	}
}

func (s *CancellationService) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*models.CancellationRecord, error) {
	return s.cancellationRepo.GetByBookingID(ctx, bookingID)
}

// Preview computes the split a cancellation would apply right now,
// without touching anything.
func (s *CancellationService) Preview(ctx context.Context, bookingID, actorID uuid.UUID, reason string) (policy.Split, error) {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return policy.Split{}, err
	}
	party, ok := b.PartyOf(actorID)
	if !ok {
		return policy.Split{}, apperr.NotFound("booking not found")
	}
	if reason == "" {
		reason = policy.ReasonOrganizerInitiated
		if party == models.PartyArtist {
			reason = policy.ReasonArtistInitiated
		}
	}
	return policy.ComputeSplit(string(party), reason, b.DaysBeforeEvent(time.Now())), nil
}

func (s *CancellationService) publishBooking(ctx context.Context, b *models.Booking, to string) {
	_ = s.publisher.Publish(ctx, events.ChannelBookings, events.Event{
		Type: events.EventBookingStatusChanged,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"old_status": b.Status,
			"new_status": to,
		},
	})
}

func pctOf(total decimal.Decimal, pct int) decimal.Decimal {
	if pct == 0 {
		return decimal.Zero
	}
	return total.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
}
