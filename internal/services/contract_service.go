package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type ContractService struct {
	contractRepo    *repositories.ContractRepo
	bookingRepo     *repositories.BookingRepo
	opportunityRepo *repositories.OpportunityRepo
	auditRepo       *repositories.AuditRepo
	trustSvc        *TrustService
	paymentSvc      *PaymentService
	documentClient  *DocumentClient
	publisher       events.Publisher
	cfg             *config.Config
	log             *zap.Logger
}

func NewContractService(
	contractRepo *repositories.ContractRepo,
	bookingRepo *repositories.BookingRepo,
	opportunityRepo *repositories.OpportunityRepo,
	auditRepo *repositories.AuditRepo,
	trustSvc *TrustService,
	paymentSvc *PaymentService,
	documentClient *DocumentClient,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *ContractService {
	return &ContractService{
		contractRepo:    contractRepo,
		bookingRepo:     bookingRepo,
		opportunityRepo: opportunityRepo,
		auditRepo:       auditRepo,
		trustSvc:        trustSvc,
		paymentSvc:      paymentSvc,
		documentClient:  documentClient,
		publisher:       publisher,
		cfg:             cfg,
		log:             log,
	}
}

// Generate snapshots the agreed commercial terms into a contract and
// puts it in front of the artist. Commission and deposit percentages
// are frozen here; later trust-tier changes do not touch live
// contracts.
func (s *ContractService) Generate(ctx context.Context, b *models.Booking) (*models.Contract, error) {
	organizerPolicy, organizerTier, err := s.trustSvc.PolicyFor(ctx, b.OrganizerID)
	if err != nil {
		return nil, err
	}

	c := &models.Contract{
		BookingID: b.ID,
		Status:    models.ContractStatusDraft,
		Terms: models.ContractTerms{
			AgreedFee:     b.AgreedFee,
			Currency:      b.Currency,
			CommissionBPS: b.CommissionBPS,
			DepositPct:    organizerPolicy.DepositPct,
			Clauses:       standardClauses(b),
		},
		SigningDeadline: time.Now().Add(s.cfg.ContractSigningWindow),
	}
	if err := s.contractRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	if result, err := s.documentClient.RenderContract(ctx, RenderContractRequest{
		ContractID: c.ID.String(),
		Template:   "booking_contract_v1",
		Fields: map[string]any{
			"agreed_fee":     c.Terms.AgreedFee.String(),
			"currency":       c.Terms.Currency,
			"commission_bps": c.Terms.CommissionBPS,
			"deposit_pct":    c.Terms.DepositPct,
			"event_date":     b.EventDate,
			"clauses":        c.Terms.Clauses,
		},
	}); err != nil {
		s.log.Warn("contract document render failed, signing proceeds without it",
			zap.String("contract_id", c.ID.String()), zap.Error(err))
	} else {
		if err := s.contractRepo.SetDocumentURL(ctx, c.ID, result.DocumentURL); err != nil {
			s.log.Warn("storing document url failed", zap.Error(err))
		} else {
			c.DocumentURL = &result.DocumentURL
		}
	}

	ok, err := s.contractRepo.UpdateStatusFrom(ctx, c.ID,
		[]string{models.ContractStatusDraft}, models.ContractStatusPendingArtist)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("contract changed concurrently")
	}
	c.Status = models.ContractStatusPendingArtist

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "contract_generated",
		EntityType: "contract",
		EntityID:   &c.ID,
		Meta: map[string]any{
			"booking_id":     b.ID.String(),
			"deposit_pct":    c.Terms.DepositPct,
			"organizer_tier": organizerTier,
		},
	})
	s.publishStatus(ctx, c, models.ContractStatusDraft)
	return c, nil
}

// Sign records a party's signature. The artist signs first; the
// organizer's signature executes the contract, which moves the booking
// on to the deposit stage and creates its payment plan.
func (s *ContractService) Sign(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookingRepo.GetByID(ctx, c.BookingID)
	if err != nil {
		return nil, err
	}
	party, ok := b.PartyOf(actorID)
	if !ok {
		return nil, apperr.NotFound("contract not found")
	}

	if err := c.CheckSignable(party, time.Now()); err != nil {
		if apperr.IsKind(err, apperr.KindDeadline) {
			if _, mErr := s.contractRepo.UpdateStatusFrom(ctx, c.ID,
				[]string{models.ContractStatusPendingArtist, models.ContractStatusPendingOrganizer},
				models.ContractStatusExpired); mErr != nil {
				s.log.Warn("marking contract expired failed", zap.Error(mErr))
			}
		}
		return nil, err
	}

	from := c.Status
	to := models.ContractStatusPendingOrganizer
	if party == models.PartyOrganizer {
		to = models.ContractStatusFullyExecuted
	}
	changed, err := s.contractRepo.RecordSignature(ctx, c.ID, party, from, to)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, apperr.Conflict("contract changed concurrently, reload and retry")
	}
	c.Status = to
	now := time.Now()
	if party == models.PartyArtist {
		c.ArtistSignedAt = &now
	} else {
		c.OrganizerSignedAt = &now
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   models.ActorTypeUser,
		Action:      fmt.Sprintf("contract_signed_by_%s", party),
		EntityType:  "contract",
		EntityID:    &c.ID,
		Meta:        map[string]any{"old_status": from, "new_status": to},
	})
	s.publishStatus(ctx, c, from)

	if c.Status == models.ContractStatusFullyExecuted {
		if err := s.onExecuted(ctx, c, b); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// onExecuted advances the booking to the deposit stage and opens the
// escrow milestone plan on the frozen contract terms.
func (s *ContractService) onExecuted(ctx context.Context, c *models.Contract, b *models.Booking) error {
	ok, err := s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, models.BookingStatusAwaitingDeposit)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("booking changed concurrently, reload and retry")
	}
	b.Status = models.BookingStatusAwaitingDeposit
	b.Version++

	if err := s.paymentSvc.InitializePlan(ctx, b, c.Terms.DepositPct); err != nil {
		return err
	}

	_ = s.publisher.Publish(ctx, events.ChannelBookings, events.Event{
		Type: events.EventBookingStatusChanged,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"old_status": models.BookingStatusContractSent,
			"new_status": b.Status,
		},
	})
	return nil
}

// Void abandons an unexecuted contract and releases the booking. No
// funds are held at this stage.
func (s *ContractService) Void(ctx context.Context, contractID, actorID uuid.UUID) (*models.Contract, error) {
	c, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	b, err := s.bookingRepo.GetByID(ctx, c.BookingID)
	if err != nil {
		return nil, err
	}
	if _, ok := b.PartyOf(actorID); !ok {
		return nil, apperr.NotFound("contract not found")
	}
	if !c.IsVoidable() {
		return nil, apperr.State("contract is %s and cannot be voided", c.Status)
	}

	ok, err := s.contractRepo.UpdateStatusFrom(ctx, c.ID,
		[]string{models.ContractStatusDraft, models.ContractStatusPendingArtist, models.ContractStatusPendingOrganizer},
		models.ContractStatusVoided)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict("contract changed concurrently, reload and retry")
	}
	from := c.Status
	c.Status = models.ContractStatusVoided

	if ok, err := s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, models.BookingStatusCancelled); err != nil {
		s.log.Warn("cancelling booking after void failed", zap.Error(err))
	} else if ok {
		s.reopenOpportunity(ctx, b)
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorUserID: &actorID,
		ActorType:   models.ActorTypeUser,
		Action:      "contract_voided",
		EntityType:  "contract",
		EntityID:    &c.ID,
	})
	s.publishStatus(ctx, c, from)
	return c, nil
}

// ExpireDue sweeps contracts past their signing deadline. The caller
// runs the booking-side cancellation cascade on the returned set.
func (s *ContractService) ExpireDue(ctx context.Context) ([]models.Contract, error) {
	expired, err := s.contractRepo.ExpireDue(ctx)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		c := &expired[i]
		_ = s.auditRepo.Log(ctx, &models.AuditLog{
			ActorType:  models.ActorTypeWorker,
			Action:     "contract_expired",
			EntityType: "contract",
			EntityID:   &c.ID,
			Meta:       map[string]any{"signing_deadline": c.SigningDeadline},
		})
		s.publishStatus(ctx, c, "")
	}
	return expired, nil
}

func (s *ContractService) Get(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	return s.contractRepo.GetByID(ctx, id)
}

func (s *ContractService) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*models.Contract, error) {
	return s.contractRepo.GetByBookingID(ctx, bookingID)
}

func (s *ContractService) reopenOpportunity(ctx context.Context, b *models.Booking) {
	if _, err := s.opportunityRepo.UpdateStatusFrom(ctx, b.OpportunityID,
		[]string{models.OpportunityStatusFilled}, models.OpportunityStatusActive); err != nil {
		s.log.Warn("reopening opportunity failed",
			zap.String("opportunity_id", b.OpportunityID.String()), zap.Error(err))
	}
}

func (s *ContractService) publishStatus(ctx context.Context, c *models.Contract, old string) {
	_ = s.publisher.Publish(ctx, events.ChannelBookings, events.Event{
		Type: events.EventContractStatusChanged,
		Payload: map[string]any{
			"contract_id": c.ID.String(),
			"booking_id":  c.BookingID.String(),
			"old_status":  old,
			"new_status":  c.Status,
		},
	})
}

func standardClauses(b *models.Booking) []string {
	return []string{
		fmt.Sprintf("The artist performs on %s in the %s slot.", b.EventDate.Format("2006-01-02"), b.SlotCategory),
		"The deposit is held in escrow until the performance completes.",
		"Cancellation penalties follow the tier published at contract time.",
		fmt.Sprintf("Platform commission of %.2f%% is deducted from the artist payout.", float64(b.CommissionBPS)/100),
	}
}
