package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/events"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type PaymentService struct {
	paymentRepo   *repositories.PaymentRepo
	bookingRepo   *repositories.BookingRepo
	contractRepo  *repositories.ContractRepo
	auditRepo     *repositories.AuditRepo
	gatewayClient *GatewayClient
	publisher     events.Publisher
	cfg           *config.Config
	log           *zap.Logger
}

func NewPaymentService(
	paymentRepo *repositories.PaymentRepo,
	bookingRepo *repositories.BookingRepo,
	contractRepo *repositories.ContractRepo,
	auditRepo *repositories.AuditRepo,
	gatewayClient *GatewayClient,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo:   paymentRepo,
		bookingRepo:   bookingRepo,
		contractRepo:  contractRepo,
		auditRepo:     auditRepo,
		gatewayClient: gatewayClient,
		publisher:     publisher,
		cfg:           cfg,
		log:           log,
	}
}

// InitializePlan opens the booking's escrow milestones from the frozen
// contract terms and requests the deposit charge intent. A gateway
// outage does not fail the plan; the intent can be requested again.
func (s *PaymentService) InitializePlan(ctx context.Context, b *models.Booking, depositPct int) error {
	milestones := models.MilestonePlan(b, depositPct)

	depositDue := time.Now().Add(s.cfg.DepositDueWindow)
	balanceDue := b.EventDate.AddDate(0, 0, -s.cfg.BalanceDueBeforeEventDays)
	for i := range milestones {
		switch milestones[i].Kind {
		case models.MilestoneKindDeposit:
			milestones[i].DueDate = &depositDue
		case models.MilestoneKindBalance:
			milestones[i].DueDate = &balanceDue
		}
	}

	if err := s.paymentRepo.CreatePlan(ctx, milestones, b.AgreedFee); err != nil {
		return err
	}

	for i := range milestones {
		if milestones[i].Kind == models.MilestoneKindDeposit {
			if _, err := s.RequestCharge(ctx, milestones[i].ID); err != nil {
				s.log.Warn("deposit charge intent failed, will retry on demand",
					zap.String("milestone_id", milestones[i].ID.String()), zap.Error(err))
			}
		}
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "payment_plan_created",
		EntityType: "booking",
		EntityID:   &b.ID,
		Meta:       map[string]any{"deposit_pct": depositPct, "agreed_fee": b.AgreedFee.String()},
	})
	return nil
}

// RequestCharge creates (or recreates) a gateway charge intent for a
// pending milestone. The idempotency key pins the intent to the
// milestone so retries cannot double-charge.
func (s *PaymentService) RequestCharge(ctx context.Context, milestoneID uuid.UUID) (*ChargeIntentResult, error) {
	m, err := s.paymentRepo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if m.EscrowStatus != models.EscrowStatusPending {
		return nil, apperr.State("milestone %s is %s, no charge needed", m.ID, m.EscrowStatus)
	}
	if !m.Escrowed() {
		return nil, apperr.State("commission is settled from the payout, not charged")
	}

	result, err := s.gatewayClient.CreateChargeIntent(ctx, m.ID.String(), m.Amount, m.Currency,
		fmt.Sprintf("%s for booking %s", m.Kind, m.BookingID))
	if err != nil {
		return nil, err
	}
	if err := s.paymentRepo.SetIntentID(ctx, m.ID, result.IntentID); err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmPayment applies a gateway payment confirmation. Redelivered
// confirmations with the same gateway tx id are no-ops. A confirmed
// deposit advances the booking to confirmed once the contract is fully
// executed.
func (s *PaymentService) ConfirmPayment(ctx context.Context, milestoneID uuid.UUID, amount, currency, gatewayTxID string) (*models.PaymentMilestone, error) {
	amt, err := parseAmount(amount)
	if err != nil {
		return nil, apperr.Validation("invalid payment amount: %v", err)
	}

	m, applied, err := s.paymentRepo.RecordCharge(ctx, milestoneID, amt, currency, gatewayTxID)
	if err != nil {
		return nil, err
	}
	if !applied {
		s.log.Info("duplicate payment confirmation ignored",
			zap.String("milestone_id", milestoneID.String()),
			zap.String("gateway_tx_id", gatewayTxID),
		)
		return m, nil
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "payment_recorded",
		EntityType: "milestone",
		EntityID:   &m.ID,
		Meta:       map[string]any{"kind": m.Kind, "amount": amt.String(), "gateway_tx_id": gatewayTxID},
	})
	_ = s.publisher.Publish(ctx, events.ChannelPayments, events.Event{
		Type: events.EventPaymentRecorded,
		Payload: map[string]any{
			"booking_id":   m.BookingID.String(),
			"milestone_id": m.ID.String(),
			"kind":         m.Kind,
			"amount":       amt.String(),
		},
	})

	if m.Kind == models.MilestoneKindDeposit {
		if err := s.onDepositHeld(ctx, m.BookingID); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// onDepositHeld walks the booking through deposit_paid and, when the
// contract is fully executed, on to confirmed.
func (s *PaymentService) onDepositHeld(ctx context.Context, bookingID uuid.UUID) error {
	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.Status != models.BookingStatusAwaitingDeposit {
		return apperr.State("booking is %s, deposit was not awaited", b.Status)
	}

	ok, err := s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, models.BookingStatusDepositPaid)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("booking changed concurrently, reload and retry")
	}
	old := b.Status
	b.Status = models.BookingStatusDepositPaid
	b.Version++
	s.publishBooking(ctx, b.ID, old, b.Status)

	c, err := s.contractRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return err
	}
	if c.Status != models.ContractStatusFullyExecuted {
		s.log.Warn("deposit held before contract execution, booking stays deposit_paid",
			zap.String("booking_id", bookingID.String()),
			zap.String("contract_status", c.Status),
		)
		return nil
	}

	ok, err = s.bookingRepo.UpdateStatusVersioned(ctx, b.ID, b.Version, models.BookingStatusConfirmed)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Conflict("booking changed concurrently, reload and retry")
	}
	s.publishBooking(ctx, b.ID, models.BookingStatusDepositPaid, models.BookingStatusConfirmed)
	return nil
}

// ReleaseAll settles every held milestone of the booking to the payout
// side and pays the artist out net of commission. Called on completion.
func (s *PaymentService) ReleaseAll(ctx context.Context, b *models.Booking) error {
	milestones, err := s.paymentRepo.ListMilestones(ctx, b.ID)
	if err != nil {
		return err
	}

	released := decimal.Zero
	for i := range milestones {
		m := &milestones[i]
		switch {
		case m.Escrowed() && m.EscrowStatus == models.EscrowStatusHeld:
			if _, err := s.paymentRepo.Release(ctx, m.ID); err != nil {
				return err
			}
			released = released.Add(m.Amount)
		case !m.Escrowed() && m.EscrowStatus == models.EscrowStatusPending:
			// Commission settles against the payout.
			if _, err := s.paymentRepo.Release(ctx, m.ID); err != nil {
				return err
			}
		}
	}

	payout := released.Sub(b.CommissionAmount())
	if payout.IsPositive() {
		if _, err := s.gatewayClient.Payout(ctx, b.ID.String(), b.ArtistID.String(), payout, b.Currency); err != nil {
			s.log.Error("artist payout failed, funds remain released in ledger",
				zap.String("booking_id", b.ID.String()), zap.Error(err))
		}
	}

	_ = s.auditRepo.Log(ctx, &models.AuditLog{
		ActorType:  models.ActorTypeSystem,
		Action:     "escrow_released",
		EntityType: "booking",
		EntityID:   &b.ID,
		Meta:       map[string]any{"released": released.String(), "payout": payout.String()},
	})
	_ = s.publisher.Publish(ctx, events.ChannelPayments, events.Event{
		Type: events.EventEscrowReleased,
		Payload: map[string]any{
			"booking_id": b.ID.String(),
			"released":   released.String(),
			"payout":     payout.String(),
		},
	})
	return nil
}

// RefundMilestone returns part of a held milestone to the organizer
// through the gateway and records the split in the ledger. A zero
// refund means the whole amount settles on the release side; no money
// moves back, so the gateway is not involved at all.
func (s *PaymentService) RefundMilestone(ctx context.Context, m *models.PaymentMilestone, refundAmount decimal.Decimal, reason string) (*models.PaymentMilestone, error) {
	if refundAmount.IsZero() {
		return s.paymentRepo.Release(ctx, m.ID)
	}

	txID := fmt.Sprintf("refund:%s", m.ID)
	if m.GatewayIntentID != nil {
		if result, err := s.gatewayClient.Refund(ctx, m.ID.String(), *m.GatewayIntentID, refundAmount, m.Currency); err != nil {
			s.log.Error("gateway refund failed, ledger not touched",
				zap.String("milestone_id", m.ID.String()), zap.Error(err))
			return nil, err
		} else {
			txID = result.RefundTxID
		}
	}

	updated, err := s.paymentRepo.Refund(ctx, m.ID, refundAmount, txID, &reason)
	if err != nil {
		return nil, err
	}

	_ = s.publisher.Publish(ctx, events.ChannelPayments, events.Event{
		Type: events.EventEscrowRefunded,
		Payload: map[string]any{
			"booking_id":   m.BookingID.String(),
			"milestone_id": m.ID.String(),
			"refunded":     refundAmount.String(),
			"reason":       reason,
		},
	})
	return updated, nil
}

// PayoutCompensation disburses an artist's cancellation compensation.
// The ledger already carries the released allocation; the payout key is
// derived from the booking so a retried cancellation cannot pay twice.
func (s *PaymentService) PayoutCompensation(ctx context.Context, b *models.Booking, amount decimal.Decimal) {
	if !amount.IsPositive() {
		return
	}
	if _, err := s.gatewayClient.Payout(ctx, "cancellation:"+b.ID.String(), b.ArtistID.String(), amount, b.Currency); err != nil {
		s.log.Error("compensation payout failed, funds remain released in ledger",
			zap.String("booking_id", b.ID.String()), zap.Error(err))
	}
}

func (s *PaymentService) Milestones(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentMilestone, error) {
	return s.paymentRepo.ListMilestones(ctx, bookingID)
}

func (s *PaymentService) Records(ctx context.Context, bookingID uuid.UUID) ([]models.PaymentRecord, error) {
	return s.paymentRepo.ListRecords(ctx, bookingID)
}

// Reconcile re-reads the booking's ledger and re-checks the escrow
// conservation identity on demand.
func (s *PaymentService) Reconcile(ctx context.Context, bookingID uuid.UUID) error {
	milestones, err := s.paymentRepo.ListMilestones(ctx, bookingID)
	if err != nil {
		return err
	}
	records, err := s.paymentRepo.ListRecords(ctx, bookingID)
	if err != nil {
		return err
	}
	return models.Reconcile(milestones, records)
}

// OverdueMilestones lists pending milestones past their due date, for
// the worker's payment reminders.
func (s *PaymentService) OverdueMilestones(ctx context.Context) ([]models.PaymentMilestone, error) {
	return s.paymentRepo.DueReminders(ctx)
}

func (s *PaymentService) publishBooking(ctx context.Context, bookingID uuid.UUID, from, to string) {
	_ = s.publisher.Publish(ctx, events.ChannelBookings, events.Event{
		Type: events.EventBookingStatusChanged,
		Payload: map[string]any{
			"booking_id": bookingID.String(),
			"old_status": from,
			"new_status": to,
		},
	})
}
