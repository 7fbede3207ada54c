package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

// CancellationRecord captures the applied penalty split for a cancelled
// booking. Its existence is the idempotency anchor: a retried
// cancellation finds the record and resumes its settlement rather than
// recomputing the penalties.
type CancellationRecord struct {
	ID              uuid.UUID  `json:"id"`
	BookingID       uuid.UUID  `json:"booking_id"`
	CancelledBy     *uuid.UUID `json:"cancelled_by,omitempty"` // nil for system-driven cancellations
	CancellingParty Party      `json:"cancelling_party"`
	Reason          string     `json:"reason"`
	DaysBeforeEvent int        `json:"days_before_event"`
	PolicyTier      string     `json:"policy_tier"`

	TotalPaid          decimal.Decimal `json:"total_paid"`
	OrganizerRefund    decimal.Decimal `json:"organizer_refund"`
	ArtistCompensation decimal.Decimal `json:"artist_compensation"`
	PlatformRetained   decimal.Decimal `json:"platform_retained"`
	Currency           string          `json:"currency"`

	CreatedAt time.Time `json:"created_at"`
}

// OutstandingRefund returns how much of a recorded organizer refund is
// still owed given the ledger's current state: the recorded amount
// minus what earlier settlement attempts already returned, never
// negative. Zero means the refund side is fully settled.
func OutstandingRefund(milestones []PaymentMilestone, recordedRefund decimal.Decimal) decimal.Decimal {
	remaining := recordedRefund
	for i := range milestones {
		if milestones[i].Escrowed() {
			remaining = remaining.Sub(milestones[i].RefundedAmount)
		}
	}
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// AllocateRefund distributes a refund total across the held escrow
// milestones in ledger order. The returned slice is parallel to
// milestones; non-held and commission entries absorb nothing, and a
// zero share settles entirely on the release side. A total the held
// funds cannot absorb is an escrow integrity error.
func AllocateRefund(milestones []PaymentMilestone, refundTotal decimal.Decimal) ([]decimal.Decimal, error) {
	shares := make([]decimal.Decimal, len(milestones))
	remaining := refundTotal
	for i := range milestones {
		m := &milestones[i]
		if !m.Escrowed() || m.EscrowStatus != EscrowStatusHeld {
			continue
		}
		share := decimal.Min(m.Amount, remaining)
		shares[i] = share
		remaining = remaining.Sub(share)
	}
	if remaining.IsPositive() {
		return nil, apperr.EscrowIntegrity("refund %s exceeds funds held in escrow", refundTotal.String())
	}
	return shares, nil
}
