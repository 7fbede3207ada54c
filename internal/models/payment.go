package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

// Milestone kinds
const (
	MilestoneKindDeposit    = "deposit"
	MilestoneKindBalance    = "balance"
	MilestoneKindCommission = "commission"
)

// Escrow statuses for a milestone.
const (
	EscrowStatusPending  = "pending" // not yet funded; outside the ledger identity
	EscrowStatusHeld     = "held"
	EscrowStatusReleased = "released"
	EscrowStatusReturned = "returned"
)

// Payment record kinds. Refund records carry negative amounts.
const (
	PaymentRecordCharge = "charge"
	PaymentRecordRefund = "refund"
)

type PaymentMilestone struct {
	ID        uuid.UUID       `json:"id"`
	BookingID uuid.UUID       `json:"booking_id"`
	Kind      string          `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	DueDate   *time.Time      `json:"due_date,omitempty"`

	EscrowStatus string `json:"escrow_status"`
	// Terminal allocation. For released/returned milestones,
	// ReleasedAmount + RefundedAmount must equal Amount.
	ReleasedAmount decimal.Decimal `json:"released_amount"`
	RefundedAmount decimal.Decimal `json:"refunded_amount"`

	GatewayIntentID *string    `json:"gateway_intent_id,omitempty"`
	FundedAt        *time.Time `json:"funded_at,omitempty"`
	SettledAt       *time.Time `json:"settled_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Escrowed reports whether the milestone takes part in the escrow
// conservation identity. The commission record is the platform's cut
// of the payout, not escrowed organizer money.
func (m *PaymentMilestone) Escrowed() bool {
	return m.Kind != MilestoneKindCommission
}

type PaymentRecord struct {
	ID          uuid.UUID       `json:"id"`
	BookingID   uuid.UUID       `json:"booking_id"`
	MilestoneID uuid.UUID       `json:"milestone_id"`
	Kind        string          `json:"kind"`
	Amount      decimal.Decimal `json:"amount"` // negative for refunds
	Currency    string          `json:"currency"`
	GatewayTxID string          `json:"gateway_tx_id"`
	Reason      *string         `json:"reason,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MilestonePlan derives the escrow milestones and the commission record
// for a booking from its contract terms. deposit + balance always
// equals the agreed fee exactly; rounding residue lands on the balance.
func MilestonePlan(b *Booking, depositPct int) []PaymentMilestone {
	deposit := b.AgreedFee.Mul(decimal.NewFromInt(int64(depositPct))).Div(decimal.NewFromInt(100)).Round(2)
	balance := b.AgreedFee.Sub(deposit)
	return []PaymentMilestone{
		{BookingID: b.ID, Kind: MilestoneKindDeposit, Amount: deposit, Currency: b.Currency, EscrowStatus: EscrowStatusPending},
		{BookingID: b.ID, Kind: MilestoneKindBalance, Amount: balance, Currency: b.Currency, EscrowStatus: EscrowStatusPending},
		{BookingID: b.ID, Kind: MilestoneKindCommission, Amount: b.CommissionAmount(), Currency: b.Currency, EscrowStatus: EscrowStatusPending},
	}
}

// Reconcile checks the escrow conservation identity for one booking:
//
//	Σ(held) + Σ(released) + Σ(returned) == Σ(recorded charges)
//
// along with per-milestone allocation consistency. A violation is an
// escrow integrity error: fatal, surfaced, never silently corrected.
func Reconcile(milestones []PaymentMilestone, payments []PaymentRecord) error {
	charged := decimal.Zero
	refunded := decimal.Zero
	for _, p := range payments {
		if p.Amount.IsNegative() {
			refunded = refunded.Add(p.Amount.Abs())
		} else {
			charged = charged.Add(p.Amount)
		}
	}

	inEscrow := decimal.Zero
	settledOut := decimal.Zero
	for _, m := range milestones {
		if !m.Escrowed() {
			continue
		}
		switch m.EscrowStatus {
		case EscrowStatusPending:
			if !m.ReleasedAmount.IsZero() || !m.RefundedAmount.IsZero() {
				return apperr.EscrowIntegrity("milestone %s is pending but has allocations", m.ID)
			}
		case EscrowStatusHeld:
			if !m.ReleasedAmount.IsZero() || !m.RefundedAmount.IsZero() {
				return apperr.EscrowIntegrity("milestone %s is held but has allocations", m.ID)
			}
			inEscrow = inEscrow.Add(m.Amount)
		case EscrowStatusReleased, EscrowStatusReturned:
			if !m.ReleasedAmount.Add(m.RefundedAmount).Equal(m.Amount) {
				return apperr.EscrowIntegrity("milestone %s allocation %s+%s does not equal amount %s",
					m.ID, m.ReleasedAmount.String(), m.RefundedAmount.String(), m.Amount.String())
			}
			settledOut = settledOut.Add(m.Amount)
		default:
			return apperr.EscrowIntegrity("milestone %s has unknown escrow status %q", m.ID, m.EscrowStatus)
		}
	}

	if !inEscrow.Add(settledOut).Equal(charged) {
		return apperr.EscrowIntegrity("escrow identity broken: held+settled %s != charged %s",
			inEscrow.Add(settledOut).String(), charged.String())
	}

	refundable := decimal.Zero
	for _, m := range milestones {
		if m.Escrowed() {
			refundable = refundable.Add(m.RefundedAmount)
		}
	}
	if !refunded.Equal(refundable) {
		return apperr.EscrowIntegrity("refund records %s do not match refunded allocations %s",
			refunded.String(), refundable.String())
	}
	return nil
}

// ValidateMilestonePlan enforces the creation-time invariant that the
// escrowed deposit and balance sum exactly to the agreed fee.
func ValidateMilestonePlan(milestones []PaymentMilestone, agreedFee decimal.Decimal) error {
	sum := decimal.Zero
	for _, m := range milestones {
		if m.Escrowed() {
			sum = sum.Add(m.Amount)
		}
	}
	if !sum.Equal(agreedFee) {
		return apperr.EscrowIntegrity("milestone amounts %s do not sum to agreed fee %s", sum.String(), agreedFee.String())
	}
	return nil
}
