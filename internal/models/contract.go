package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

// Contract statuses. The artist signs first, then the organizer.
const (
	ContractStatusDraft            = "draft"
	ContractStatusPendingArtist    = "pending_artist"
	ContractStatusPendingOrganizer = "pending_organizer"
	ContractStatusFullyExecuted    = "fully_executed"
	ContractStatusExpired          = "expired"
	ContractStatusVoided           = "voided"
)

var ValidContractTransitions = map[string][]string{
	ContractStatusDraft:            {ContractStatusPendingArtist, ContractStatusVoided},
	ContractStatusPendingArtist:    {ContractStatusPendingOrganizer, ContractStatusExpired, ContractStatusVoided},
	ContractStatusPendingOrganizer: {ContractStatusFullyExecuted, ContractStatusExpired, ContractStatusVoided},
	ContractStatusFullyExecuted:    {},
	ContractStatusExpired:          {},
	ContractStatusVoided:           {},
}

func IsValidContractTransition(from, to string) bool {
	for _, s := range ValidContractTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ContractTerms is the immutable snapshot generated from the booking
// and both parties' trust tiers.
type ContractTerms struct {
	AgreedFee     decimal.Decimal `json:"agreed_fee"`
	Currency      string          `json:"currency"`
	CommissionBPS int             `json:"commission_bps"`
	DepositPct    int             `json:"deposit_pct"`
	Clauses       []string        `json:"clauses"`
}

type Contract struct {
	ID                uuid.UUID     `json:"id"`
	BookingID         uuid.UUID     `json:"booking_id"`
	Status            string        `json:"status"`
	Terms             ContractTerms `json:"terms"`
	SigningDeadline   time.Time     `json:"signing_deadline"`
	ArtistSignedAt    *time.Time    `json:"artist_signed_at,omitempty"`
	OrganizerSignedAt *time.Time    `json:"organizer_signed_at,omitempty"`
	DocumentURL       *string       `json:"document_url,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// AwaitedSigner returns the party whose signature is pending, or false
// once no signature is awaited.
func (c *Contract) AwaitedSigner() (Party, bool) {
	switch c.Status {
	case ContractStatusPendingArtist:
		return PartyArtist, true
	case ContractStatusPendingOrganizer:
		return PartyOrganizer, true
	}
	return "", false
}

// CheckSignable verifies the signature attempt: the contract is live,
// inside its window, and awaiting exactly this party.
func (c *Contract) CheckSignable(party Party, now time.Time) error {
	if !party.CanSign() {
		return apperr.State("party %s holds no signature slot", party)
	}
	awaited, ok := c.AwaitedSigner()
	if !ok {
		return apperr.State("contract is %s and cannot be signed", c.Status)
	}
	if now.After(c.SigningDeadline) {
		return apperr.DeadlineExceeded("signing window lapsed at %s", c.SigningDeadline.Format(time.RFC3339))
	}
	if awaited != party {
		return apperr.State("contract is awaiting the %s's signature", awaited)
	}
	return nil
}

// IsVoidable reports whether the administrative void escape hatch is
// still legal.
func (c *Contract) IsVoidable() bool {
	switch c.Status {
	case ContractStatusDraft, ContractStatusPendingArtist, ContractStatusPendingOrganizer:
		return true
	}
	return false
}
