package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Booking statuses
const (
	BookingStatusPendingContract = "pending_contract"
	BookingStatusContractSent    = "contract_sent"
	BookingStatusAwaitingDeposit = "awaiting_deposit"
	BookingStatusDepositPaid     = "deposit_paid"
	BookingStatusConfirmed       = "confirmed"
	BookingStatusInProgress      = "in_progress"
	BookingStatusCompleted       = "completed"
	BookingStatusCancelled       = "cancelled"
	BookingStatusDisputed        = "disputed"
)

// Valid booking transitions: from -> []to. Cancelled and disputed are
// reachable from every non-terminal state.
var ValidBookingTransitions = map[string][]string{
	BookingStatusPendingContract: {BookingStatusContractSent, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusContractSent:    {BookingStatusAwaitingDeposit, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusAwaitingDeposit: {BookingStatusDepositPaid, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusDepositPaid:     {BookingStatusConfirmed, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusConfirmed:       {BookingStatusInProgress, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusInProgress:      {BookingStatusCompleted, BookingStatusCancelled, BookingStatusDisputed},
	BookingStatusCompleted:       {},
	BookingStatusCancelled:       {},
	BookingStatusDisputed:        {BookingStatusCompleted, BookingStatusCancelled},
}

func IsValidBookingTransition(from, to string) bool {
	for _, s := range ValidBookingTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func IsBookingTerminal(status string) bool {
	return status == BookingStatusCompleted || status == BookingStatusCancelled
}

type Booking struct {
	ID            uuid.UUID       `json:"id"`
	OpportunityID uuid.UUID       `json:"opportunity_id"`
	ApplicationID uuid.UUID       `json:"application_id"`
	ArtistID      uuid.UUID       `json:"artist_id"`
	OrganizerID   uuid.UUID       `json:"organizer_id"`
	VenueID       *uuid.UUID      `json:"venue_id,omitempty"`
	EventDate     time.Time       `json:"event_date"`
	SlotCategory  string          `json:"slot_category"`
	AgreedFee     decimal.Decimal `json:"agreed_fee"`
	Currency      string          `json:"currency"`
	// CommissionBPS is locked at contract signing and never
	// recalculated, even if the artist's tier later changes.
	CommissionBPS int    `json:"commission_bps"`
	Status        string `json:"status"`
	// Version backs the optimistic concurrency check on every
	// mutating operation against the booking.
	Version int `json:"version"`

	ArtistConfirmedAt    *time.Time `json:"artist_confirmed_at,omitempty"`
	OrganizerConfirmedAt *time.Time `json:"organizer_confirmed_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommissionAmount derives the platform commission from the agreed fee
// and the locked basis points.
func (b *Booking) CommissionAmount() decimal.Decimal {
	return b.AgreedFee.Mul(decimal.NewFromInt(int64(b.CommissionBPS))).Div(decimal.NewFromInt(10000)).Round(2)
}

// PartyOf maps a user id to its role on the booking.
func (b *Booking) PartyOf(userID uuid.UUID) (Party, bool) {
	switch userID {
	case b.ArtistID:
		return PartyArtist, true
	case b.OrganizerID:
		return PartyOrganizer, true
	}
	if b.VenueID != nil && *b.VenueID == userID {
		return PartyVenue, true
	}
	return "", false
}

// BothConfirmed reports whether the dual completion confirmation is in.
func (b *Booking) BothConfirmed() bool {
	return b.ArtistConfirmedAt != nil && b.OrganizerConfirmedAt != nil
}

// DaysBeforeEvent is the whole number of days between now and the
// event, floored at zero once the event has started.
func (b *Booking) DaysBeforeEvent(now time.Time) int {
	d := int(b.EventDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
