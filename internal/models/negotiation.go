package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/gigmarket/backend/internal/apperr"
)

// Negotiation states
const (
	NegotiationStatusPendingArtist    = "pending_artist_response"
	NegotiationStatusPendingOrganizer = "pending_organizer_response"
	NegotiationStatusAccepted         = "accepted"
	NegotiationStatusDeclined         = "declined"
	NegotiationStatusExpired          = "expired"
)

const (
	// MaxNegotiationRounds caps offer/counter-offer exchanges.
	MaxNegotiationRounds = 3

	// CounterFeeTolerancePct bounds how far a counter-offer fee may
	// deviate from the application's original proposed fee.
	CounterFeeTolerancePct = 20
)

// Terms is the negotiable part of a booking. The event date is carried
// for context but is immutable across rounds.
type Terms struct {
	Fee          decimal.Decimal `json:"fee"`
	Currency     string          `json:"currency"`
	SlotCategory string          `json:"slot_category"`
	EventDate    time.Time       `json:"event_date"`
}

// Offer is one entry in the negotiation history.
type Offer struct {
	Round   int       `json:"round"`
	By      Party     `json:"by"`
	Terms   Terms     `json:"terms"`
	MadeAt  time.Time `json:"made_at"`
	Message *string   `json:"message,omitempty"`
}

type Negotiation struct {
	ID            uuid.UUID       `json:"id"`
	ApplicationID uuid.UUID       `json:"application_id"`
	ArtistID      uuid.UUID       `json:"artist_id"`
	OrganizerID   uuid.UUID       `json:"organizer_id"`
	Round         int             `json:"round"`
	Status        string          `json:"status"`
	LastOfferBy   Party           `json:"last_offer_by"`
	CurrentTerms  Terms           `json:"current_terms"`
	OriginalFee   decimal.Decimal `json:"original_fee"`
	History       []Offer         `json:"history"`
	Deadline      time.Time       `json:"deadline"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (n *Negotiation) IsTerminal() bool {
	switch n.Status {
	case NegotiationStatusAccepted, NegotiationStatusDeclined, NegotiationStatusExpired:
		return true
	}
	return false
}

// TurnOf returns the party whose response is awaited.
func (n *Negotiation) TurnOf() Party {
	if n.Status == NegotiationStatusPendingArtist {
		return PartyArtist
	}
	return PartyOrganizer
}

// CheckTurn verifies the negotiation is live, not past its deadline,
// and that it is actor's turn. A lapsed deadline surfaces as
// DeadlineExceeded; the caller transitions the record to expired.
func (n *Negotiation) CheckTurn(actor Party, now time.Time) error {
	if n.IsTerminal() {
		return apperr.State("negotiation is %s", n.Status)
	}
	if now.After(n.Deadline) {
		return apperr.DeadlineExceeded("negotiation response window lapsed at %s", n.Deadline.Format(time.RFC3339))
	}
	if !actor.CanRespond() {
		return apperr.State("party %s does not take part in negotiations", actor)
	}
	if n.TurnOf() != actor {
		return apperr.State("it is not %s's turn to respond", actor)
	}
	return nil
}

// ValidateCounter checks proposed terms against the negotiation rules:
// round cap, fee tolerance around the original proposed fee, slot
// adjacency, and event-date immutability.
func (n *Negotiation) ValidateCounter(proposed Terms) error {
	if n.Round >= MaxNegotiationRounds {
		return apperr.LimitExceeded("negotiation round limit of %d reached", MaxNegotiationRounds)
	}
	if proposed.Fee.LessThanOrEqual(decimal.Zero) {
		return apperr.Validation("counter-offer fee must be positive")
	}
	if proposed.Currency != n.CurrentTerms.Currency {
		return apperr.Validation("currency cannot change mid-negotiation")
	}
	tolerance := n.OriginalFee.Mul(decimal.NewFromInt(CounterFeeTolerancePct)).Div(decimal.NewFromInt(100))
	diff := proposed.Fee.Sub(n.OriginalFee).Abs()
	if diff.GreaterThan(tolerance) {
		return apperr.Validation("counter-offer fee %s deviates more than %d%% from original %s",
			proposed.Fee.String(), CounterFeeTolerancePct, n.OriginalFee.String())
	}
	if !SlotsAdjacent(n.CurrentTerms.SlotCategory, proposed.SlotCategory) {
		return apperr.Validation("slot change from %s to %s is not adjacent",
			n.CurrentTerms.SlotCategory, proposed.SlotCategory)
	}
	if !proposed.EventDate.Equal(n.CurrentTerms.EventDate) {
		return apperr.Validation("event date is immutable during negotiation")
	}
	return nil
}

// ApplyCounter records a validated counter-offer: bumps the round,
// appends history, flips the turn, and resets the deadline.
func (n *Negotiation) ApplyCounter(actor Party, proposed Terms, message *string, now time.Time, window time.Duration) {
	n.Round++
	n.CurrentTerms = proposed
	n.LastOfferBy = actor
	n.History = append(n.History, Offer{
		Round:   n.Round,
		By:      actor,
		Terms:   proposed,
		MadeAt:  now,
		Message: message,
	})
	if actor == PartyArtist {
		n.Status = NegotiationStatusPendingOrganizer
	} else {
		n.Status = NegotiationStatusPendingArtist
	}
	n.Deadline = now.Add(window)
	n.UpdatedAt = now
}
