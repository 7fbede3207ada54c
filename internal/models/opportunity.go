package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity statuses
const (
	OpportunityStatusActive    = "active"
	OpportunityStatusFilled    = "filled"
	OpportunityStatusClosed    = "closed"
	OpportunityStatusCancelled = "cancelled"
)

// Slot categories, ordered. A negotiation may only move a booking to an
// adjacent category.
const (
	SlotMatinee   = "matinee"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
	SlotLateNight = "late_night"
)

var slotOrder = map[string]int{
	SlotMatinee:   0,
	SlotAfternoon: 1,
	SlotEvening:   2,
	SlotLateNight: 3,
}

func IsValidSlotCategory(s string) bool {
	_, ok := slotOrder[s]
	return ok
}

// SlotsAdjacent reports whether two slot categories are the same or
// neighbours in the daily order.
func SlotsAdjacent(a, b string) bool {
	ai, aok := slotOrder[a]
	bi, bok := slotOrder[b]
	if !aok || !bok {
		return false
	}
	d := ai - bi
	return d >= -1 && d <= 1
}

type Opportunity struct {
	ID                  uuid.UUID       `json:"id"`
	OrganizerID         uuid.UUID       `json:"organizer_id"`
	VenueID             *uuid.UUID      `json:"venue_id,omitempty"`
	Title               string          `json:"title"`
	Description         *string         `json:"description,omitempty"`
	EventDate           time.Time       `json:"event_date"`
	SlotCategory        string          `json:"slot_category"`
	BudgetMin           decimal.Decimal `json:"budget_min"`
	BudgetMax           decimal.Decimal `json:"budget_max"`
	Currency            string          `json:"currency"`
	Genres              []string        `json:"genres"`
	ApplicationDeadline time.Time       `json:"application_deadline"`
	Status              string          `json:"status"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// AcceptsApplications reports whether the opportunity can still take
// new applications at now.
func (o *Opportunity) AcceptsApplications(now time.Time) bool {
	return o.Status == OpportunityStatusActive && now.Before(o.ApplicationDeadline)
}
