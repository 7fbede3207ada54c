package dto

import "time"

type RegisterRequest struct {
	Email       string  `json:"email"`
	Password    string  `json:"password"`
	DisplayName *string `json:"display_name"`
	Role        string  `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateOpportunityRequest struct {
	VenueID             *string   `json:"venue_id"`
	Title               string    `json:"title"`
	Description         *string   `json:"description"`
	EventDate           time.Time `json:"event_date"`
	SlotCategory        string    `json:"slot_category"`
	BudgetMin           string    `json:"budget_min"`
	BudgetMax           string    `json:"budget_max"`
	Currency            string    `json:"currency"`
	Genres              []string  `json:"genres"`
	ApplicationDeadline time.Time `json:"application_deadline"`
}

type SubmitApplicationRequest struct {
	OpportunityID string  `json:"opportunity_id"`
	ProposedFee   string  `json:"proposed_fee"`
	Message       *string `json:"message"`
}

type CounterOfferRequest struct {
	Fee          string  `json:"fee"`
	SlotCategory string  `json:"slot_category"`
	Message      *string `json:"message"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason"`
}

type ResolveDisputeRequest struct {
	Outcome string `json:"outcome"` // completed or cancelled
}

// GatewayWebhookRequest is the payment gateway's confirmation payload.
type GatewayWebhookRequest struct {
	EventType   string `json:"event_type"`
	MilestoneID string `json:"milestone_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	GatewayTxID string `json:"gateway_tx_id"`
}
