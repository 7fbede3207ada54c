package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Application statuses
const (
	ApplicationStatusPending        = "pending"
	ApplicationStatusViewed         = "viewed"
	ApplicationStatusShortlisted    = "shortlisted"
	ApplicationStatusAccepted       = "accepted"
	ApplicationStatusDeclined       = "declined"
	ApplicationStatusCounterOffered = "counter_offered"
	ApplicationStatusWithdrawn      = "withdrawn"
	ApplicationStatusExpired        = "expired"
)

// Valid application transitions: from -> []to
var ValidApplicationTransitions = map[string][]string{
	ApplicationStatusPending:        {ApplicationStatusViewed, ApplicationStatusShortlisted, ApplicationStatusAccepted, ApplicationStatusDeclined, ApplicationStatusCounterOffered, ApplicationStatusWithdrawn, ApplicationStatusExpired},
	ApplicationStatusViewed:         {ApplicationStatusShortlisted, ApplicationStatusAccepted, ApplicationStatusDeclined, ApplicationStatusCounterOffered, ApplicationStatusWithdrawn, ApplicationStatusExpired},
	ApplicationStatusShortlisted:    {ApplicationStatusAccepted, ApplicationStatusDeclined, ApplicationStatusCounterOffered, ApplicationStatusWithdrawn, ApplicationStatusExpired},
	ApplicationStatusCounterOffered: {ApplicationStatusAccepted, ApplicationStatusDeclined, ApplicationStatusWithdrawn, ApplicationStatusExpired},
	ApplicationStatusAccepted:       {},
	ApplicationStatusDeclined:       {},
	ApplicationStatusWithdrawn:      {},
	ApplicationStatusExpired:        {},
}

func IsValidApplicationTransition(from, to string) bool {
	for _, s := range ValidApplicationTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Statuses that count against an artist's pending-application limit.
var PendingApplicationStatuses = []string{
	ApplicationStatusPending,
	ApplicationStatusViewed,
	ApplicationStatusShortlisted,
	ApplicationStatusCounterOffered,
}

// IsRespondable reports whether an organizer may still act on the
// application (accept / decline / counter / shortlist).
func IsApplicationRespondable(status string) bool {
	switch status {
	case ApplicationStatusPending, ApplicationStatusViewed, ApplicationStatusShortlisted:
		return true
	}
	return false
}

// IsWithdrawable reports whether the artist may still pull the
// application back.
func IsApplicationWithdrawable(status string) bool {
	return IsApplicationRespondable(status) || status == ApplicationStatusCounterOffered
}

type Application struct {
	ID            uuid.UUID       `json:"id"`
	OpportunityID uuid.UUID       `json:"opportunity_id"`
	ArtistID      uuid.UUID       `json:"artist_id"`
	ProposedFee   decimal.Decimal `json:"proposed_fee"`
	Currency      string          `json:"currency"`
	Message       *string         `json:"message,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
