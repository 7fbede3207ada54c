package events

import "context"

// Redis channels
const (
	ChannelBookings     = "events:booking"
	ChannelNegotiations = "events:negotiation"
	ChannelPayments     = "events:payment"
	ChannelNotify       = "events:notify"
)

// Event types
const (
	EventBookingStatusChanged     = "booking_status_changed"
	EventNegotiationStatusChanged = "negotiation_status_changed"
	EventContractStatusChanged    = "contract_status_changed"
	EventApplicationStatusChanged = "application_status_changed"
	EventPaymentRecorded          = "payment_recorded"
	EventEscrowReleased           = "escrow_released"
	EventEscrowRefunded           = "escrow_refunded"
	EventTrustScoreChanged        = "trust_score_changed"
	EventUserNotification         = "user_notification"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler func(Event)) error
}
