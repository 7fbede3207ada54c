package models

import (
	"time"

	"github.com/google/uuid"
)

type TrustScore struct {
	UserID    uuid.UUID `json:"user_id"`
	Score     int       `json:"score"`
	Tier      string    `json:"tier"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrustEvent is one immutable entry in a user's score history.
type TrustEvent struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Delta      int       `json:"delta"`
	ScoreAfter int       `json:"score_after"`
	ReasonCode string    `json:"reason_code"`
	Meta       any       `json:"meta,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
