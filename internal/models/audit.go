package models

import (
	"time"

	"github.com/google/uuid"
)

// Actor types for audit entries.
const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
	ActorTypeWorker = "worker"
	ActorTypeAdmin  = "admin"
)

type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"`
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"` // booking/application/negotiation/contract/milestone
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
