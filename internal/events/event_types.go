package events

import (
	"time"

	"github.com/spec-kit/user-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAccountBlocked    EventType = "account_blocked"
	EventAccountUnblocked  EventType = "account_unblocked"
	EventAccountDeleted    EventType = "account_deleted"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role      domain.Role `json:"role"`
	AccountID string      `json:"account_id"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// AccountBlockedPayload payload.
type AccountBlockedPayload struct {
	Blocked bool `json:"blocked"`
}
