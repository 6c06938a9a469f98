package user

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a user lifecycle event. It doubles as the broker routing key.
type EventType string

const (
	EventCreated EventType = "user.created"
	EventUpdated EventType = "user.updated"
	EventDeleted EventType = "user.deleted"
)

// Event describes a user mutation that has already been persisted.
type Event struct {
	ID         uuid.UUID `json:"event_id"`
	Type       EventType `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	User       User      `json:"user"`
}

// NewEvent stamps a new event for u.
func NewEvent(t EventType, u User) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		User:       u,
	}
}
