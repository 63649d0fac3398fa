package notification

import (
	"context"
	"time"
)

// EventType names a domain event delivered to a recipient.
type EventType string

const (
	EventApplicationStatusChanged EventType = "application.status_changed"
	EventAllocationOffered        EventType = "allocation.offered"
	EventAllocationExpiring       EventType = "allocation.expiring"
	EventAllocationFinalized      EventType = "allocation.finalized"
	EventAllocationCancelled      EventType = "allocation.cancelled"
)

// Event is the payload handed to a Notifier after a transition commits.
type Event struct {
	Type           EventType         `json:"type"`
	OrganizationID string            `json:"organization_id"`
	EntityID       string            `json:"entity_id"`
	Status         string            `json:"status,omitempty"`
	Message        string            `json:"message"`
	OccurredAt     time.Time         `json:"occurred_at"`
	Data           map[string]string `json:"data,omitempty"`
}

// Notifier receives committed domain events. Implementations must not
// block the caller on delivery.
type Notifier interface {
	Notify(ctx context.Context, recipientID string, ev Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, string, Event) {}

// Fanout forwards each event to every wrapped notifier.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, recipientID string, ev Event) {
	for _, n := range f {
		n.Notify(ctx, recipientID, ev)
	}
}
