package application

import (
	"context"
	"log/slog"
	"time"
)

// EventType names a logical event emitted after a transition commits.
type EventType string

const (
	EventRequestCreated   EventType = "request.created"
	EventRequestAccepted  EventType = "request.accepted"
	EventRequestRejected  EventType = "request.rejected"
	EventSwapProgressed   EventType = "swap.progressed"
	EventSwapCompleted    EventType = "swap.completed"
	EventSwapCancelled    EventType = "swap.cancelled"
	EventSessionScheduled EventType = "session.scheduled"
	EventSessionConflict  EventType = "session.conflict"
	EventSessionCompleted EventType = "session.completed"
	EventSessionCancelled EventType = "session.cancelled"
	EventUserConnected    EventType = "user.connected"
	EventUserDisconnected EventType = "user.disconnected"
)

// Event is a notification for an external dispatcher. Recipients are the user
// ids the event concerns.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurredAt"`
	ActorID    string    `json:"actorId,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
	Recipients []string  `json:"recipients"`
	Payload    any       `json:"payload,omitempty"`
}

// EventPublisher receives events synchronously after a commit. Delivery is
// best effort: a failed publish never undoes the transition.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventPublisherFunc adapts a function to EventPublisher.
type EventPublisherFunc func(ctx context.Context, event Event) error

// Publish calls f.
func (f EventPublisherFunc) Publish(ctx context.Context, event Event) error {
	return f(ctx, event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func publishEvents(ctx context.Context, publisher EventPublisher, logger *slog.Logger, events ...Event) {
	if publisher == nil {
		return
	}
	for _, event := range events {
		if err := publisher.Publish(ctx, event); err != nil {
			logger.WarnContext(ctx, "failed to publish event",
				"event_type", string(event.Type),
				"entity_id", event.EntityID,
				"error", err,
			)
		}
	}
}
