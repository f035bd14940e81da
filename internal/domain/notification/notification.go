// Package notification defines payment notifications. Events are published to
// an outbox and delivered asynchronously by the worker.
package notification

import (
	"context"
	"time"

	"shopledger/internal/core/id"
	"shopledger/pkg/logger"
)

// EventType names a notification.
type EventType string

const (
	EventOrderCreated    EventType = "order.created"
	EventPaymentRecorded EventType = "payment.recorded"
	EventOrderOverdue    EventType = "order.overdue"
)

// Event is a notification waiting for delivery.
type Event struct {
	ID            id.ID          `json:"id"`
	Type          EventType      `json:"type"`
	AggregateType string         `json:"aggregateType"`
	AggregateID   id.ID          `json:"aggregateId"`
	Payload       map[string]any `json:"payload"`
	OccurredAt    time.Time      `json:"occurredAt"`
}

// Publisher stores events for later delivery.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
}

// Dispatcher delivers one event to its destination.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *Event) error
}

const publishTimeout = 5 * time.Second

// Notifier publishes events without surfacing failures to the caller.
// A nil *Notifier is a valid no-op.
type Notifier struct {
	publisher Publisher
	now       func() time.Time
}

// NewNotifier creates a Notifier over p.
func NewNotifier(p Publisher) *Notifier {
	return &Notifier{publisher: p, now: time.Now}
}

// Notify builds and publishes an event.
func (n *Notifier) Notify(ctx context.Context, typ EventType, aggregateType string, aggregateID id.ID, payload map[string]any) {
	if n == nil || n.publisher == nil {
		return
	}

	e := &Event{
		ID:            id.New(),
		Type:          typ,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       payload,
		OccurredAt:    n.now().UTC(),
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := n.publisher.Publish(pubCtx, e); err != nil {
		logger.Warn(ctx, "notification publish failed",
			"event_type", typ,
			"aggregate_id", aggregateID,
			"error", err,
		)
	}
}
