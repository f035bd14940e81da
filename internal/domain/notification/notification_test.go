package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/id"
)

type fakePublisher struct {
	events []*Event
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, e *Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func TestNotifier_Notify(t *testing.T) {
	p := &fakePublisher{}
	n := NewNotifier(p)
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	n.now = func() time.Time { return at }

	customerID := id.New()
	n.Notify(context.Background(), EventPaymentRecorded, "customer", customerID, map[string]any{"amount": "120"})

	require.Len(t, p.events, 1)
	e := p.events[0]
	assert.Equal(t, EventPaymentRecorded, e.Type)
	assert.Equal(t, customerID, e.AggregateID)
	assert.Equal(t, at, e.OccurredAt)
	assert.Equal(t, "120", e.Payload["amount"])
}

func TestNotifier_FireAndForget(t *testing.T) {
	n := NewNotifier(&fakePublisher{err: errors.New("outbox unavailable")})

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), EventOrderOverdue, "credit_order", id.New(), nil)
	})

	var nilNotifier *Notifier
	assert.NotPanics(t, func() {
		nilNotifier.Notify(context.Background(), EventOrderOverdue, "credit_order", id.New(), nil)
	})
}
