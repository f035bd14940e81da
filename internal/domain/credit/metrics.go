package credit

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"shopledger/internal/core/types"
)

type ledgerMetrics struct {
	applied   metric.Int64Counter
	conflicts metric.Int64Counter
	amount    metric.Float64Histogram
}

func newLedgerMetrics() *ledgerMetrics {
	meter := otel.Meter("shopledger/credit")
	m := &ledgerMetrics{}

	var err error
	m.applied, err = meter.Int64Counter("credit.payments.applied",
		metric.WithDescription("Payments applied to credit orders"))
	if err != nil {
		m.applied = noop.Int64Counter{}
	}
	m.conflicts, err = meter.Int64Counter("credit.payments.conflicts",
		metric.WithDescription("Payment attempts aborted by concurrent modification"))
	if err != nil {
		m.conflicts = noop.Int64Counter{}
	}
	m.amount, err = meter.Float64Histogram("credit.payments.amount",
		metric.WithDescription("Applied payment amounts"))
	if err != nil {
		m.amount = noop.Float64Histogram{}
	}
	return m
}

func (m *ledgerMetrics) recordApplied(ctx context.Context, kind PaymentKind, amount types.Money) {
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	m.applied.Add(ctx, 1, attrs)
	m.amount.Record(ctx, amount.InexactFloat64(), attrs)
}

func (m *ledgerMetrics) recordConflict(ctx context.Context, kind PaymentKind) {
	m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
}
