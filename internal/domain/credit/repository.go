package credit

import (
	"context"
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/domain"
	"shopledger/internal/domain/customer"
)

// ListFilter narrows credit order lists.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Statuses   []PaymentStatus
	OpenOnly   bool
	OverdueAt  *time.Time // keep orders overdue at this instant
	DateFrom   *time.Time
	DateTo     *time.Time
}

// OrderRepository persists credit orders. Methods that lock rows require a
// transaction in ctx.
type OrderRepository interface {
	// Create inserts the order with its lines.
	Create(ctx context.Context, o *Order) error

	// GetByID returns the order with its lines.
	GetByID(ctx context.Context, orderID id.ID) (*Order, error)

	// GetForUpdate locks and returns the order header.
	GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error)

	// ListOpenForUpdate locks and returns the customer's open orders,
	// oldest debt first.
	ListOpenForUpdate(ctx context.Context, customerID id.ID) ([]*Order, error)

	// UpdatePayment saves paid/outstanding/status, checking Version.
	UpdatePayment(ctx context.Context, o *Order) error

	List(ctx context.Context, f ListFilter) (domain.ListResult[*Order], error)

	// ListDueForReminder returns overdue orders not reminded since the cutoff.
	ListDueForReminder(ctx context.Context, now, remindedBefore time.Time, limit int) ([]*Order, error)

	// MarkReminded records that a reminder was queued.
	MarkReminded(ctx context.Context, orderID id.ID, at time.Time) error
}

// PaymentRepository stores payment history.
type PaymentRepository interface {
	// Create inserts the payment and its allocations.
	Create(ctx context.Context, p *PaymentRecord) error

	ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*PaymentRecord, error)
}

// CustomerLedger is the part of the customer store the ledger needs.
type CustomerLedger interface {
	GetByID(ctx context.Context, customerID id.ID) (*customer.Customer, error)
	GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error)
	UpdateBalance(ctx context.Context, c *customer.Customer) error
}

// NumberGenerator assigns order numbers.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string, at time.Time) (string, error)
}
