// Package credit implements credit sales and the ledger that reconciles
// customer payments against outstanding credit orders.
package credit

import (
	"context"
	"strings"
	"time"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/entity"
	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
)

// PaymentStatus is the settlement state of a credit order.
type PaymentStatus string

const (
	StatusPendingCredit PaymentStatus = "pending_credit"
	StatusPartiallyPaid PaymentStatus = "partially_paid"
	StatusPaid          PaymentStatus = "paid"
)

// Valid reports whether s is a known status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPendingCredit, StatusPartiallyPaid, StatusPaid:
		return true
	}
	return false
}

// Line is an item snapshot taken at sale time.
type Line struct {
	ID        id.ID       `db:"id" json:"id"`
	OrderID   id.ID       `db:"order_id" json:"-"`
	LineNo    int         `db:"line_no" json:"lineNo"`
	ItemName  string      `db:"item_name" json:"itemName"`
	Category  string      `db:"category" json:"category"`
	Quantity  types.Money `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Amount    types.Money `db:"amount" json:"amount"`
}

// Order is a sale recorded with deferred payment.
//
// AmountPaidCash + CreditOutstanding always equals SubtotalSnapshot.
// Once PaymentStatus is paid the order accepts no further payments.
type Order struct {
	entity.Base

	CustomerID   id.ID      `db:"customer_id" json:"customerId"`
	OrderNumber  string     `db:"order_number" json:"orderNumber"`
	OrderDate    time.Time  `db:"order_date" json:"orderDate"`
	DueDate      time.Time  `db:"due_date" json:"dueDate"`
	AllowedUntil *time.Time `db:"allowed_until" json:"allowedUntil,omitempty"`

	SubtotalSnapshot  types.Money   `db:"subtotal_snapshot" json:"subtotalSnapshot"`
	AmountPaidCash    types.Money   `db:"amount_paid_cash" json:"amountPaidCash"`
	CreditOutstanding types.Money   `db:"credit_outstanding" json:"creditOutstanding"`
	PaymentStatus     PaymentStatus `db:"payment_status" json:"paymentStatus"`

	Comment   *string `db:"comment" json:"comment,omitempty"`
	CreatedBy *string `db:"created_by" json:"createdBy,omitempty"`

	// LastRemindedAt is set when an overdue notification was queued
	LastRemindedAt *time.Time `db:"last_reminded_at" json:"-"`

	Lines []Line `db:"-" json:"lines,omitempty"`
}

// Deadline returns the grace deadline if set, otherwise the due date.
func (o *Order) Deadline() time.Time {
	if o.AllowedUntil != nil {
		return *o.AllowedUntil
	}
	return o.DueDate
}

// IsOpen reports whether the order still accepts payments.
func (o *Order) IsOpen() bool {
	return o.PaymentStatus != StatusPaid && o.CreditOutstanding.IsPositive()
}

// IsOverdue reports whether the order is unpaid past its deadline.
func (o *Order) IsOverdue(now time.Time) bool {
	return IsOverdue(o.CreditOutstanding, o.DueDate, o.AllowedUntil, now)
}

// DaysOverdue returns whole days past the deadline, or 0 when not overdue.
func (o *Order) DaysOverdue(now time.Time) int {
	if !o.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(o.Deadline()).Hours() / 24)
}

// IsOverdue classifies an order: outstanding credit past allowedUntil when
// present, else past dueDate.
func IsOverdue(outstanding types.Money, dueDate time.Time, allowedUntil *time.Time, now time.Time) bool {
	if !outstanding.IsPositive() {
		return false
	}
	deadline := dueDate
	if allowedUntil != nil {
		deadline = *allowedUntil
	}
	return now.After(deadline)
}

// StatusFor derives the payment status from the paid and outstanding amounts.
func StatusFor(paid, outstanding types.Money) PaymentStatus {
	switch {
	case !outstanding.IsPositive():
		return StatusPaid
	case paid.IsPositive():
		return StatusPartiallyPaid
	default:
		return StatusPendingCredit
	}
}

// ApplyPayment moves amount from outstanding to paid and recomputes the status.
// The order is left untouched when validation fails.
func (o *Order) ApplyPayment(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}
	if o.PaymentStatus == StatusPaid {
		return apperror.NewValidation("order is already paid").
			WithDetail("orderNumber", o.OrderNumber)
	}
	if amount.GreaterThan(o.CreditOutstanding) {
		return apperror.NewValidation("payment amount exceeds order outstanding").
			WithDetail("orderNumber", o.OrderNumber).
			WithDetail("amount", amount.String()).
			WithDetail("outstanding", o.CreditOutstanding.String())
	}

	o.AmountPaidCash = o.AmountPaidCash.Add(amount)
	o.CreditOutstanding = o.CreditOutstanding.Sub(amount)
	o.PaymentStatus = StatusFor(o.AmountPaidCash, o.CreditOutstanding)
	return nil
}

// Validate implements entity.Validatable.
func (o *Order) Validate(_ context.Context) error {
	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if strings.TrimSpace(o.OrderNumber) == "" {
		return apperror.NewValidation("order number is required").WithDetail("field", "orderNumber")
	}
	if o.OrderDate.IsZero() {
		return apperror.NewValidation("order date is required").WithDetail("field", "orderDate")
	}
	if o.DueDate.Before(o.OrderDate) {
		return apperror.NewValidation("due date must not precede order date").WithDetail("field", "dueDate")
	}
	if o.AllowedUntil != nil && o.AllowedUntil.Before(o.DueDate) {
		return apperror.NewValidation("grace deadline must not precede due date").WithDetail("field", "allowedUntil")
	}
	if !o.SubtotalSnapshot.IsPositive() {
		return apperror.NewValidation("order subtotal must be positive").WithDetail("field", "subtotalSnapshot")
	}
	if !o.PaymentStatus.Valid() {
		return apperror.NewValidation("invalid payment status").WithDetail("field", "paymentStatus")
	}
	return o.CheckLedger()
}

// CheckLedger verifies the amount invariants.
func (o *Order) CheckLedger() error {
	if o.CreditOutstanding.IsNegative() || o.AmountPaidCash.IsNegative() {
		return apperror.NewValidation("order amounts must not be negative").
			WithDetail("orderNumber", o.OrderNumber)
	}
	if !o.AmountPaidCash.Add(o.CreditOutstanding).Equal(o.SubtotalSnapshot) {
		return apperror.NewValidation("paid and outstanding amounts do not add up to subtotal").
			WithDetail("orderNumber", o.OrderNumber).
			WithDetail("subtotal", o.SubtotalSnapshot.String()).
			WithDetail("paid", o.AmountPaidCash.String()).
			WithDetail("outstanding", o.CreditOutstanding.String())
	}
	return nil
}
