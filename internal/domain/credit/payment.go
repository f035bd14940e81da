package credit

import (
	"time"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
)

// PaymentKind selects how a payment is applied.
type PaymentKind string

const (
	// PaymentKindOrder applies the amount to one named order.
	PaymentKindOrder PaymentKind = "order"
	// PaymentKindBalance spreads the amount across all open orders.
	PaymentKindBalance PaymentKind = "balance"
)

// Payment is a request to apply money to a customer's credit.
// OrderID is set only for PaymentKindOrder.
type Payment struct {
	Kind       PaymentKind
	CustomerID id.ID
	OrderID    id.ID
	Amount     types.Money
}

// OrderPayment builds a payment against one order.
func OrderPayment(customerID, orderID id.ID, amount types.Money) Payment {
	return Payment{Kind: PaymentKindOrder, CustomerID: customerID, OrderID: orderID, Amount: amount}
}

// BalancePayment builds a payment against the customer's whole balance.
func BalancePayment(customerID id.ID, amount types.Money) Payment {
	return Payment{Kind: PaymentKindBalance, CustomerID: customerID, Amount: amount}
}

// Validate checks the variant shape; amounts are checked by the ledger.
func (p Payment) Validate() error {
	if id.IsNil(p.CustomerID) {
		return apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	switch p.Kind {
	case PaymentKindOrder:
		if id.IsNil(p.OrderID) {
			return apperror.NewValidation("order is required for an order payment").WithDetail("field", "orderId")
		}
	case PaymentKindBalance:
		if !id.IsNil(p.OrderID) {
			return apperror.NewValidation("order must be empty for a balance payment").WithDetail("field", "orderId")
		}
	default:
		return apperror.NewValidation("unknown payment kind").WithDetail("kind", string(p.Kind))
	}
	return nil
}

// AppliedOrder is an order after a payment together with the share it received.
type AppliedOrder struct {
	Order   *Order
	Applied types.Money
}

// OrderPaymentResult is returned by Reconciler.ApplyToOrder.
type OrderPaymentResult struct {
	PaymentID       id.ID
	Order           *Order
	Applied         types.Money
	CustomerBalance types.Money
}

func (r *OrderPaymentResult) applied() []AppliedOrder {
	return []AppliedOrder{{Order: r.Order, Applied: r.Applied}}
}

// BalancePaymentResult is returned by Reconciler.ApplyToCustomerBalance.
type BalancePaymentResult struct {
	PaymentID       id.ID
	Orders          []AppliedOrder
	CustomerBalance types.Money
}

// PaymentOutcome carries exactly one result matching Kind.
type PaymentOutcome struct {
	Kind    PaymentKind
	Order   *OrderPaymentResult
	Balance *BalancePaymentResult
}

// PaymentRecord is the stored history of an applied payment.
type PaymentRecord struct {
	ID          id.ID               `db:"id" json:"id"`
	CustomerID  id.ID               `db:"customer_id" json:"customerId"`
	Kind        PaymentKind         `db:"kind" json:"kind"`
	Amount      types.Money         `db:"amount" json:"amount"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
	CreatedBy   *string             `db:"created_by" json:"createdBy,omitempty"`
	Allocations []PaymentAllocation `db:"-" json:"allocations"`
}

// PaymentAllocation is the share of a payment applied to one order.
type PaymentAllocation struct {
	PaymentID   id.ID       `db:"payment_id" json:"-"`
	OrderID     id.ID       `db:"order_id" json:"orderId"`
	OrderNumber string      `db:"order_number" json:"orderNumber"`
	Amount      types.Money `db:"amount" json:"amount"`
}
