package credit

import (
	"context"
	"fmt"
	"time"

	"shopledger/internal/core/apperror"
	appctx "shopledger/internal/core/context"
	"shopledger/internal/core/id"
	"shopledger/internal/core/tx"
	"shopledger/internal/core/types"
	"shopledger/internal/domain/activity"
	"shopledger/internal/domain/customer"
	"shopledger/internal/domain/notification"
	"shopledger/pkg/logger"
)

// Reconciler applies customer payments to credit orders.
//
// Each call runs in one transaction. The customer row is locked first and the
// orders after it, so concurrent payments for one customer serialize. A
// concurrent modification aborts the attempt; it is retried once with fresh
// state and surfaced if it happens again.
type Reconciler struct {
	txm       tx.Manager
	customers CustomerLedger
	orders    OrderRepository
	payments  PaymentRepository
	activity  *activity.Recorder
	notifier  *notification.Notifier
	metrics   *ledgerMetrics
	now       func() time.Time
}

// ReconcilerConfig wires a Reconciler. Activity and Notifier may be nil.
type ReconcilerConfig struct {
	TxManager tx.Manager
	Customers CustomerLedger
	Orders    OrderRepository
	Payments  PaymentRepository
	Activity  *activity.Recorder
	Notifier  *notification.Notifier
}

// NewReconciler creates a Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{
		txm:       cfg.TxManager,
		customers: cfg.Customers,
		orders:    cfg.Orders,
		payments:  cfg.Payments,
		activity:  cfg.Activity,
		notifier:  cfg.Notifier,
		metrics:   newLedgerMetrics(),
		now:       time.Now,
	}
}

// Apply dispatches p to ApplyToOrder or ApplyToCustomerBalance by its kind.
func (r *Reconciler) Apply(ctx context.Context, p Payment) (*PaymentOutcome, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	switch p.Kind {
	case PaymentKindOrder:
		res, err := r.ApplyToOrder(ctx, p.CustomerID, p.OrderID, p.Amount)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: p.Kind, Order: res}, nil
	default:
		res, err := r.ApplyToCustomerBalance(ctx, p.CustomerID, p.Amount)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: p.Kind, Balance: res}, nil
	}
}

// ApplyToOrder pays amount against one order of the customer.
func (r *Reconciler) ApplyToOrder(ctx context.Context, customerID, orderID id.ID, amount types.Money) (*OrderPaymentResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var result *OrderPaymentResult
	err := r.withRetry(ctx, PaymentKindOrder, func(ctx context.Context) error {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			res, err := r.applyToOrder(ctx, customerID, orderID, amount)
			if err != nil {
				return err
			}
			result = res
			r.notifier.Notify(ctx, notification.EventPaymentRecorded, activity.EntityCustomer, customerID,
				paymentPayload(customerID, PaymentKindOrder, res.PaymentID, amount, res.CustomerBalance, res.applied()))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	r.metrics.recordApplied(ctx, PaymentKindOrder, amount)
	logger.Info(ctx, "payment applied to order",
		"payment_id", result.PaymentID,
		"customer_id", customerID,
		"order_number", result.Order.OrderNumber,
		"amount", amount.String(),
		"status", result.Order.PaymentStatus,
	)
	r.record(ctx, customerID, PaymentKindOrder, result.PaymentID, amount, result.CustomerBalance, result.applied())

	return result, nil
}

// ApplyToCustomerBalance spreads amount across the customer's open orders,
// oldest debt first.
func (r *Reconciler) ApplyToCustomerBalance(ctx context.Context, customerID id.ID, amount types.Money) (*BalancePaymentResult, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}

	var result *BalancePaymentResult
	err := r.withRetry(ctx, PaymentKindBalance, func(ctx context.Context) error {
		return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			res, err := r.applyToBalance(ctx, customerID, amount)
			if err != nil {
				return err
			}
			result = res
			r.notifier.Notify(ctx, notification.EventPaymentRecorded, activity.EntityCustomer, customerID,
				paymentPayload(customerID, PaymentKindBalance, res.PaymentID, amount, res.CustomerBalance, res.Orders))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	r.metrics.recordApplied(ctx, PaymentKindBalance, amount)
	logger.Info(ctx, "payment applied to customer balance",
		"payment_id", result.PaymentID,
		"customer_id", customerID,
		"amount", amount.String(),
		"orders", len(result.Orders),
		"balance", result.CustomerBalance.String(),
	)
	r.record(ctx, customerID, PaymentKindBalance, result.PaymentID, amount, result.CustomerBalance, result.Orders)

	return result, nil
}

// Payments returns the customer's payment history, newest first.
func (r *Reconciler) Payments(ctx context.Context, customerID id.ID, limit int) ([]*PaymentRecord, error) {
	if _, err := r.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.payments.ListByCustomer(ctx, customerID, limit)
}

func (r *Reconciler) applyToOrder(ctx context.Context, customerID, orderID id.ID, amount types.Money) (*OrderPaymentResult, error) {
	cust, err := r.customers.GetForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	order, err := r.orders.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, apperror.NewValidation("order does not belong to customer").
			WithDetail("orderId", orderID.String()).
			WithDetail("customerId", customerID.String())
	}

	if err := order.ApplyPayment(amount); err != nil {
		return nil, err
	}
	if err := cust.Settle(amount); err != nil {
		return nil, err
	}

	now := r.now().UTC()
	if err := r.orders.UpdatePayment(ctx, order); err != nil {
		return nil, err
	}
	if err := r.customers.UpdateBalance(ctx, cust); err != nil {
		return nil, err
	}

	rec := r.newRecord(ctx, customerID, PaymentKindOrder, amount, now)
	rec.Allocations = []PaymentAllocation{{
		PaymentID:   rec.ID,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      amount,
	}}
	if err := r.payments.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return &OrderPaymentResult{
		PaymentID:       rec.ID,
		Order:           order,
		Applied:         amount,
		CustomerBalance: cust.CurrentBalance,
	}, nil
}

func (r *Reconciler) applyToBalance(ctx context.Context, customerID id.ID, amount types.Money) (*BalancePaymentResult, error) {
	cust, err := r.customers.GetForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(cust.CurrentBalance) {
		return nil, apperror.NewValidation("payment amount exceeds customer balance").
			WithDetail("amount", amount.String()).
			WithDetail("balance", cust.CurrentBalance.String())
	}

	open, err := r.orders.ListOpenForUpdate(ctx, customerID)
	if err != nil {
		return nil, err
	}

	// Nothing is mutated until the whole plan is known to fit.
	plan, err := PlanAllocation(open, amount)
	if err != nil {
		return nil, err
	}

	now := r.now().UTC()
	rec := r.newRecord(ctx, customerID, PaymentKindBalance, amount, now)
	applied := make([]AppliedOrder, 0, len(plan))

	for _, line := range plan {
		if err := line.Order.ApplyPayment(line.Amount); err != nil {
			return nil, err
		}
		if err := r.orders.UpdatePayment(ctx, line.Order); err != nil {
			return nil, err
		}
		applied = append(applied, AppliedOrder{Order: line.Order, Applied: line.Amount})
		rec.Allocations = append(rec.Allocations, PaymentAllocation{
			PaymentID:   rec.ID,
			OrderID:     line.Order.ID,
			OrderNumber: line.Order.OrderNumber,
			Amount:      line.Amount,
		})
	}

	if err := cust.Settle(amount); err != nil {
		return nil, err
	}
	if err := r.customers.UpdateBalance(ctx, cust); err != nil {
		return nil, err
	}
	if err := r.payments.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record payment: %w", err)
	}

	return &BalancePaymentResult{
		PaymentID:       rec.ID,
		Orders:          applied,
		CustomerBalance: cust.CurrentBalance,
	}, nil
}

func (r *Reconciler) withRetry(ctx context.Context, kind PaymentKind, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if !apperror.IsConcurrentModification(err) {
		return err
	}

	r.metrics.recordConflict(ctx, kind)
	logger.Warn(ctx, "payment hit concurrent modification, retrying", "kind", kind, "error", err)

	err = fn(ctx)
	if apperror.IsConcurrentModification(err) {
		r.metrics.recordConflict(ctx, kind)
	}
	return err
}

func (r *Reconciler) newRecord(ctx context.Context, customerID id.ID, kind PaymentKind, amount types.Money, now time.Time) *PaymentRecord {
	rec := &PaymentRecord{
		ID:         id.New(),
		CustomerID: customerID,
		Kind:       kind,
		Amount:     amount,
		CreatedAt:  now,
	}
	if uid := appctx.GetUserID(ctx); uid != "" {
		rec.CreatedBy = &uid
	}
	return rec
}

// record writes the activity entry once the payment has committed. It is best
// effort.
func (r *Reconciler) record(ctx context.Context, customerID id.ID, kind PaymentKind, paymentID id.ID, amount, balance types.Money, orders []AppliedOrder) {
	r.activity.Record(ctx, activity.EntityCustomer, customerID, activity.ActionPaymentApplied,
		fmt.Sprintf("payment of %s applied to %d order(s)", amount.StringFixed(types.MoneyScale), len(orders)),
		paymentPayload(customerID, kind, paymentID, amount, balance, orders))
}

func paymentPayload(customerID id.ID, kind PaymentKind, paymentID id.ID, amount, balance types.Money, orders []AppliedOrder) map[string]any {
	allocations := make([]map[string]any, 0, len(orders))
	for _, ao := range orders {
		allocations = append(allocations, map[string]any{
			"orderId":     ao.Order.ID.String(),
			"orderNumber": ao.Order.OrderNumber,
			"applied":     ao.Applied.String(),
			"outstanding": ao.Order.CreditOutstanding.String(),
			"status":      string(ao.Order.PaymentStatus),
		})
	}

	return map[string]any{
		"paymentId":       paymentID.String(),
		"customerId":      customerID.String(),
		"kind":            string(kind),
		"amount":          amount.String(),
		"customerBalance": balance.String(),
		"allocations":     allocations,
	}
}

func validateAmount(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}
	if !types.HasMoneyScale(amount) {
		return apperror.NewValidation("payment amount has too many decimal places").
			WithDetail("amount", amount.String())
	}
	if !types.InMoneyRange(amount) {
		return apperror.NewValidation("payment amount is out of range").
			WithDetail("amount", amount.String()).
			WithDetail("max", types.MaxMoney.String())
	}
	return nil
}

var _ CustomerLedger = (customer.Repository)(nil)
