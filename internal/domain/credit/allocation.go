package credit

import (
	"cmp"
	"slices"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/types"
)

// AllocationLine is the planned share of a payment for one order.
type AllocationLine struct {
	Order  *Order
	Amount types.Money
}

// SortOldestDebtFirst orders by due date, then order date, then order number.
func SortOldestDebtFirst(orders []*Order) {
	slices.SortStableFunc(orders, func(a, b *Order) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		if c := a.OrderDate.Compare(b.OrderDate); c != 0 {
			return c
		}
		return cmp.Compare(a.OrderNumber, b.OrderNumber)
	})
}

// OpenOutstanding sums the outstanding amount of open orders.
func OpenOutstanding(orders []*Order) types.Money {
	total := types.Zero()
	for _, o := range orders {
		if o.IsOpen() {
			total = total.Add(o.CreditOutstanding)
		}
	}
	return total
}

// PlanAllocation splits amount across the open orders, oldest debt first,
// applying min(remaining, outstanding) to each. Capacity is checked up front
// so a failing plan never touches any order. The returned amounts sum to
// amount exactly.
func PlanAllocation(orders []*Order, amount types.Money) ([]AllocationLine, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}

	open := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if o.IsOpen() {
			open = append(open, o)
		}
	}
	if len(open) == 0 {
		return nil, apperror.NewValidation("customer has no open credit orders")
	}

	SortOldestDebtFirst(open)

	capacity := OpenOutstanding(open)
	if amount.GreaterThan(capacity) {
		return nil, apperror.NewValidation("payment amount exceeds total outstanding").
			WithDetail("amount", amount.String()).
			WithDetail("outstanding", capacity.String())
	}

	plan := make([]AllocationLine, 0, len(open))
	remaining := amount
	for _, o := range open {
		if !remaining.IsPositive() {
			break
		}
		share := types.MinMoney(remaining, o.CreditOutstanding)
		plan = append(plan, AllocationLine{Order: o, Amount: share})
		remaining = remaining.Sub(share)
	}

	return plan, nil
}
