package credit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/types"
)

func TestIsOverdue(t *testing.T) {
	grace := day(5)

	tests := []struct {
		name         string
		outstanding  string
		due          time.Time
		allowedUntil *time.Time
		now          time.Time
		want         bool
	}{
		{"past due date", "10", day(1), nil, day(2), true},
		{"on due date", "10", day(1), nil, day(1), false},
		{"before due date", "10", day(3), nil, day(2), false},
		{"nothing outstanding", "0", day(1), nil, day(9), false},
		{"inside grace period", "10", day(1), &grace, day(4), false},
		{"past grace period", "10", day(1), &grace, day(6), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsOverdue(money(tt.outstanding), tt.due, tt.allowedUntil, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOrder_DaysOverdue(t *testing.T) {
	o := &Order{DueDate: day(1), CreditOutstanding: money("5")}

	assert.Equal(t, 0, o.DaysOverdue(day(1)))
	assert.Equal(t, 3, o.DaysOverdue(day(4)))

	o.CreditOutstanding = types.Zero()
	assert.Equal(t, 0, o.DaysOverdue(day(4)))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusPendingCredit, StatusFor(types.Zero(), money("10")))
	assert.Equal(t, StatusPartiallyPaid, StatusFor(money("4"), money("6")))
	assert.Equal(t, StatusPaid, StatusFor(money("10"), types.Zero()))
}

func TestOrder_ApplyPayment(t *testing.T) {
	newOrder := func() *Order {
		return &Order{
			OrderNumber:       "CR-2026-00001",
			SubtotalSnapshot:  money("100"),
			AmountPaidCash:    types.Zero(),
			CreditOutstanding: money("100"),
			PaymentStatus:     StatusPendingCredit,
		}
	}

	t.Run("partial then full", func(t *testing.T) {
		o := newOrder()

		require.NoError(t, o.ApplyPayment(money("30.50")))
		assert.True(t, money("30.50").Equal(o.AmountPaidCash))
		assert.True(t, money("69.50").Equal(o.CreditOutstanding))
		assert.Equal(t, StatusPartiallyPaid, o.PaymentStatus)
		require.NoError(t, o.CheckLedger())

		require.NoError(t, o.ApplyPayment(money("69.50")))
		assert.True(t, o.CreditOutstanding.IsZero())
		assert.Equal(t, StatusPaid, o.PaymentStatus)
		require.NoError(t, o.CheckLedger())
	})

	t.Run("rejected payments leave the order untouched", func(t *testing.T) {
		for _, amount := range []string{"0", "-1", "100.01"} {
			o := newOrder()
			err := o.ApplyPayment(money(amount))
			assert.True(t, apperror.IsValidation(err), amount)
			assert.True(t, money("100").Equal(o.CreditOutstanding), amount)
			assert.Equal(t, StatusPendingCredit, o.PaymentStatus, amount)
		}
	})

	t.Run("paid order", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, o.ApplyPayment(money("100")))

		err := o.ApplyPayment(money("1"))
		assert.True(t, apperror.IsValidation(err))
	})
}

func TestOrder_LedgerHoldsAcrossPayments(t *testing.T) {
	o := &Order{
		OrderNumber:       "CR-2026-00002",
		SubtotalSnapshot:  money("250.75"),
		AmountPaidCash:    types.Zero(),
		CreditOutstanding: money("250.75"),
		PaymentStatus:     StatusPendingCredit,
	}

	for _, p := range []string{"0.01", "12.34", "100", "38.40", "100"} {
		require.NoError(t, o.ApplyPayment(money(p)))
		require.NoError(t, o.CheckLedger())
		assert.Equal(t, StatusFor(o.AmountPaidCash, o.CreditOutstanding), o.PaymentStatus)
	}
	assert.Equal(t, StatusPaid, o.PaymentStatus)
}

func TestOrder_Validate(t *testing.T) {
	valid := func() *Order {
		f := &fixture{store: newMemStore()}
		c := f.addCustomer(t, "0")
		return f.addOrder(t, c, "CR-2026-00003", "40", day(1), day(10))
	}

	o := valid()
	o.DueDate = day(0)
	assert.True(t, apperror.IsValidation(o.Validate(t.Context())))

	o = valid()
	before := day(5)
	o.AllowedUntil = &before
	assert.True(t, apperror.IsValidation(o.Validate(t.Context())))

	o = valid()
	o.CreditOutstanding = money("39")
	assert.True(t, apperror.IsValidation(o.Validate(t.Context())))

	o = valid()
	o.PaymentStatus = "settled"
	assert.True(t, apperror.IsValidation(o.Validate(t.Context())))
}
