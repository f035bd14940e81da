package credit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/domain/notification"
)

func saleLines() []LineInput {
	return []LineInput{
		{ItemName: "Rice 5kg", Category: "Groceries", Quantity: money("2"), UnitPrice: money("12.50")},
		{ItemName: "Soap", Quantity: money("3"), UnitPrice: money("1.333")},
	}
}

func TestOrderService_Create(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "0")

	order, err := f.orders.Create(context.Background(), CreateOrderInput{
		CustomerID: c.ID,
		OrderDate:  day(2),
		Lines:      []LineInput{saleLines()[0]},
	})
	require.NoError(t, err)

	assert.Equal(t, "CR-2026-00001", order.OrderNumber)
	assert.True(t, money("25").Equal(order.SubtotalSnapshot))
	assert.True(t, money("25").Equal(order.CreditOutstanding))
	assert.True(t, order.AmountPaidCash.IsZero())
	assert.Equal(t, StatusPendingCredit, order.PaymentStatus)
	assert.Equal(t, day(2).AddDate(0, 0, DefaultTermDays), order.DueDate)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, order.ID, order.Lines[0].OrderID)

	assert.True(t, money("25").Equal(f.balance(t, c.ID)))
	assert.Len(t, f.store.orders, 1)

	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, notification.EventOrderCreated, f.outbox.events[0].Type)
	assert.Equal(t, order.ID, f.outbox.events[0].AggregateID)
	assert.True(t, f.outbox.inTx[0])
}

func TestOrderService_CreateRoundsLinesAndDefaultsCategory(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "0")

	// unit prices with more than two decimals are refused
	_, err := f.orders.Create(context.Background(), CreateOrderInput{CustomerID: c.ID, Lines: saleLines()})
	assert.True(t, apperror.IsValidation(err))

	order, err := f.orders.Create(context.Background(), CreateOrderInput{
		CustomerID: c.ID,
		Lines: []LineInput{
			{ItemName: " Soap ", Quantity: money("0.5"), UnitPrice: money("3.33")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Soap", order.Lines[0].ItemName)
	assert.Equal(t, "Uncategorized", order.Lines[0].Category)
	assert.True(t, money("1.67").Equal(order.Lines[0].Amount))
	assert.True(t, money("1.67").Equal(order.SubtotalSnapshot))
}

func TestOrderService_CreditLimit(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "100")
	f.addOrder(t, c, "CR-2026-09999", "80", day(0), day(5))

	_, err := f.orders.Create(context.Background(), CreateOrderInput{
		CustomerID: c.ID,
		Lines:      []LineInput{{ItemName: "Oil", Quantity: money("1"), UnitPrice: money("20.01")}},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditLimitExceeded))
	assert.True(t, money("80").Equal(f.balance(t, c.ID)))
	assert.Len(t, f.store.orders, 1)
	assert.Empty(t, f.outbox.events)

	_, err = f.orders.Create(context.Background(), CreateOrderInput{
		CustomerID: c.ID,
		Lines:      []LineInput{{ItemName: "Oil", Quantity: money("1"), UnitPrice: money("20")}},
	})
	require.NoError(t, err)
	assert.True(t, money("100").Equal(f.balance(t, c.ID)))
}

func TestOrderService_CreateValidation(t *testing.T) {
	dueBefore := day(1)

	tests := []struct {
		name  string
		input func(customerID id.ID) CreateOrderInput
		check func(error) bool
	}{
		{
			name:  "no lines",
			input: func(cid id.ID) CreateOrderInput { return CreateOrderInput{CustomerID: cid} },
			check: apperror.IsValidation,
		},
		{
			name: "no customer",
			input: func(id.ID) CreateOrderInput {
				return CreateOrderInput{Lines: []LineInput{saleLines()[0]}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "unknown customer",
			input: func(id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: id.New(), Lines: []LineInput{saleLines()[0]}}
			},
			check: apperror.IsNotFound,
		},
		{
			name: "zero quantity",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, Lines: []LineInput{{ItemName: "x", Quantity: money("0"), UnitPrice: money("1")}}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "quantity with three decimals",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, Lines: []LineInput{{ItemName: "x", Quantity: money("1.005"), UnitPrice: money("2")}}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "line amount beyond storable range",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, Lines: []LineInput{{ItemName: "x", Quantity: money("1000"), UnitPrice: money("1000000000000")}}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "subtotal beyond storable range",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, Lines: []LineInput{
					{ItemName: "x", Quantity: money("1"), UnitPrice: money("999999999999.99")},
					{ItemName: "y", Quantity: money("1"), UnitPrice: money("0.01")},
				}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "free order",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, Lines: []LineInput{{ItemName: "x", Quantity: money("1"), UnitPrice: money("0")}}}
			},
			check: apperror.IsValidation,
		},
		{
			name: "due before order date",
			input: func(cid id.ID) CreateOrderInput {
				return CreateOrderInput{CustomerID: cid, OrderDate: day(3), DueDate: &dueBefore, Lines: []LineInput{saleLines()[0]}}
			},
			check: apperror.IsValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			c := f.addCustomer(t, "0")

			_, err := f.orders.Create(context.Background(), tt.input(c.ID))
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			assert.Empty(t, f.store.orders)
			assert.True(t, f.balance(t, c.ID).IsZero())
		})
	}
}

func TestOrderService_CreateForDeletedCustomer(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "0")
	stored := f.store.customers[c.ID]
	stored.DeletionMark = true
	f.store.customers[c.ID] = stored

	_, err := f.orders.Create(context.Background(), CreateOrderInput{CustomerID: c.ID, Lines: []LineInput{saleLines()[0]}})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestOrderService_Overdue(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "0")
	late := f.addOrder(t, c, "CR-2026-00001", "10", day(0), day(3))
	f.addOrder(t, c, "CR-2026-00002", "10", day(0), day(30))
	graced := f.addOrder(t, c, "CR-2026-00003", "10", day(0), day(3))

	stored := f.store.orders[graced.ID]
	until := day(20)
	stored.AllowedUntil = &until
	f.store.orders[graced.ID] = stored

	res, err := f.orders.Overdue(context.Background(), &c.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, late.ID, res.Items[0].ID)

	_, err = f.orders.List(context.Background(), ListFilter{Statuses: []PaymentStatus{"unknown"}})
	assert.True(t, apperror.IsValidation(err))
}

func TestOrderService_RemindOverdue(t *testing.T) {
	f := newFixture(t)
	c := f.addCustomer(t, "0")
	late := f.addOrder(t, c, "CR-2026-00001", "10", day(0), day(3))
	f.addOrder(t, c, "CR-2026-00002", "10", day(0), day(30))

	sent, err := f.orders.RemindOverdue(context.Background(), 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, f.outbox.events, 1)
	assert.Equal(t, notification.EventOrderOverdue, f.outbox.events[0].Type)
	assert.Equal(t, late.ID, f.outbox.events[0].AggregateID)
	assert.Equal(t, 7, f.outbox.events[0].Payload["daysOverdue"])
	assert.True(t, f.outbox.inTx[0])

	// reminded already inside the interval
	sent, err = f.orders.RemindOverdue(context.Background(), 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, sent)

	f.now = f.now.Add(25 * time.Hour)
	sent, err = f.orders.RemindOverdue(context.Background(), 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
}
