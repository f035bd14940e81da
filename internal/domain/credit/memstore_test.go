package credit

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/entity"
	"shopledger/internal/core/id"
	"shopledger/internal/core/tx/txtest"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
	"shopledger/internal/domain/activity"
	"shopledger/internal/domain/customer"
	"shopledger/internal/domain/notification"
)

// memStore is an in-memory customer/order/payment store. It snapshots on
// transaction begin and restores on rollback.
type memStore struct {
	mu        sync.Mutex
	customers map[id.ID]customer.Customer
	orders    map[id.ID]Order
	payments  []*PaymentRecord

	saved *memState
}

type memState struct {
	customers map[id.ID]customer.Customer
	orders    map[id.ID]Order
	payments  []*PaymentRecord
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[id.ID]customer.Customer),
		orders:    make(map[id.ID]Order),
	}
}

func (s *memStore) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = &memState{
		customers: maps.Clone(s.customers),
		orders:    maps.Clone(s.orders),
		payments:  append([]*PaymentRecord(nil), s.payments...),
	}
}

func (s *memStore) rollback() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return
	}
	s.customers = s.saved.customers
	s.orders = s.saved.orders
	s.payments = s.saved.payments
	s.saved = nil
}


// --- CustomerLedger ---

func (s *memStore) GetByID(_ context.Context, customerID id.ID) (*customer.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return &c, nil
}

func (s *memStore) GetForUpdate(ctx context.Context, customerID id.ID) (*customer.Customer, error) {
	return s.GetByID(ctx, customerID)
}

func (s *memStore) UpdateBalance(_ context.Context, c *customer.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.customers[c.ID]
	if !ok || stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID.String())
	}
	c.Version++
	s.customers[c.ID] = *c
	return nil
}

// --- OrderRepository ---

type orderStore struct{ *memStore }

func (s orderStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orders {
		if existing.OrderNumber == o.OrderNumber {
			return apperror.NewDuplicate("credit order", "order number", o.OrderNumber)
		}
	}
	s.orders[o.ID] = *o
	return nil
}

func (s orderStore) GetByID(_ context.Context, orderID id.ID) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperror.NewNotFound("credit order", orderID.String())
	}
	return &o, nil
}

func (s orderStore) GetForUpdate(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.GetByID(ctx, orderID)
}

func (s orderStore) ListOpenForUpdate(_ context.Context, customerID id.ID) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if o.CustomerID == customerID && o.IsOpen() {
			out = append(out, &o)
		}
	}
	SortOldestDebtFirst(out)
	return out, nil
}

func (s orderStore) UpdatePayment(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.orders[o.ID]
	if !ok || stored.Version != o.Version {
		return apperror.NewConcurrentModification("credit order", o.ID.String())
	}
	o.Version++
	s.orders[o.ID] = *o
	return nil
}

func (s orderStore) List(_ context.Context, f ListFilter) (domain.ListResult[*Order], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*Order
	for _, o := range s.orders {
		if f.CustomerID != nil && o.CustomerID != *f.CustomerID {
			continue
		}
		if f.OpenOnly && !o.IsOpen() {
			continue
		}
		if f.OverdueAt != nil && !o.IsOverdue(*f.OverdueAt) {
			continue
		}
		items = append(items, &o)
	}
	SortOldestDebtFirst(items)
	return domain.ListResult[*Order]{Items: items, TotalCount: int64(len(items)), Limit: f.Limit, Offset: f.Offset}, nil
}

func (s orderStore) ListDueForReminder(_ context.Context, now, remindedBefore time.Time, limit int) ([]*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Order
	for _, o := range s.orders {
		if !o.IsOverdue(now) {
			continue
		}
		if o.LastRemindedAt != nil && !o.LastRemindedAt.Before(remindedBefore) {
			continue
		}
		out = append(out, &o)
	}
	SortOldestDebtFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s orderStore) MarkReminded(_ context.Context, orderID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return apperror.NewNotFound("credit order", orderID.String())
	}
	o.LastRemindedAt = &at
	s.orders[orderID] = o
	return nil
}

// --- PaymentRepository ---

type paymentStore struct{ *memStore }

func (s paymentStore) Create(_ context.Context, p *PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments = append(s.payments, p)
	return nil
}

func (s paymentStore) ListByCustomer(_ context.Context, customerID id.ID, limit int) ([]*PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*PaymentRecord
	for i := len(s.payments) - 1; i >= 0 && len(out) < limit; i-- {
		if s.payments[i].CustomerID == customerID {
			out = append(out, s.payments[i])
		}
	}
	return out, nil
}

// --- collaborators ---

type memActivity struct {
	mu      sync.Mutex
	entries []*activity.Entry
}

func (a *memActivity) Append(_ context.Context, e *activity.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

// memOutbox keeps published events and drops the ones published by a
// transaction that rolled back.
type memOutbox struct {
	mu     sync.Mutex
	events []*notification.Event
	inTx   []bool
	saved  int
}

func (o *memOutbox) Publish(ctx context.Context, e *notification.Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
	o.inTx = append(o.inTx, txtest.InTransaction(ctx))
	return nil
}

func (o *memOutbox) begin() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.saved = len(o.events)
}

func (o *memOutbox) rollback() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = o.events[:o.saved]
	o.inTx = o.inTx[:o.saved]
}

type seqNumbers struct {
	mu sync.Mutex
	n  int
}

func (g *seqNumbers) Next(_ context.Context, prefix string, at time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d-%05d", prefix, at.Year(), g.n), nil
}

// --- fixtures ---

var day0 = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func money(s string) types.Money { return types.MustMoney(s) }

type fixture struct {
	store    *memStore
	txm      *txtest.Manager
	activity *memActivity
	outbox   *memOutbox
	ledger   *Reconciler
	orders   *OrderService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := newMemStore()
	outbox := &memOutbox{}
	f := &fixture{
		store: store,
		txm: &txtest.Manager{
			Begin: func() {
				store.begin()
				outbox.begin()
			},
			Rollback: func() {
				store.rollback()
				outbox.rollback()
			},
		},
		activity: &memActivity{},
		outbox:   outbox,
		now:      day(10),
	}

	rec := activity.NewRecorder(f.activity)
	notifier := notification.NewNotifier(f.outbox)

	f.ledger = NewReconciler(ReconcilerConfig{
		TxManager: f.txm,
		Customers: store,
		Orders:    orderStore{store},
		Payments:  paymentStore{store},
		Activity:  rec,
		Notifier:  notifier,
	})
	f.ledger.now = func() time.Time { return f.now }

	f.orders = NewOrderService(f.txm, store, orderStore{store}, &seqNumbers{}, rec, notifier)
	f.orders.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addCustomer(t *testing.T, limit string) *customer.Customer {
	t.Helper()
	c := customer.New("", "Test Customer", money(limit), day0)
	c.Code = "C-" + c.ID.String()[:8]
	f.store.customers[c.ID] = *c
	return c
}

// addOrder stores an open order and charges the customer balance directly.
func (f *fixture) addOrder(t *testing.T, c *customer.Customer, number, outstanding string, orderDate, dueDate time.Time) *Order {
	t.Helper()
	amount := money(outstanding)
	o := &Order{
		Base:              entity.NewBase(orderDate),
		CustomerID:        c.ID,
		OrderNumber:       number,
		OrderDate:         orderDate,
		DueDate:           dueDate,
		SubtotalSnapshot:  amount,
		AmountPaidCash:    types.Zero(),
		CreditOutstanding: amount,
		PaymentStatus:     StatusPendingCredit,
	}
	require.NoError(t, o.Validate(context.Background()))
	f.store.orders[o.ID] = *o

	stored := f.store.customers[c.ID]
	stored.CurrentBalance = stored.CurrentBalance.Add(amount)
	f.store.customers[c.ID] = stored
	return o
}

func (f *fixture) order(t *testing.T, orderID id.ID) Order {
	t.Helper()
	o, ok := f.store.orders[orderID]
	require.True(t, ok)
	return o
}

func (f *fixture) balance(t *testing.T, customerID id.ID) types.Money {
	t.Helper()
	c, ok := f.store.customers[customerID]
	require.True(t, ok)
	return c.CurrentBalance
}
