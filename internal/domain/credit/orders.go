package credit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/core/apperror"
	appctx "shopledger/internal/core/context"
	"shopledger/internal/core/entity"
	"shopledger/internal/core/id"
	"shopledger/internal/core/tx"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
	"shopledger/internal/domain/activity"
	"shopledger/internal/domain/notification"
	"shopledger/pkg/logger"
)

// OrderNumberPrefix prefixes generated credit order numbers.
const OrderNumberPrefix = "CR"

// DefaultTermDays is the payment term used when no due date is given.
const DefaultTermDays = 30

// LineInput is one sold item.
type LineInput struct {
	ItemName  string
	Category  string
	Quantity  types.Money
	UnitPrice types.Money
}

// CreateOrderInput records a credit sale.
type CreateOrderInput struct {
	CustomerID   id.ID
	OrderDate    time.Time
	DueDate      *time.Time
	AllowedUntil *time.Time
	Comment      *string
	Lines        []LineInput
}

// OrderService records credit sales and answers order queries.
type OrderService struct {
	txm       tx.Manager
	customers CustomerLedger
	orders    OrderRepository
	numbers   NumberGenerator
	activity  *activity.Recorder
	notifier  *notification.Notifier
	termDays  int
	now       func() time.Time
}

// NewOrderService creates an OrderService.
func NewOrderService(
	txm tx.Manager,
	customers CustomerLedger,
	orders OrderRepository,
	numbers NumberGenerator,
	rec *activity.Recorder,
	notifier *notification.Notifier,
) *OrderService {
	return &OrderService{
		txm:       txm,
		customers: customers,
		orders:    orders,
		numbers:   numbers,
		activity:  rec,
		notifier:  notifier,
		termDays:  DefaultTermDays,
		now:       time.Now,
	}
}

// SetDefaultTerm changes the payment term applied when an order has no due date.
func (s *OrderService) SetDefaultTerm(days int) {
	if days > 0 {
		s.termDays = days
	}
}

// Create records a credit sale: the whole subtotal becomes outstanding and is
// added to the customer's balance, subject to the credit limit.
func (s *OrderService) Create(ctx context.Context, in CreateOrderInput) (*Order, error) {
	now := s.now().UTC()

	order, err := buildOrder(in, now, s.termDays)
	if err != nil {
		return nil, err
	}
	if uid := appctx.GetUserID(ctx); uid != "" {
		order.CreatedBy = &uid
	}

	var balance types.Money
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		cust, err := s.customers.GetForUpdate(ctx, in.CustomerID)
		if err != nil {
			return err
		}
		if cust.DeletionMark {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "customer is marked for deletion").
				WithDetail("customerId", cust.ID.String())
		}
		if err := cust.Charge(order.SubtotalSnapshot); err != nil {
			return err
		}

		number, err := s.numbers.Next(ctx, OrderNumberPrefix, order.OrderDate)
		if err != nil {
			return fmt.Errorf("generate order number: %w", err)
		}
		order.OrderNumber = number

		if err := order.Validate(ctx); err != nil {
			return err
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}
		if err := s.customers.UpdateBalance(ctx, cust); err != nil {
			return err
		}
		balance = cust.CurrentBalance
		s.notifier.Notify(ctx, notification.EventOrderCreated, activity.EntityCreditOrder, order.ID, orderPayload(order, balance))
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "credit order created",
		"id", order.ID,
		"number", order.OrderNumber,
		"customer_id", order.CustomerID,
		"subtotal", order.SubtotalSnapshot.String(),
	)

	s.activity.Record(ctx, activity.EntityCreditOrder, order.ID, activity.ActionCreated,
		fmt.Sprintf("credit order %s created", order.OrderNumber), orderPayload(order, balance))

	return order, nil
}

func orderPayload(order *Order, balance types.Money) map[string]any {
	return map[string]any{
		"orderId":         order.ID.String(),
		"orderNumber":     order.OrderNumber,
		"customerId":      order.CustomerID.String(),
		"subtotal":        order.SubtotalSnapshot.String(),
		"dueDate":         order.DueDate.Format(time.DateOnly),
		"customerBalance": balance.String(),
	}
}

// Get returns an order with its lines.
func (s *OrderService) Get(ctx context.Context, orderID id.ID) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// List returns orders matching the filter.
func (s *OrderService) List(ctx context.Context, f ListFilter) (domain.ListResult[*Order], error) {
	f.Normalize()
	for _, st := range f.Statuses {
		if !st.Valid() {
			return domain.ListResult[*Order]{}, apperror.NewValidation("invalid payment status filter").
				WithDetail("status", string(st))
		}
	}
	return s.orders.List(ctx, f)
}

// Overdue lists orders past their deadline with money still owed, optionally
// for one customer.
func (s *OrderService) Overdue(ctx context.Context, customerID *id.ID, limit, offset int) (domain.ListResult[*Order], error) {
	now := s.now().UTC()
	f := ListFilter{
		ListFilter: domain.ListFilter{Limit: limit, Offset: offset, OrderBy: "due_date"},
		CustomerID: customerID,
		OpenOnly:   true,
		OverdueAt:  &now,
	}
	f.Normalize()
	return s.orders.List(ctx, f)
}

// RemindOverdue queues an order.overdue notification for every overdue order
// not reminded within interval. It returns the number of reminders queued.
func (s *OrderService) RemindOverdue(ctx context.Context, interval time.Duration, batch int) (int, error) {
	now := s.now().UTC()
	due, err := s.orders.ListDueForReminder(ctx, now, now.Add(-interval), batch)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, o := range due {
		if !o.IsOverdue(now) {
			continue
		}
		err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.orders.MarkReminded(ctx, o.ID, now); err != nil {
				return err
			}
			s.notifier.Notify(ctx, notification.EventOrderOverdue, activity.EntityCreditOrder, o.ID, map[string]any{
				"orderId":     o.ID.String(),
				"orderNumber": o.OrderNumber,
				"customerId":  o.CustomerID.String(),
				"outstanding": o.CreditOutstanding.String(),
				"deadline":    o.Deadline().Format(time.DateOnly),
				"daysOverdue": o.DaysOverdue(now),
			})
			return nil
		})
		if err != nil {
			logger.Warn(ctx, "mark reminded failed", "order_id", o.ID, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}

func buildOrder(in CreateOrderInput, now time.Time, termDays int) (*Order, error) {
	if id.IsNil(in.CustomerID) {
		return nil, apperror.NewValidation("customer is required").WithDetail("field", "customerId")
	}
	if len(in.Lines) == 0 {
		return nil, apperror.NewValidation("order must have at least one line").WithDetail("field", "lines")
	}

	orderDate := in.OrderDate
	if orderDate.IsZero() {
		orderDate = now
	}
	dueDate := orderDate.AddDate(0, 0, termDays)
	if in.DueDate != nil {
		dueDate = *in.DueDate
	}

	order := &Order{
		Base:         entity.NewBase(now),
		CustomerID:   in.CustomerID,
		OrderDate:    orderDate,
		DueDate:      dueDate,
		AllowedUntil: in.AllowedUntil,
		Comment:      in.Comment,
	}

	subtotal := types.Zero()
	for i, li := range in.Lines {
		line, err := buildLine(i+1, li)
		if err != nil {
			return nil, err
		}
		line.OrderID = order.ID
		order.Lines = append(order.Lines, line)
		subtotal = subtotal.Add(line.Amount)
	}
	if !types.InMoneyRange(subtotal) {
		return nil, apperror.NewValidation("order subtotal is out of range").
			WithDetail("subtotal", subtotal.String()).
			WithDetail("max", types.MaxMoney.String())
	}

	order.SubtotalSnapshot = subtotal
	order.AmountPaidCash = types.Zero()
	order.CreditOutstanding = subtotal
	order.PaymentStatus = StatusPendingCredit
	return order, nil
}

func buildLine(lineNo int, in LineInput) (Line, error) {
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return Line{}, apperror.NewValidation("item name is required").WithDetail("line", lineNo)
	}
	if !in.Quantity.IsPositive() {
		return Line{}, apperror.NewValidation("quantity must be positive").WithDetail("line", lineNo)
	}
	if !types.HasMoneyScale(in.Quantity) {
		return Line{}, apperror.NewValidation("quantity has too many decimal places").WithDetail("line", lineNo)
	}
	if in.UnitPrice.IsNegative() {
		return Line{}, apperror.NewValidation("unit price must not be negative").WithDetail("line", lineNo)
	}
	if !types.HasMoneyScale(in.UnitPrice) {
		return Line{}, apperror.NewValidation("unit price has too many decimal places").WithDetail("line", lineNo)
	}
	amount := in.Quantity.Mul(in.UnitPrice).Round(types.MoneyScale)
	if !types.InMoneyRange(in.Quantity) || !types.InMoneyRange(in.UnitPrice) || !types.InMoneyRange(amount) {
		return Line{}, apperror.NewValidation("line amount is out of range").
			WithDetail("line", lineNo).
			WithDetail("max", types.MaxMoney.String())
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "Uncategorized"
	}

	return Line{
		ID:        id.New(),
		LineNo:    lineNo,
		ItemName:  name,
		Category:  category,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		Amount:    amount,
	}, nil
}
