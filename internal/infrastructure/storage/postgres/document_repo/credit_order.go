package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/domain"
	"shopledger/internal/domain/credit"
	"shopledger/internal/infrastructure/storage/postgres"
)

const (
	creditOrdersTable     = "doc_credit_orders"
	creditOrderLinesTable = "doc_credit_order_lines"
	orderNumberUnique     = "uq_doc_credit_orders_number"

	// oldestDebtFirst must match credit.SortOldestDebtFirst.
	oldestDebtFirst = "due_date ASC, order_date ASC, order_number ASC"
)

// CreditOrderRepo implements credit.OrderRepository.
type CreditOrderRepo struct {
	*BaseDocumentRepo[*credit.Order]
}

var _ credit.OrderRepository = (*CreditOrderRepo)(nil)

// NewCreditOrderRepo creates a new credit order repository.
func NewCreditOrderRepo(txm *postgres.TxManager) *CreditOrderRepo {
	return &CreditOrderRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			creditOrdersTable,
			postgres.ExtractDBColumns[credit.Order](),
			func() *credit.Order { return &credit.Order{} },
		),
	}
}

// Create inserts the order header and its lines.
func (r *CreditOrderRepo) Create(ctx context.Context, o *credit.Order) error {
	if err := r.insertHeader(ctx, o); err != nil {
		if postgres.IsUniqueViolation(err, orderNumberUnique) {
			return apperror.NewDuplicate("credit order", "number", o.OrderNumber).WithCause(err)
		}
		return err
	}
	return r.insertLines(ctx, o.ID, o.Lines)
}

func (r *CreditOrderRepo) insertLines(ctx context.Context, orderID id.ID, lines []credit.Line) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.Builder().
		Insert(creditOrderLinesTable).
		Columns("id", "order_id", "line_no", "item_name", "category", "quantity", "unit_price", "amount")

	for _, line := range lines {
		q = q.Values(line.ID, orderID, line.LineNo, line.ItemName, line.Category, line.Quantity, line.UnitPrice, line.Amount)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

// GetByID returns the order with its lines.
func (r *CreditOrderRepo) GetByID(ctx context.Context, orderID id.ID) (*credit.Order, error) {
	o, err := r.getHeader(ctx, orderID, false)
	if err != nil {
		return nil, err
	}
	if o.Lines, err = r.getLines(ctx, orderID); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *CreditOrderRepo) getLines(ctx context.Context, orderID id.ID) ([]credit.Line, error) {
	q := r.Builder().
		Select("id", "order_id", "line_no", "item_name", "category", "quantity", "unit_price", "amount").
		From(creditOrderLinesTable).
		Where(squirrel.Eq{"order_id": orderID}).
		OrderBy("line_no")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []credit.Line
	if err := pgxscan.Select(ctx, r.querier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	return lines, nil
}

// GetForUpdate locks and returns the order header.
func (r *CreditOrderRepo) GetForUpdate(ctx context.Context, orderID id.ID) (*credit.Order, error) {
	return r.getHeader(ctx, orderID, true)
}

// ListOpenForUpdate locks the customer's open orders, oldest debt first.
// Rows are locked in that order, so concurrent payers queue instead of
// deadlocking.
func (r *CreditOrderRepo) ListOpenForUpdate(ctx context.Context, customerID id.ID) ([]*credit.Order, error) {
	if r.txm.GetTx(ctx) == nil {
		return nil, fmt.Errorf("list open for update requires transaction context")
	}
	return r.selectAll(ctx, r.openQuery(customerID))
}

func (r *CreditOrderRepo) openQuery(customerID id.ID) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		Where(openCondition()).
		OrderBy(oldestDebtFirst).
		Suffix("FOR UPDATE")
}

// UpdatePayment saves the paid and outstanding amounts under the optimistic lock.
func (r *CreditOrderRepo) UpdatePayment(ctx context.Context, o *credit.Order) error {
	q := r.Builder().
		Update(creditOrdersTable).
		Set("amount_paid_cash", o.AmountPaidCash).
		Set("credit_outstanding", o.CreditOutstanding).
		Set("payment_status", o.PaymentStatus).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": o.ID}).
		Where(squirrel.Eq{"version": o.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("credit order", o.ID.String())
	}
	o.Version++
	return nil
}

// List returns order headers matching the filter, newest first by default.
func (r *CreditOrderRepo) List(ctx context.Context, f credit.ListFilter) (domain.ListResult[*credit.Order], error) {
	return r.listPage(ctx, r.listQuery(f), f.ListFilter, "order_date DESC")
}

func (r *CreditOrderRepo) listQuery(f credit.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if f.CustomerID != nil {
		q = q.Where(squirrel.Eq{"customer_id": *f.CustomerID})
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		q = q.Where(squirrel.Eq{"payment_status": statuses})
	}
	if f.OpenOnly {
		q = q.Where(openCondition())
	}
	if f.OverdueAt != nil {
		q = q.Where(overdueCondition(*f.OverdueAt))
	}
	if f.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"order_date": *f.DateFrom})
	}
	if f.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"order_date": *f.DateTo})
	}
	if f.Search != "" {
		q = q.Where(squirrel.ILike{"order_number": "%" + f.Search + "%"})
	}
	return q
}

// ListDueForReminder returns overdue orders not reminded since remindedBefore.
func (r *CreditOrderRepo) ListDueForReminder(ctx context.Context, now, remindedBefore time.Time, limit int) ([]*credit.Order, error) {
	q := r.baseSelect().
		Where(overdueCondition(now)).
		Where(squirrel.Or{
			squirrel.Eq{"last_reminded_at": nil},
			squirrel.Lt{"last_reminded_at": remindedBefore},
		}).
		OrderBy(oldestDebtFirst).
		Limit(uint64(limit))

	return r.selectAll(ctx, q)
}

// MarkReminded records when the last overdue reminder was queued.
// It does not bump the version so it never races with payments.
func (r *CreditOrderRepo) MarkReminded(ctx context.Context, orderID id.ID, at time.Time) error {
	sql, args, err := r.Builder().
		Update(creditOrdersTable).
		Set("last_reminded_at", at).
		Where(squirrel.Eq{"id": orderID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("credit order", orderID.String())
	}
	return nil
}

func openCondition() squirrel.Sqlizer {
	return squirrel.And{
		squirrel.NotEq{"payment_status": string(credit.StatusPaid)},
		squirrel.Gt{"credit_outstanding": 0},
	}
}

func overdueCondition(now time.Time) squirrel.Sqlizer {
	return squirrel.And{
		squirrel.Gt{"credit_outstanding": 0},
		squirrel.Expr("COALESCE(allowed_until, due_date) < ?", now),
	}
}
