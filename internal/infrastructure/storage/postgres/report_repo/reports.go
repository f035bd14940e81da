// Package report_repo provides PostgreSQL queries behind the dashboard.
package report_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shopledger/internal/domain/credit"
	"shopledger/internal/domain/reports"
	"shopledger/internal/infrastructure/storage/postgres"
)

const (
	ordersTable   = "doc_credit_orders"
	linesTable    = "doc_credit_order_lines"
	paymentsTable = "doc_payments"
)

// ReportRepo implements reports.Repository.
type ReportRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo(txm *postgres.TxManager) *ReportRepo {
	return &ReportRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Summary returns period totals plus receivables as of now.
func (r *ReportRepo) Summary(ctx context.Context, f reports.Filter, now time.Time) (reports.Summary, error) {
	sql, args, err := r.summaryQuery(f, now).ToSql()
	if err != nil {
		return reports.Summary{}, fmt.Errorf("build summary: %w", err)
	}

	var s reports.Summary
	err = r.txm.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(
		&s.Revenue, &s.OrderCount, &s.Collected,
		&s.Receivables, &s.OverdueAmount, &s.OverdueCount,
	)
	if err != nil {
		return reports.Summary{}, fmt.Errorf("query summary: %w", err)
	}
	return s, nil
}

func (r *ReportRepo) summaryQuery(f reports.Filter, now time.Time) squirrel.SelectBuilder {
	inPeriod := periodCondition("", "order_date", f)
	open := squirrel.And{
		customerCondition("", f),
		squirrel.NotEq{"payment_status": string(credit.StatusPaid)},
		squirrel.Gt{"credit_outstanding": 0},
	}
	overdue := squirrel.And{open, squirrel.Expr("COALESCE(allowed_until, due_date) < ?", now)}

	sub := func(expr, table string, where squirrel.Sqlizer) squirrel.SelectBuilder {
		return squirrel.Select(expr).From(table).Where(where)
	}

	return r.builder.Select().
		Column(squirrel.Alias(sub("COALESCE(SUM(subtotal_snapshot), 0)", ordersTable, inPeriod), "revenue")).
		Column(squirrel.Alias(sub("COUNT(*)", ordersTable, inPeriod), "order_count")).
		Column(squirrel.Alias(sub("COALESCE(SUM(amount), 0)", paymentsTable, periodCondition("", "created_at", f)), "collected")).
		Column(squirrel.Alias(sub("COALESCE(SUM(credit_outstanding), 0)", ordersTable, open), "receivables")).
		Column(squirrel.Alias(sub("COALESCE(SUM(credit_outstanding), 0)", ordersTable, overdue), "overdue_amount")).
		Column(squirrel.Alias(sub("COUNT(*)", ordersTable, overdue), "overdue_count"))
}

// RevenueByDay returns order revenue grouped by UTC day.
func (r *ReportRepo) RevenueByDay(ctx context.Context, f reports.Filter) ([]reports.RevenuePoint, error) {
	var points []reports.RevenuePoint
	if err := r.selectAll(ctx, &points, r.revenueQuery(f)); err != nil {
		return nil, fmt.Errorf("revenue by day: %w", err)
	}
	return points, nil
}

func (r *ReportRepo) revenueQuery(f reports.Filter) squirrel.SelectBuilder {
	day := "date_trunc('day', order_date AT TIME ZONE 'UTC')"
	return r.builder.
		Select(
			day+" AS day",
			"SUM(subtotal_snapshot) AS revenue",
			"COUNT(*) AS order_count",
		).
		From(ordersTable).
		Where(periodCondition("", "order_date", f)).
		GroupBy(day).
		OrderBy("day ASC")
}

// Categories returns line revenue per category, largest first.
func (r *ReportRepo) Categories(ctx context.Context, f reports.Filter) ([]reports.CategoryRow, error) {
	var rows []reports.CategoryRow
	if err := r.selectAll(ctx, &rows, r.categoriesQuery(f)); err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) categoriesQuery(f reports.Filter) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"l.category AS category",
			"SUM(l.amount) AS revenue",
			"SUM(l.quantity) AS quantity",
			"COUNT(*) AS lines",
		).
		From(linesTable + " l").
		Join(ordersTable + " o ON o.id = l.order_id").
		Where(periodCondition("o.", "order_date", f)).
		GroupBy("l.category").
		OrderBy("revenue DESC", "category ASC")
}

// TopProducts returns the items with the highest line revenue.
func (r *ReportRepo) TopProducts(ctx context.Context, f reports.Filter) ([]reports.ProductRow, error) {
	var rows []reports.ProductRow
	if err := r.selectAll(ctx, &rows, r.topProductsQuery(f)); err != nil {
		return nil, fmt.Errorf("top products: %w", err)
	}
	return rows, nil
}

func (r *ReportRepo) topProductsQuery(f reports.Filter) squirrel.SelectBuilder {
	return r.builder.
		Select(
			"l.item_name AS item_name",
			"l.category AS category",
			"SUM(l.quantity) AS quantity",
			"SUM(l.amount) AS revenue",
		).
		From(linesTable + " l").
		Join(ordersTable + " o ON o.id = l.order_id").
		Where(periodCondition("o.", "order_date", f)).
		GroupBy("l.item_name", "l.category").
		OrderBy("revenue DESC", "item_name ASC").
		Limit(uint64(f.Limit))
}

func (r *ReportRepo) selectAll(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return pgxscan.Select(ctx, r.txm.GetQuerier(ctx), dst, sql, args...)
}

// periodCondition restricts column to [From, To) and optionally one customer.
// prefix qualifies both columns with a table alias.
func periodCondition(prefix, column string, f reports.Filter) squirrel.And {
	return squirrel.And{
		squirrel.GtOrEq{prefix + column: f.From},
		squirrel.Lt{prefix + column: f.To},
		customerCondition(prefix, f),
	}
}

func customerCondition(prefix string, f reports.Filter) squirrel.Sqlizer {
	if f.CustomerID == nil {
		return squirrel.Expr("TRUE")
	}
	return squirrel.Eq{prefix + "customer_id": *f.CustomerID}
}
