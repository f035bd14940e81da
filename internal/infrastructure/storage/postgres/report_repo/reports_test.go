package report_repo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/id"
	"shopledger/internal/domain/reports"
)

var (
	from = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	to   = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
)

func TestReportRepo_SummaryQuery(t *testing.T) {
	r := NewReportRepo(nil)
	now := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)

	sql, args, err := r.summaryQuery(reports.Filter{From: from, To: to}, now).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "(SELECT COALESCE(SUM(subtotal_snapshot), 0) FROM doc_credit_orders WHERE (order_date >= $1 AND order_date < $2 AND TRUE)) AS revenue")
	assert.Contains(t, sql, "FROM doc_payments WHERE (created_at >= $5 AND created_at < $6 AND TRUE)) AS collected")
	assert.Contains(t, sql, "COALESCE(allowed_until, due_date) < $11")
	assert.Contains(t, sql, "AS overdue_count")
	require.Len(t, args, 14)
	assert.Equal(t, now, args[10])
}

func TestReportRepo_SummaryQuery_Customer(t *testing.T) {
	r := NewReportRepo(nil)
	customerID := id.New()

	sql, args, err := r.summaryQuery(reports.Filter{From: from, To: to, CustomerID: &customerID}, to).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "(order_date >= $1 AND order_date < $2 AND customer_id = $3)")
	assert.NotContains(t, sql, "TRUE")
	assert.Len(t, args, 20)
}

func TestReportRepo_TopProductsQuery(t *testing.T) {
	r := NewReportRepo(nil)

	sql, args, err := r.topProductsQuery(reports.Filter{From: from, To: to, Limit: 5}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM doc_credit_order_lines l JOIN doc_credit_orders o ON o.id = l.order_id")
	assert.Contains(t, sql, "WHERE (o.order_date >= $1 AND o.order_date < $2 AND TRUE)")
	assert.Contains(t, sql, "GROUP BY l.item_name, l.category")
	assert.Contains(t, sql, "ORDER BY revenue DESC, item_name ASC LIMIT 5")
	assert.Equal(t, []any{from, to}, args)
}

func TestReportRepo_RevenueAndCategoryQueries(t *testing.T) {
	r := NewReportRepo(nil)
	f := reports.Filter{From: from, To: to}

	sql, _, err := r.revenueQuery(f).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "GROUP BY date_trunc('day', order_date AT TIME ZONE 'UTC') ORDER BY day ASC")

	sql, _, err = r.categoriesQuery(f).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "GROUP BY l.category ORDER BY revenue DESC, category ASC")
}
