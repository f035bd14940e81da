package reports

import (
	"context"
	"time"
)

// Repository defines report data access.
type Repository interface {
	// Summary returns period totals plus receivables as of now.
	Summary(ctx context.Context, f Filter, now time.Time) (Summary, error)

	RevenueByDay(ctx context.Context, f Filter) ([]RevenuePoint, error)
	Categories(ctx context.Context, f Filter) ([]CategoryRow, error)
	TopProducts(ctx context.Context, f Filter) ([]ProductRow, error)
}
