// Package reports aggregates sales and receivables for the dashboard.
package reports

import (
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
)

// Filter selects the reporting period. From is inclusive, To exclusive.
type Filter struct {
	From       time.Time
	To         time.Time
	CustomerID *id.ID

	// Limit caps top-N lists
	Limit int
}

// Summary holds headline figures for the period.
type Summary struct {
	// Revenue is the subtotal of orders placed in the period
	Revenue types.Money `json:"revenue"`

	// Collected is the sum of payments received in the period
	Collected types.Money `json:"collected"`

	OrderCount int `json:"orderCount"`

	// Receivables and overdue figures are as of now, regardless of period
	Receivables   types.Money `json:"receivables"`
	OverdueAmount types.Money `json:"overdueAmount"`
	OverdueCount  int         `json:"overdueCount"`
}

// RevenuePoint is one day of the revenue series.
type RevenuePoint struct {
	Day        time.Time   `db:"day" json:"day"`
	Revenue    types.Money `db:"revenue" json:"revenue"`
	OrderCount int         `db:"order_count" json:"orderCount"`
}

// CategoryRow is revenue per item category.
type CategoryRow struct {
	Category string      `db:"category" json:"category"`
	Revenue  types.Money `db:"revenue" json:"revenue"`
	Quantity types.Money `db:"quantity" json:"quantity"`
	Lines    int         `db:"lines" json:"lines"`
}

// ProductRow is revenue per item name.
type ProductRow struct {
	ItemName string      `db:"item_name" json:"itemName"`
	Category string      `db:"category" json:"category"`
	Quantity types.Money `db:"quantity" json:"quantity"`
	Revenue  types.Money `db:"revenue" json:"revenue"`
}

// Dashboard combines all rollups for one period.
type Dashboard struct {
	From        time.Time      `json:"from"`
	To          time.Time      `json:"to"`
	Summary     Summary        `json:"summary"`
	Revenue     []RevenuePoint `json:"revenue"`
	Categories  []CategoryRow  `json:"categories"`
	TopProducts []ProductRow   `json:"topProducts"`
}
