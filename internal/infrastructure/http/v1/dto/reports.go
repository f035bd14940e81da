package dto

import (
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/domain/reports"
)

// ReportRequest holds report query parameters. Dates are inclusive days.
type ReportRequest struct {
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	CustomerID string     `form:"customerId" binding:"omitempty,uuid"`
	Limit      int        `form:"limit" binding:"omitempty,min=1,max=100"`
}

// ToFilter converts to the domain filter; To is moved to the start of the next day.
func (r *ReportRequest) ToFilter() reports.Filter {
	f := reports.Filter{Limit: r.Limit}
	if r.From != nil {
		f.From = r.From.UTC()
	}
	if r.To != nil {
		f.To = r.To.UTC().AddDate(0, 0, 1)
	}
	if r.CustomerID != "" {
		if cid, err := id.Parse(r.CustomerID); err == nil {
			f.CustomerID = &cid
		}
	}
	return f
}

// SummaryResponse holds headline figures.
type SummaryResponse struct {
	Revenue       string `json:"revenue"`
	Collected     string `json:"collected"`
	OrderCount    int    `json:"orderCount"`
	Receivables   string `json:"receivables"`
	OverdueAmount string `json:"overdueAmount"`
	OverdueCount  int    `json:"overdueCount"`
}

// RevenuePointResponse is one day of revenue.
type RevenuePointResponse struct {
	Day        string `json:"day"`
	Revenue    string `json:"revenue"`
	OrderCount int    `json:"orderCount"`
}

// CategoryResponse is revenue per category.
type CategoryResponse struct {
	Category string `json:"category"`
	Revenue  string `json:"revenue"`
	Quantity string `json:"quantity"`
	Lines    int    `json:"lines"`
}

// ProductResponse is revenue per item.
type ProductResponse struct {
	ItemName string `json:"itemName"`
	Category string `json:"category"`
	Quantity string `json:"quantity"`
	Revenue  string `json:"revenue"`
}

// DashboardResponse combines all rollups.
type DashboardResponse struct {
	From        time.Time              `json:"from"`
	To          time.Time              `json:"to"`
	Summary     SummaryResponse        `json:"summary"`
	Revenue     []RevenuePointResponse `json:"revenue"`
	Categories  []CategoryResponse     `json:"categories"`
	TopProducts []ProductResponse      `json:"topProducts"`
}

// FromSummary maps summary figures.
func FromSummary(s reports.Summary) SummaryResponse {
	return SummaryResponse{
		Revenue:       Money(s.Revenue),
		Collected:     Money(s.Collected),
		OrderCount:    s.OrderCount,
		Receivables:   Money(s.Receivables),
		OverdueAmount: Money(s.OverdueAmount),
		OverdueCount:  s.OverdueCount,
	}
}

// FromRevenue maps the daily series.
func FromRevenue(points []reports.RevenuePoint) []RevenuePointResponse {
	out := make([]RevenuePointResponse, len(points))
	for i, p := range points {
		out[i] = RevenuePointResponse{
			Day:        p.Day.Format(time.DateOnly),
			Revenue:    Money(p.Revenue),
			OrderCount: p.OrderCount,
		}
	}
	return out
}

// FromCategories maps category rows.
func FromCategories(rows []reports.CategoryRow) []CategoryResponse {
	out := make([]CategoryResponse, len(rows))
	for i, r := range rows {
		out[i] = CategoryResponse{
			Category: r.Category,
			Revenue:  Money(r.Revenue),
			Quantity: r.Quantity.String(),
			Lines:    r.Lines,
		}
	}
	return out
}

// FromProducts maps product rows.
func FromProducts(rows []reports.ProductRow) []ProductResponse {
	out := make([]ProductResponse, len(rows))
	for i, r := range rows {
		out[i] = ProductResponse{
			ItemName: r.ItemName,
			Category: r.Category,
			Quantity: r.Quantity.String(),
			Revenue:  Money(r.Revenue),
		}
	}
	return out
}

// FromDashboard maps the whole dashboard.
func FromDashboard(d *reports.Dashboard) DashboardResponse {
	return DashboardResponse{
		From:        d.From,
		To:          d.To,
		Summary:     FromSummary(d.Summary),
		Revenue:     FromRevenue(d.Revenue),
		Categories:  FromCategories(d.Categories),
		TopProducts: FromProducts(d.TopProducts),
	}
}
