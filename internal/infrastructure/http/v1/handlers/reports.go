package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shopledger/internal/domain/reports"
	"shopledger/internal/infrastructure/http/v1/dto"
)

// ReportService is the part of reports.Service used over HTTP.
type ReportService interface {
	Dashboard(ctx context.Context, f reports.Filter) (*reports.Dashboard, error)
	Revenue(ctx context.Context, f reports.Filter) ([]reports.RevenuePoint, error)
	Categories(ctx context.Context, f reports.Filter) ([]reports.CategoryRow, error)
	TopProducts(ctx context.Context, f reports.Filter) ([]reports.ProductRow, error)
}

// ReportsHandler handles HTTP requests for reports.
type ReportsHandler struct {
	*BaseHandler
	service ReportService
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(base *BaseHandler, service ReportService) *ReportsHandler {
	return &ReportsHandler{
		BaseHandler: base,
		service:     service,
	}
}

func (h *ReportsHandler) filter(c *gin.Context) (reports.Filter, bool) {
	var req dto.ReportRequest
	if !h.BindQuery(c, &req) {
		return reports.Filter{}, false
	}
	return req.ToFilter(), true
}

// Dashboard handles GET /reports/dashboard
func (h *ReportsHandler) Dashboard(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	d, err := h.service.Dashboard(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromDashboard(d))
}

// Revenue handles GET /reports/revenue
func (h *ReportsHandler) Revenue(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	points, err := h.service.Revenue(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": dto.FromRevenue(points)})
}

// Categories handles GET /reports/categories
func (h *ReportsHandler) Categories(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	rows, err := h.service.Categories(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": dto.FromCategories(rows)})
}

// TopProducts handles GET /reports/top-products
func (h *ReportsHandler) TopProducts(c *gin.Context) {
	f, ok := h.filter(c)
	if !ok {
		return
	}

	rows, err := h.service.TopProducts(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": dto.FromProducts(rows)})
}
