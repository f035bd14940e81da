package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shopledger/internal/core/id"
	"shopledger/internal/domain"
	"shopledger/internal/domain/credit"
	"shopledger/internal/domain/customer"
	"shopledger/internal/infrastructure/http/v1/dto"
)

// CustomerService is the part of customer.Service used over HTTP.
type CustomerService interface {
	Create(ctx context.Context, in customer.CreateInput) (*customer.Customer, error)
	Get(ctx context.Context, customerID id.ID) (*customer.Customer, error)
	List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error)
	Update(ctx context.Context, customerID id.ID, in customer.UpdateInput) (*customer.Customer, error)
}

// PaymentHistory lists payments received from a customer.
type PaymentHistory interface {
	Payments(ctx context.Context, customerID id.ID, limit int) ([]*credit.PaymentRecord, error)
}

const (
	defaultPaymentHistory = 50
	maxPaymentHistory     = 500
)

// CustomerHandler handles customer endpoints.
type CustomerHandler struct {
	*BaseHandler
	service  CustomerService
	payments PaymentHistory
}

// NewCustomerHandler creates a new customer handler.
func NewCustomerHandler(base *BaseHandler, service CustomerService, payments PaymentHistory) *CustomerHandler {
	return &CustomerHandler{
		BaseHandler: base,
		service:     service,
		payments:    payments,
	}
}

// List handles GET /customers
func (h *CustomerHandler) List(c *gin.Context) {
	var req dto.CustomerListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	res, err := h.service.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(res, dto.FromCustomer))
}

// Create handles POST /customers
func (h *CustomerHandler) Create(c *gin.Context) {
	var req dto.CreateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.service.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromCustomer(cust))
}

// Get handles GET /customers/:id
func (h *CustomerHandler) Get(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	cust, err := h.service.Get(c.Request.Context(), customerID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(cust))
}

// Update handles PUT /customers/:id
func (h *CustomerHandler) Update(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateCustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}

	cust, err := h.service.Update(c.Request.Context(), customerID, req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromCustomer(cust))
}

// Payments handles GET /customers/:id/payments
func (h *CustomerHandler) Payments(c *gin.Context) {
	customerID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	limit := h.ParseIntQuery(c, "limit", defaultPaymentHistory)
	if limit <= 0 || limit > maxPaymentHistory {
		limit = defaultPaymentHistory
	}

	ctx := c.Request.Context()
	if _, err := h.service.Get(ctx, customerID); err != nil {
		h.Error(c, err)
		return
	}

	records, err := h.payments.Payments(ctx, customerID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.PaymentRecordResponse, len(records))
	for i, p := range records {
		items[i] = dto.FromPaymentRecord(p)
	}
	h.OK(c, gin.H{"items": items})
}
