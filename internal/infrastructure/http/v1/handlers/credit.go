package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
	"shopledger/internal/domain/credit"
	"shopledger/internal/infrastructure/http/v1/dto"
)

// OrderService is the part of credit.OrderService used over HTTP.
type OrderService interface {
	Create(ctx context.Context, in credit.CreateOrderInput) (*credit.Order, error)
	Get(ctx context.Context, orderID id.ID) (*credit.Order, error)
	List(ctx context.Context, f credit.ListFilter) (domain.ListResult[*credit.Order], error)
	Overdue(ctx context.Context, customerID *id.ID, limit, offset int) (domain.ListResult[*credit.Order], error)
}

// Ledger applies payments to customer credit.
type Ledger interface {
	Apply(ctx context.Context, p credit.Payment) (*credit.PaymentOutcome, error)
	ApplyToOrder(ctx context.Context, customerID, orderID id.ID, amount types.Money) (*credit.OrderPaymentResult, error)
	ApplyToCustomerBalance(ctx context.Context, customerID id.ID, amount types.Money) (*credit.BalancePaymentResult, error)
}

// CreditHandler handles credit order and payment endpoints.
type CreditHandler struct {
	*BaseHandler
	orders OrderService
	ledger Ledger
}

// NewCreditHandler creates a new credit handler.
func NewCreditHandler(base *BaseHandler, orders OrderService, ledger Ledger) *CreditHandler {
	return &CreditHandler{
		BaseHandler: base,
		orders:      orders,
		ledger:      ledger,
	}
}

// ListOrders handles GET /credit/orders
func (h *CreditHandler) ListOrders(c *gin.Context) {
	var req dto.OrderListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	res, err := h.orders.List(c.Request.Context(), req.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrderList(res, h.Now()))
}

// CreateOrder handles POST /credit/orders
func (h *CreditHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	order, err := h.orders.Create(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromOrder(order, h.Now()))
}

// GetOrder handles GET /credit/orders/:id
func (h *CreditHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.ParamID(c, "id")
	if !ok {
		return
	}

	order, err := h.orders.Get(c.Request.Context(), orderID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrder(order, h.Now()))
}

// ListOverdue handles GET /credit/orders/overdue
func (h *CreditHandler) ListOverdue(c *gin.Context) {
	var req struct {
		dto.PageRequest
		CustomerID string `form:"customerId" binding:"omitempty,uuid"`
	}
	if !h.BindQuery(c, &req) {
		return
	}

	var customerID *id.ID
	if req.CustomerID != "" {
		cid, err := id.Parse(req.CustomerID)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid customerId"))
			return
		}
		customerID = &cid
	}

	res, err := h.orders.Overdue(c.Request.Context(), customerID, req.Limit, req.Offset)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrderList(res, h.Now()))
}

// PayOrder handles POST /credit/payments/order
func (h *CreditHandler) PayOrder(c *gin.Context) {
	var req dto.OrderPaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.ledger.ApplyToOrder(c.Request.Context(), req.CustomerID, req.OrderID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromOrderPayment(res, h.Now()))
}

// PayBalance handles POST /credit/payments/balance
func (h *CreditHandler) PayBalance(c *gin.Context) {
	var req dto.BalancePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	res, err := h.ledger.ApplyToCustomerBalance(c.Request.Context(), req.CustomerID, req.Amount)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromBalancePayment(res, h.Now()))
}

// Pay handles POST /credit/payments
func (h *CreditHandler) Pay(c *gin.Context) {
	var req dto.PaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	if req.Kind == string(credit.PaymentKindOrder) && req.OrderID == nil {
		h.Error(c, apperror.NewValidation("orderId is required for order payments"))
		return
	}

	outcome, err := h.ledger.Apply(c.Request.Context(), req.ToPayment())
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromPaymentOutcome(outcome, h.Now()))
}
