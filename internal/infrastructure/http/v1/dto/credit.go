package dto

import (
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
	"shopledger/internal/domain/credit"
)

// --- Orders ---

// OrderLineRequest is one sold item.
type OrderLineRequest struct {
	ItemName  string      `json:"itemName" binding:"required"`
	Category  string      `json:"category"`
	Quantity  types.Money `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
}

// CreateOrderRequest for POST /credit/orders.
type CreateOrderRequest struct {
	CustomerID   id.ID              `json:"customerId" binding:"required"`
	OrderDate    *time.Time         `json:"orderDate"`
	DueDate      *time.Time         `json:"dueDate"`
	AllowedUntil *time.Time         `json:"allowedUntil"`
	Comment      *string            `json:"comment"`
	Lines        []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToInput converts to the service input.
func (r *CreateOrderRequest) ToInput() credit.CreateOrderInput {
	in := credit.CreateOrderInput{
		CustomerID:   r.CustomerID,
		DueDate:      r.DueDate,
		AllowedUntil: r.AllowedUntil,
		Comment:      r.Comment,
		Lines:        make([]credit.LineInput, len(r.Lines)),
	}
	if r.OrderDate != nil {
		in.OrderDate = *r.OrderDate
	}
	for i, l := range r.Lines {
		in.Lines[i] = credit.LineInput{
			ItemName:  l.ItemName,
			Category:  l.Category,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}
	return in
}

// OrderListRequest holds GET /credit/orders query parameters.
type OrderListRequest struct {
	PageRequest
	CustomerID string     `form:"customerId" binding:"omitempty,uuid"`
	Status     []string   `form:"status"`
	OpenOnly   bool       `form:"openOnly"`
	DateFrom   *time.Time `form:"dateFrom" time_format:"2006-01-02"`
	DateTo     *time.Time `form:"dateTo" time_format:"2006-01-02"`
}

// ToFilter converts to the domain filter.
func (r *OrderListRequest) ToFilter() credit.ListFilter {
	f := credit.ListFilter{
		ListFilter: r.ToListFilter(),
		OpenOnly:   r.OpenOnly,
		DateFrom:   r.DateFrom,
		DateTo:     r.DateTo,
	}
	if r.CustomerID != "" {
		if cid, err := id.Parse(r.CustomerID); err == nil {
			f.CustomerID = &cid
		}
	}
	for _, s := range r.Status {
		f.Statuses = append(f.Statuses, credit.PaymentStatus(s))
	}
	return f
}

// OrderLineResponse is a line snapshot.
type OrderLineResponse struct {
	LineNo    int    `json:"lineNo"`
	ItemName  string `json:"itemName"`
	Category  string `json:"category"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Amount    string `json:"amount"`
}

// OrderResponse represents a credit order.
type OrderResponse struct {
	ID                string              `json:"id"`
	CustomerID        string              `json:"customerId"`
	OrderNumber       string              `json:"orderNumber"`
	OrderDate         time.Time           `json:"orderDate"`
	DueDate           time.Time           `json:"dueDate"`
	AllowedUntil      *time.Time          `json:"allowedUntil,omitempty"`
	SubtotalSnapshot  string              `json:"subtotalSnapshot"`
	AmountPaidCash    string              `json:"amountPaidCash"`
	CreditOutstanding string              `json:"creditOutstanding"`
	PaymentStatus     string              `json:"paymentStatus"`
	Overdue           bool                `json:"overdue"`
	DaysOverdue       int                 `json:"daysOverdue,omitempty"`
	Comment           *string             `json:"comment,omitempty"`
	Version           int                 `json:"version"`
	Lines             []OrderLineResponse `json:"lines,omitempty"`
}

// FromOrder creates response from domain order; now drives the overdue flag.
func FromOrder(o *credit.Order, now time.Time) OrderResponse {
	resp := OrderResponse{
		ID:                o.ID.String(),
		CustomerID:        o.CustomerID.String(),
		OrderNumber:       o.OrderNumber,
		OrderDate:         o.OrderDate,
		DueDate:           o.DueDate,
		AllowedUntil:      o.AllowedUntil,
		SubtotalSnapshot:  Money(o.SubtotalSnapshot),
		AmountPaidCash:    Money(o.AmountPaidCash),
		CreditOutstanding: Money(o.CreditOutstanding),
		PaymentStatus:     string(o.PaymentStatus),
		Overdue:           o.IsOverdue(now),
		DaysOverdue:       o.DaysOverdue(now),
		Comment:           o.Comment,
		Version:           o.Version,
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			LineNo:    l.LineNo,
			ItemName:  l.ItemName,
			Category:  l.Category,
			Quantity:  l.Quantity.String(),
			UnitPrice: Money(l.UnitPrice),
			Amount:    Money(l.Amount),
		})
	}
	return resp
}

// FromOrderList maps a page of orders.
func FromOrderList(res domain.ListResult[*credit.Order], now time.Time) ListResponse[OrderResponse] {
	return NewListResponse(res, func(o *credit.Order) OrderResponse { return FromOrder(o, now) })
}

// --- Payments ---

// OrderPaymentRequest for POST /credit/payments/order.
type OrderPaymentRequest struct {
	CustomerID id.ID       `json:"customerId" binding:"required"`
	OrderID    id.ID       `json:"orderId" binding:"required"`
	Amount     types.Money `json:"amount"`
}

// BalancePaymentRequest for POST /credit/payments/balance.
type BalancePaymentRequest struct {
	CustomerID id.ID       `json:"customerId" binding:"required"`
	Amount     types.Money `json:"amount"`
}

// PaymentRequest for POST /credit/payments; OrderID is required for kind "order".
type PaymentRequest struct {
	Kind       string      `json:"kind" binding:"required,oneof=order balance"`
	CustomerID id.ID       `json:"customerId" binding:"required"`
	OrderID    *id.ID      `json:"orderId"`
	Amount     types.Money `json:"amount"`
}

// ToPayment converts to the domain variant.
func (r *PaymentRequest) ToPayment() credit.Payment {
	p := credit.Payment{
		Kind:       credit.PaymentKind(r.Kind),
		CustomerID: r.CustomerID,
		Amount:     r.Amount,
	}
	if r.OrderID != nil {
		p.OrderID = *r.OrderID
	}
	return p
}

// AppliedOrderResponse is an order with the share of a payment it received.
type AppliedOrderResponse struct {
	Order         OrderResponse `json:"order"`
	AppliedAmount string        `json:"appliedAmount"`
}

// OrderPaymentResponse is returned by an order payment.
type OrderPaymentResponse struct {
	PaymentID       string        `json:"paymentId"`
	Order           OrderResponse `json:"order"`
	AppliedAmount   string        `json:"appliedAmount"`
	CustomerBalance string        `json:"customerBalance"`
}

// FromOrderPayment creates response from the ledger result.
func FromOrderPayment(r *credit.OrderPaymentResult, now time.Time) OrderPaymentResponse {
	return OrderPaymentResponse{
		PaymentID:       r.PaymentID.String(),
		Order:           FromOrder(r.Order, now),
		AppliedAmount:   Money(r.Applied),
		CustomerBalance: Money(r.CustomerBalance),
	}
}

// BalancePaymentResponse is returned by a balance payment.
type BalancePaymentResponse struct {
	PaymentID       string                 `json:"paymentId"`
	Orders          []AppliedOrderResponse `json:"orders"`
	CustomerBalance string                 `json:"customerBalance"`
}

// FromBalancePayment creates response from the ledger result.
func FromBalancePayment(r *credit.BalancePaymentResult, now time.Time) BalancePaymentResponse {
	resp := BalancePaymentResponse{
		PaymentID:       r.PaymentID.String(),
		Orders:          make([]AppliedOrderResponse, len(r.Orders)),
		CustomerBalance: Money(r.CustomerBalance),
	}
	for i, a := range r.Orders {
		resp.Orders[i] = AppliedOrderResponse{
			Order:         FromOrder(a.Order, now),
			AppliedAmount: Money(a.Applied),
		}
	}
	return resp
}

// PaymentResponse is returned by the tagged entry point. Exactly one of
// OrderResult and BalanceResult is set, matching Kind.
type PaymentResponse struct {
	Kind          string                  `json:"kind"`
	OrderResult   *OrderPaymentResponse   `json:"orderResult,omitempty"`
	BalanceResult *BalancePaymentResponse `json:"balanceResult,omitempty"`
}

// FromPaymentOutcome creates response from the dispatched outcome.
func FromPaymentOutcome(o *credit.PaymentOutcome, now time.Time) PaymentResponse {
	resp := PaymentResponse{Kind: string(o.Kind)}
	if o.Order != nil {
		r := FromOrderPayment(o.Order, now)
		resp.OrderResult = &r
	}
	if o.Balance != nil {
		r := FromBalancePayment(o.Balance, now)
		resp.BalanceResult = &r
	}
	return resp
}

// AllocationResponse is one order share of a stored payment.
type AllocationResponse struct {
	OrderID     string `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Amount      string `json:"amount"`
}

// PaymentRecordResponse is a stored payment.
type PaymentRecordResponse struct {
	ID          string               `json:"id"`
	Kind        string               `json:"kind"`
	Amount      string               `json:"amount"`
	CreatedAt   time.Time            `json:"createdAt"`
	CreatedBy   *string              `json:"createdBy,omitempty"`
	Allocations []AllocationResponse `json:"allocations"`
}

// FromPaymentRecord creates response from stored history.
func FromPaymentRecord(p *credit.PaymentRecord) PaymentRecordResponse {
	resp := PaymentRecordResponse{
		ID:          p.ID.String(),
		Kind:        string(p.Kind),
		Amount:      Money(p.Amount),
		CreatedAt:   p.CreatedAt,
		CreatedBy:   p.CreatedBy,
		Allocations: make([]AllocationResponse, len(p.Allocations)),
	}
	for i, a := range p.Allocations {
		resp.Allocations[i] = AllocationResponse{
			OrderID:     a.OrderID.String(),
			OrderNumber: a.OrderNumber,
			Amount:      Money(a.Amount),
		}
	}
	return resp
}
