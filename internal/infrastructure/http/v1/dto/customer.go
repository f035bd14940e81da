package dto

import (
	"time"

	"shopledger/internal/core/types"
	"shopledger/internal/domain/customer"
)

// CreateCustomerRequest for POST /customers.
type CreateCustomerRequest struct {
	Code        string      `json:"code"`
	Name        string      `json:"name" binding:"required"`
	Phone       *string     `json:"phone"`
	Email       *string     `json:"email"`
	CreditLimit types.Money `json:"creditLimit"`
}

// ToInput converts to the service input.
func (r *CreateCustomerRequest) ToInput() customer.CreateInput {
	return customer.CreateInput{
		Code:        r.Code,
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		CreditLimit: r.CreditLimit,
	}
}

// UpdateCustomerRequest for PUT /customers/:id.
type UpdateCustomerRequest struct {
	Name        string      `json:"name" binding:"required"`
	Phone       *string     `json:"phone"`
	Email       *string     `json:"email"`
	CreditLimit types.Money `json:"creditLimit"`
	Version     int         `json:"version" binding:"required,min=1"`
}

// ToInput converts to the service input.
func (r *UpdateCustomerRequest) ToInput() customer.UpdateInput {
	return customer.UpdateInput{
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		CreditLimit: r.CreditLimit,
		Version:     r.Version,
	}
}

// CustomerListRequest holds GET /customers query parameters.
type CustomerListRequest struct {
	PageRequest
	WithBalance    bool `form:"withBalance"`
	IncludeDeleted bool `form:"includeDeleted"`
}

// ToFilter converts to the domain filter.
func (r *CustomerListRequest) ToFilter() customer.ListFilter {
	f := customer.ListFilter{ListFilter: r.ToListFilter(), WithBalance: r.WithBalance}
	f.IncludeDeleted = r.IncludeDeleted
	return f
}

// CustomerResponse represents a customer.
type CustomerResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Phone          *string   `json:"phone,omitempty"`
	Email          *string   `json:"email,omitempty"`
	CreditLimit    string    `json:"creditLimit"`
	CurrentBalance string    `json:"currentBalance"`
	DeletionMark   bool      `json:"deletionMark"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FromCustomer creates response from domain customer.
func FromCustomer(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:             c.ID.String(),
		Code:           c.Code,
		Name:           c.Name,
		Phone:          c.Phone,
		Email:          c.Email,
		CreditLimit:    Money(c.CreditLimit),
		CurrentBalance: Money(c.CurrentBalance),
		DeletionMark:   c.DeletionMark,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
