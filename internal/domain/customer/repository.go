package customer

import (
	"context"
	"time"

	"shopledger/internal/core/id"
	"shopledger/internal/domain"
)

// ListFilter narrows customer lists.
type ListFilter struct {
	domain.ListFilter

	// WithBalance keeps only customers owing money
	WithBalance bool
}

// Repository persists customers. Update and UpdateBalance check Version and
// fail with CONCURRENT_MODIFICATION when the row changed underneath.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)

	// GetForUpdate reads the row with SELECT ... FOR UPDATE; requires a transaction.
	GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error)

	// Update saves profile fields and the credit limit.
	Update(ctx context.Context, c *Customer) error

	// UpdateBalance saves CurrentBalance only.
	UpdateBalance(ctx context.Context, c *Customer) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error)
}

// CodeGenerator produces customer codes.
type CodeGenerator interface {
	Next(ctx context.Context, prefix string, at time.Time) (string, error)
}
