package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"shopledger/internal/core/apperror"
	"shopledger/internal/domain"
	"shopledger/internal/domain/customer"
	"shopledger/internal/infrastructure/storage/postgres"
)

const (
	customerTable      = "cat_customers"
	customerCodeUnique = "uq_cat_customers_code"
)

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

var _ customer.Repository = (*CustomerRepo)(nil)

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

// Create inserts a customer; a taken code is reported as a duplicate.
func (r *CustomerRepo) Create(ctx context.Context, c *customer.Customer) error {
	err := r.BaseCatalogRepo.Create(ctx, c)
	if postgres.IsUniqueViolation(err, customerCodeUnique) {
		return apperror.NewDuplicate("customer", "code", c.Code).WithCause(err)
	}
	return err
}

// Update saves profile fields and the credit limit.
func (r *CustomerRepo) Update(ctx context.Context, c *customer.Customer) error {
	err := r.UpdateColumns(ctx, c.ID, c.Version, map[string]any{
		"name":          c.Name,
		"phone":         c.Phone,
		"email":         c.Email,
		"credit_limit":  c.CreditLimit,
		"deletion_mark": c.DeletionMark,
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

// UpdateBalance saves the current balance.
func (r *CustomerRepo) UpdateBalance(ctx context.Context, c *customer.Customer) error {
	err := r.UpdateColumns(ctx, c.ID, c.Version, map[string]any{
		"current_balance": c.CurrentBalance,
	})
	if err != nil {
		return err
	}
	c.Version++
	return nil
}

// List returns customers matching the filter, ordered by name by default.
func (r *CustomerRepo) List(ctx context.Context, filter customer.ListFilter) (domain.ListResult[*customer.Customer], error) {
	return r.ListPage(ctx, r.listQuery(filter), filter.ListFilter, "name ASC")
}

func (r *CustomerRepo) listQuery(filter customer.ListFilter) squirrel.SelectBuilder {
	q := r.baseSelect()

	if !filter.IncludeDeleted {
		q = q.Where(squirrel.Eq{"deletion_mark": false})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"phone": pattern},
		})
	}
	if filter.WithBalance {
		q = q.Where(squirrel.Gt{"current_balance": 0})
	}
	return q
}
