package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/core/tx"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
	"shopledger/internal/domain/activity"
	"shopledger/pkg/logger"
)

const codePrefix = "C"

// Service provides customer management. Balances are not editable here;
// they change only through credit orders and payments.
type Service struct {
	repo     Repository
	txm      tx.Manager
	codes    CodeGenerator
	activity *activity.Recorder
	now      func() time.Time
}

// NewService creates a customer Service.
func NewService(repo Repository, txm tx.Manager, codes CodeGenerator, rec *activity.Recorder) *Service {
	return &Service{
		repo:     repo,
		txm:      txm,
		codes:    codes,
		activity: rec,
		now:      time.Now,
	}
}

// CreateInput holds fields for a new customer.
type CreateInput struct {
	Code        string
	Name        string
	Phone       *string
	Email       *string
	CreditLimit types.Money
}

// Create registers a customer, generating a code when none is given.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	c := New(in.Code, in.Name, in.CreditLimit, s.now().UTC())
	c.Phone = trimmed(in.Phone)
	c.Email = trimmed(in.Email)

	if err := c.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if c.Code == "" {
			code, err := s.codes.Next(ctx, codePrefix, c.CreatedAt)
			if err != nil {
				return fmt.Errorf("generate customer code: %w", err)
			}
			c.Code = code
		} else if err := s.ensureCodeFree(ctx, c.Code); err != nil {
			return err
		}
		return s.repo.Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "customer created", "id", c.ID, "code", c.Code)
	s.activity.Record(ctx, activity.EntityCustomer, c.ID, activity.ActionCreated,
		fmt.Sprintf("customer %s created", c.Code),
		map[string]any{"code": c.Code, "name": c.Name, "creditLimit": c.CreditLimit.String()})

	return c, nil
}

// Get returns a customer by ID.
func (s *Service) Get(ctx context.Context, customerID id.ID) (*Customer, error) {
	return s.repo.GetByID(ctx, customerID)
}

// List returns customers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Customer], error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// UpdateInput holds editable fields. Version must match the stored row.
type UpdateInput struct {
	Name        string
	Phone       *string
	Email       *string
	CreditLimit types.Money
	Version     int
}

// Update changes profile fields and the credit limit.
// A limit below the current balance is accepted; it only blocks new credit sales.
func (s *Service) Update(ctx context.Context, customerID id.ID, in UpdateInput) (*Customer, error) {
	var updated *Customer
	var changes map[string]any

	err := s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		c, err := s.repo.GetByID(ctx, customerID)
		if err != nil {
			return err
		}
		if in.Version != 0 && in.Version != c.Version {
			return apperror.NewConcurrentModification("customer", customerID.String())
		}

		changes = diff(c, in)

		c.Name = strings.TrimSpace(in.Name)
		c.Phone = trimmed(in.Phone)
		c.Email = trimmed(in.Email)
		c.CreditLimit = in.CreditLimit

		if err := c.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(changes) > 0 {
		s.activity.Record(ctx, activity.EntityCustomer, updated.ID, activity.ActionUpdated,
			fmt.Sprintf("customer %s updated", updated.Code), changes)
	}
	return updated, nil
}

func (s *Service) ensureCodeFree(ctx context.Context, code string) error {
	_, err := s.repo.GetByCode(ctx, code)
	switch {
	case err == nil:
		return apperror.NewDuplicate("customer", "code", code)
	case apperror.IsNotFound(err):
		return nil
	default:
		return err
	}
}

func diff(c *Customer, in UpdateInput) map[string]any {
	changes := make(map[string]any)
	if name := strings.TrimSpace(in.Name); name != c.Name {
		changes["name"] = map[string]any{"old": c.Name, "new": name}
	}
	if !c.CreditLimit.Equal(in.CreditLimit) {
		changes["creditLimit"] = map[string]any{"old": c.CreditLimit.String(), "new": in.CreditLimit.String()}
	}
	if deref(c.Phone) != deref(trimmed(in.Phone)) {
		changes["phone"] = map[string]any{"old": deref(c.Phone), "new": deref(trimmed(in.Phone))}
	}
	if deref(c.Email) != deref(trimmed(in.Email)) {
		changes["email"] = map[string]any{"old": deref(c.Email), "new": deref(trimmed(in.Email))}
	}
	return changes
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
