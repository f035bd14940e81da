// Package customer provides customers with credit accounts.
package customer

import (
	"context"
	"regexp"
	"strings"
	"time"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/entity"
	"shopledger/internal/core/types"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer is a buyer who may purchase on credit.
type Customer struct {
	entity.Base

	// Code is a short unique identifier, generated when empty
	Code string `db:"code" json:"code"`

	Name  string  `db:"name" json:"name"`
	Phone *string `db:"phone" json:"phone,omitempty"`
	Email *string `db:"email" json:"email,omitempty"`

	// CreditLimit caps CurrentBalance for new credit sales. Zero disables the check.
	CreditLimit types.Money `db:"credit_limit" json:"creditLimit"`

	// CurrentBalance is the sum of outstanding amounts of the customer's credit orders.
	CurrentBalance types.Money `db:"current_balance" json:"currentBalance"`

	DeletionMark bool `db:"deletion_mark" json:"deletionMark"`
}

// New creates a customer with zero balance.
func New(code, name string, creditLimit types.Money, now time.Time) *Customer {
	return &Customer{
		Base:           entity.NewBase(now),
		Code:           strings.TrimSpace(code),
		Name:           strings.TrimSpace(name),
		CreditLimit:    creditLimit,
		CurrentBalance: types.Zero(),
	}
}

// Validate implements entity.Validatable.
func (c *Customer) Validate(_ context.Context) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if c.CreditLimit.IsNegative() {
		return apperror.NewValidation("credit limit must not be negative").
			WithDetail("field", "creditLimit")
	}
	if !types.HasMoneyScale(c.CreditLimit) {
		return apperror.NewValidation("credit limit has too many decimal places").
			WithDetail("field", "creditLimit")
	}
	if !types.InMoneyRange(c.CreditLimit) {
		return apperror.NewValidation("credit limit is out of range").
			WithDetail("field", "creditLimit").
			WithDetail("max", types.MaxMoney.String())
	}
	if c.CurrentBalance.IsNegative() {
		return apperror.NewValidation("current balance must not be negative").
			WithDetail("field", "currentBalance")
	}
	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email format").WithDetail("field", "email")
	}
	return nil
}

// HasCreditLimit reports whether new credit sales are capped.
func (c *Customer) HasCreditLimit() bool {
	return c.CreditLimit.IsPositive()
}

// AvailableCredit returns the headroom under the credit limit.
// It is meaningless when HasCreditLimit is false.
func (c *Customer) AvailableCredit() types.Money {
	available := c.CreditLimit.Sub(c.CurrentBalance)
	if available.IsNegative() {
		return types.Zero()
	}
	return available
}

// Charge adds a new credit sale to the balance, enforcing the credit limit.
func (c *Customer) Charge(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("charge amount must be positive").
			WithDetail("amount", amount.String())
	}
	next := c.CurrentBalance.Add(amount)
	if !types.InMoneyRange(next) {
		return apperror.NewValidation("customer balance would be out of range").
			WithDetail("balance", c.CurrentBalance.String()).
			WithDetail("amount", amount.String())
	}
	if c.HasCreditLimit() && next.GreaterThan(c.CreditLimit) {
		return apperror.NewCreditLimitExceeded(
			c.ID.String(),
			c.CreditLimit.String(),
			c.CurrentBalance.String(),
			amount.String(),
		)
	}
	c.CurrentBalance = next
	return nil
}

// Settle removes a payment from the balance.
func (c *Customer) Settle(amount types.Money) error {
	if !amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("amount", amount.String())
	}
	if amount.GreaterThan(c.CurrentBalance) {
		return apperror.NewValidation("payment amount exceeds customer balance").
			WithDetail("amount", amount.String()).
			WithDetail("balance", c.CurrentBalance.String())
	}
	c.CurrentBalance = c.CurrentBalance.Sub(amount)
	return nil
}
