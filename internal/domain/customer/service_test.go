package customer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
	"shopledger/internal/core/id"
	"shopledger/internal/core/tx/txtest"
	"shopledger/internal/core/types"
	"shopledger/internal/domain"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[id.ID]Customer
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[id.ID]Customer)}
}

func (r *memRepo) Create(_ context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[c.ID] = *c
	return nil
}

func (r *memRepo) GetByID(_ context.Context, customerID id.ID) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID.String())
	}
	return &c, nil
}

func (r *memRepo) GetByCode(_ context.Context, code string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.rows {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, apperror.NewNotFound("customer", code)
}

func (r *memRepo) GetForUpdate(ctx context.Context, customerID id.ID) (*Customer, error) {
	return r.GetByID(ctx, customerID)
}

func (r *memRepo) Update(_ context.Context, c *Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rows[c.ID]
	if !ok || stored.Version != c.Version {
		return apperror.NewConcurrentModification("customer", c.ID.String())
	}
	c.Version++
	r.rows[c.ID] = *c
	return nil
}

func (r *memRepo) UpdateBalance(ctx context.Context, c *Customer) error {
	return r.Update(ctx, c)
}

func (r *memRepo) List(_ context.Context, f ListFilter) (domain.ListResult[*Customer], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []*Customer
	for _, c := range r.rows {
		if f.WithBalance && !c.CurrentBalance.IsPositive() {
			continue
		}
		items = append(items, &c)
	}
	return domain.ListResult[*Customer]{Items: items, TotalCount: int64(len(items)), Limit: f.Limit}, nil
}

type seqCodes struct{ n int }

func (g *seqCodes) Next(_ context.Context, prefix string, at time.Time) (string, error) {
	g.n++
	return fmt.Sprintf("%s-%d-%05d", prefix, at.Year(), g.n), nil
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, &txtest.Manager{}, &seqCodes{}, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC) }
	return svc, repo
}

func strPtr(s string) *string { return &s }

func TestService_Create(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{
		Name:        "  Corner Bakery ",
		Email:       strPtr("owner@bakery.test"),
		Phone:       strPtr("   "),
		CreditLimit: types.MustMoney("500"),
	})
	require.NoError(t, err)

	assert.Equal(t, "C-2026-00001", c.Code)
	assert.Equal(t, "Corner Bakery", c.Name)
	assert.Nil(t, c.Phone)
	assert.True(t, c.CurrentBalance.IsZero())
	assert.Equal(t, 1, c.Version)

	stored, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Code, stored.Code)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
		field string
	}{
		{"missing name", CreateInput{Name: " "}, "name"},
		{"negative limit", CreateInput{Name: "A", CreditLimit: types.MustMoney("-1")}, "creditLimit"},
		{"limit scale", CreateInput{Name: "A", CreditLimit: types.MustMoney("1.005")}, "creditLimit"},
		{"limit range", CreateInput{Name: "A", CreditLimit: types.MustMoney("1000000000000")}, "creditLimit"},
		{"bad email", CreateInput{Name: "A", Email: strPtr("nope")}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
			assert.Equal(t, tt.field, appErr.Details["field"])
		})
	}
}

func TestService_CreateDuplicateCode(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Code: "VIP-1", Name: "First"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateInput{Code: "VIP-1", Name: "Second"})
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))
}

func TestService_Update(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.Create(ctx, CreateInput{Name: "Kiosk", CreditLimit: types.MustMoney("100")})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, c.ID, UpdateInput{
		Name:        "Kiosk 2",
		CreditLimit: types.MustMoney("250"),
		Version:     c.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kiosk 2", updated.Name)
	assert.True(t, types.MustMoney("250").Equal(updated.CreditLimit))
	assert.Equal(t, 2, updated.Version)

	_, err = svc.Update(ctx, c.ID, UpdateInput{Name: "Stale", Version: 1})
	assert.True(t, apperror.IsConcurrentModification(err))

	_, err = svc.Update(ctx, id.New(), UpdateInput{Name: "Ghost"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestCustomer_ChargeAndSettle(t *testing.T) {
	c := New("C-1", "Shop", types.MustMoney("150"), time.Now())

	require.NoError(t, c.Charge(types.MustMoney("100")))
	assert.True(t, types.MustMoney("50").Equal(c.AvailableCredit()))

	err := c.Charge(types.MustMoney("60"))
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditLimitExceeded))
	assert.True(t, types.MustMoney("100").Equal(c.CurrentBalance), "failed charge must not change balance")

	err = c.Settle(types.MustMoney("100.01"))
	assert.True(t, apperror.IsValidation(err))

	require.NoError(t, c.Settle(types.MustMoney("40")))
	assert.True(t, types.MustMoney("60").Equal(c.CurrentBalance))

	assert.True(t, apperror.IsValidation(c.Settle(types.Zero())))
}

func TestCustomer_UnlimitedCredit(t *testing.T) {
	c := New("C-2", "Regular", types.Zero(), time.Now())

	require.NoError(t, c.Charge(types.MustMoney("100000")))
	assert.False(t, c.HasCreditLimit())

	// the balance column is NUMERIC(14,2)
	err := c.Charge(types.MaxMoney)
	assert.True(t, apperror.IsValidation(err))
	assert.True(t, types.MustMoney("100000").Equal(c.CurrentBalance))
}
