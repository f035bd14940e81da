package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"shopledger/internal/core/apperror"
)

func TestTranslateError(t *testing.T) {
	serialization := fmt.Errorf("commit transaction: %w", &pgconn.PgError{Code: "40001"})
	deadlock := fmt.Errorf("lock orders: %w", &pgconn.PgError{Code: "40P01"})
	validation := apperror.NewValidation("bad amount")
	plain := errors.New("boom")

	assert.True(t, apperror.IsConcurrentModification(translateError(serialization)))
	assert.True(t, apperror.IsConcurrentModification(translateError(deadlock)))
	assert.Same(t, validation, translateError(validation))
	assert.Equal(t, plain, translateError(plain))
	assert.Nil(t, translateError(nil))

	unique := &pgconn.PgError{Code: "23505"}
	assert.Equal(t, unique, translateError(unique))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "credit_orders_order_number_key"})

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "credit_orders_order_number_key"))
	assert.False(t, IsUniqueViolation(err, "customers_code_key"))
	assert.False(t, IsUniqueViolation(errors.New("x"), ""))
}
