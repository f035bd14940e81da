package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WrappedChain(t *testing.T) {
	base := NewValidation("amount must be positive").WithDetail("amount", "0")
	wrapped := fmt.Errorf("apply payment: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeValidation, appErr.Code)
	assert.Equal(t, "0", appErr.Details["amount"])
	assert.True(t, IsValidation(wrapped))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusBadRequest, GetHTTPStatus(wrapped))
}

func TestAppError_Statuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", NewNotFound("customer", "42"), http.StatusNotFound},
		{"conflict", NewConcurrentModification("credit_order", "1"), http.StatusConflict},
		{"business rule", NewBusinessRule(CodeBusinessRule, "x"), http.StatusUnprocessableEntity},
		{"credit limit", NewCreditLimitExceeded("c", "10", "5", "6"), http.StatusUnprocessableEntity},
		{"forbidden", NewForbidden("no"), http.StatusForbidden},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, GetHTTPStatus(tt.err))
		})
	}
}

func TestAppError_Cause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewInternal(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, IsConcurrentModification(NewConcurrentModification("customer", "1")))
}
