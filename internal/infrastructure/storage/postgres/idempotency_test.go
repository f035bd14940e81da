package postgres

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/core/apperror"
)

func TestIdempotencyStore_ResolveExisting(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(nil, time.Hour)
	ctx := context.Background()

	status := http.StatusCreated
	done := &IdempotencyRecord{
		UserID:      "u1",
		Operation:   "POST /api/v1/credit/payments/balance",
		RequestHash: "h1",
		Status:      IdempotencyStatusSuccess,
		Response:    []byte(`{"ok":true}`),
		StatusCode:  &status,
		UpdatedAt:   now,
	}

	replay, err := store.resolveExisting(ctx, "k", "u1", done.Operation, "h1", done, now)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))

	_, err = store.resolveExisting(ctx, "k", "u1", done.Operation, "other-body", done, now)
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	assert.Equal(t, http.StatusUnprocessableEntity, apperror.GetHTTPStatus(err))

	_, err = store.resolveExisting(ctx, "k", "u2", done.Operation, "h1", done, now)
	assert.Equal(t, http.StatusUnprocessableEntity, apperror.GetHTTPStatus(err))

	running := *done
	running.Status = IdempotencyStatusPending
	running.UpdatedAt = now.Add(-10 * time.Second)
	_, err = store.resolveExisting(ctx, "k", "u1", done.Operation, "h1", &running, now)
	assert.Equal(t, http.StatusConflict, apperror.GetHTTPStatus(err))
}

func TestReplayOf_Defaults(t *testing.T) {
	replay := replayOf(&IdempotencyRecord{Response: []byte(`{}`)})
	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
}
