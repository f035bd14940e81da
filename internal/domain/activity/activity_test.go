package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "shopledger/internal/core/context"
	"shopledger/internal/core/id"
	"shopledger/internal/domain"
)

type fakeWriter struct {
	entries []*Entry
	err     error
	ctxErr  error
}

func (w *fakeWriter) Append(ctx context.Context, e *Entry) error {
	w.ctxErr = ctx.Err()
	if w.err != nil {
		return w.err
	}
	w.entries = append(w.entries, e)
	return nil
}

func (w *fakeWriter) List(_ context.Context, f Filter) (domain.ListResult[*Entry], error) {
	return domain.ListResult[*Entry]{Items: w.entries, TotalCount: int64(len(w.entries)), Limit: f.Limit}, nil
}

func TestRecorder_Record(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w)
	r.now = func() time.Time { return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC) }

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1"})
	entityID := id.New()

	r.Record(ctx, EntityCustomer, entityID, ActionCreated, "customer created", map[string]any{"code": "C-1"})

	require.Len(t, w.entries, 1)
	e := w.entries[0]
	assert.Equal(t, EntityCustomer, e.EntityType)
	assert.Equal(t, entityID, e.EntityID)
	assert.Equal(t, ActionCreated, e.Action)
	require.NotNil(t, e.UserID)
	assert.Equal(t, "u-1", *e.UserID)
	assert.Equal(t, "C-1", e.Changes["code"])
	assert.False(t, id.IsNil(e.ID))
}

func TestRecorder_SurvivesCancelledRequest(t *testing.T) {
	w := &fakeWriter{}
	r := NewRecorder(w)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r.Record(ctx, EntityCreditOrder, id.New(), ActionPaymentApplied, "paid", nil)

	require.Len(t, w.entries, 1)
	assert.NoError(t, w.ctxErr)
}

func TestRecorder_SwallowsErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("disk full")}
	r := NewRecorder(w)

	assert.NotPanics(t, func() {
		r.Record(context.Background(), EntityCustomer, id.New(), ActionUpdated, "x", nil)
	})

	var nilRecorder *Recorder
	assert.NotPanics(t, func() {
		nilRecorder.Record(context.Background(), EntityCustomer, id.New(), ActionUpdated, "x", nil)
	})
}

func TestService_ListNormalizesPaging(t *testing.T) {
	w := &fakeWriter{}
	svc := NewService(w)

	res, err := svc.List(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultLimit, res.Limit)
}
