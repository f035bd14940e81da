// Package activity records who changed what. Entries are appended after the
// business transaction commits and a failed append never fails the operation.
package activity

import (
	"context"
	"time"

	appctx "shopledger/internal/core/context"
	"shopledger/internal/core/id"
	"shopledger/internal/domain"
	"shopledger/pkg/logger"
)

// Action names an activity kind.
type Action string

const (
	ActionCreated        Action = "created"
	ActionUpdated        Action = "updated"
	ActionPaymentApplied Action = "payment_applied"
	ActionLogin          Action = "login"
)

// Entity types used in entries.
const (
	EntityCustomer    = "customer"
	EntityCreditOrder = "credit_order"
	EntityUser        = "user"
)

// Entry is one activity log record.
type Entry struct {
	ID         id.ID          `db:"id" json:"id"`
	EntityType string         `db:"entity_type" json:"entityType"`
	EntityID   id.ID          `db:"entity_id" json:"entityId"`
	Action     Action         `db:"action" json:"action"`
	UserID     *string        `db:"user_id" json:"userId,omitempty"`
	Summary    string         `db:"summary" json:"summary"`
	Changes    map[string]any `db:"-" json:"changes,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"createdAt"`
}

// Filter narrows activity listings.
type Filter struct {
	domain.ListFilter

	EntityType string
	EntityID   *id.ID
	UserID     string
	From       *time.Time
	To         *time.Time
}

// Writer appends entries to storage.
type Writer interface {
	Append(ctx context.Context, e *Entry) error
}

// Reader lists stored entries, newest first.
type Reader interface {
	List(ctx context.Context, f Filter) (domain.ListResult[*Entry], error)
}

const appendTimeout = 5 * time.Second

// Recorder builds entries from request context and appends them.
// A nil *Recorder is a valid no-op.
type Recorder struct {
	writer Writer
	now    func() time.Time
}

// NewRecorder creates a Recorder over w.
func NewRecorder(w Writer) *Recorder {
	return &Recorder{writer: w, now: time.Now}
}

// Record appends an entry, logging instead of returning failures.
func (r *Recorder) Record(ctx context.Context, entityType string, entityID id.ID, action Action, summary string, changes map[string]any) {
	if r == nil || r.writer == nil {
		return
	}

	e := &Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		Summary:    summary,
		Changes:    changes,
		CreatedAt:  r.now().UTC(),
	}
	if uid := appctx.GetUserID(ctx); uid != "" {
		e.UserID = &uid
	}

	// The caller's transaction has already committed; a cancelled request
	// must not lose the entry.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), appendTimeout)
	defer cancel()

	if err := r.writer.Append(writeCtx, e); err != nil {
		logger.Warn(ctx, "activity append failed",
			"entity_type", entityType,
			"entity_id", entityID,
			"action", action,
			"error", err,
		)
	}
}

// Service exposes the activity log for reading.
type Service struct {
	reader Reader
}

// NewService creates an activity Service.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// List returns entries matching f.
func (s *Service) List(ctx context.Context, f Filter) (domain.ListResult[*Entry], error) {
	f.Normalize()
	return s.reader.List(ctx, f)
}
