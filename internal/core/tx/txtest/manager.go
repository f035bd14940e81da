// Package txtest provides an in-memory tx.Manager for unit tests.
package txtest

import (
	"context"
	"sync"

	"shopledger/internal/core/tx"
)

var _ tx.Manager = (*Manager)(nil)

type activeKey struct{}

// Manager runs fn directly. Begin and Rollback hooks let in-memory stores
// snapshot and restore their state so tests can observe rollback.
type Manager struct {
	mu sync.Mutex

	Begin    func()
	Rollback func()

	// Fail, when set, is returned instead of committing. It is consulted
	// once per top-level transaction and may return nil.
	Fail func(attempt int) error

	Started   int
	Committed int
	Aborted   int
}

// RunInTransaction implements tx.Manager. Nested calls join the outer one.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(activeKey{}) != nil {
		return fn(ctx)
	}

	m.mu.Lock()
	m.Started++
	attempt := m.Started
	m.mu.Unlock()

	if m.Begin != nil {
		m.Begin()
	}

	err := fn(context.WithValue(ctx, activeKey{}, true))
	if err == nil && m.Fail != nil {
		err = m.Fail(attempt)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.Aborted++
		if m.Rollback != nil {
			m.Rollback()
		}
		return err
	}
	m.Committed++
	return nil
}

// InTransaction reports whether ctx was produced by RunInTransaction.
func InTransaction(ctx context.Context) bool {
	return ctx.Value(activeKey{}) != nil
}
