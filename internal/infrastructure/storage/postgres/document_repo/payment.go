package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"shopledger/internal/core/id"
	"shopledger/internal/domain/credit"
	"shopledger/internal/infrastructure/storage/postgres"
)

const (
	paymentsTable           = "doc_payments"
	paymentAllocationsTable = "doc_payment_allocations"
)

// PaymentRepo implements credit.PaymentRepository.
type PaymentRepo struct {
	*BaseDocumentRepo[*credit.PaymentRecord]
	batch *postgres.BatchExecutor
}

var _ credit.PaymentRepository = (*PaymentRepo)(nil)

// NewPaymentRepo creates a new payment repository.
func NewPaymentRepo(txm *postgres.TxManager) *PaymentRepo {
	return &PaymentRepo{
		BaseDocumentRepo: NewBaseDocumentRepo(
			txm,
			paymentsTable,
			postgres.ExtractDBColumns[credit.PaymentRecord](),
			func() *credit.PaymentRecord { return &credit.PaymentRecord{} },
		),
		batch: postgres.NewBatchExecutor(txm),
	}
}

// Create inserts the payment and its allocations in one round trip.
// It must run inside the transaction that applied the payment.
func (r *PaymentRepo) Create(ctx context.Context, p *credit.PaymentRecord) error {
	queries := make([]postgres.BatchQuery, 0, len(p.Allocations)+1)

	header, args, err := r.Builder().
		Insert(paymentsTable).
		Columns("id", "customer_id", "kind", "amount", "created_at", "created_by").
		Values(p.ID, p.CustomerID, string(p.Kind), p.Amount, p.CreatedAt, p.CreatedBy).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert payment: %w", err)
	}
	queries = append(queries, postgres.BatchQuery{SQL: header, Args: args})

	for _, a := range p.Allocations {
		sql, args, err := r.Builder().
			Insert(paymentAllocationsTable).
			Columns("payment_id", "order_id", "order_number", "amount").
			Values(p.ID, a.OrderID, a.OrderNumber, a.Amount).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert allocation: %w", err)
		}
		queries = append(queries, postgres.BatchQuery{SQL: sql, Args: args})
	}

	return r.batch.ExecuteBatch(ctx, queries)
}

// ListByCustomer returns the latest payments with their allocations.
func (r *PaymentRepo) ListByCustomer(ctx context.Context, customerID id.ID, limit int) ([]*credit.PaymentRecord, error) {
	q := r.baseSelect().
		Where(squirrel.Eq{"customer_id": customerID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	payments, err := r.selectAll(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return payments, nil
	}

	ids := make([]id.ID, len(payments))
	byID := make(map[id.ID]*credit.PaymentRecord, len(payments))
	for i, p := range payments {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	sql, args, err := r.Builder().
		Select("payment_id", "order_id", "order_number", "amount").
		From(paymentAllocationsTable).
		Where(squirrel.Eq{"payment_id": ids}).
		OrderBy("payment_id", "order_number").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var allocations []credit.PaymentAllocation
	if err := pgxscan.Select(ctx, r.querier(ctx), &allocations, sql, args...); err != nil {
		return nil, fmt.Errorf("get allocations: %w", err)
	}
	for _, a := range allocations {
		if p, ok := byID[a.PaymentID]; ok {
			p.Allocations = append(p.Allocations, a)
		}
	}
	return payments, nil
}
