// Package main provides a CLI tool for seeding the database with an admin user
// and, optionally, demo customers and credit sales.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"shopledger/internal/config"
	"shopledger/internal/core/apperror"
	appctx "shopledger/internal/core/context"
	"shopledger/internal/core/id"
	"shopledger/internal/core/types"
	"shopledger/internal/domain/activity"
	"shopledger/internal/domain/auth"
	"shopledger/internal/domain/credit"
	"shopledger/internal/domain/customer"
	"shopledger/internal/infrastructure/storage/postgres"
	"shopledger/internal/infrastructure/storage/postgres/auth_repo"
	"shopledger/internal/infrastructure/storage/postgres/catalog_repo"
	"shopledger/internal/infrastructure/storage/postgres/document_repo"
	"shopledger/pkg/logger"
	"shopledger/pkg/numerator"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	var files []string
	if f := os.Getenv("SHOPLEDGER_CONFIG_FILE"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.Database.DSN))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	s := newSeeder(pool, cfg)

	admin, err := s.seedAdminUser(ctx)
	if err != nil {
		log.Fatalw("failed to seed admin user", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		// Demo rows are attributed to the admin in the activity log.
		if !id.IsNil(admin) {
			ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: admin.String(), IsAdmin: true})
		}
		if err := s.seedDemoData(ctx); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
	}

	log.Info("seeding completed successfully")
}

type seeder struct {
	txm        *postgres.TxManager
	batch      *postgres.BatchExecutor
	users      *auth.Service
	customers  *customer.Service
	orders     *credit.OrderService
	reconciler *credit.Reconciler
}

func newSeeder(pool *postgres.Pool, cfg *config.Config) *seeder {
	txm := postgres.NewTxManager(pool)

	var rec *activity.Recorder
	if store, err := postgres.NewActivityStore(txm); err == nil {
		rec = activity.NewRecorder(store)
	}

	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}, nil)

	customerRepo := catalog_repo.NewCustomerRepo(txm)
	orderRepo := document_repo.NewCreditOrderRepo(txm)

	jwt := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWT.Secret))
	orders := credit.NewOrderService(txm, customerRepo, orderRepo, numbers, rec, nil)
	orders.SetDefaultTerm(cfg.Credit.DefaultTermDays)

	return &seeder{
		txm:       txm,
		batch:     postgres.NewBatchExecutor(txm),
		users:     auth.NewService(auth_repo.NewUserRepo(txm), txm, jwt, rec, auth.DefaultServiceConfig()),
		customers: customer.NewService(customerRepo, txm, numbers, rec),
		orders:    orders,
		reconciler: credit.NewReconciler(credit.ReconcilerConfig{
			TxManager: txm,
			Customers: customerRepo,
			Orders:    orderRepo,
			Payments:  document_repo.NewPaymentRepo(txm),
			Activity:  rec,
		}),
	}
}

func (s *seeder) seedAdminUser(ctx context.Context) (id.ID, error) {
	email := getEnv("ADMIN_EMAIL", "admin@shopledger.local")
	password := getEnv("ADMIN_PASSWORD", "Admin123!")

	u, err := s.users.CreateUser(ctx, auth.CreateUserRequest{
		Email:    email,
		Password: password,
		FullName: "Shop Owner",
		IsAdmin:  true,
	})
	if apperror.HasCode(err, apperror.CodeDuplicate) {
		logger.Info(ctx, "admin user already exists", "email", email)
		return id.ID{}, nil
	}
	if err != nil {
		return id.ID{}, err
	}

	logger.Info(ctx, "admin user created", "email", email, "user_id", u.ID)
	return u.ID, nil
}

type demoLine struct {
	item, category string
	qty, price     string
}

type demoCustomer struct {
	code, name, limit string
	// orders are credit sales placed daysAgo before today
	orders []demoOrder
	// payment is applied to the balance after the orders
	payment string
}

type demoOrder struct {
	daysAgo int
	lines   []demoLine
}

var demoCustomers = []demoCustomer{
	{
		code: "C-DEMO-1", name: "Ama's Corner Shop", limit: "1500.00",
		orders: []demoOrder{
			{daysAgo: 45, lines: []demoLine{{"Rice 5kg", "grocery", "4", "62.50"}, {"Cooking oil 1L", "grocery", "6", "18.00"}}},
			{daysAgo: 20, lines: []demoLine{{"Sugar 1kg", "grocery", "10", "9.90"}}},
			{daysAgo: 3, lines: []demoLine{{"Soap bar", "household", "24", "3.25"}}},
		},
		payment: "200.00",
	},
	{
		code: "C-DEMO-2", name: "Kofi Mini Market", limit: "800.00",
		orders: []demoOrder{
			{daysAgo: 35, lines: []demoLine{{"Bottled water 24pk", "beverages", "5", "21.00"}}},
			{daysAgo: 10, lines: []demoLine{{"Tomato paste", "grocery", "30", "2.40"}, {"Matches", "household", "50", "0.50"}}},
		},
	},
	{
		code: "C-DEMO-3", name: "Esi Catering", limit: "0",
		orders: []demoOrder{
			{daysAgo: 5, lines: []demoLine{{"Flour 25kg", "bakery", "2", "140.00"}}},
		},
		payment: "280.00",
	},
}

func (s *seeder) seedDemoData(ctx context.Context) error {
	now := time.Now().UTC()

	for _, dc := range demoCustomers {
		c, err := s.customers.Create(ctx, customer.CreateInput{
			Code:        dc.code,
			Name:        dc.name,
			CreditLimit: decimal.RequireFromString(dc.limit),
		})
		if apperror.HasCode(err, apperror.CodeDuplicate) {
			logger.Info(ctx, "demo customer exists, skipping", "code", dc.code)
			continue
		}
		if err != nil {
			return fmt.Errorf("create customer %s: %w", dc.code, err)
		}

		for _, o := range dc.orders {
			in := credit.CreateOrderInput{
				CustomerID: c.ID,
				OrderDate:  now.AddDate(0, 0, -o.daysAgo),
			}
			for _, l := range o.lines {
				in.Lines = append(in.Lines, credit.LineInput{
					ItemName:  l.item,
					Category:  l.category,
					Quantity:  decimal.RequireFromString(l.qty),
					UnitPrice: decimal.RequireFromString(l.price),
				})
			}
			if _, err := s.orders.Create(ctx, in); err != nil {
				return fmt.Errorf("create order for %s: %w", dc.code, err)
			}
		}

		if dc.payment != "" {
			if _, err := s.reconciler.ApplyToCustomerBalance(ctx, c.ID, decimal.RequireFromString(dc.payment)); err != nil {
				return fmt.Errorf("apply payment for %s: %w", dc.code, err)
			}
		}

		if err := s.seedHistory(ctx, c.ID, now); err != nil {
			return fmt.Errorf("seed history for %s: %w", dc.code, err)
		}

		logger.Info(ctx, "demo customer seeded", "code", c.Code, "orders", len(dc.orders))
	}
	return nil
}

// seedHistory bulk loads settled orders from previous months so reports have
// data. Settled orders carry no outstanding credit and leave balances untouched.
func (s *seeder) seedHistory(ctx context.Context, customerID id.ID, now time.Time) error {
	const months = 6

	var orderRows, lineRows [][]any
	for m := 1; m <= months; m++ {
		orderID := id.New()
		orderDate := now.AddDate(0, -m, 0)
		qty := decimal.NewFromInt(int64(m + 1))
		price := decimal.RequireFromString("12.75")
		amount := qty.Mul(price).Round(types.MoneyScale)

		orderRows = append(orderRows, []any{
			orderID, customerID, fmt.Sprintf("H-%s-%d", customerID.String()[:8], m),
			orderDate, orderDate.AddDate(0, 0, credit.DefaultTermDays),
			amount, amount, decimal.Zero, string(credit.StatusPaid),
			1, orderDate, orderDate,
		})
		lineRows = append(lineRows, []any{
			id.New(), orderID, 1, "Assorted goods", "grocery", qty, price, amount,
		})
	}

	return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.batch.CopyFromSlice(ctx, "doc_credit_orders", []string{
			"id", "customer_id", "order_number", "order_date", "due_date",
			"subtotal_snapshot", "amount_paid_cash", "credit_outstanding", "payment_status",
			"version", "created_at", "updated_at",
		}, orderRows); err != nil {
			return fmt.Errorf("copy orders: %w", err)
		}
		if _, err := s.batch.CopyFromSlice(ctx, "doc_credit_order_lines", []string{
			"id", "order_id", "line_no", "item_name", "category", "quantity", "unit_price", "amount",
		}, lineRows); err != nil {
			return fmt.Errorf("copy lines: %w", err)
		}
		return nil
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
