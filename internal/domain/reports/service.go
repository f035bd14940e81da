package reports

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"shopledger/internal/core/apperror"
)

const (
	defaultPeriod = 30 * 24 * time.Hour
	maxPeriod     = 366 * 24 * time.Hour

	defaultTopLimit = 10
	maxTopLimit     = 100
)

// Service provides report generation.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Normalize fills the default period (last 30 days) and top-N limit and
// validates the range.
func (s *Service) Normalize(f *Filter) error {
	if f.To.IsZero() {
		f.To = s.now().UTC()
	}
	if f.From.IsZero() {
		f.From = f.To.Add(-defaultPeriod)
	}
	if !f.From.Before(f.To) {
		return apperror.NewValidation("from must be before to").
			WithDetail("from", f.From).
			WithDetail("to", f.To)
	}
	if f.To.Sub(f.From) > maxPeriod {
		return apperror.NewValidation("report period must not exceed 366 days")
	}
	if f.Limit <= 0 {
		f.Limit = defaultTopLimit
	}
	if f.Limit > maxTopLimit {
		f.Limit = maxTopLimit
	}
	return nil
}

// Dashboard fetches the summary and all rollups concurrently.
func (s *Service) Dashboard(ctx context.Context, f Filter) (*Dashboard, error) {
	if err := s.Normalize(&f); err != nil {
		return nil, err
	}
	now := s.now()

	d := &Dashboard{From: f.From, To: f.To}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.repo.Summary(gctx, f, now)
		if err != nil {
			return fmt.Errorf("summary: %w", err)
		}
		d.Summary = summary
		return nil
	})
	g.Go(func() error {
		points, err := s.repo.RevenueByDay(gctx, f)
		if err != nil {
			return fmt.Errorf("revenue by day: %w", err)
		}
		d.Revenue = points
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.Categories(gctx, f)
		if err != nil {
			return fmt.Errorf("categories: %w", err)
		}
		d.Categories = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.TopProducts(gctx, f)
		if err != nil {
			return fmt.Errorf("top products: %w", err)
		}
		d.TopProducts = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return d, nil
}

// Revenue returns the daily revenue series.
func (s *Service) Revenue(ctx context.Context, f Filter) ([]RevenuePoint, error) {
	if err := s.Normalize(&f); err != nil {
		return nil, err
	}
	return s.repo.RevenueByDay(ctx, f)
}

// Categories returns revenue per category.
func (s *Service) Categories(ctx context.Context, f Filter) ([]CategoryRow, error) {
	if err := s.Normalize(&f); err != nil {
		return nil, err
	}
	return s.repo.Categories(ctx, f)
}

// TopProducts returns the best-selling items by revenue.
func (s *Service) TopProducts(ctx context.Context, f Filter) ([]ProductRow, error) {
	if err := s.Normalize(&f); err != nil {
		return nil, err
	}
	return s.repo.TopProducts(ctx, f)
}
