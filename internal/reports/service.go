package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/angelmondragon/cellar-backend/internal/access"
	"github.com/angelmondragon/cellar-backend/internal/catalog"
	"github.com/angelmondragon/cellar-backend/internal/repo"
	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/cellar-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultLeastSellingLimit = 5
	maxLeastSellingLimit     = 100
	defaultWindowDays        = 30
	unknownSeller            = "deleted user"
)

// Service answers the read-only stock and sales reports.
type Service interface {
	TopSelling(ctx context.Context, actor access.Actor) (*catalog.ItemView, error)
	LeastSelling(ctx context.Context, actor access.Actor, limit int) ([]catalog.ItemView, error)
	Unsold(ctx context.Context, actor access.Actor) ([]catalog.ItemView, error)
	LowStock(ctx context.Context, actor access.Actor, threshold *int) (*LowStockReport, error)
	Revenue(ctx context.Context, actor access.Actor, params RevenueParams) (*RevenueReport, error)
	QuarterTrend(ctx context.Context, actor access.Actor) (QuarterTrend, error)
	BestEmployees(ctx context.Context, actor access.Actor, days int) ([]EmployeeRevenue, error)
}

// ServiceParams groups the report collaborators.
type ServiceParams struct {
	Repo              Repository
	Gate              access.Gate
	LowStockThreshold int
	WindowDays        int
	Now               func() time.Time
}

type service struct {
	repo       Repository
	gate       access.Gate
	threshold  int
	windowDays int
	now        func() time.Time
}

// NewService builds the reports service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must be non-negative")
	}
	windowDays := params.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo:       params.Repo,
		gate:       params.Gate,
		threshold:  params.LowStockThreshold,
		windowDays: windowDays,
		now:        now,
	}, nil
}

func (s *service) TopSelling(ctx context.Context, actor access.Actor) (*catalog.ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpReports); err != nil {
		return nil, err
	}
	item, err := s.repo.TopSelling(ctx)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No wines found.")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top selling item")
	}
	view := catalog.NewItemView(*item)
	return &view, nil
}

func (s *service) LeastSelling(ctx context.Context, actor access.Actor, limit int) ([]catalog.ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpReports); err != nil {
		return nil, err
	}
	if limit < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be positive")
	}
	if limit == 0 {
		limit = defaultLeastSellingLimit
	}
	if limit > maxLeastSellingLimit {
		limit = maxLeastSellingLimit
	}
	items, err := s.repo.LeastSelling(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load least selling items")
	}
	return itemViews(items), nil
}

func (s *service) Unsold(ctx context.Context, actor access.Actor) ([]catalog.ItemView, error) {
	if err := s.gate.Authorize(actor, access.OpReports); err != nil {
		return nil, err
	}
	items, err := s.repo.Unsold(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unsold items")
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "No wine found.")
	}
	return itemViews(items), nil
}

func (s *service) LowStock(ctx context.Context, actor access.Actor, threshold *int) (*LowStockReport, error) {
	if err := s.gate.Authorize(actor, access.OpReports); err != nil {
		return nil, err
	}
	limit := s.threshold
	if threshold != nil {
		if *threshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "threshold must be non-negative")
		}
		limit = *threshold
	}
	items, err := s.repo.LowStock(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load low stock items")
	}
	return &LowStockReport{Threshold: limit, Items: itemViews(items)}, nil
}

func (s *service) Revenue(ctx context.Context, actor access.Actor, params RevenueParams) (*RevenueReport, error) {
	if err := s.gate.Authorize(actor, access.OpFinance); err != nil {
		return nil, err
	}
	days, err := s.days(params.Days)
	if err != nil {
		return nil, err
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	lines, err := s.repo.SaleLines(ctx, SaleLineFilter{ItemID: params.ItemID, Since: &since})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}

	total := decimal.Zero
	bottles := 0
	for _, line := range lines {
		if !line.RetailPrice.Valid {
			continue
		}
		total = total.Add(line.Revenue())
		bottles += line.QuantitySold
	}
	return &RevenueReport{
		ItemID:      params.ItemID,
		Days:        days,
		Revenue:     total,
		BottlesSold: bottles,
		Message:     revenueMessage(days, total, bottles),
	}, nil
}

func (s *service) QuarterTrend(ctx context.Context, actor access.Actor) (QuarterTrend, error) {
	if err := s.gate.Authorize(actor, access.OpFinance); err != nil {
		return nil, err
	}
	year := s.now().UTC().Year()
	trend := QuarterTrend{}
	for _, y := range []int{year - 1, year} {
		for month := 1; month <= 12; month += 3 {
			trend[quarterKey(y, month)] = decimal.Zero
		}
	}

	since := time.Date(year-1, time.January, 1, 0, 0, 0, 0, time.UTC)
	lines, err := s.repo.SaleLines(ctx, SaleLineFilter{Since: &since})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}
	for _, line := range lines {
		at := line.CreatedAt.UTC()
		key := quarterKey(at.Year(), int(at.Month()))
		if _, ok := trend[key]; !ok {
			continue
		}
		trend[key] = trend[key].Add(line.Revenue())
	}
	return trend, nil
}

func (s *service) BestEmployees(ctx context.Context, actor access.Actor, days int) ([]EmployeeRevenue, error) {
	if err := s.gate.Authorize(actor, access.OpReports); err != nil {
		return nil, err
	}
	window, err := s.days(days)
	if err != nil {
		return nil, err
	}
	since := s.now().UTC().AddDate(0, 0, -window)
	lines, err := s.repo.SaleLines(ctx, SaleLineFilter{Since: &since})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sales")
	}

	totals := map[string]decimal.Decimal{}
	for _, line := range lines {
		name := unknownSeller
		if line.Username != nil {
			name = *line.Username
		}
		totals[name] = totals[name].Add(line.Revenue())
	}
	ranking := make([]EmployeeRevenue, 0, len(totals))
	for name, revenue := range totals {
		ranking = append(ranking, EmployeeRevenue{User: name, Revenue: revenue})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if cmp := ranking[i].Revenue.Cmp(ranking[j].Revenue); cmp != 0 {
			return cmp > 0
		}
		return ranking[i].User < ranking[j].User
	})
	return ranking, nil
}

func (s *service) days(days int) (int, error) {
	if days < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "days must be positive")
	}
	if days == 0 {
		return s.windowDays, nil
	}
	return days, nil
}

func itemViews(items []models.Item) []catalog.ItemView {
	views := make([]catalog.ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, catalog.NewItemView(item))
	}
	return views
}
