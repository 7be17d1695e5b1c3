package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cellar-backend/pkg/db/models"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/metrics"
)

type lowStockRepo interface {
	LowStock(ctx context.Context, threshold int) ([]models.Item, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Repo      lowStockRepo
	Metrics   *metrics.CatalogMetrics
	Threshold int
}

func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if params.Threshold < 0 {
		return nil, fmt.Errorf("threshold must be non-negative")
	}
	return &lowStockJob{
		logg:      params.Logger,
		repo:      params.Repo,
		metrics:   params.Metrics,
		threshold: params.Threshold,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	repo      lowStockRepo
	metrics   *metrics.CatalogMetrics
	threshold int
}

func (j *lowStockJob) Name() string { return "low-stock" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.repo.LowStock(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("load low stock items: %w", err)
	}
	for _, item := range items {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"item_id": item.ID,
			"item":    item.Name,
			"stock":   item.Stock,
		}), "item is running low")
	}
	j.metrics.SetLowStock(len(items))
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"threshold":       j.threshold,
		"low_stock_items": len(items),
	}), "low stock sweep complete")
	return nil
}
