package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/cellar-backend/internal/reports"
	"github.com/angelmondragon/cellar-backend/pkg/logger"
	"github.com/angelmondragon/cellar-backend/pkg/metrics"
	"go.uber.org/multierr"
)

type driftRepo interface {
	CounterDrift(ctx context.Context) ([]reports.DriftRow, error)
}

type ConservationJobParams struct {
	Logger  *logger.Logger
	Repo    driftRepo
	Metrics *metrics.CatalogMetrics
}

// NewConservationJob checks that every item's sold counter matches its outstanding sale records.
func NewConservationJob(params ConservationJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	return &conservationJob{logg: params.Logger, repo: params.Repo, metrics: params.Metrics}, nil
}

type conservationJob struct {
	logg    *logger.Logger
	repo    driftRepo
	metrics *metrics.CatalogMetrics
}

func (j *conservationJob) Name() string { return "ledger-conservation" }

func (j *conservationJob) Run(ctx context.Context) error {
	rows, err := j.repo.CounterDrift(ctx)
	if err != nil {
		return fmt.Errorf("load counter drift: %w", err)
	}
	j.metrics.SetDrift(len(rows))

	var errs error
	for _, row := range rows {
		violation := describeDrift(row)
		j.logg.Error(j.logg.WithFields(ctx, map[string]any{
			"item_id":       row.ItemID,
			"item":          row.Name,
			"stock":         row.Stock,
			"quantity_sold": row.QuantitySold,
			"recorded_sold": row.RecordedSold,
		}), "ledger invariant violated", violation)
		errs = multierr.Append(errs, violation)
	}
	if errs == nil {
		j.logg.Info(ctx, "ledger counters consistent")
	}
	return errs
}

func describeDrift(row reports.DriftRow) error {
	if row.Stock < 0 {
		return fmt.Errorf("item %d (%s): negative stock %d", row.ItemID, row.Name, row.Stock)
	}
	return fmt.Errorf("item %d (%s): quantity_sold %d but sale records total %d",
		row.ItemID, row.Name, row.QuantitySold, row.RecordedSold)
}
