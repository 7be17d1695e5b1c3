package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestLedgerMetricsCountsByOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.Observe("sale", OutcomeSuccess, 10*time.Millisecond)
	m.Observe("sale", OutcomeSuccess, 5*time.Millisecond)
	m.Observe("sale", OutcomeRejected, time.Millisecond)
	m.AddBottles("sale", 3)
	m.AddBottles("sale", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	ops := findMetricFamily(mfs, "cellar_ledger_operations_total")
	if ops == nil {
		t.Fatal("operations counter missing")
	}
	var success, rejected float64
	for _, metric := range ops.GetMetric() {
		if !matchesLabel(metric.GetLabel(), "operation", "sale") {
			continue
		}
		switch {
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeSuccess):
			success = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "outcome", OutcomeRejected):
			rejected = metric.GetCounter().GetValue()
		}
	}
	if success != 2 || rejected != 1 {
		t.Fatalf("expected success=2 rejected=1, got %f/%f", success, rejected)
	}

	if got, err := fetchCounterValue(mfs, "cellar_ledger_bottles_total", "operation", "sale"); err != nil || got != 3 {
		t.Fatalf("expected 3 bottles, got %f err=%v", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "cellar_ledger_operation_duration_seconds", "operation", "sale"); err != nil || got <= 0 {
		t.Fatalf("expected positive duration sum, got %f err=%v", got, err)
	}
}

func TestCatalogMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCatalogMetrics(reg)
	m.SetLowStock(4)
	m.SetDrift(1)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := gaugeValue(findMetricFamily(mfs, "cellar_catalog_low_stock_items")); got != 4 {
		t.Fatalf("expected low stock 4, got %f", got)
	}
	if got := gaugeValue(findMetricFamily(mfs, "cellar_catalog_sold_counter_drift_items")); got != 1 {
		t.Fatalf("expected drift 1, got %f", got)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var ledger *LedgerMetrics
	ledger.Observe("sale", OutcomeSuccess, time.Second)
	ledger.AddBottles("sale", 1)
	NewLedgerMetrics(nil).Observe("sale", OutcomeError, time.Second)
	var catalog *CatalogMetrics
	catalog.SetLowStock(1)
}

func gaugeValue(mf *dto.MetricFamily) float64 {
	if mf == nil || len(mf.GetMetric()) == 0 {
		return -1
	}
	return mf.GetMetric()[0].GetGauge().GetValue()
}
