package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// LedgerMetrics counts stock mutations by operation and outcome.
type LedgerMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	bottles    *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operations_total",
		Help:      "Ledger operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	bottles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "bottles_total",
		Help:      "Bottles moved by committed ledger operations.",
	}, []string{"operation"})
	reg.MustRegister(operations, duration, bottles)
	return &LedgerMetrics{
		operations: operations,
		duration:   duration,
		bottles:    bottles,
	}
}

// Observe records one finished ledger operation.
func (l *LedgerMetrics) Observe(operation, outcome string, elapsed time.Duration) {
	if l == nil || l.operations == nil {
		return
	}
	op := normalizeLabel(operation)
	l.operations.WithLabelValues(op, normalizeLabel(outcome)).Inc()
	l.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// AddBottles records the quantity a committed operation moved.
func (l *LedgerMetrics) AddBottles(operation string, quantity int) {
	if l == nil || l.bottles == nil || quantity <= 0 {
		return
	}
	l.bottles.WithLabelValues(normalizeLabel(operation)).Add(float64(quantity))
}

// CatalogMetrics exposes catalog-wide gauges refreshed by the cron worker.
type CatalogMetrics struct {
	lowStock prometheus.Gauge
	drift    prometheus.Gauge
}

// NewCatalogMetrics registers the catalog gauges on the provided registerer.
func NewCatalogMetrics(reg prometheus.Registerer) *CatalogMetrics {
	if reg == nil {
		return &CatalogMetrics{}
	}
	lowStock := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "low_stock_items",
		Help:      "Items at or below the low stock threshold.",
	})
	drift := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "catalog",
		Name:      "sold_counter_drift_items",
		Help:      "Items whose sold counter disagrees with their sale records.",
	})
	reg.MustRegister(lowStock, drift)
	return &CatalogMetrics{lowStock: lowStock, drift: drift}
}

func (c *CatalogMetrics) SetLowStock(count int) {
	if c == nil || c.lowStock == nil {
		return
	}
	c.lowStock.Set(float64(count))
}

func (c *CatalogMetrics) SetDrift(count int) {
	if c == nil || c.drift == nil {
		return
	}
	c.drift.Set(float64(count))
}
