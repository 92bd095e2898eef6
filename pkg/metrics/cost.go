// Package metrics exports run totals in the Prometheus text format so that a
// node_exporter textfile collector can pick them up.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pario-ai/apicost/pkg/models"
)

// Namespace prefixes every exported metric.
const Namespace = "apicost"

// CostMetrics holds the gauges describing the last annotated file.
//
// Metrics:
//   - apicost_cost_usd: cost of the last run by model
//   - apicost_rows: usage rows in the last run by model
//   - apicost_total_cost_usd: grand total of the last run
//   - apicost_last_run_timestamp_seconds: when the last run finished
type CostMetrics struct {
	registry *prometheus.Registry

	modelCost *prometheus.GaugeVec
	modelRows *prometheus.GaugeVec
	totalCost prometheus.Gauge
	lastRun   prometheus.Gauge
}

// NewCostMetrics creates the gauges on a private registry.
func NewCostMetrics() *CostMetrics {
	cm := &CostMetrics{
		registry: prometheus.NewRegistry(),
		modelCost: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "cost_usd",
				Help:      "Cost in USD of the last annotated file by model",
			},
			[]string{"model"},
		),
		modelRows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "rows",
				Help:      "Usage rows in the last annotated file by model",
			},
			[]string{"model"},
		),
		totalCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "total_cost_usd",
			Help:      "Total cost in USD of the last annotated file",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last annotation finished",
		}),
	}

	cm.registry.MustRegister(
		cm.modelCost,
		cm.modelRows,
		cm.totalCost,
		cm.lastRun,
	)

	return cm
}

// Observe replaces the gauges with the totals of summary.
func (m *CostMetrics) Observe(summary models.RunSummary, at time.Time) {
	m.modelCost.Reset()
	m.modelRows.Reset()
	for _, mc := range summary.Models {
		m.modelCost.WithLabelValues(mc.Model).Set(mc.Cost)
		m.modelRows.WithLabelValues(mc.Model).Set(float64(mc.Rows))
	}
	m.totalCost.Set(summary.Total)
	m.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (m *CostMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics to path atomically.
func (m *CostMetrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
