package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics records ingestion outcomes. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	runs        prometheus.Counter
	spotResults *prometheus.CounterVec
	rows        *prometheus.CounterVec
	runDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "surftrack_ingest_runs_total",
			Help: "Total number of ingestion passes.",
		}),
		spotResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surftrack_ingest_spot_results_total",
			Help: "Spots processed by outcome.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "surftrack_ingest_rows_upserted_total",
			Help: "Rows upserted by kind.",
		}, []string{"kind"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "surftrack_ingest_run_duration_seconds",
			Help:    "Duration of ingestion passes.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}),
	}

	registry.MustRegister(m.runs, m.spotResults, m.rows, m.runDuration)
	return m
}

// Registry returns the Prometheus registry the worker serves
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeSpot(outcome SpotOutcome) {
	if m == nil {
		return
	}
	m.spotResults.WithLabelValues(outcome.Status).Inc()
	if outcome.Forecasts > 0 {
		m.rows.WithLabelValues("forecast").Add(float64(outcome.Forecasts))
	}
	if outcome.Tides > 0 {
		m.rows.WithLabelValues("tide").Add(float64(outcome.Tides))
	}
}

func (m *Metrics) observeRun(report *RunReport) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(report.Finished.Sub(report.Started).Seconds())
}
