// Package metrics exposes Prometheus metrics for import runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nao1215/jokeimport/internal/model"
)

const (
	// Namespace is the namespace for all jokeimport metrics.
	Namespace = "jokeimport"

	// Subsystem is the subsystem for import metrics.
	Subsystem = "import"
)

// Metrics holds the import metrics. It satisfies importer.Observer.
type Metrics struct {
	FetchesTotal    *prometheus.CounterVec
	SavesTotal      *prometheus.CounterVec
	RunsTotal       prometheus.Counter
	RunDuration     prometheus.Histogram
	LastRunSaved    prometheus.Gauge
	LastRunUnixTime prometheus.Gauge
}

// New creates and registers the metrics on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		FetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "fetches_total",
				Help:      "Upstream fetch tasks by outcome",
			},
			[]string{"outcome"},
		),
		SavesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "saves_total",
				Help:      "Persistence results by status",
			},
			[]string{"status"},
		),
		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "runs_total",
				Help:      "Completed import runs",
			},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "run_duration_seconds",
				Help:      "Duration of import runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		LastRunSaved: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "last_run_saved",
				Help:      "Nodes saved by the most recent run",
			},
		),
		LastRunUnixTime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: Subsystem,
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the most recent run finished",
			},
		),
	}
}

// ObserveFetch counts one fetch task by outcome.
func (m *Metrics) ObserveFetch(outcome string) {
	m.FetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveImport records a finished run.
func (m *Metrics) ObserveImport(report *model.ImportReport) {
	m.RunsTotal.Inc()
	m.RunDuration.Observe(report.Duration.Seconds())
	m.SavesTotal.WithLabelValues(string(model.StatusSaved)).Add(float64(report.Saved))
	m.SavesTotal.WithLabelValues(string(model.StatusInvalid)).Add(float64(report.Invalid))
	m.SavesTotal.WithLabelValues(string(model.StatusStoreFailed)).Add(float64(report.StoreFailed))
	m.LastRunSaved.Set(float64(report.Saved))
	m.LastRunUnixTime.Set(float64(report.StartedAt.Add(report.Duration).Unix()))
}
