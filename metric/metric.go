// Package metric collects run-scoped counters on a private Prometheus
// registry. A check run is a short-lived process, so the metrics are dumped
// to the debug log at the end of the run instead of being scraped.
package metric

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wayland-systems/graphql-inspector/diff"
)

// Metrics holds the counters of one run.
type Metrics struct {
	registry *prometheus.Registry

	SchemaFetches  *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
	ChangesTotal   *prometheus.CounterVec
	FindingsTotal  prometheus.Counter
	ReportAttempts *prometheus.CounterVec
}

// New creates a fresh registry with the run counters registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SchemaFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspector_schema_fetches_total",
			Help: "Schema fetches by source kind (workspace, remote, endpoint).",
		}, []string{"kind"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "inspector_fetch_duration_seconds",
			Help:    "Wall time of the concurrent schema pair fetch.",
			Buckets: prometheus.DefBuckets,
		}),
		ChangesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspector_changes_total",
			Help: "Classified schema changes by severity.",
		}, []string{"severity"}),
		FindingsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inspector_invalid_documents_total",
			Help: "Invalid-document findings against the new schema.",
		}),
		ReportAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inspector_report_attempts_total",
			Help: "Check-run update attempts by outcome (ok, rejected).",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.SchemaFetches, m.FetchDuration, m.ChangesTotal, m.FindingsTotal, m.ReportAttempts)
	return m
}

// ObserveFetch records one completed pair fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	m.FetchDuration.Observe(d.Seconds())
}

// CountChanges tallies classified changes by severity.
func (m *Metrics) CountChanges(changes []diff.Change) {
	for _, c := range changes {
		m.ChangesTotal.WithLabelValues(c.Severity.String()).Inc()
	}
}

// Dump writes every gathered metric sample to the debug log.
func (m *Metrics) Dump(logger *slog.Logger) {
	families, err := m.registry.Gather()
	if err != nil {
		logger.Warn("metric gather failed", "error", err)
		return
	}
	for _, family := range families {
		for _, sample := range family.GetMetric() {
			attrs := []any{}
			for _, label := range sample.GetLabel() {
				attrs = append(attrs, label.GetName(), label.GetValue())
			}
			switch {
			case sample.GetCounter() != nil:
				attrs = append(attrs, "value", sample.GetCounter().GetValue())
			case sample.GetHistogram() != nil:
				attrs = append(attrs, "count", sample.GetHistogram().GetSampleCount(),
					"sum", sample.GetHistogram().GetSampleSum())
			}
			logger.Debug(family.GetName(), attrs...)
		}
	}
}
