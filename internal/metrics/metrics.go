package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// dashboard.
type Metrics struct {
	DatasetLoads   *prometheus.CounterVec // labels: state, outcome={ok,not_found,parse_error}
	RecordsSkipped *prometheus.CounterVec // labels: state, reason

	PropertiesLoaded *prometheus.GaugeVec // labels: state
	PermitsLoaded    *prometheus.GaugeVec // labels: state

	AudienceBuilds prometheus.Counter
	BuildDuration  prometheus.Histogram

	ActiveSessions prometheus.Gauge
}

// New creates all dashboard metrics and registers them with the given
// registerer. Tests pass a fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permitscope",
			Name:      "dataset_loads_total",
			Help:      "Total dataset load attempts by state and outcome.",
		}, []string{"state", "outcome"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "permitscope",
			Name:      "records_skipped_total",
			Help:      "Total malformed match entries skipped during load.",
		}, []string{"state", "reason"}),
		PropertiesLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "permitscope",
			Name:      "properties_loaded",
			Help:      "Properties parsed from the most recent load of each state.",
		}, []string{"state"}),
		PermitsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "permitscope",
			Name:      "permits_loaded",
			Help:      "Permits parsed from the most recent load of each state.",
		}, []string{"state"}),
		AudienceBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "permitscope",
			Name:      "audience_builds_total",
			Help:      "Total filter-and-aggregate passes over a loaded dataset.",
		}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "permitscope",
			Name:      "audience_build_duration_seconds",
			Help:      "Duration of one filter-and-aggregate pass.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "permitscope",
			Name:      "active_sessions",
			Help:      "Sessions with a live record set in memory.",
		}),
	}

	reg.MustRegister(
		m.DatasetLoads,
		m.RecordsSkipped,
		m.PropertiesLoaded,
		m.PermitsLoaded,
		m.AudienceBuilds,
		m.BuildDuration,
		m.ActiveSessions,
	)

	return m
}
