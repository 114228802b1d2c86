// Package metrics exposes Prometheus collectors for the federator,
// resolver, and harvester binaries. Grounded on the rest of the retrieved
// pack's metrics packages (prometheus/client_golang), since the teacher
// itself does not wire Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eida_federator"

// Metrics holds every collector registered by one process. Binaries embed
// the subset relevant to them (the federator uses Jobs*/SubRequests*, the
// resolver uses ResolveDuration, the harvester uses Harvest*).
type Metrics struct {
	JobsTotal         *prometheus.CounterVec
	JobDuration       prometheus.Histogram
	SubRequestsTotal  *prometheus.CounterVec
	ArenaBytesInUse   prometheus.Gauge
	ResolveDuration   prometheus.Histogram
	HarvestRunsTotal  *prometheus.CounterVec
	HarvestRowsTotal  prometheus.Counter
}

// New constructs a Metrics and registers every collector with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "jobs_total",
			Help: "Federated jobs completed, by outcome (ok, partial, upstream_error, timeout).",
		}, []string{"outcome"}),
		JobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "job_duration_seconds",
			Help:    "Wall-clock duration of a federated job from admission to response.",
			Buckets: prometheus.DefBuckets,
		}),
		SubRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "subrequests_total",
			Help: "Upstream sub-requests issued, by terminal state.",
		}, []string{"state"}),
		ArenaBytesInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "arena_bytes_in_use",
			Help: "Bytes currently reserved against the temp-file arena quota.",
		}),
		ResolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "resolve_duration_seconds",
			Help:    "Duration of routing-catalog Resolve calls.",
			Buckets: prometheus.DefBuckets,
		}),
		HarvestRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "harvest_runs_total",
			Help: "Harvest runs per data center, by outcome (ok, error).",
		}, []string{"data_center", "outcome"}),
		HarvestRowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "harvest_rows_total",
			Help: "Routing rows written by UpsertBatch across all harvest runs.",
		}),
	}

	reg.MustRegister(
		m.JobsTotal, m.JobDuration, m.SubRequestsTotal, m.ArenaBytesInUse,
		m.ResolveDuration, m.HarvestRunsTotal, m.HarvestRowsTotal,
	)
	return m
}

// Handler returns the HTTP handler serving /metrics for reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
