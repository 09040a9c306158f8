// Package metrics exposes Prometheus instrumentation for aggregation runs and
// store traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "activity_report"

// Store read results.
const (
	ReadHit       = "hit"
	ReadMiss      = "miss"
	ReadError     = "error"
	ReadMalformed = "malformed"
)

// Metrics groups the collectors of one registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	AggregationRuns      *prometheus.CounterVec
	AggregationDuration  prometheus.Histogram
	RecordsProcessed     prometheus.Counter
	SnapshotWrites       *prometheus.CounterVec
	StoreReads           *prometheus.CounterVec
	SnapshotApplications prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AggregationRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_runs_total",
				Help:      "Total number of aggregation runs",
			},
			[]string{"context", "status"}, // success/failure
		),
		AggregationDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "aggregation_duration_seconds",
				Help:      "Duration of aggregation runs",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
		),
		RecordsProcessed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Total number of activity records folded into snapshots",
			},
		),
		SnapshotWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "snapshot_writes_total",
				Help:      "Total number of snapshot writes",
			},
			[]string{"status"},
		),
		StoreReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_reads_total",
				Help:      "Total number of store reads by kind and result",
			},
			[]string{"kind", "result"}, // view_state/snapshot, hit/miss/error/malformed
		),
		SnapshotApplications: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "snapshot_applications",
				Help:      "Number of applications in the latest snapshot",
			},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// TrackAggregation starts a timer observed into AggregationDuration.
func (m *Metrics) TrackAggregation() *prometheus.Timer {
	if m == nil {
		return prometheus.NewTimer(prometheus.ObserverFunc(func(float64) {}))
	}
	return prometheus.NewTimer(m.AggregationDuration)
}

// TrackRun records the outcome of one aggregation run.
func (m *Metrics) TrackRun(reportContext string, records, applications int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.AggregationRuns.WithLabelValues(reportContext, status).Inc()
	m.RecordsProcessed.Add(float64(records))
	if err == nil {
		m.SnapshotApplications.Set(float64(applications))
	}
}

// TrackSnapshotWrite records one snapshot write.
func (m *Metrics) TrackSnapshotWrite(err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.SnapshotWrites.WithLabelValues(status).Inc()
}

// TrackStoreRead records one store read of the given kind.
func (m *Metrics) TrackStoreRead(kind, result string) {
	if m == nil {
		return
	}
	m.StoreReads.WithLabelValues(kind, result).Inc()
}
