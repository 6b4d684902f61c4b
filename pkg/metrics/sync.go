package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// SyncMetrics records full-sync runs against the inventory sheet.
type SyncMetrics struct {
	runs     *prometheus.CounterVec
	duration prometheus.Histogram
	items    prometheus.Gauge
	rejected *prometheus.CounterVec
}

// NewSyncMetrics registers the sync metrics on reg. A nil registerer yields a
// no-op recorder.
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	if reg == nil {
		return &SyncMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearshed_sync_runs_total",
		Help: "Full sync runs by outcome.",
	}, []string{"outcome"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gearshed_sync_duration_seconds",
		Help:    "Duration of full sync runs in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	items := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gearshed_sync_items",
		Help: "Items written to the local cache by the last successful sync.",
	})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearshed_sync_rejected_rows_total",
		Help: "Inventory rows rejected during sync, by reason.",
	}, []string{"reason"})
	reg.MustRegister(runs, duration, items, rejected)
	return &SyncMetrics{
		runs:     runs,
		duration: duration,
		items:    items,
		rejected: rejected,
	}
}

// ObserveRun records one sync run.
func (m *SyncMetrics) ObserveRun(outcome string, duration time.Duration) {
	if m == nil || m.runs == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.duration.Observe(duration.Seconds())
}

// SetItems records the item count of the last applied sync.
func (m *SyncMetrics) SetItems(count int) {
	if m == nil || m.items == nil {
		return
	}
	m.items.Set(float64(count))
}

// AddRejected counts rejected rows for reason.
func (m *SyncMetrics) AddRejected(reason string, count int) {
	if m == nil || m.rejected == nil || count <= 0 {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Add(float64(count))
}
