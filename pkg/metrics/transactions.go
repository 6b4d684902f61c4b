package metrics

import "github.com/prometheus/client_golang/prometheus"

// TransactionMetrics counts checkout/checkin item results and sheet
// replication failures.
type TransactionMetrics struct {
	results     *prometheus.CounterVec
	replication *prometheus.CounterVec
}

// NewTransactionMetrics registers the transaction metrics on reg. A nil
// registerer yields a no-op recorder.
func NewTransactionMetrics(reg prometheus.Registerer) *TransactionMetrics {
	if reg == nil {
		return &TransactionMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearshed_transaction_items_total",
		Help: "Per-item checkout/checkin results by action and outcome.",
	}, []string{"action", "outcome"})
	replication := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gearshed_replication_failures_total",
		Help: "Failed writes of committed transactions to the spreadsheet, by step.",
	}, []string{"step"})
	reg.MustRegister(results, replication)
	return &TransactionMetrics{results: results, replication: replication}
}

// IncResult counts one item result.
func (m *TransactionMetrics) IncResult(action string, success bool) {
	if m == nil || m.results == nil {
		return
	}
	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	m.results.WithLabelValues(normalizeLabel(action), outcome).Inc()
}

// IncReplicationFailure counts a failed replication step ("transactions" or
// "inventory").
func (m *TransactionMetrics) IncReplicationFailure(step string) {
	if m == nil || m.replication == nil {
		return
	}
	m.replication.WithLabelValues(normalizeLabel(step)).Inc()
}
