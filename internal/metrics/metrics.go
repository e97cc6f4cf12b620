// Package metrics holds the Prometheus counters of a target instance.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "target_mssql"

const (
	MetricRecordsLoaded   = "records_loaded_total"
	MetricRecordsRejected = "records_rejected_total"
	MetricDDLStatements   = "ddl_statements_total"
	MetricBatchFiles      = "batch_files_processed_total"
)

// Metrics groups the counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	recordsLoaded   *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	ddlStatements   *prometheus.CounterVec
	batchFiles      prometheus.Counter
}

// New creates the counters and registers them on reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		recordsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRecordsLoaded,
			Help:      "Rows inserted into target tables.",
		}, []string{"table"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricRecordsRejected,
			Help:      "Records submitted for insert but not written.",
		}, []string{"table"}),
		ddlStatements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricDDLStatements,
			Help:      "DDL statements issued, by operation.",
		}, []string{"operation"}),
		batchFiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricBatchFiles,
			Help:      "Staged batch files loaded and released.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.recordsLoaded, m.recordsRejected, m.ddlStatements, m.batchFiles)
	}
	return m
}

// RecordsLoaded adds n inserted rows for table.
func (m *Metrics) RecordsLoaded(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsLoaded.WithLabelValues(table).Add(float64(n))
}

// RecordsRejected adds n records that were not written to table.
func (m *Metrics) RecordsRejected(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recordsRejected.WithLabelValues(table).Add(float64(n))
}

// DDL counts one DDL statement of the given operation.
func (m *Metrics) DDL(operation string) {
	if m == nil {
		return
	}
	m.ddlStatements.WithLabelValues(operation).Inc()
}

// BatchFile counts one processed batch file.
func (m *Metrics) BatchFile() {
	if m == nil {
		return
	}
	m.batchFiles.Inc()
}
