package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics are the default metrics for bridge ingestion jobs.
type IngestMetrics struct {
	// Counts of ingestion passes, partitioned by job and outcome.
	passes *prometheus.CounterVec

	// Counts of event logs fetched, partitioned by job.
	logsFetched *prometheus.CounterVec

	// Live chunk size of each job, which shrinks under RPC throttling.
	chunkSize *prometheus.GaugeVec

	// Counts of optimistic merge conflicts that were retried.
	mergeConflicts *prometheus.CounterVec
}

// NewDefaultIngestMetrics creates Prometheus metric instrumentation for
// bridge ingestion jobs.
func NewDefaultIngestMetrics(pkg string) IngestMetrics {
	metrics := IngestMetrics{
		passes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_ingest_passes", pkg),
				Help: "How many ingestion passes ran, partitioned by job and outcome.",
			},
			[]string{"job", "outcome"},
		),
		logsFetched: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_ingest_logs", pkg),
				Help: "How many event logs were fetched, partitioned by job.",
			},
			[]string{"job"},
		),
		chunkSize: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_ingest_chunk_size", pkg),
				Help: "Live block-range chunk size of each job.",
			},
			[]string{"job"},
		),
		mergeConflicts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_merge_conflicts", pkg),
				Help: "How many wallet-record merge conflicts were retried, partitioned by job.",
			},
			[]string{"job"},
		),
	}
	metrics.passes = registerOnce(metrics.passes).(*prometheus.CounterVec)
	metrics.logsFetched = registerOnce(metrics.logsFetched).(*prometheus.CounterVec)
	metrics.chunkSize = registerOnce(metrics.chunkSize).(*prometheus.GaugeVec)
	metrics.mergeConflicts = registerOnce(metrics.mergeConflicts).(*prometheus.CounterVec)
	return metrics
}

// Passes returns the pass counter for the given job and outcome.
func (m *IngestMetrics) Passes(job, outcome string) prometheus.Counter {
	return m.passes.WithLabelValues(job, outcome)
}

// LogsFetched returns the fetched-logs counter for the given job.
func (m *IngestMetrics) LogsFetched(job string) prometheus.Counter {
	return m.logsFetched.WithLabelValues(job)
}

// ChunkSize returns the chunk size gauge for the given job.
func (m *IngestMetrics) ChunkSize(job string) prometheus.Gauge {
	return m.chunkSize.WithLabelValues(job)
}

// MergeConflicts returns the merge conflict counter for the given job.
func (m *IngestMetrics) MergeConflicts(job string) prometheus.Counter {
	return m.mergeConflicts.WithLabelValues(job)
}
