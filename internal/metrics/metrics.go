package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_import_records_total",
		Help: "Sale records processed by outcome (inserted, duplicate, rejected)",
	}, []string{"outcome"})

	ValidationTags = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_import_validation_tags_total",
		Help: "Validation tags attached to corrected records",
	}, []string{"tag"})

	ChunksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_import_chunks_total",
		Help: "Chunks processed by the ingestor",
	})

	ChunkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sales_import_chunk_duration_seconds",
		Help:    "Duration of one chunk from reconcile to last insert",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	AssignmentOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_import_assignment_ops_total",
		Help: "Assignment operations by kind and result",
	}, []string{"op", "result"})

	SourceOpens = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_import_source_opens_total",
		Help: "Input files opened by source kind and result",
	}, []string{"source", "result"})

	AuditAppendFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_import_audit_append_failures_total",
		Help: "Failed duplicate audit appends by sink",
	}, []string{"sink"})
)

func ObserveSale(outcome string) {
	SalesProcessed.WithLabelValues(outcome).Inc()
}

func ObserveTags(tags []string) {
	for _, t := range tags {
		ValidationTags.WithLabelValues(t).Inc()
	}
}

func ObserveAssignment(op string, err error) {
	AssignmentOps.WithLabelValues(op, result(err)).Inc()
}

func ObserveOpen(source string, err error) {
	SourceOpens.WithLabelValues(source, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
