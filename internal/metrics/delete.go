package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Batch deletion metrics
var (
	// PathsDeletedTotal counts removed paths by object type (file, directory)
	PathsDeletedTotal *prometheus.CounterVec

	// BytesDeletedTotal sums the measured size of removed paths
	BytesDeletedTotal prometheus.Counter

	// DeletedSize records the size distribution of removed paths
	DeletedSize prometheus.Histogram

	// DeleteFailuresTotal counts aborted batches by reason (not_found, delete_failure, blocked)
	DeleteFailuresTotal *prometheus.CounterVec

	// DeleteBatchesTotal counts delete_files calls by outcome
	DeleteBatchesTotal *prometheus.CounterVec
)

func initDeleteMetrics() {
	PathsDeletedTotal = NewCounterVec(
		"dirsage_paths_deleted_total",
		"Paths removed by batch deletion.",
		[]string{"object_type"},
	)

	BytesDeletedTotal = NewCounter(
		"dirsage_bytes_deleted_total",
		"Total bytes removed by batch deletion.",
	)

	DeletedSize = NewBytesHistogram(
		"dirsage_deleted_path_size_bytes",
		"Size of individual removed paths.",
	)

	DeleteFailuresTotal = NewCounterVec(
		"dirsage_delete_failures_total",
		"Batch deletions aborted, by reason.",
		[]string{"reason"},
	)

	DeleteBatchesTotal = NewCounterVec(
		"dirsage_delete_batches_total",
		"Batch deletion calls by outcome.",
		[]string{"status"},
	)
}

func registerDeleteMetrics() {
	prometheus.MustRegister(PathsDeletedTotal)
	prometheus.MustRegister(BytesDeletedTotal)
	prometheus.MustRegister(DeletedSize)
	prometheus.MustRegister(DeleteFailuresTotal)
	prometheus.MustRegister(DeleteBatchesTotal)
}

// RecordPathDeleted records one successful removal
func RecordPathDeleted(objectType string, size uint64) {
	Init()
	PathsDeletedTotal.WithLabelValues(objectType).Inc()
	BytesDeletedTotal.Add(float64(size))
	DeletedSize.Observe(float64(size))
}

// RecordDeleteFailure records the reason a batch stopped early
func RecordDeleteFailure(reason string) {
	Init()
	DeleteFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordDeleteBatch records the outcome of one batch ("ok" or "failed")
func RecordDeleteBatch(status string) {
	Init()
	DeleteBatchesTotal.WithLabelValues(status).Inc()
}
