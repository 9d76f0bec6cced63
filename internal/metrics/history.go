package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Deletion history database metrics
var (
	// HistoryRecords tracks rows currently held in the history database
	HistoryRecords prometheus.Gauge

	// HistoryPrunedTotal counts rows removed by retention pruning
	HistoryPrunedTotal prometheus.Counter

	// HistoryWriteErrorsTotal counts failed history inserts
	HistoryWriteErrorsTotal prometheus.Counter

	// HistoryLastPruneTimestamp records the Unix time of the last prune
	HistoryLastPruneTimestamp prometheus.Gauge
)

func initHistoryMetrics() {
	HistoryRecords = NewGauge(
		"dirsage_history_records",
		"Rows currently stored in the deletion history database.",
	)

	HistoryPrunedTotal = NewCounter(
		"dirsage_history_pruned_total",
		"History rows removed by retention pruning.",
	)

	HistoryWriteErrorsTotal = NewCounter(
		"dirsage_history_write_errors_total",
		"Failed writes to the deletion history database.",
	)

	HistoryLastPruneTimestamp = NewGauge(
		"dirsage_history_last_prune_timestamp",
		"Timestamp of the last history prune (Unix epoch seconds).",
	)
}

func registerHistoryMetrics() {
	prometheus.MustRegister(HistoryRecords)
	prometheus.MustRegister(HistoryPrunedTotal)
	prometheus.MustRegister(HistoryWriteErrorsTotal)
	prometheus.MustRegister(HistoryLastPruneTimestamp)
}

// RecordPrune updates history metrics after a retention pass
func RecordPrune(pruned, remaining int64, unix int64) {
	Init()
	HistoryPrunedTotal.Add(float64(pruned))
	HistoryRecords.Set(float64(remaining))
	HistoryLastPruneTimestamp.Set(float64(unix))
}

// RecordHistoryWriteError counts one failed history insert
func RecordHistoryWriteError() {
	Init()
	HistoryWriteErrorsTotal.Inc()
}
