package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Directory scan and size traversal metrics
var (
	// ScanDuration tracks how long a directory listing takes end to end
	ScanDuration prometheus.Histogram

	// ScansTotal counts listings by outcome (ok, not_found, unresolvable, read_failure)
	ScansTotal *prometheus.CounterVec

	// ScanEntries is the number of entries returned by the most recent listing
	ScanEntries prometheus.Gauge

	// SizeNodesVisited counts every file or directory the size calculator stats
	SizeNodesVisited prometheus.Counter

	// SizeErrorsTotal counts metadata/enumeration errors swallowed as zero bytes
	SizeErrorsTotal prometheus.Counter

	// ErrorsTotal counts unexpected internal errors (servers, history writes)
	ErrorsTotal prometheus.Counter
)

func initScanMetrics() {
	ScanDuration = NewDurationHistogram(
		"dirsage_scan_duration_seconds",
		"Duration of directory listings including recursive sizing.",
	)

	ScansTotal = NewCounterVec(
		"dirsage_scans_total",
		"Directory listings by outcome.",
		[]string{"status"},
	)

	ScanEntries = NewGauge(
		"dirsage_scan_entries",
		"Entries returned by the most recent directory listing.",
	)

	SizeNodesVisited = NewCounter(
		"dirsage_size_nodes_visited_total",
		"Filesystem nodes visited while computing sizes.",
	)

	SizeErrorsTotal = NewCounter(
		"dirsage_size_errors_total",
		"Filesystem errors treated as zero bytes while computing sizes.",
	)

	ErrorsTotal = NewCounter(
		"dirsage_errors_total",
		"Total number of internal errors encountered by dirsage.",
	)
}

func registerScanMetrics() {
	prometheus.MustRegister(ScanDuration)
	prometheus.MustRegister(ScansTotal)
	prometheus.MustRegister(ScanEntries)
	prometheus.MustRegister(SizeNodesVisited)
	prometheus.MustRegister(SizeErrorsTotal)
	prometheus.MustRegister(ErrorsTotal)
}

// RecordScan records one listing outcome
func RecordScan(status string, entries int, elapsed time.Duration) {
	Init()
	ScansTotal.WithLabelValues(status).Inc()
	ScanDuration.Observe(elapsed.Seconds())
	if status == "ok" {
		ScanEntries.Set(float64(entries))
	}
}

// RecordSizeVisit counts one stat call made by the size calculator
func RecordSizeVisit() {
	Init()
	SizeNodesVisited.Inc()
}

// RecordSizeError counts one swallowed size error
func RecordSizeError() {
	Init()
	SizeErrorsTotal.Inc()
}

// RecordError counts an internal error
func RecordError() {
	Init()
	ErrorsTotal.Inc()
}
