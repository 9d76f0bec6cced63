package metrics

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestMetricsInit verifies that Init() is idempotent and registers metrics
func TestMetricsInit(t *testing.T) {
	Init()
	Init()
	Init()

	if ScanDuration == nil || ScansTotal == nil || SizeErrorsTotal == nil {
		t.Fatal("scan metrics should be initialized")
	}
	if PathsDeletedTotal == nil || BytesDeletedTotal == nil || DeleteFailuresTotal == nil {
		t.Fatal("delete metrics should be initialized")
	}
	if HTTPRequestDuration == nil || HTTPRequestsTotal == nil {
		t.Fatal("API metrics should be initialized")
	}

	// Touch labeled metrics so they appear in Gather output
	RecordScan("ok", 3, 10*time.Millisecond)
	RecordPathDeleted("file", 10)
	RecordDeleteFailure("not_found")
	RecordDeleteBatch("ok")
	ObserveRequest("/api/v1/health", "GET", "200", 0.001)

	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"dirsage_scan_duration_seconds",
		"dirsage_scans_total",
		"dirsage_scan_entries",
		"dirsage_size_nodes_visited_total",
		"dirsage_size_errors_total",
		"dirsage_errors_total",
		"dirsage_paths_deleted_total",
		"dirsage_bytes_deleted_total",
		"dirsage_delete_failures_total",
		"dirsage_delete_batches_total",
		"dirsage_history_records",
		"dirsage_api_request_duration_seconds",
		"dirsage_api_requests_total",
	}

	foundMetrics := make(map[string]bool)
	for _, mf := range mfs {
		foundMetrics[mf.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !foundMetrics[expected] {
			t.Errorf("Expected metric %s not found in registry", expected)
		}
	}
}

// TestStandardBuckets verifies bucket definitions are sorted ascending
func TestStandardBuckets(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"duration": DurationBuckets,
		"bytes":    BytesBuckets,
		"api":      APIBuckets,
	} {
		for i := 1; i < len(buckets); i++ {
			if buckets[i] <= buckets[i-1] {
				t.Errorf("%s buckets not ascending at %d: %v", name, i, buckets)
			}
		}
	}
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker(time.Hour)
	hc.RegisterComponent("ok", func() error { return nil }, 0)
	hc.RegisterComponent("broken", func() error { return errors.New("down") }, 0)
	hc.RegisterComponent("slow", func() error {
		time.Sleep(200 * time.Millisecond)
		return nil
	}, 10*time.Millisecond)

	hc.RunChecks()

	health := hc.GetHealth()
	if !health["ok"] {
		t.Error("component ok should be healthy")
	}
	if health["broken"] {
		t.Error("component broken should be unhealthy")
	}
	if health["slow"] {
		t.Error("component slow should time out")
	}
	if hc.IsHealthy() {
		t.Error("checker with failing components should not be healthy")
	}
}

func TestHealthEndpoint(t *testing.T) {
	hc := NewHealthChecker(time.Hour)
	hc.RegisterComponent("database", func() error { return errors.New("locked") }, 0)
	hc.RunChecks()
	SetHealthChecker(hc)
	defer SetHealthChecker(nil)

	rec := httptest.NewRecorder()
	NewMux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, expected 503", rec.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("status field = %v, expected degraded", body["status"])
	}
}
