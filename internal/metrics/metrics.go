package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce    sync.Once
	serverMutex sync.Mutex
	currentSrv  *http.Server

	globalHealthChecker *HealthChecker
	healthMutex         sync.RWMutex
)

// Init creates and registers every metric with the default Prometheus
// registry. Safe to call repeatedly; the Record helpers call it lazily.
func Init() {
	initOnce.Do(func() {
		initScanMetrics()
		initDeleteMetrics()
		initHistoryMetrics()
		initAPIMetrics()
		initServiceHealthMetrics()

		registerScanMetrics()
		registerDeleteMetrics()
		registerHistoryMetrics()
		registerAPIMetrics()
		registerServiceHealthMetrics()

		// Expose zero values before the first request arrives
		ScanEntries.Set(0)
		HistoryRecords.Set(0)
	})
}

// NewMux returns the handler served on the metrics port: /metrics and /health.
func NewMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		healthMutex.RLock()
		hc := globalHealthChecker
		healthMutex.RUnlock()

		status := http.StatusOK
		body := map[string]interface{}{"status": "ok", "healthy": true}
		if hc != nil {
			body["components"] = hc.GetHealth()
			body["uptime_seconds"] = hc.GetUptime()
			if !hc.IsHealthy() {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body["healthy"] = false
			}
		}

		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	})

	return mux
}

// StartServer starts the metrics HTTP server on addr in the background
func StartServer(addr string, logger *log.Logger) {
	Init()

	serverMutex.Lock()
	defer serverMutex.Unlock()

	if currentSrv != nil {
		logger.Printf("metrics server already running on %s", currentSrv.Addr)
		return
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewMux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	currentSrv = srv

	go func() {
		logger.Printf("metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Printf("metrics server error: %v", err)
			ErrorsTotal.Inc()
		}
	}()
}

// Shutdown stops the health checker and the metrics server
func Shutdown(ctx context.Context, logger *log.Logger) {
	serverMutex.Lock()
	defer serverMutex.Unlock()

	healthMutex.Lock()
	if globalHealthChecker != nil {
		globalHealthChecker.Stop()
		globalHealthChecker = nil
	}
	healthMutex.Unlock()

	if currentSrv == nil {
		return
	}

	if err := currentSrv.Shutdown(ctx); err != nil {
		logger.Printf("metrics server shutdown error: %v", err)
		ErrorsTotal.Inc()
	}
	currentSrv = nil
}

// SetHealthChecker sets the global health checker instance
func SetHealthChecker(hc *HealthChecker) {
	healthMutex.Lock()
	defer healthMutex.Unlock()
	globalHealthChecker = hc
}

// GetHealthChecker returns the global health checker instance
func GetHealthChecker() *HealthChecker {
	healthMutex.RLock()
	defer healthMutex.RUnlock()
	return globalHealthChecker
}
