package metrics

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ServiceStartTime records process start
	ServiceStartTime prometheus.Gauge

	// ComponentHealthy tracks individual component health (1=healthy, 0=unhealthy)
	ComponentHealthy *prometheus.GaugeVec

	// HealthCheckDuration tracks health check execution time
	HealthCheckDuration *prometheus.HistogramVec

	// HealthCheckFailures counts consecutive failures per component
	HealthCheckFailures *prometheus.GaugeVec
)

var errHealthCheckTimeout = errors.New("health check timeout")

// HealthChecker periodically runs registered component checks (database
// reachability, log directory writability) and feeds /health.
type HealthChecker struct {
	mu            sync.RWMutex
	startTime     time.Time
	components    map[string]*ComponentHealth
	checkInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
	started       bool
}

// ComponentHealth represents health status of a single component
type ComponentHealth struct {
	Name         string
	LastCheck    time.Time
	LastError    string
	Healthy      bool
	CheckFunc    func() error
	FailureCount int
	Timeout      time.Duration
}

func initServiceHealthMetrics() {
	ServiceStartTime = NewGauge(
		"dirsage_start_timestamp_seconds",
		"Unix timestamp when the process started.",
	)

	ComponentHealthy = NewGaugeVec(
		"dirsage_component_healthy",
		"Individual component health status (1=healthy, 0=unhealthy).",
		[]string{"component"},
	)

	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirsage_health_check_duration_seconds",
			Help:    "Time taken to execute health checks.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"component"},
	)

	HealthCheckFailures = NewGaugeVec(
		"dirsage_health_check_failures_consecutive",
		"Consecutive health check failures per component.",
		[]string{"component"},
	)
}

func registerServiceHealthMetrics() {
	prometheus.MustRegister(ServiceStartTime)
	prometheus.MustRegister(ComponentHealthy)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(HealthCheckFailures)
}

// NewHealthChecker creates a health checker with the given check interval
func NewHealthChecker(interval time.Duration) *HealthChecker {
	Init()

	hc := &HealthChecker{
		startTime:     time.Now(),
		components:    make(map[string]*ComponentHealth),
		checkInterval: interval,
		stopCh:        make(chan struct{}),
	}
	ServiceStartTime.Set(float64(hc.startTime.Unix()))
	return hc
}

// RegisterComponent adds a named check; timeout 0 means no timeout
func (hc *HealthChecker) RegisterComponent(name string, checkFunc func() error, timeout time.Duration) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	hc.components[name] = &ComponentHealth{
		Name:      name,
		CheckFunc: checkFunc,
		Healthy:   true,
		Timeout:   timeout,
	}

	ComponentHealthy.WithLabelValues(name).Set(1)
	HealthCheckFailures.WithLabelValues(name).Set(0)
}

// Start begins periodic health checking
func (hc *HealthChecker) Start() {
	hc.mu.Lock()
	if hc.started {
		hc.mu.Unlock()
		return
	}
	hc.started = true
	hc.mu.Unlock()

	hc.wg.Add(1)
	go hc.runHealthCheckLoop()
}

// Stop halts health checking and waits for the loop to exit
func (hc *HealthChecker) Stop() {
	hc.mu.Lock()
	if !hc.started {
		hc.mu.Unlock()
		return
	}
	hc.started = false
	hc.mu.Unlock()

	close(hc.stopCh)
	hc.wg.Wait()
}

func (hc *HealthChecker) runHealthCheckLoop() {
	defer hc.wg.Done()

	ticker := time.NewTicker(hc.checkInterval)
	defer ticker.Stop()

	hc.RunChecks()

	for {
		select {
		case <-ticker.C:
			hc.RunChecks()
		case <-hc.stopCh:
			return
		}
	}
}

// RunChecks executes every registered check once
func (hc *HealthChecker) RunChecks() {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	for name, comp := range hc.components {
		start := time.Now()

		var err error
		if comp.Timeout > 0 {
			err = runWithTimeout(comp.CheckFunc, comp.Timeout)
		} else {
			err = comp.CheckFunc()
		}

		HealthCheckDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		comp.LastCheck = time.Now()

		if err != nil {
			comp.Healthy = false
			comp.LastError = err.Error()
			comp.FailureCount++
			ComponentHealthy.WithLabelValues(name).Set(0)
			HealthCheckFailures.WithLabelValues(name).Set(float64(comp.FailureCount))
			ErrorsTotal.Inc()
		} else {
			comp.Healthy = true
			comp.LastError = ""
			comp.FailureCount = 0
			ComponentHealthy.WithLabelValues(name).Set(1)
			HealthCheckFailures.WithLabelValues(name).Set(0)
		}
	}
}

func runWithTimeout(fn func() error, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- fn()
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(timeout):
		return errHealthCheckTimeout
	}
}

// GetHealth returns current health status of all components
func (hc *HealthChecker) GetHealth() map[string]bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	health := make(map[string]bool, len(hc.components))
	for name, comp := range hc.components {
		health[name] = comp.Healthy
	}
	return health
}

// IsHealthy returns true if all components are healthy
func (hc *HealthChecker) IsHealthy() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	for _, comp := range hc.components {
		if !comp.Healthy {
			return false
		}
	}
	return true
}

// GetUptime returns uptime in seconds
func (hc *HealthChecker) GetUptime() float64 {
	return time.Since(hc.startTime).Seconds()
}
