package limiter

import (
	"runtime"
	"time"
)

// CPULimiter throttles a busy loop (directory traversal) so it consumes at
// most roughly maxPercent of one core. Not safe for concurrent use; each
// traversal owns its limiter.
type CPULimiter struct {
	maxPercent float64
	window     time.Duration
	windowFrom time.Time
	sleep      func(time.Duration)
}

// NewCPULimiter returns nil when maxPercent disables throttling, so callers
// can hold a nil *CPULimiter and call Throttle unconditionally.
func NewCPULimiter(maxPercent float64) *CPULimiter {
	if maxPercent <= 0 || maxPercent >= 100 {
		return nil
	}
	return &CPULimiter{
		maxPercent: maxPercent,
		window:     10 * time.Millisecond,
		windowFrom: time.Now(),
		sleep:      time.Sleep,
	}
}

// Throttle is called once per unit of work. After each work window has
// elapsed it sleeps long enough that work/(work+sleep) ~= maxPercent.
func (l *CPULimiter) Throttle() {
	if l == nil {
		return
	}

	worked := time.Since(l.windowFrom)
	if worked >= l.window {
		l.sleep(l.SleepFor(worked))
		l.windowFrom = time.Now()
	}

	runtime.Gosched()
}

// SleepFor returns the pause that balances worked at the configured ratio.
func (l *CPULimiter) SleepFor(worked time.Duration) time.Duration {
	if l == nil {
		return 0
	}
	return time.Duration(float64(worked) * (100.0 - l.maxPercent) / l.maxPercent)
}

// MaxPercent returns the configured ceiling.
func (l *CPULimiter) MaxPercent() float64 {
	if l == nil {
		return 100
	}
	return l.maxPercent
}
