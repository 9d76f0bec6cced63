package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter keeps one token bucket per client address.
type RateLimiter struct {
	limiters *xsync.MapOf[string, *clientLimiter]
	rate     rate.Limit
	burst    int
	idle     time.Duration
	stop     chan struct{}
	stopOnce sync.Once

	trustForwarded bool
}

// NewRateLimiter creates a limiter allowing r requests per second with
// burst b. Clients idle for longer than idle are forgotten.
func NewRateLimiter(r rate.Limit, b int, idle time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limiters: xsync.NewMapOf[string, *clientLimiter](),
		rate:     r,
		burst:    b,
		idle:     idle,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	cl, ok := rl.limiters.Load(key)
	if !ok {
		cl, _ = rl.limiters.LoadOrStore(key, &clientLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)})
	}
	cl.lastSeen.Store(time.Now().UnixNano())
	return cl.limiter
}

// SetTrustForwarded keys clients on the first X-Forwarded-For hop. Only
// enable it when a proxy in front of the server sets that header.
func (rl *RateLimiter) SetTrustForwarded(trust bool) { rl.trustForwarded = trust }

// Allow reports whether a request from key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Clients returns the number of tracked client buckets.
func (rl *RateLimiter) Clients() int {
	return rl.limiters.Size()
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case now := <-ticker.C:
			rl.evictIdle(now)
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) {
	cutoff := now.Add(-rl.idle).UnixNano()
	rl.limiters.Range(func(key string, cl *clientLimiter) bool {
		if cl.lastSeen.Load() < cutoff {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Middleware returns a rate limiting middleware
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(clientIP(r, rl.trustForwarded)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the remote host without its port, or the first
// X-Forwarded-For hop when trustForwarded is set and the header is present.
func clientIP(r *http.Request, trustForwarded bool) string {
	if trustForwarded {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
