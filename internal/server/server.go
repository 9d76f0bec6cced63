// Package server assembles the dirsage HTTP API: routes, middleware chain
// and the http.Server lifecycle.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"dirsage/internal/api"
	"dirsage/internal/auth"
	"dirsage/internal/config"
	"dirsage/internal/events"
	"dirsage/internal/middleware"
)

const (
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 10 * time.Second
	limiterIdle     = 10 * time.Minute

	loginRate  = 5
	loginBurst = 10
)

// Deps are the collaborators routed by the server. JWT is nil when auth
// is disabled, in which case every route is public.
type Deps struct {
	Config  *config.Config
	Handler *api.Handler
	Hub     *events.Hub
	JWT     *auth.JWTManager
	Logger  *log.Logger
}

// Server is the API listener
type Server struct {
	cfg      *config.Config
	http     *http.Server
	limiters []*middleware.RateLimiter
	logger   *log.Logger
}

func New(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = log.Default()
	}
	s := &Server{cfg: d.Config, logger: d.Logger}

	s.http = &http.Server{
		Addr:         d.Config.Server.Addr,
		Handler:      s.routes(d),
		ReadTimeout:  d.Config.ReadTimeout(),
		WriteTimeout: d.Config.WriteTimeout(),
		IdleTimeout:  IdleTimeout,
	}
	if d.Config.TLSEnabled() {
		s.http.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS13,
		}
	}
	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) newLimiter(r rate.Limit, burst int) *middleware.RateLimiter {
	rl := middleware.NewRateLimiter(r, burst, limiterIdle)
	rl.SetTrustForwarded(s.cfg.Server.TrustProxyHeaders)
	s.limiters = append(s.limiters, rl)
	return rl
}

func (s *Server) routes(d Deps) http.Handler {
	cfg := d.Config
	h := d.Handler

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(d.Logger))
	router.Use(middleware.MetricsMiddleware)
	router.Use(middleware.SecurityHeadersMiddleware)
	router.Use(middleware.RequestBodySizeLimitMiddleware(cfg.Server.BodyLimitBytes))
	router.Use(s.newLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst).Middleware())

	router.HandleFunc("/api/v1/health", api.Health).Methods(http.MethodGet, http.MethodHead)

	if d.JWT != nil {
		loginRouter := router.PathPrefix("/api/v1/auth").Subrouter()
		loginRouter.Use(s.newLimiter(rate.Limit(loginRate), loginBurst).Middleware())
		loginRouter.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	}

	protected := router.PathPrefix("/api/v1").Subrouter()
	if d.JWT != nil {
		protected.Use(middleware.AuthMiddleware(d.JWT))
	}

	guard := func(permission string, fn http.HandlerFunc) http.Handler {
		if d.JWT == nil {
			return fn
		}
		return middleware.RequirePermission(permission)(fn)
	}

	protected.Handle("/directory", guard(auth.PermissionReadFS, h.ListDirectory)).Methods(http.MethodGet)
	protected.Handle("/executable-directory", guard(auth.PermissionReadFS, h.ExecutableDirectory)).Methods(http.MethodGet)
	protected.Handle("/delete", guard(auth.PermissionDeleteFS, h.DeletePaths)).Methods(http.MethodPost)
	protected.Handle("/disk", guard(auth.PermissionReadMetrics, h.DiskUsage)).Methods(http.MethodGet)
	protected.Handle("/deletions/log", guard(auth.PermissionReadHistory, h.DeletionsLog)).Methods(http.MethodGet)
	protected.Handle("/deletions/stats", guard(auth.PermissionReadHistory, h.DeletionStats)).Methods(http.MethodGet)
	if d.Hub != nil {
		protected.Handle("/ws/events", guard(auth.PermissionReadFS, d.Hub.HandleWebSocket)).Methods(http.MethodGet)
	}

	// mux runs Use middleware only on matched routes, so CORS wraps the
	// router to see preflights
	return middleware.CORSMiddleware(cfg.Server.AllowedOrigins)(router)
}

// ListenAndServe blocks until the server stops. It returns nil after a
// graceful Shutdown.
func (s *Server) ListenAndServe() error {
	var err error
	if s.cfg.TLSEnabled() {
		s.logger.Printf("Starting HTTPS API server on %s", s.http.Addr)
		err = s.http.ListenAndServeTLS(s.cfg.Server.TLSCertFile, s.cfg.Server.TLSKeyFile)
	} else {
		s.logger.Printf("Starting HTTP API server on %s", s.http.Addr)
		err = s.http.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the rate limiter sweepers.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.Stop()
	}
	return s.http.Shutdown(ctx)
}
