package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"dirsage/internal/api"
	"dirsage/internal/auth"
	"dirsage/internal/cleanup"
	"dirsage/internal/config"
	"dirsage/internal/database"
	"dirsage/internal/events"
	"dirsage/internal/exitcodes"
	"dirsage/internal/logging"
	"dirsage/internal/metrics"
	"dirsage/internal/safety"
	"dirsage/internal/scan"
	"dirsage/internal/scheduler"
	"dirsage/internal/server"
	"dirsage/internal/sizecalc"
)

const (
	healthInterval = 30 * time.Second
	staleTimeout   = 5 * time.Second
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	pruneOnce := flag.Bool("prune-once", false, "Prune deletion history once and exit")
	flag.Parse()

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Printf("ERROR: Failed to load config %s: %v", *configPath, err)
		os.Exit(exitcodes.InvalidConfig)
	}

	logger := logging.NewWithConfig(cfg)
	logger.Println("dirsage server starting...")
	logger.Printf("Config file: %s", *configPath)

	var db *database.DeletionDB
	if cfg.HistoryEnabled() {
		logger.Printf("Opening deletion database: %s", cfg.DatabasePath)
		db, err = database.NewDeletionDB(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	} else {
		logger.Println("Deletion history disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *pruneOnce {
		if db == nil {
			logger.Println("ERROR: --prune-once requires deletion history")
			os.Exit(exitcodes.InvalidConfig)
		}
		if err := scheduler.RunOnce(ctx, cfg, db, logger); err != nil {
			logger.Printf("ERROR: History prune failed: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		return
	}

	metrics.Init()
	hc := metrics.NewHealthChecker(healthInterval)
	if db != nil {
		hc.RegisterComponent("database", db.Ping, 5*time.Second)
	}
	metrics.SetHealthChecker(hc)
	hc.Start()
	logger.Printf("Starting Prometheus metrics on %s", cfg.PrometheusAddress())
	metrics.StartServer(cfg.PrometheusAddress(), logger)

	jwtManager, err := newJWTManager(cfg, logger)
	if err != nil {
		logger.Printf("ERROR: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}

	hub := events.NewHub(logger)
	hub.SetAllowedOrigins(cfg.Server.AllowedOrigins)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	sizer := sizecalc.New(cfg.Scan.MaxDepth, cfg.ResourceLimits.MaxCPUPercent, logging.NewLeveled(logger))

	eraser := cleanup.NewEraser(logger)
	eraser.SetSizer(sizer)
	eraser.SetValidator(safety.FromConfig(cfg))
	eraser.SetNotifier(hub)

	opts := api.Options{
		Scanner:      scan.NewScanner(sizer, logger),
		Eraser:       eraser,
		Credentials:  api.Credentials{Username: cfg.Auth.Username, Password: cfg.Auth.Password},
		StaleTimeout: staleTimeout,
		Logger:       logger,
	}
	if db != nil {
		eraser.SetRecorder(db)
		opts.History = db

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := scheduler.Run(ctx, cfg, db, logger); err != nil && err != context.Canceled {
				logger.Printf("ERROR: History scheduler stopped: %v", err)
			}
		}()
	}
	if jwtManager != nil {
		opts.Tokens = jwtManager
	}

	srv := server.New(server.Deps{
		Config:  cfg,
		Handler: api.NewHandler(opts),
		Hub:     hub,
		JWT:     jwtManager,
		Logger:  logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := exitcodes.Success
	select {
	case sig := <-sigChan:
		logger.Printf("Received signal %v, shutting down gracefully...", sig)
	case err := <-serveErr:
		if err != nil {
			logger.Printf("ERROR: API server failed: %v", err)
			exitCode = exitcodes.RuntimeError
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("ERROR: API server forced to shutdown: %v", err)
	}
	metrics.Shutdown(shutdownCtx, logger)
	wg.Wait()

	logger.Println("dirsage server stopped")
	if exitCode != exitcodes.Success {
		os.Exit(exitCode)
	}
}

// newJWTManager returns nil when auth is disabled. An enabled server with
// no configured secret signs with a random per-process secret, so tokens
// do not survive a restart.
func newJWTManager(cfg *config.Config, logger *log.Logger) (*auth.JWTManager, error) {
	if !cfg.Auth.Enabled {
		logger.Println("WARNING: API authentication disabled; every route is public")
		return nil, nil
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		return nil, err
	}
	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(buf)
		logger.Printf("WARNING: No JWT secret configured. Set %s or %s to keep tokens valid across restarts", config.EnvJWTSecretFile, config.EnvJWTSecret)
	}

	return auth.NewJWTManager(secret, cfg.TokenExpiry())
}
