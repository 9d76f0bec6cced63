// Package scheduler runs periodic maintenance of the deletion history.
package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"dirsage/internal/config"
	"dirsage/internal/metrics"
)

// HistoryStore is the part of database.DeletionDB the pruner needs
type HistoryStore interface {
	DeleteOldRecords(olderThanDays int) (int64, error)
	Count() (int64, error)
	Vacuum() error
}

// RunOnce prunes history rows older than the retention window, vacuums
// when anything was removed and refreshes the history metrics.
func RunOnce(ctx context.Context, cfg *config.Config, store HistoryStore, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}
	if store == nil {
		return errors.New("nil history store")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	start := time.Now()

	pruned, err := store.DeleteOldRecords(cfg.History.RetentionDays)
	if err != nil {
		metrics.RecordHistoryWriteError()
		return err
	}

	if pruned > 0 {
		if err := store.Vacuum(); err != nil {
			logger.Printf("history vacuum failed: %v", err)
		}
	}

	remaining, err := store.Count()
	if err != nil {
		return err
	}

	metrics.RecordPrune(pruned, remaining, start.Unix())
	logger.Printf("history prune complete: pruned=%d remaining=%d retention_days=%d duration=%.3fs",
		pruned, remaining, cfg.History.RetentionDays, time.Since(start).Seconds())
	return nil
}

// Run prunes once immediately and then every cfg.PruneInterval() until
// ctx is cancelled. Failed cycles are logged and retried on the next tick.
func Run(ctx context.Context, cfg *config.Config, store HistoryStore, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	if cfg == nil {
		return errors.New("nil config")
	}

	if err := RunOnce(ctx, cfg, store, logger); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Printf("error running prune cycle: %v", err)
	}

	ticker := time.NewTicker(cfg.PruneInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Println("scheduler shutting down")
			return ctx.Err()
		case <-ticker.C:
			if err := RunOnce(ctx, cfg, store, logger); err != nil {
				logger.Printf("error running prune cycle: %v", err)
			}
		}
	}
}
