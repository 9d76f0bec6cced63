// Package cleanup deletes batches of files and directory trees. A batch
// stops at the first path that is missing, blocked or fails to delete;
// paths already removed stay removed.
package cleanup

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"dirsage/internal/database"
	"dirsage/internal/fsops"
	"dirsage/internal/logging"
	"dirsage/internal/metrics"
	"dirsage/internal/safety"
	"dirsage/internal/sizecalc"
)

// Logger interface for structured logging in cleanup
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// Recorder persists one row per processed path
type Recorder interface {
	RecordDeletion(r database.DeletionRecord) error
}

// Sizer measures a path before it is removed
type Sizer interface {
	SizeOf(path string) uint64
}

// DeletionEvent is published after each successful removal
type DeletionEvent struct {
	BatchID    string    `json:"batch_id"`
	Path       string    `json:"path"`
	ObjectType string    `json:"object_type"`
	Size       uint64    `json:"size"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier receives deletion events; implementations must not block.
type Notifier interface {
	NotifyDeletion(ev DeletionEvent)
}

// Eraser performs batch deletions
type Eraser struct {
	logger    Logger
	deleter   fsops.Deleter
	validator *safety.Validator
	recorder  Recorder
	notifier  Notifier
	sizer     Sizer
	newID     func() string
}

// NewEraser creates an Eraser that deletes through the OS with no safety
// guard, history or events. A nil logger uses log.Default().
func NewEraser(logger *log.Logger) *Eraser {
	return &Eraser{
		logger:  logging.NewLeveled(logger),
		deleter: fsops.OSDeleter{},
		sizer:   &sizecalc.Calculator{},
		newID:   func() string { return uuid.New().String() },
	}
}

// SetDeleter replaces the filesystem backend.
func (e *Eraser) SetDeleter(d fsops.Deleter) { e.deleter = d }

// SetValidator enables the safety guard; nil disables it.
func (e *Eraser) SetValidator(v *safety.Validator) { e.validator = v }

// SetRecorder enables deletion history.
func (e *Eraser) SetRecorder(r Recorder) { e.recorder = r }

// SetNotifier enables deletion events.
func (e *Eraser) SetNotifier(n Notifier) { e.notifier = n }

// SetSizer replaces the calculator used to measure paths before removal.
func (e *Eraser) SetSizer(s Sizer) { e.sizer = s }

// DeleteAll deletes paths with a default Eraser.
func DeleteAll(paths []string) error {
	return NewEraser(nil).DeleteAll(paths)
}

// DeleteAll processes paths in order. Directories (after following
// symlinks) are removed recursively, anything else with a single remove.
// It returns a *Error for the first path that does not exist, is blocked
// by the safety guard, or cannot be deleted.
func (e *Eraser) DeleteAll(paths []string) error {
	batchID := e.newID()
	e.logger.Info("Starting delete batch", "batch_id", batchID, "paths", len(paths))

	for i, path := range paths {
		if err := e.deleteOne(batchID, path); err != nil {
			metrics.RecordDeleteBatch(err.Kind.String())
			metrics.RecordDeleteFailure(err.Kind.String())
			e.logger.Error("Delete batch stopped",
				"batch_id", batchID,
				"path", path,
				"completed", i,
				"remaining", len(paths)-i-1,
				"error", err,
				"cause", err.err,
			)
			return err
		}
	}

	metrics.RecordDeleteBatch("success")
	e.logger.Info("Delete batch complete", "batch_id", batchID, "deleted", len(paths))
	return nil
}

func (e *Eraser) deleteOne(batchID, path string) *Error {
	// Stat follows symlinks: a dangling link does not exist
	info, err := os.Stat(path)
	if err != nil {
		nerr := notFound(path, err)
		e.record(batchID, database.ActionNotFound, path, "", 0, nerr)
		return nerr
	}

	isDir := info.IsDir()
	objectType := "file"
	if isDir {
		objectType = "directory"
	}

	if e.validator != nil {
		if verr := e.validator.ValidateDeleteTarget(path); verr != nil {
			berr := blocked(path, verr)
			e.record(batchID, database.ActionBlocked, path, objectType, 0, berr)
			return berr
		}
	}

	size := e.measure(path)

	if isDir {
		err = e.deleter.RemoveAll(path)
	} else {
		err = e.deleter.Remove(path)
	}
	if err != nil {
		derr := deleteFailure(path, isDir, err)
		e.record(batchID, database.ActionError, path, objectType, size, derr)
		return derr
	}

	e.logger.Info(fmt.Sprintf("[%s] DELETE path=%s object=%s size=%d",
		time.Now().UTC().Format(time.RFC3339), path, objectType, size), "batch_id", batchID)

	metrics.RecordPathDeleted(objectType, size)
	e.record(batchID, database.ActionDelete, path, objectType, size, nil)
	if e.notifier != nil {
		e.notifier.NotifyDeletion(DeletionEvent{
			BatchID:    batchID,
			Path:       path,
			ObjectType: objectType,
			Size:       size,
			Timestamp:  time.Now(),
		})
	}
	return nil
}

// measure sizes path only when something consumes the value
func (e *Eraser) measure(path string) uint64 {
	if e.sizer == nil || (e.recorder == nil && e.notifier == nil) {
		return 0
	}
	return e.sizer.SizeOf(path)
}

func (e *Eraser) record(batchID, action, path, objectType string, size uint64, cause *Error) {
	if e.recorder == nil {
		return
	}
	if objectType == "" {
		objectType = "unknown"
	}

	r := database.DeletionRecord{
		BatchID:    batchID,
		Action:     action,
		Path:       path,
		ObjectType: objectType,
		Size:       int64(size),
	}
	if cause != nil {
		r.ErrorMessage = cause.Error()
	}

	// History is best effort and never changes the batch result
	if err := e.recorder.RecordDeletion(r); err != nil {
		metrics.RecordHistoryWriteError()
		e.logger.Error("Failed to record to database", "path", path, "action", action, "error", err)
	}
}
