package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dirsage/internal/config"
)

// New creates a logger using the default log location
func New() *log.Logger {
	return NewWithConfig(nil)
}

// NewWithConfig creates a logger that writes to stdout and to a rotated
// file under cfg.Logging.Dir. It degrades to stdout only when the file
// cannot be opened.
func NewWithConfig(cfg *config.Config) *log.Logger {
	dir := config.DefaultLogDir
	name := "dirsage.log"
	rotateDays := 30
	if cfg != nil {
		if cfg.Logging.Dir != "" {
			dir = cfg.Logging.Dir
		}
		if cfg.Logging.File != "" {
			name = cfg.Logging.File
		}
		if cfg.Logging.RotationDays > 0 {
			rotateDays = cfg.Logging.RotationDays
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("failed to ensure log directory %s: %v", dir, err)
		return NewStdout()
	}

	filePath := filepath.Join(dir, name)
	rotateLogsIfNeeded(filePath, rotateDays, time.Now())

	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("failed to open log file %s: %v", filePath, err)
		return NewStdout()
	}

	mw := io.MultiWriter(os.Stdout, f)
	return log.New(mw, "", log.LstdFlags|log.Lmicroseconds)
}

// NewStdout creates a logger that only writes to stdout. Used by the CLI.
func NewStdout() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags|log.Lmicroseconds)
}

// Leveled adapts a *log.Logger to the Info/Warn/Error/Debug style used by
// the scanner, eraser and API packages.
type Leveled struct {
	*log.Logger
	debug bool
}

// NewLeveled wraps logger; a nil logger falls back to log.Default().
func NewLeveled(logger *log.Logger) *Leveled {
	if logger == nil {
		logger = log.Default()
	}
	return &Leveled{Logger: logger, debug: os.Getenv("DIRSAGE_DEBUG") != ""}
}

func (l *Leveled) Info(msg string, args ...interface{}) {
	l.logWithLevel("INFO", msg, args...)
}

func (l *Leveled) Warn(msg string, args ...interface{}) {
	l.logWithLevel("WARN", msg, args...)
}

func (l *Leveled) Error(msg string, args ...interface{}) {
	l.logWithLevel("ERROR", msg, args...)
}

func (l *Leveled) Debug(msg string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.logWithLevel("DEBUG", msg, args...)
}

// logWithLevel renders args as key=value pairs after the message
func (l *Leveled) logWithLevel(level, msg string, args ...interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i < len(args); i += 2 {
		if i+1 < len(args) {
			fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
		} else {
			fmt.Fprintf(&b, " %v", args[i])
		}
	}
	l.Logger.Println(b.String())
}

// rotateLogsIfNeeded renames the log once it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int, now time.Time) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		rotatedPath := logPath + "." + timestamp

		if err := os.Rename(logPath, rotatedPath); err != nil {
			log.Printf("failed to rotate log file: %v", err)
			return
		}

		cleanupOldLogs(logPath, rotationDays, now)
	}
}

// cleanupOldLogs removes rotated copies older than rotationDays
func cleanupOldLogs(logPath string, rotationDays int, now time.Time) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := now.AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			fullPath := filepath.Join(logDir, entry.Name())
			if err := os.Remove(fullPath); err != nil {
				log.Printf("failed to remove old log file %s: %v", fullPath, err)
			}
		}
	}
}
