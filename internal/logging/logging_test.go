package logging

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dirsage/internal/config"
)

func TestNewWithConfigWritesFile(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Dir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.File = "test.log"

	logger := NewWithConfig(cfg)
	logger.Println("hello from test")

	data, err := os.ReadFile(filepath.Join(cfg.Logging.Dir, "test.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message, got %q", data)
	}
}

func TestLeveledFormatsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewLeveled(log.New(&buf, "", 0))

	l.Info("scan complete", "path", "/tmp", "entries", 3)
	l.Warn("odd", "dangling")

	out := buf.String()
	if !strings.Contains(out, "[INFO] scan complete path=/tmp entries=3") {
		t.Errorf("unexpected info line: %q", out)
	}
	if !strings.Contains(out, "[WARN] odd dangling") {
		t.Errorf("unexpected warn line: %q", out)
	}
}

func TestLeveledDebugSuppressed(t *testing.T) {
	t.Setenv("DIRSAGE_DEBUG", "")
	var buf bytes.Buffer
	l := NewLeveled(log.New(&buf, "", 0))
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug output should be suppressed, got %q", buf.String())
	}
}

func TestRotateLogsIfNeeded(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "app.log")
	if err := os.WriteFile(logPath, []byte("old"), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}
	old := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(logPath, old, old); err != nil {
		t.Fatalf("Failed to age log: %v", err)
	}

	rotateLogsIfNeeded(logPath, 5, time.Now())

	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("expected log to be rotated away")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		// rotated copy is itself older than the window and gets pruned
		t.Errorf("expected rotated copy to be pruned, found %d entries", len(entries))
	}
}
