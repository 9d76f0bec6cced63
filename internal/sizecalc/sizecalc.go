// Package sizecalc computes the recursive byte size of files and directory
// trees. It never fails: unreadable metadata or directories count as zero.
package sizecalc

import (
	"os"
	"path/filepath"

	"dirsage/internal/limiter"
	"dirsage/internal/metrics"
)

// Logger is the subset of logging.Leveled used here
type Logger interface {
	Debug(msg string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}

// Calculator sums sizes. The zero value is ready to use and behaves like
// the unbounded, unthrottled calculator. Symlinks are followed, and there
// is no cycle protection unless MaxDepth is set.
type Calculator struct {
	// MaxDepth bounds recursion below the starting path; 0 means unbounded.
	// Directories past the bound contribute 0 bytes.
	MaxDepth int

	// MaxCPUPercent throttles traversal once per directory visited; 0
	// leaves it unthrottled. Each SizeOf call owns its own limiter, so a
	// Calculator is safe for concurrent use.
	MaxCPUPercent float64

	Logger Logger
}

// New returns a Calculator with the given depth bound and CPU ceiling.
func New(maxDepth int, maxCPUPercent float64, logger Logger) *Calculator {
	return &Calculator{
		MaxDepth:      maxDepth,
		MaxCPUPercent: maxCPUPercent,
		Logger:        logger,
	}
}

// SizeOf returns the total size of path using a zero-value Calculator.
func SizeOf(path string) uint64 {
	var c Calculator
	return c.SizeOf(path)
}

// SizeOf returns the byte length of a regular file, the recursive sum of
// a directory, or 0 for anything else or on any error.
func (c *Calculator) SizeOf(path string) uint64 {
	w := walk{Calculator: c, limiter: limiter.NewCPULimiter(c.MaxCPUPercent)}
	return w.sizeOf(path, 0)
}

type walk struct {
	*Calculator
	limiter *limiter.CPULimiter
}

func (c walk) sizeOf(path string, depth int) uint64 {
	metrics.RecordSizeVisit()

	info, err := os.Stat(path)
	if err != nil {
		c.swallow("stat", path, err)
		return 0
	}

	switch {
	case info.Mode().IsRegular():
		return uint64(info.Size())
	case info.IsDir():
		return c.dirSize(path, depth)
	default:
		return 0
	}
}

func (c walk) dirSize(path string, depth int) uint64 {
	if c.MaxDepth > 0 && depth > c.MaxDepth {
		c.log().Debug("depth bound reached", "path", path, "max_depth", c.MaxDepth)
		return 0
	}

	c.limiter.Throttle()

	entries, err := os.ReadDir(path)
	if err != nil {
		// os.ReadDir returns what it read before the error; the whole
		// directory still counts as zero.
		c.swallow("read_dir", path, err)
		return 0
	}

	var total uint64
	for _, entry := range entries {
		total += c.sizeOf(filepath.Join(path, entry.Name()), depth+1)
	}
	return total
}

func (c *Calculator) swallow(op, path string, err error) {
	metrics.RecordSizeError()
	c.log().Debug("size error counted as zero", "op", op, "path", path, "error", err)
}

func (c *Calculator) log() Logger {
	if c.Logger == nil {
		return nopLogger{}
	}
	return c.Logger
}
