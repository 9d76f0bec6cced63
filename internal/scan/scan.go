package scan

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"dirsage/internal/logging"
	"dirsage/internal/metrics"
	"dirsage/internal/sizecalc"
)

// ParentName is the name of the synthetic entry pointing one level up.
const ParentName = ".."

// Logger interface for structured logging
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// Sizer computes the recursive size of a path and never fails.
type Sizer interface {
	SizeOf(path string) uint64
}

// Entry is one row of a directory listing.
type Entry struct {
	Path              string `json:"path"`
	Name              string `json:"name"`
	SizeBytes         uint64 `json:"size_bytes"`
	IsDir             bool   `json:"is_dir"`
	HumanReadableSize string `json:"human_readable_size"`
}

// IsParent reports whether e is the synthetic ".." entry.
func (e Entry) IsParent() bool {
	return e.Name == ParentName && e.HumanReadableSize == "-"
}

// Scanner lists directories with recursive sizes
type Scanner struct {
	sizer  Sizer
	logger Logger
}

// NewScanner creates a Scanner. A nil sizer uses an unbounded
// sizecalc.Calculator; a nil logger uses log.Default().
func NewScanner(sizer Sizer, logger *log.Logger) *Scanner {
	if sizer == nil {
		sizer = &sizecalc.Calculator{}
	}
	return &Scanner{
		sizer:  sizer,
		logger: logging.NewLeveled(logger),
	}
}

// Scan lists path with a default Scanner.
func Scan(path string) ([]Entry, error) {
	return NewScanner(nil, nil).Scan(path)
}

// Scan returns the synthetic parent entry (unless path is a root) followed
// by path's immediate children sorted by size, largest first. Any failure
// to list the directory or read an entry's metadata fails the whole scan.
func (s *Scanner) Scan(path string) ([]Entry, error) {
	start := time.Now()

	entries, err := s.scan(path)
	if err != nil {
		var se *Error
		status := "error"
		if errors.As(err, &se) {
			status = se.Kind.String()
		}
		metrics.RecordScan(status, 0, time.Since(start))
		s.logger.Warn("Scan failed", "path", path, "error", err, "cause", errors.Unwrap(err))
		return nil, err
	}

	metrics.RecordScan("success", len(entries), time.Since(start))
	s.logger.Info("Scan complete", "path", path, "entries", len(entries), "duration", time.Since(start))
	return entries, nil
}

func (s *Scanner) scan(path string) ([]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, notFound(path, err)
	}

	dir, err := canonicalize(path)
	if err != nil {
		return nil, unresolvable(path, err)
	}

	var items []Entry
	if parent := filepath.Dir(dir); parent != dir {
		items = append(items, Entry{
			Path:              parent,
			Name:              ParentName,
			SizeBytes:         0,
			IsDir:             true,
			HumanReadableSize: "-",
		})
	}

	children, err := s.readChildren(dir)
	if err != nil {
		return nil, err
	}

	sort.Slice(children, func(i, j int) bool {
		return children[i].SizeBytes > children[j].SizeBytes
	})

	return append(items, children...), nil
}

func (s *Scanner) readChildren(dir string) ([]Entry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, readFailure(dir, "Failed to read directory", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err == nil && !info.IsDir() {
		err = syscall.ENOTDIR
	}
	if err != nil {
		return nil, readFailure(dir, "Failed to read directory", err)
	}

	dirEntries, err := f.ReadDir(-1)
	if err != nil {
		return nil, readFailure(dir, "Failed to read entry", err)
	}

	children := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		childPath := filepath.Join(dir, de.Name())

		// Info does not follow symlinks, so a link to a directory is
		// listed as a non-directory even though its size follows the link.
		info, err := de.Info()
		if err != nil {
			return nil, readFailure(childPath, "Failed to get metadata", err)
		}

		size := s.sizer.SizeOf(childPath)
		children = append(children, Entry{
			Path:              childPath,
			Name:              de.Name(),
			SizeBytes:         size,
			IsDir:             info.IsDir(),
			HumanReadableSize: FormatSize(size),
		})

		s.logger.Debug("Entry sized", "path", childPath, "size", size)
	}
	return children, nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
