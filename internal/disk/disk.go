// Package disk reports capacity of the filesystem holding a path.
package disk

import (
	"errors"
	"log"
	"os"
	"syscall"
	"time"

	psdisk "github.com/shirou/gopsutil/v3/disk"

	"dirsage/internal/scan"
)

// ErrStale is returned when the path sits on an unresponsive mount.
var ErrStale = errors.New("filesystem not responding")

// Usage describes the filesystem holding Path
type Usage struct {
	Path        string  `json:"path"`
	Filesystem  string  `json:"filesystem"`
	TotalBytes  uint64  `json:"total_bytes"`
	FreeBytes   uint64  `json:"free_bytes"`
	UsedBytes   uint64  `json:"used_bytes"`
	UsedPercent float64 `json:"used_percent"`
	TotalHuman  string  `json:"total_human"`
	FreeHuman   string  `json:"free_human"`
	UsedHuman   string  `json:"used_human"`
}

// GetUsage returns usage for the filesystem holding path. A positive
// staleTimeout first probes the path and fails with ErrStale when it hangs.
func GetUsage(path string, staleTimeout time.Duration) (*Usage, error) {
	if path == "" {
		path = "/"
	}

	if staleTimeout > 0 && IsNFSStale(path, staleTimeout) {
		return nil, ErrStale
	}

	u, err := psdisk.Usage(path)
	if err != nil {
		return nil, err
	}
	return newUsage(path, u.Fstype, u.Total, u.Free, u.Used, u.UsedPercent), nil
}

// GetAllUsage returns usage for every mounted physical partition.
// Partitions that cannot be read are logged and skipped.
func GetAllUsage() ([]Usage, error) {
	partitions, err := psdisk.Partitions(false)
	if err != nil {
		return nil, err
	}

	var out []Usage
	for _, p := range partitions {
		u, err := psdisk.Usage(p.Mountpoint)
		if err != nil {
			log.Printf("Warning: Could not get disk usage for %s: %v", p.Mountpoint, err)
			continue
		}
		out = append(out, *newUsage(p.Mountpoint, p.Fstype, u.Total, u.Free, u.Used, u.UsedPercent))
	}
	return out, nil
}

func newUsage(path, fstype string, total, free, used uint64, usedPercent float64) *Usage {
	return &Usage{
		Path:        path,
		Filesystem:  fstype,
		TotalBytes:  total,
		FreeBytes:   free,
		UsedBytes:   used,
		UsedPercent: usedPercent,
		TotalHuman:  scan.FormatSize(total),
		FreeHuman:   scan.FormatSize(free),
		UsedHuman:   scan.FormatSize(used),
	}
}

// IsNFSStale checks if a path is on a stale NFS mount by attempting a quick stat
// with timeout. Returns true if the operation times out or fails with NFS-specific errors.
func IsNFSStale(path string, timeout time.Duration) bool {
	done := make(chan error, 1)

	go func() {
		_, err := os.Stat(path)
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return false
		}
		var errno syscall.Errno
		if errors.As(err, &errno) {
			return errno == syscall.EIO || errno == syscall.ESTALE || errno == syscall.ENXIO
		}
		return os.IsTimeout(err)
	case <-time.After(timeout):
		return true
	}
}
