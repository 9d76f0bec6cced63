// Package safety guards batch deletion against removing system paths or
// paths outside the configured roots.
package safety

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"dirsage/internal/config"
)

var (
	ErrInvalidPath    = errors.New("invalid path")
	ErrProtectedPath  = errors.New("protected path")
	ErrOutsideAllowed = errors.New("outside allowed roots")
	ErrTraversal      = errors.New("path traversal detected")
	ErrSymlinkEscape  = errors.New("symlink escape detected")
)

// Validator decides whether a path may be deleted. An empty AllowedRoots
// list places no root restriction; protected paths are always enforced.
type Validator struct {
	AllowedRoots   []string
	ProtectedPaths []string
}

// NewValidator creates a validator with allowed roots and optional additional protected paths
func NewValidator(allowed []string, extraProtected []string) *Validator {
	return &Validator{
		AllowedRoots:   normalizeRoots(allowed),
		ProtectedPaths: defaultProtected(extraProtected),
	}
}

// FromConfig returns nil when the guard is disabled, which the eraser
// treats as "no validation".
func FromConfig(cfg *config.Config) *Validator {
	if cfg == nil || !cfg.Safety.Enabled {
		return nil
	}
	return NewValidator(cfg.Safety.AllowedRoots, cfg.Safety.ProtectedPaths)
}

// ValidateDeleteTarget returns one of the package sentinels when path must
// not be deleted.
func (v *Validator) ValidateDeleteTarget(path string) error {
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	if IsProtectedPath(p, v.ProtectedPaths) {
		return ErrProtectedPath
	}

	if len(v.AllowedRoots) == 0 {
		return nil
	}

	if !IsWithinAllowedRoots(p, v.AllowedRoots) {
		return ErrOutsideAllowed
	}

	// Raw ".." segments are only a concern when roots are enforced
	if DetectTraversal(path) {
		return ErrTraversal
	}

	escaped, err := DetectSymlinkEscape(p, v.AllowedRoots)
	if err != nil {
		// Missing paths are reported by the eraser's own existence check
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if escaped {
		return ErrSymlinkEscape
	}

	return nil
}

// NormalizePath converts path to absolute, cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", ErrInvalidPath
	}
	return filepath.Clean(abs), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	for _, p := range strings.Split(filepath.ToSlash(raw), "/") {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsWithinAllowedRoots checks if path is within any allowed root
func IsWithinAllowedRoots(path string, allowedRoots []string) bool {
	p := filepath.Clean(path)
	for _, r := range allowedRoots {
		if hasPathPrefix(p, r) {
			return true
		}
	}
	return false
}

// DetectSymlinkEscape resolves symlinks and checks if resolved path escapes allowed roots
func DetectSymlinkEscape(cleanAbs string, allowedRoots []string) (bool, error) {
	resolved, err := filepath.EvalSymlinks(cleanAbs)
	if err != nil {
		return false, err
	}
	resolvedAbs, err := filepath.Abs(resolved)
	if err != nil {
		return false, err
	}
	return !IsWithinAllowedRoots(filepath.Clean(resolvedAbs), allowedRoots), nil
}

// IsProtectedPath reports whether path is the filesystem root or lies at
// or below a protected path.
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	root := string(os.PathSeparator)

	if p == root {
		return true
	}

	for _, prot := range protected {
		prot = filepath.Clean(prot)
		if prot == root {
			continue
		}
		if hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// hasPathPrefix reports whether path equals prefix or lies below it
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if prefix == string(os.PathSeparator) {
		return filepath.IsAbs(path)
	}
	if path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+string(os.PathSeparator))
}

// normalizeRoots converts slice of roots to absolute, cleaned paths
func normalizeRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if strings.TrimSpace(r) == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			continue
		}
		out = append(out, filepath.Clean(abs))
	}
	return out
}

// defaultProtected returns the base set of protected paths plus any extras
func defaultProtected(extra []string) []string {
	base := []string{
		"/",
		"/etc",
		"/bin",
		"/usr",
		"/boot",
		"/lib",
		"/lib64",
		"/sbin",
		"/proc",
		"/sys",
		"/dev",
		filepath.Dir(config.DefaultDatabasePath),
		filepath.Dir(config.DefaultConfigPath),
	}
	return append(base, extra...)
}
