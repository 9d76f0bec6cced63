// Package execdir reports where the running binary lives.
package execdir

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrUnavailable is returned when the OS cannot report the executable path.
var ErrUnavailable = errors.New("Failed to get executable directory")

// executable is swapped in tests
var executable = os.Executable

// Dir returns the directory containing the running executable. It is read
// from the OS on every call.
func Dir() (string, error) {
	exe, err := executable()
	if err != nil {
		return "", &Error{err: err}
	}
	return parentOf(exe), nil
}

func parentOf(exe string) string {
	if exe == "" {
		return "."
	}
	dir := filepath.Dir(exe)
	if dir == "" {
		return "."
	}
	return dir
}

// Error carries the OS failure behind ErrUnavailable.
type Error struct {
	err error
}

func (e *Error) Error() string { return ErrUnavailable.Error() }

func (e *Error) Unwrap() []error { return []error{ErrUnavailable, e.err} }
